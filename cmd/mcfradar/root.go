package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/adapter"
	"github.com/amishk599/mcfradar/internal/ai"
	"github.com/amishk599/mcfradar/internal/config"
	"github.com/amishk599/mcfradar/internal/crawler"
	"github.com/amishk599/mcfradar/internal/embedding"
	"github.com/amishk599/mcfradar/internal/lock"
	"github.com/amishk599/mcfradar/internal/model"
	"github.com/amishk599/mcfradar/internal/notifier"
	"github.com/amishk599/mcfradar/internal/ratelimit"
	"github.com/amishk599/mcfradar/internal/reconcile"
	"github.com/amishk599/mcfradar/internal/retry"
	"github.com/amishk599/mcfradar/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "mcfradar",
	Short:         "MyCareersFuture job crawler and matcher",
	Long:          "mcfradar mirrors MyCareersFuture job postings locally and matches them against candidate resumes.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: MCFRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// app holds everything a command may need. Fields are filled lazily by the
// open* helpers so that cheap commands never touch the network.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   model.Store
	closers []func() error
}

func newApp() (*app, error) {
	logger := setupLogger(debug)
	cfg, path, err := config.LoadResolved(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if path == "" {
		logger.Debug("no config file found, using defaults")
	} else {
		logger.Debug("config loaded", "path", path)
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func (a *app) openStore(ctx context.Context) (model.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.Open(ctx, a.cfg.Storage.Driver, a.cfg.Storage.Path, a.cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = s
	a.closers = append(a.closers, s.Close)
	a.logger.Debug("store opened", "driver", a.cfg.Storage.Driver)
	return s, nil
}

// jobSource wraps the MCF adapter with the shared rate limiter, then retry.
func (a *app) jobSource() model.JobSource {
	api := a.cfg.API
	httpClient := &http.Client{Timeout: api.Timeout}
	var src model.JobSource = adapter.NewMCFAdapter(api.BaseURL, httpClient)
	src = ratelimit.NewRateLimitedClient(src, ratelimit.NewLimiter(api.MinDelay), "mcf")
	return retry.NewRetryClient(src, api.MaxRetries, api.RetryBaseDelay, a.logger)
}

func (a *app) embedder(ctx context.Context) (embedding.Embedder, error) {
	e := a.cfg.Embedding
	switch e.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(e.BaseURL, e.APIKey, e.Model, e.Dimensions, &http.Client{Timeout: e.Timeout}), nil
	case "gemini":
		g, err := embedding.NewGeminiEmbedder(ctx, e.APIKey, e.Model, e.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		return g, nil
	default:
		return embedding.NewNopEmbedder(), nil
	}
}

func (a *app) extractor() ai.ProfileExtractor {
	c := a.cfg.AI
	if !c.Enabled {
		return ai.NewNopProfileExtractor()
	}
	provider := ai.NewOpenAIProvider(c.BaseURL, c.APIKey, c.Model, &http.Client{Timeout: c.Timeout})
	a.logger.Debug("profile extraction enabled", "model", c.Model)
	return ai.NewLLMProfileExtractor(provider, ai.ProfileExtractionTemplate, a.logger)
}

// locker returns the Redis lock when configured; otherwise a no-op.
func (a *app) locker(ctx context.Context) (lock.Locker, error) {
	l := a.cfg.Lock
	if l.RedisURL == "" {
		return lock.NewNopLocker(), nil
	}
	client, err := lock.NewRedisClient(ctx, l.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return lock.NewRedisLocker(client, l.Key, l.TTL), nil
}

func (a *app) notifier() model.Notifier {
	switch a.cfg.Notification.Type {
	case "slack":
		a.logger.Debug("using slack notifier")
		return notifier.NewSlackNotifier(a.cfg.Notification.WebhookURL, &http.Client{Timeout: a.cfg.API.Timeout}, a.logger)
	default:
		return notifier.NewLogNotifier(a.logger)
	}
}

// engine builds a reconciliation engine over st. onProgress may be nil.
func (a *app) engine(ctx context.Context, st reconcile.Store, onProgress func(crawler.Progress)) (*reconcile.Engine, error) {
	src := a.jobSource()
	lister := crawler.NewLister(src, a.cfg.API.PageSize, a.logger)
	if onProgress != nil {
		lister.OnProgress(onProgress)
	}
	emb, err := a.embedder(ctx)
	if err != nil {
		return nil, err
	}
	lk, err := a.locker(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.NewEngine(st, lister, src, emb, lk, a.cfg.Crawl.BatchSize, a.logger), nil
}

// withApp adapts a command body that needs an app and a signal-aware context.
func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()
		return fn(ctx, a, cmd, args)
	}
}

// profileForUser maps a missing profile to a friendly error.
func profileForUser(ctx context.Context, st model.Store, userID string) (model.Profile, error) {
	p, err := st.ProfileByUser(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return p, fmt.Errorf("no profile for user %q, run process-resume first", userID)
	}
	return p, err
}
