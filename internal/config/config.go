package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at the config file.
const EnvConfigPath = "MCFRADAR_CONFIG"

// DefaultPath is used when neither --config nor MCFRADAR_CONFIG is set.
const DefaultPath = "config.yaml"

// Config is the root configuration for mcfradar.
type Config struct {
	API           APIConfig
	Storage       StorageConfig
	Embedding     EmbeddingConfig
	AI            AIConfig
	Crawl         CrawlConfig
	Lock          LockConfig
	Notification  NotificationConfig
	DefaultUserID string
}

// APIConfig controls access to the MyCareersFuture API.
type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration // per-request timeout
	PageSize       int
	MinDelay       time.Duration // minimum gap between any two requests
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path"`   // sqlite file
	DatabaseURL string `yaml:"database_url"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string // "openai", "gemini" or "none"
	BaseURL    string // OpenAI-compatible endpoint
	Model      string
	APIKey     string // expanded from env var by Load
	Dimensions int    // 0 keeps the model default
	Timeout    time.Duration
}

// AIConfig controls the optional LLM profile extraction.
type AIConfig struct {
	Enabled bool
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// CrawlConfig controls reconciliation runs.
type CrawlConfig struct {
	BatchSize  int
	Schedule   string   // cron spec for `mcfradar start`
	Categories []string // empty crawls every category
}

// LockConfig enables the cross-process run lock when RedisURL is set.
type LockConfig struct {
	RedisURL string
	Key      string
	TTL      time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

const (
	defaultAPIBaseURL    = "https://api.mycareersfuture.gov.sg"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultEmbedModel    = "text-embedding-3-small"
	defaultLockKey       = "mcfradar:crawl:lock"
)

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        defaultAPIBaseURL,
			Timeout:        30 * time.Second,
			PageSize:       100,
			MinDelay:       200 * time.Millisecond,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "data/mcfradar.db",
		},
		Embedding: EmbeddingConfig{
			Provider: "none",
			BaseURL:  defaultOpenAIBaseURL,
			Model:    defaultEmbedModel,
			Timeout:  30 * time.Second,
		},
		AI: AIConfig{
			BaseURL: defaultOpenAIBaseURL,
			Timeout: 60 * time.Second,
		},
		Crawl: CrawlConfig{
			BatchSize: 50,
			Schedule:  "@every 6h",
		},
		Lock: LockConfig{
			Key: defaultLockKey,
			TTL: 2 * time.Hour,
		},
		Notification:  NotificationConfig{Type: "log"},
		DefaultUserID: "default_user",
	}
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	API           rawAPIConfig       `yaml:"api"`
	Storage       StorageConfig      `yaml:"storage"`
	Embedding     rawEmbeddingConfig `yaml:"embedding"`
	AI            rawAIConfig        `yaml:"ai"`
	Crawl         rawCrawlConfig     `yaml:"crawl"`
	Lock          rawLockConfig      `yaml:"lock"`
	Notification  NotificationConfig `yaml:"notification"`
	DefaultUserID string             `yaml:"default_user_id"`
}

type rawAPIConfig struct {
	BaseURL        string `yaml:"base_url"`
	Timeout        string `yaml:"timeout"`
	PageSize       int    `yaml:"page_size"`
	MinDelay       string `yaml:"min_delay"`
	MaxRetries     *int   `yaml:"max_retries"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
}

type rawEmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
	Timeout    string `yaml:"timeout"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawCrawlConfig struct {
	BatchSize  int      `yaml:"batch_size"`
	Schedule   string   `yaml:"schedule"`
	Categories []string `yaml:"categories"`
}

type rawLockConfig struct {
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`
	TTL      string `yaml:"ttl"`
}

// Resolve picks the config path: the flag value, then MCFRADAR_CONFIG, then
// ./config.yaml. explicit is false only for the last fallback.
func Resolve(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, true
	}
	return DefaultPath, false
}

// LoadResolved preloads .env, resolves the config path and loads it. A
// missing fallback file yields Default(); a missing explicit file is an
// error.
func LoadResolved(flagPath string) (*Config, string, error) {
	_ = godotenv.Load()

	path, explicit := Resolve(flagPath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		cfg := Default()
		return cfg, "", validate(cfg)
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Load reads and parses the YAML config file at path, fills defaults,
// validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if err := apply(cfg, &raw); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func apply(cfg *Config, raw *rawConfig) error {
	var err error
	setString(&cfg.API.BaseURL, raw.API.BaseURL)
	if cfg.API.Timeout, err = parseDuration("api.timeout", raw.API.Timeout, cfg.API.Timeout); err != nil {
		return err
	}
	if raw.API.PageSize != 0 {
		cfg.API.PageSize = raw.API.PageSize
	}
	if cfg.API.MinDelay, err = parseDuration("api.min_delay", raw.API.MinDelay, cfg.API.MinDelay); err != nil {
		return err
	}
	if raw.API.MaxRetries != nil {
		cfg.API.MaxRetries = *raw.API.MaxRetries
	}
	if cfg.API.RetryBaseDelay, err = parseDuration("api.retry_base_delay", raw.API.RetryBaseDelay, cfg.API.RetryBaseDelay); err != nil {
		return err
	}

	setString(&cfg.Storage.Driver, raw.Storage.Driver)
	setString(&cfg.Storage.Path, raw.Storage.Path)
	setString(&cfg.Storage.DatabaseURL, raw.Storage.DatabaseURL)

	setString(&cfg.Embedding.Provider, strings.ToLower(raw.Embedding.Provider))
	setString(&cfg.Embedding.BaseURL, raw.Embedding.BaseURL)
	setString(&cfg.Embedding.Model, raw.Embedding.Model)
	cfg.Embedding.APIKey = raw.Embedding.APIKey
	cfg.Embedding.Dimensions = raw.Embedding.Dimensions
	if cfg.Embedding.Timeout, err = parseDuration("embedding.timeout", raw.Embedding.Timeout, cfg.Embedding.Timeout); err != nil {
		return err
	}
	if cfg.Embedding.Provider == "gemini" && raw.Embedding.Model == "" {
		cfg.Embedding.Model = ""
	}

	cfg.AI.Enabled = raw.AI.Enabled
	setString(&cfg.AI.BaseURL, raw.AI.BaseURL)
	cfg.AI.Model = raw.AI.Model
	cfg.AI.APIKey = raw.AI.APIKey
	if cfg.AI.Timeout, err = parseDuration("ai.timeout", raw.AI.Timeout, cfg.AI.Timeout); err != nil {
		return err
	}

	if raw.Crawl.BatchSize != 0 {
		cfg.Crawl.BatchSize = raw.Crawl.BatchSize
	}
	setString(&cfg.Crawl.Schedule, raw.Crawl.Schedule)
	cfg.Crawl.Categories = raw.Crawl.Categories

	cfg.Lock.RedisURL = raw.Lock.RedisURL
	setString(&cfg.Lock.Key, raw.Lock.Key)
	if cfg.Lock.TTL, err = parseDuration("lock.ttl", raw.Lock.TTL, cfg.Lock.TTL); err != nil {
		return err
	}

	setString(&cfg.Notification.Type, raw.Notification.Type)
	cfg.Notification.WebhookURL = raw.Notification.WebhookURL
	setString(&cfg.DefaultUserID, raw.DefaultUserID)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseDuration(field, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, v, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.API.PageSize < 1 || cfg.API.PageSize > 100 {
		return fmt.Errorf("api.page_size must be between 1 and 100, got %d", cfg.API.PageSize)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", cfg.API.Timeout)
	}
	if cfg.API.MinDelay < 0 {
		return fmt.Errorf("api.min_delay must not be negative, got %v", cfg.API.MinDelay)
	}
	if cfg.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries must not be negative, got %d", cfg.API.MaxRetries)
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Storage.Driver)
	}

	switch cfg.Embedding.Provider {
	case "none":
	case "openai":
		if cfg.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the openai provider")
		}
	case "gemini":
		if cfg.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\", \"gemini\" or \"none\", got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", cfg.Embedding.Dimensions)
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	if cfg.Crawl.BatchSize <= 0 {
		return fmt.Errorf("crawl.batch_size must be positive, got %d", cfg.Crawl.BatchSize)
	}
	if cfg.Crawl.Schedule == "" {
		return fmt.Errorf("crawl.schedule must not be empty")
	}

	if cfg.Lock.RedisURL != "" && cfg.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive when lock.redis_url is set, got %v", cfg.Lock.TTL)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
