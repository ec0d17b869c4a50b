// Package reconcile keeps the local job table in step with the live listing:
// it lists ids, diffs them against stored state, and fetches details only for
// jobs it has never seen.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/mcfradar/internal/crawler"
	"github.com/amishk599/mcfradar/internal/embedding"
	"github.com/amishk599/mcfradar/internal/extract"
	"github.com/amishk599/mcfradar/internal/lock"
	"github.com/amishk599/mcfradar/internal/model"
)

// DefaultBatchSize is how many added jobs are buffered per write.
const DefaultBatchSize = 50

// Store is the persistence the engine needs.
type Store interface {
	model.RunStore
	model.JobStore
	model.EmbeddingStore
}

// Lister produces the observed id set for one run.
type Lister interface {
	ListJobIDs(ctx context.Context, opts crawler.Options) (*crawler.Result, error)
}

// Options restricts a run. The zero value is a full run.
type Options struct {
	Categories []string
	Limit      int
}

// Result summarizes one run.
type Result struct {
	Run          model.Run
	Diff         Diff
	TotalSeen    int
	Complete     bool
	Interrupted  bool
	DetailErrors int
	Embedded     int
	EmbedErrors  int
	Written      int // added jobs persisted
	Duration     time.Duration
}

// Summary is the notifier view of the result.
func (r *Result) Summary() model.RunSummary {
	return model.RunSummary{
		RunID: r.Run.ID,
		Kind:  r.Run.Kind,
		Counts: model.RunCounts{
			TotalSeen:  r.TotalSeen,
			Added:      len(r.Diff.Added),
			Maintained: len(r.Diff.Maintained),
			Removed:    len(r.Diff.Removed),
		},
		Complete:     r.Complete,
		Interrupted:  r.Interrupted,
		DetailErrors: r.DetailErrors,
		Embedded:     r.Embedded,
		Duration:     r.Duration,
	}
}

// Engine runs reconciliation passes.
type Engine struct {
	store     Store
	lister    Lister
	details   model.DetailSource
	embedder  embedding.Embedder
	locker    lock.Locker
	batchSize int
	logger    *slog.Logger
}

// NewEngine wires an engine. A nil locker means single-process use; a nil
// embedder disables embeddings.
func NewEngine(
	store Store,
	lister Lister,
	details model.DetailSource,
	embedder embedding.Embedder,
	locker lock.Locker,
	batchSize int,
	logger *slog.Logger,
) *Engine {
	if locker == nil {
		locker = lock.NewNopLocker()
	}
	if embedder == nil {
		embedder = embedding.NewNopEmbedder()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		store:     store,
		lister:    lister,
		details:   details,
		embedder:  embedder,
		locker:    locker,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run executes one reconciliation pass.
//
// Cancellation is not an error: whatever was fetched is flushed, the run is
// left unfinished, and the result is flagged Interrupted.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	release, err := e.locker.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("failed to release run lock", "error", err)
		}
	}()

	listOpts := crawler.Options{Categories: opts.Categories, Limit: opts.Limit}
	kind := model.RunFull
	if listOpts.Restricted() {
		kind = model.RunIncremental
	}

	run, err := e.store.BeginRun(ctx, kind, opts.Categories)
	if err != nil {
		return nil, fmt.Errorf("beginning run: %w", err)
	}
	res := &Result{Run: run}
	logger := e.logger.With("run_id", run.ID)
	logger.Info("run started", "kind", kind, "categories", strings.Join(opts.Categories, ","), "limit", opts.Limit)

	listed, err := e.lister.ListJobIDs(ctx, listOpts)
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("run %s: listing jobs: %w", run.ID, err)
	}
	if err != nil || listed.Interrupted || ctx.Err() != nil {
		fetched := 0
		if listed != nil {
			fetched = listed.FetchedCount
		}
		logger.Warn("run interrupted during listing", "fetched", fetched)
		res.Interrupted = true
		res.Duration = time.Since(start)
		return res, nil
	}
	res.TotalSeen = len(listed.IDs)
	res.Complete = listed.Complete

	// Once the diff is taken its three effects are applied together, even if
	// an interrupt arrives meanwhile.
	wctx := context.WithoutCancel(ctx)

	existing, err := e.store.ExistingIDs(wctx)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	active, err := e.store.ActiveIDs(wctx)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	res.Diff = ComputeDiff(listed.IDs, existing, active, listed.Complete)

	logger.Info("diff computed",
		"seen", res.TotalSeen,
		"added", len(res.Diff.Added),
		"maintained", len(res.Diff.Maintained),
		"removed", len(res.Diff.Removed),
		"complete", res.Complete,
	)

	if err := e.store.RecordStatuses(wctx, run.ID, res.Diff.Added, res.Diff.Maintained, res.Diff.Removed); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if err := e.store.Touch(wctx, run.ID, res.Diff.Maintained); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if err := e.store.Deactivate(wctx, run.ID, res.Diff.Removed); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}

	if err := e.fetchAdded(ctx, logger, run.ID, res); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if res.Interrupted {
		logger.Warn("run interrupted, left unfinished", "written", res.Written, "added", len(res.Diff.Added))
		res.Duration = time.Since(start)
		return res, nil
	}

	counts := model.RunCounts{
		TotalSeen:  res.TotalSeen,
		Added:      len(res.Diff.Added),
		Maintained: len(res.Diff.Maintained),
		Removed:    len(res.Diff.Removed),
	}
	if err := e.store.FinishRun(wctx, run.ID, counts); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	now := time.Now().UTC()
	res.Run.FinishedAt = &now
	res.Run.TotalSeen, res.Run.Added, res.Run.Maintained, res.Run.Removed =
		counts.TotalSeen, counts.Added, counts.Maintained, counts.Removed
	res.Duration = time.Since(start)

	logger.Info("run finished",
		"seen", counts.TotalSeen,
		"added", counts.Added,
		"maintained", counts.Maintained,
		"removed", counts.Removed,
		"detail_errors", res.DetailErrors,
		"embedded", res.Embedded,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

// fetchAdded fetches, extracts and embeds every added job, writing them in
// batches. It sets res.Interrupted on cancellation.
func (e *Engine) fetchAdded(ctx context.Context, logger *slog.Logger, runID string, res *Result) error {
	var (
		details []model.JobDetail
		embs    []model.Embedding
	)
	// Buffered jobs are written even after an interrupt.
	flush := func() error {
		if len(details) == 0 {
			return nil
		}
		if err := e.store.UpsertJobDetails(context.WithoutCancel(ctx), runID, details, embs); err != nil {
			return err
		}
		res.Written += len(details)
		logger.Debug("flushed job batch", "jobs", len(details), "embeddings", len(embs))
		details, embs = nil, nil
		return nil
	}
	interrupt := func() error {
		res.Interrupted = true
		return flush()
	}

	for i, id := range res.Diff.Added {
		if ctx.Err() != nil {
			return interrupt()
		}

		raw, err := e.details.GetDetail(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return interrupt()
			}
			res.DetailErrors++
			logger.Warn("failed to fetch job detail", "job_uuid", id, "error", err)
			continue
		}

		fields := extract.FromDetail(raw)
		details = append(details, fields.Detail(id))

		if text := embeddingText(fields); text != "" {
			vec, err := embedding.EmbedOne(ctx, e.embedder, text)
			switch {
			case err == nil:
				embs = append(embs, model.Embedding{
					SubjectID:  id,
					ModelName:  e.embedder.ModelName(),
					Vector:     vec,
					EmbeddedAt: time.Now().UTC(),
				})
				res.Embedded++
			case ctx.Err() != nil, errors.Is(err, embedding.ErrDisabled):
				// left for backfill
			default:
				res.EmbedErrors++
				logger.Warn("failed to embed job", "job_uuid", id, "error", err)
			}
		}

		if ctx.Err() != nil {
			return interrupt()
		}
		if len(details) >= e.batchSize {
			if err := flush(); err != nil {
				return err
			}
			logger.Info("detail progress", "done", i+1, "total", len(res.Diff.Added))
		}
	}
	return flush()
}

// BackfillResult summarizes an embedding backfill.
type BackfillResult struct {
	Candidates    int
	Embedded      int
	NoDescription int
	Failed        int
	Interrupted   bool
}

// Backfill re-fetches details for active jobs without an embedding and embeds
// their descriptions. Descriptions are not stored, so the detail call is
// repeated here.
func (e *Engine) Backfill(ctx context.Context, limit int) (*BackfillResult, error) {
	if _, ok := e.embedder.(*embedding.NopEmbedder); ok {
		return nil, embedding.ErrDisabled
	}

	ids, err := e.store.JobsMissingEmbeddings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("backfill: %w", err)
	}
	res := &BackfillResult{Candidates: len(ids)}
	e.logger.Info("backfill started", "jobs", len(ids))

	for _, id := range ids {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		raw, err := e.details.GetDetail(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupted = true
				break
			}
			res.Failed++
			e.logger.Warn("backfill: failed to fetch job detail", "job_uuid", id, "error", err)
			continue
		}

		text := embeddingText(extract.FromDetail(raw))
		if text == "" {
			res.NoDescription++
			continue
		}

		vec, err := embedding.EmbedOne(ctx, e.embedder, text)
		if err != nil {
			if ctx.Err() != nil {
				res.Interrupted = true
				break
			}
			res.Failed++
			e.logger.Warn("backfill: failed to embed job", "job_uuid", id, "error", err)
			continue
		}

		err = e.store.UpsertJobEmbedding(context.WithoutCancel(ctx), model.Embedding{
			SubjectID:  id,
			ModelName:  e.embedder.ModelName(),
			Vector:     vec,
			EmbeddedAt: time.Now().UTC(),
		})
		if err != nil {
			return res, fmt.Errorf("backfill: %w", err)
		}
		res.Embedded++
	}

	e.logger.Info("backfill finished",
		"embedded", res.Embedded,
		"no_description", res.NoDescription,
		"failed", res.Failed,
		"interrupted", res.Interrupted,
	)
	return res, nil
}

// embeddingText is empty when the payload had no description.
func embeddingText(f extract.Fields) string {
	if f.Description == nil {
		return ""
	}
	if f.Title == nil {
		return *f.Description
	}
	return *f.Title + "\n\n" + *f.Description
}
