// Package crawler lists live job identifiers from the upstream search API.
//
// The search endpoint stops paginating at roughly 10,000 rows per filter, so a
// full listing queries each catalog category separately and unions the
// results. Categories overlap; a seen-set keeps every identifier once.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/mcfradar/internal/categories"
	"github.com/amishk599/mcfradar/internal/model"
)

const (
	// DefaultPageSize is the largest page the upstream honours.
	DefaultPageSize = 100

	// PaginationCeiling is the undocumented per-query row limit.
	PaginationCeiling = 10000
)

// Options restricts a listing pass. The zero value lists the whole universe.
type Options struct {
	Categories []string // nil means every catalog category
	Limit      int      // stop after this many unique ids; 0 means no limit
}

// Restricted reports whether the pass cannot observe the whole universe.
func (o Options) Restricted() bool {
	return len(o.Categories) > 0 || o.Limit > 0
}

// CategoryResult describes the listing of one category.
type CategoryResult struct {
	Category       string
	TotalAvailable int  // from the count probe
	FetchedCount   int  // ids first seen in this category
	Skipped        bool // probe reported zero jobs
	Truncated      bool // total exceeded the pagination ceiling
}

// Progress is reported after every page.
type Progress struct {
	Category        string
	CategoryIndex   int // 1-based
	TotalCategories int
	Fetched         int // unique ids so far
	EstimatedTotal  int // sum of probe totals, counts overlaps more than once
	Elapsed         time.Duration
}

// Result of one listing pass.
type Result struct {
	IDs          []string // unique, in discovery order
	FetchedCount int
	// Complete is true only when every catalog category was listed to the
	// end without a limit. Absence can be inferred only from complete passes.
	Complete    bool
	Interrupted bool
	Categories  []CategoryResult
	Duration    time.Duration
}

// Lister runs category-partitioned listing passes.
type Lister struct {
	source     model.ListingSource
	pageSize   int
	catalog    []string
	logger     *slog.Logger
	onProgress func(Progress)
}

// NewLister creates a lister over source using the built-in category catalog.
func NewLister(source model.ListingSource, pageSize int, logger *slog.Logger) *Lister {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	return &Lister{
		source:   source,
		pageSize: pageSize,
		catalog:  categories.All(),
		logger:   logger,
	}
}

// OnProgress registers a callback invoked after every page.
func (l *Lister) OnProgress(fn func(Progress)) {
	l.onProgress = fn
}

type categoryCount struct {
	name  string
	total int
}

// ListJobIDs probes every requested category for its total, then paginates
// each one in turn. Requests are strictly sequential.
//
// Cancellation returns the ids gathered so far with Interrupted set and a nil
// error. Any other listing error is returned as is.
func (l *Lister) ListJobIDs(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	cats := opts.Categories
	if len(cats) == 0 {
		cats = l.catalog
	}

	res := &Result{}
	seen := make(map[string]struct{})

	interrupted := func(err error) (*Result, error) {
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			res.Interrupted = true
			res.Duration = time.Since(start)
			l.logger.Warn("listing interrupted", "fetched", res.FetchedCount)
			return res, nil
		}
		return nil, err
	}

	counts := make([]categoryCount, 0, len(cats))
	estimated := 0
	for _, c := range cats {
		probe, err := l.source.Search(ctx, model.SearchRequest{
			Categories: []string{c},
			Page:       0,
			PageSize:   1,
		})
		if err != nil {
			return interrupted(fmt.Errorf("probing category %q: %w", c, err))
		}
		counts = append(counts, categoryCount{name: c, total: probe.Total})
		estimated += probe.Total
	}

	truncated := false
	limitHit := false
	for i, cc := range counts {
		cr := CategoryResult{Category: cc.name, TotalAvailable: cc.total}

		if cc.total == 0 {
			// A catalog entry the upstream no longer uses looks exactly like this.
			l.logger.Warn("category returned no jobs, catalog may be stale", "category", cc.name)
			cr.Skipped = true
			res.Categories = append(res.Categories, cr)
			continue
		}
		if cc.total > PaginationCeiling {
			l.logger.Warn("category exceeds pagination ceiling, listing will be partial",
				"category", cc.name,
				"total", cc.total,
				"ceiling", PaginationCeiling,
			)
			cr.Truncated = true
			truncated = true
		}

		for page := 0; ; page++ {
			sr, err := l.source.Search(ctx, model.SearchRequest{
				Categories: []string{cc.name},
				Page:       page,
				PageSize:   l.pageSize,
				SortByDate: true,
			})
			if err != nil {
				res.Categories = append(res.Categories, cr)
				return interrupted(fmt.Errorf("listing category %q page %d: %w", cc.name, page, err))
			}
			if len(sr.IDs) == 0 {
				break
			}

			for _, id := range sr.IDs {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				res.IDs = append(res.IDs, id)
				res.FetchedCount++
				cr.FetchedCount++
				if opts.Limit > 0 && res.FetchedCount >= opts.Limit {
					limitHit = true
					break
				}
			}

			if l.onProgress != nil {
				l.onProgress(Progress{
					Category:        cc.name,
					CategoryIndex:   i + 1,
					TotalCategories: len(counts),
					Fetched:         res.FetchedCount,
					EstimatedTotal:  estimated,
					Elapsed:         time.Since(start),
				})
			}

			if limitHit {
				break
			}
			next := (page + 1) * l.pageSize
			if next >= sr.Total || next >= PaginationCeiling {
				break
			}
		}

		res.Categories = append(res.Categories, cr)
		if limitHit {
			break
		}
	}

	res.Complete = !opts.Restricted() && !truncated
	res.Duration = time.Since(start)
	return res, nil
}
