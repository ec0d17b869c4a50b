package model

import (
	"context"
	"time"
)

// RunKind distinguishes crawls that observed the whole universe from
// restricted ones.
type RunKind string

const (
	RunFull        RunKind = "full"
	RunIncremental RunKind = "incremental"
)

// RunIDLayout formats a run's start time into its identifier. Lexical order
// matches chronological order.
const RunIDLayout = "20060102T150405.000000Z"

// Run is one execution of the reconciliation algorithm.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time // nil while running or after an interruption
	Kind       RunKind
	Categories []string
	TotalSeen  int
	Added      int
	Maintained int
	Removed    int
}

// Finished reports whether the run was closed with final counts.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// RunCounts are the totals written when a run finishes.
type RunCounts struct {
	TotalSeen  int
	Added      int
	Maintained int
	Removed    int
}

// NewRunID derives a run identifier from its start time.
func NewRunID(startedAt time.Time) string {
	return startedAt.UTC().Format(RunIDLayout)
}

// RunSummary is what notifiers announce once a run ends.
type RunSummary struct {
	RunID        string
	Kind         RunKind
	Counts       RunCounts
	Complete     bool
	Interrupted  bool
	DetailErrors int
	Embedded     int
	Duration     time.Duration
}

// Notifier announces run summaries.
type Notifier interface {
	Notify(ctx context.Context, s RunSummary) error
}
