package model

import (
	"context"
	"time"
)

// Job is the persisted state of a single posting.
type Job struct {
	UUID           string     // stable upstream identifier
	Title          string     // empty when the upstream payload had none
	CompanyName    string
	Location       string
	URL            string
	IsActive       bool
	FirstSeenAt    *time.Time
	LastSeenAt     *time.Time // nil for rows written by older schemas
	FirstSeenRunID string
	LastSeenRunID  string
}

// JobDetail is what reconciliation writes for a newly added job.
type JobDetail struct {
	UUID        string
	Title       *string
	CompanyName *string
	Location    *string
	URL         *string
}

// JobStatus is the per-run lifecycle fact recorded for an observed job.
type JobStatus string

const (
	StatusAdded      JobStatus = "added"
	StatusMaintained JobStatus = "maintained"
	StatusRemoved    JobStatus = "removed"
)

// SearchRequest describes one page of the upstream search endpoint.
type SearchRequest struct {
	Keywords   string
	Categories []string
	Page       int
	PageSize   int
	SortByDate bool
}

// SearchResult is one page of listing identifiers.
type SearchResult struct {
	IDs                 []string
	Total               int
	CountWithoutFilters int
}

// ListingSource is the paginated upstream search endpoint.
type ListingSource interface {
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
}

// DetailSource fetches the full upstream record for one job.
// The payload is returned undecoded so extraction can tolerate schema drift.
type DetailSource interface {
	GetDetail(ctx context.Context, jobUUID string) (map[string]any, error)
}

// JobSource is the full upstream API surface used by reconciliation.
type JobSource interface {
	ListingSource
	DetailSource
}
