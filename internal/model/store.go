package model

import (
	"context"
	"time"
)

// RunStore owns crawl run bookkeeping.
type RunStore interface {
	BeginRun(ctx context.Context, kind RunKind, categories []string) (Run, error)
	FinishRun(ctx context.Context, runID string, counts RunCounts) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}

// JobStore owns job lifecycle state.
type JobStore interface {
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
	ActiveIDs(ctx context.Context) (map[string]struct{}, error)
	RecordStatuses(ctx context.Context, runID string, added, maintained, removed []string) error
	Touch(ctx context.Context, runID string, jobUUIDs []string) error
	Deactivate(ctx context.Context, runID string, jobUUIDs []string) error
	// UpsertJobDetails writes a batch of added jobs and their embeddings in
	// one transaction. embeddings may be missing entries for any job.
	UpsertJobDetails(ctx context.Context, runID string, details []JobDetail, embeddings []Embedding) error
	GetJob(ctx context.Context, jobUUID string) (Job, error)
	SearchJobs(ctx context.Context, keywords string, limit, offset int) ([]Job, error)
	ActiveJobCount(ctx context.Context) (int, error)
}

// EmbeddingStore holds job and candidate vectors.
type EmbeddingStore interface {
	JobsMissingEmbeddings(ctx context.Context, limit int) ([]string, error)
	UpsertJobEmbedding(ctx context.Context, e Embedding) error
	ActiveJobEmbeddings(ctx context.Context) ([]JobEmbedding, error)
	// JobEmbedding returns ErrNotFound when the job has none.
	JobEmbedding(ctx context.Context, jobUUID string) (Embedding, error)
	UpsertCandidateEmbedding(ctx context.Context, e Embedding) error
	// CandidateEmbedding returns ErrNotFound when the profile has none.
	CandidateEmbedding(ctx context.Context, profileID string) (Embedding, error)
	CandidateEmbeddings(ctx context.Context) ([]CandidateEmbedding, error)
}

// ProfileStore holds candidate profiles.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p Profile) error
	UpdateProfile(ctx context.Context, profileID string, u ProfileUpdate) error
	ProfileByUser(ctx context.Context, userID string) (Profile, error)
	ProfileByID(ctx context.Context, profileID string) (Profile, error)
	// AllCandidateSkills returns every profile's skills, oldest profile first.
	AllCandidateSkills(ctx context.Context) ([]CandidateSkills, error)
}

// InteractionStore holds user/job interactions.
type InteractionStore interface {
	RecordInteraction(ctx context.Context, in Interaction, at time.Time) error
	InteractedJobs(ctx context.Context, userID string) (map[string]struct{}, error)
}

// MatchStore holds the append-only match log.
type MatchStore interface {
	RecordMatch(ctx context.Context, m Match) error
	MatchesForProfile(ctx context.Context, profileID string, limit int) ([]Match, error)
}

// Store is the full persistence capability. Backends satisfy it; callers
// should depend on the narrowest sub-interface they need.
type Store interface {
	RunStore
	JobStore
	EmbeddingStore
	ProfileStore
	InteractionStore
	MatchStore
	Close() error
}
