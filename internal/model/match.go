package model

import "time"

// Embedding is the current vector for a job or a candidate profile.
type Embedding struct {
	SubjectID  string
	ModelName  string
	Vector     []float32
	EmbeddedAt time.Time
}

// Dim is always len(Vector).
func (e Embedding) Dim() int { return len(e.Vector) }

// JobEmbedding pairs an active job with its embedding.
type JobEmbedding struct {
	Job    Job
	Vector []float32
}

// CandidateEmbedding pairs a profile with its embedding.
type CandidateEmbedding struct {
	ProfileID string
	UpdatedAt *time.Time
	Vector    []float32
}

// MatchType records which side initiated a match.
type MatchType string

const (
	MatchCandidateInitiated MatchType = "candidate_initiated"
	MatchRecruiterSearch    MatchType = "recruiter_search"
)

// Match is one surfaced result in the append-only match log.
type Match struct {
	ID              string
	ProfileID       string
	JobUUID         string
	SimilarityScore float64
	Type            MatchType
	CreatedAt       time.Time
}
