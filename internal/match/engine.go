// Package match ranks jobs against a candidate and candidates against a job by
// embedding similarity, and logs every surfaced result.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/mcfradar/internal/embedding"
	"github.com/amishk599/mcfradar/internal/model"
)

// DefaultTopK is used when a caller passes a non-positive topK.
const DefaultTopK = 25

// Store is the persistence the matcher needs.
type Store interface {
	model.EmbeddingStore
	model.ProfileStore
	model.InteractionStore
	model.MatchStore
}

// JobMatch is one job ranked for a candidate.
type JobMatch struct {
	Job   model.Job
	Score float64
}

// CandidateMatch is one candidate ranked for a job.
type CandidateMatch struct {
	ProfileID string
	Score     float64
}

// SkillMatch is one candidate found by keyword search.
type SkillMatch struct {
	ProfileID string
	UserID    string
	Score     float64  // fraction of queried skills found
	Matched   []string // queried skills that matched, lowercased
}

// Engine answers match queries against a store.
type Engine struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewEngine returns an Engine backed by store.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// MatchCandidateToJobs ranks active jobs for the profile. A profile without an
// embedding yields an empty result and no error. With excludeInteracted, every
// job the profile's user has interacted with is dropped, whatever the
// interaction type.
func (e *Engine) MatchCandidateToJobs(ctx context.Context, profileID string, topK int, excludeInteracted bool) ([]JobMatch, error) {
	query, err := e.store.CandidateEmbedding(ctx, profileID)
	if errors.Is(err, model.ErrNotFound) {
		e.logger.Info("profile has no embedding", "profile_id", profileID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("matching jobs: %w", err)
	}

	var exclude map[string]struct{}
	if excludeInteracted {
		p, err := e.store.ProfileByID(ctx, profileID)
		if err != nil {
			return nil, fmt.Errorf("matching jobs: %w", err)
		}
		if exclude, err = e.store.InteractedJobs(ctx, p.UserID); err != nil {
			return nil, fmt.Errorf("matching jobs: %w", err)
		}
	}

	pool, err := e.store.ActiveJobEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("matching jobs: %w", err)
	}

	q := embedding.Normalize(query.Vector)
	jobs := make(map[string]model.Job, len(pool))
	scored := make([]Scored, 0, len(pool))
	skipped := 0
	for _, je := range pool {
		if _, ok := exclude[je.Job.UUID]; ok {
			continue
		}
		score, ok := Dot(q, embedding.Normalize(je.Vector))
		if !ok {
			skipped++
			e.logger.Debug("skipping job with mismatched embedding", "job_uuid", je.Job.UUID, "dim", len(je.Vector), "want", len(q))
			continue
		}
		jobs[je.Job.UUID] = je.Job
		scored = append(scored, Scored{ID: je.Job.UUID, Score: score, Recency: je.Job.LastSeenAt})
	}
	if skipped > 0 {
		e.logger.Warn("skipped jobs with mismatched embedding dimensions", "skipped", skipped, "dim", len(q))
	}

	ranked := Rank(scored, clampTopK(topK))
	out := make([]JobMatch, len(ranked))
	for i, s := range ranked {
		out[i] = JobMatch{Job: jobs[s.ID], Score: s.Score}
		e.record(ctx, profileID, s.ID, s.Score, model.MatchCandidateInitiated)
	}

	e.logger.Info("matched jobs for candidate",
		"profile_id", profileID,
		"pool", len(pool),
		"excluded", len(pool)-len(scored)-skipped,
		"returned", len(out),
	)
	return out, nil
}

// MatchJobToCandidates ranks every embedded candidate for the job. The job
// may be inactive; its stored vector is used either way. Ties fall back to the
// most recently updated profile. A job without an embedding yields an empty
// result and no error.
func (e *Engine) MatchJobToCandidates(ctx context.Context, jobUUID string, topK int) ([]CandidateMatch, error) {
	query, err := e.store.JobEmbedding(ctx, jobUUID)
	if errors.Is(err, model.ErrNotFound) {
		e.logger.Info("job has no embedding", "job_uuid", jobUUID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("matching candidates: %w", err)
	}

	pool, err := e.store.CandidateEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("matching candidates: %w", err)
	}

	q := embedding.Normalize(query.Vector)
	scored := make([]Scored, 0, len(pool))
	for _, c := range pool {
		score, ok := Dot(q, embedding.Normalize(c.Vector))
		if !ok {
			e.logger.Warn("skipping candidate with mismatched embedding", "profile_id", c.ProfileID, "dim", len(c.Vector), "want", len(q))
			continue
		}
		scored = append(scored, Scored{ID: c.ProfileID, Score: score, Recency: c.UpdatedAt})
	}

	ranked := Rank(scored, clampTopK(topK))
	out := make([]CandidateMatch, len(ranked))
	for i, s := range ranked {
		out[i] = CandidateMatch{ProfileID: s.ID, Score: s.Score}
		e.record(ctx, s.ID, jobUUID, s.Score, model.MatchRecruiterSearch)
	}

	e.logger.Info("matched candidates for job", "job_uuid", jobUUID, "pool", len(pool), "returned", len(out))
	return out, nil
}

// SearchCandidatesBySkills scores candidates by the fraction of query skills
// that appear, case-insensitively, inside any of their skills. Every profile
// is searched, embedded or not. Candidates matching nothing are left out.
// Equal scores keep pool order; there is no secondary key. Nothing is written
// to the match log.
func (e *Engine) SearchCandidatesBySkills(ctx context.Context, skills []string, topK int) ([]SkillMatch, error) {
	var query []string
	for _, s := range skills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			query = append(query, s)
		}
	}
	if len(query) == 0 {
		return nil, nil
	}

	pool, err := e.store.AllCandidateSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching candidates: %w", err)
	}

	byID := make(map[string]SkillMatch, len(pool))
	scored := make([]Scored, 0, len(pool))
	for _, c := range pool {
		matched := matchSkills(query, c.Skills)
		if len(matched) == 0 {
			continue
		}
		score := float64(len(matched)) / float64(len(query))
		byID[c.ProfileID] = SkillMatch{ProfileID: c.ProfileID, UserID: c.UserID, Score: score, Matched: matched}
		scored = append(scored, Scored{ID: c.ProfileID, Score: score})
	}

	ranked := Rank(scored, clampTopK(topK))
	out := make([]SkillMatch, len(ranked))
	for i, s := range ranked {
		out[i] = byID[s.ID]
	}
	return out, nil
}

// matchSkills returns the query skills found as a substring of any candidate
// skill. query must already be lowercased.
func matchSkills(query, candidate []string) []string {
	lowered := make([]string, len(candidate))
	for i, s := range candidate {
		lowered[i] = strings.ToLower(s)
	}
	var matched []string
	for _, q := range query {
		for _, s := range lowered {
			if strings.Contains(s, q) {
				matched = append(matched, q)
				break
			}
		}
	}
	return matched
}

// record appends to the match log. A failed write is logged and does not
// change what the caller sees.
func (e *Engine) record(ctx context.Context, profileID, jobUUID string, score float64, typ model.MatchType) {
	m := model.Match{
		ID:              e.newID(),
		ProfileID:       profileID,
		JobUUID:         jobUUID,
		SimilarityScore: score,
		Type:            typ,
		CreatedAt:       e.now().UTC(),
	}
	if err := e.store.RecordMatch(ctx, m); err != nil {
		e.logger.Warn("failed to record match", "profile_id", profileID, "job_uuid", jobUUID, "error", err)
	}
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	return topK
}
