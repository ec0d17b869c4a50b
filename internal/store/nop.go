package store

import (
	"context"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

var _ model.Store = (*NopStore)(nil)

// NopStore is used in dry-run mode. It reports an empty database and drops
// every write, so each run sees all listed jobs as added.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) BeginRun(_ context.Context, kind model.RunKind, categories []string) (model.Run, error) {
	now := time.Now().UTC()
	return model.Run{ID: model.NewRunID(now), StartedAt: now, Kind: kind, Categories: categories}, nil
}
func (s *NopStore) FinishRun(context.Context, string, model.RunCounts) error { return nil }
func (s *NopStore) RecentRuns(context.Context, int) ([]model.Run, error)    { return nil, nil }

func (s *NopStore) ExistingIDs(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (s *NopStore) ActiveIDs(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (s *NopStore) RecordStatuses(context.Context, string, []string, []string, []string) error {
	return nil
}
func (s *NopStore) Touch(context.Context, string, []string) error      { return nil }
func (s *NopStore) Deactivate(context.Context, string, []string) error { return nil }
func (s *NopStore) UpsertJobDetails(context.Context, string, []model.JobDetail, []model.Embedding) error {
	return nil
}
func (s *NopStore) GetJob(context.Context, string) (model.Job, error) {
	return model.Job{}, model.ErrNotFound
}
func (s *NopStore) SearchJobs(context.Context, string, int, int) ([]model.Job, error) { return nil, nil }
func (s *NopStore) ActiveJobCount(context.Context) (int, error)                      { return 0, nil }

func (s *NopStore) JobsMissingEmbeddings(context.Context, int) ([]string, error) { return nil, nil }
func (s *NopStore) UpsertJobEmbedding(context.Context, model.Embedding) error    { return nil }
func (s *NopStore) ActiveJobEmbeddings(context.Context) ([]model.JobEmbedding, error) {
	return nil, nil
}
func (s *NopStore) UpsertCandidateEmbedding(context.Context, model.Embedding) error { return nil }
func (s *NopStore) CandidateEmbedding(context.Context, string) (model.Embedding, error) {
	return model.Embedding{}, model.ErrNotFound
}
func (s *NopStore) JobEmbedding(context.Context, string) (model.Embedding, error) {
	return model.Embedding{}, model.ErrNotFound
}
func (s *NopStore) CandidateEmbeddings(context.Context) ([]model.CandidateEmbedding, error) {
	return nil, nil
}

func (s *NopStore) CreateProfile(context.Context, model.Profile) error                { return nil }
func (s *NopStore) UpdateProfile(context.Context, string, model.ProfileUpdate) error { return nil }
func (s *NopStore) ProfileByUser(context.Context, string) (model.Profile, error) {
	return model.Profile{}, model.ErrNotFound
}
func (s *NopStore) ProfileByID(context.Context, string) (model.Profile, error) {
	return model.Profile{}, model.ErrNotFound
}

func (s *NopStore) AllCandidateSkills(context.Context) ([]model.CandidateSkills, error) {
	return nil, nil
}

func (s *NopStore) RecordInteraction(context.Context, model.Interaction, time.Time) error { return nil }
func (s *NopStore) InteractedJobs(context.Context, string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s *NopStore) RecordMatch(context.Context, model.Match) error { return nil }
func (s *NopStore) MatchesForProfile(context.Context, string, int) ([]model.Match, error) {
	return nil, nil
}

func (s *NopStore) Close() error { return nil }
