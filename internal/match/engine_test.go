package match

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
	"github.com/amishk599/mcfradar/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore holds just enough state for matching.
type fakeStore struct {
	candidates   map[string]model.Embedding
	profiles     map[string]model.Profile
	jobs         []model.JobEmbedding
	jobVectors   map[string]model.Embedding
	pool         []model.CandidateEmbedding
	skills       []model.CandidateSkills
	interactions map[string]map[string]struct{}
	matches      []model.Match
	matchErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		candidates:   map[string]model.Embedding{},
		profiles:     map[string]model.Profile{},
		jobVectors:   map[string]model.Embedding{},
		interactions: map[string]map[string]struct{}{},
	}
}

func (f *fakeStore) JobsMissingEmbeddings(context.Context, int) ([]string, error) { return nil, nil }
func (f *fakeStore) UpsertJobEmbedding(context.Context, model.Embedding) error    { return nil }
func (f *fakeStore) ActiveJobEmbeddings(context.Context) ([]model.JobEmbedding, error) {
	return f.jobs, nil
}
func (f *fakeStore) JobEmbedding(_ context.Context, id string) (model.Embedding, error) {
	e, ok := f.jobVectors[id]
	if !ok {
		return model.Embedding{}, model.ErrNotFound
	}
	return e, nil
}
func (f *fakeStore) UpsertCandidateEmbedding(context.Context, model.Embedding) error { return nil }
func (f *fakeStore) CandidateEmbedding(_ context.Context, id string) (model.Embedding, error) {
	e, ok := f.candidates[id]
	if !ok {
		return model.Embedding{}, model.ErrNotFound
	}
	return e, nil
}
func (f *fakeStore) CandidateEmbeddings(context.Context) ([]model.CandidateEmbedding, error) {
	return f.pool, nil
}

func (f *fakeStore) CreateProfile(context.Context, model.Profile) error                { return nil }
func (f *fakeStore) UpdateProfile(context.Context, string, model.ProfileUpdate) error { return nil }
func (f *fakeStore) ProfileByUser(context.Context, string) (model.Profile, error) {
	return model.Profile{}, model.ErrNotFound
}
func (f *fakeStore) ProfileByID(_ context.Context, id string) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	return p, nil
}
func (f *fakeStore) AllCandidateSkills(context.Context) ([]model.CandidateSkills, error) {
	return f.skills, nil
}

func (f *fakeStore) RecordInteraction(context.Context, model.Interaction, time.Time) error { return nil }
func (f *fakeStore) InteractedJobs(_ context.Context, userID string) (map[string]struct{}, error) {
	return f.interactions[userID], nil
}

func (f *fakeStore) RecordMatch(_ context.Context, m model.Match) error {
	if f.matchErr != nil {
		return f.matchErr
	}
	f.matches = append(f.matches, m)
	return nil
}
func (f *fakeStore) MatchesForProfile(context.Context, string, int) ([]model.Match, error) {
	return nil, nil
}

func activeJob(id string, lastSeen *time.Time, vec ...float32) model.JobEmbedding {
	return model.JobEmbedding{Job: model.Job{UUID: id, IsActive: true, LastSeenAt: lastSeen}, Vector: vec}
}

func jobIDs(ms []JobMatch) string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Job.UUID
	}
	return fmt.Sprint(out)
}

func newTestEngine(st *fakeStore) *Engine {
	e := NewEngine(st, discardLogger())
	n := 0
	e.newID = func() string { n++; return fmt.Sprintf("m%d", n) }
	return e
}

func TestMatchCandidateToJobs_NoEmbeddingIsEmpty(t *testing.T) {
	st := newFakeStore()
	st.jobs = []model.JobEmbedding{activeJob("j1", nil, 1, 0)}

	got, err := newTestEngine(st).MatchCandidateToJobs(context.Background(), "p1", 10, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || len(st.matches) != 0 {
		t.Errorf("got %v and %d matches, want nothing", got, len(st.matches))
	}
}

func TestMatchCandidateToJobs_RanksAndRecords(t *testing.T) {
	st := newFakeStore()
	// Not unit length; the engine normalizes before scoring.
	st.candidates["p1"] = model.Embedding{SubjectID: "p1", Vector: []float32{2, 0}}
	st.jobs = []model.JobEmbedding{
		activeJob("far", at(500), 0, 1),
		activeJob("tie-old", at(100), 1, 1),
		activeJob("exact", at(100), 5, 0),
		activeJob("tie-new", at(200), 1, 1),
	}

	got, err := newTestEngine(st).MatchCandidateToJobs(context.Background(), "p1", 10, false)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if jobIDs(got) != "[exact tie-new tie-old far]" {
		t.Fatalf("order = %s", jobIDs(got))
	}
	if diff := got[0].Score - 1; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("exact score = %v, want 1", got[0].Score)
	}

	if len(st.matches) != 4 {
		t.Fatalf("recorded %d matches, want 4", len(st.matches))
	}
	for i, m := range st.matches {
		if m.Type != model.MatchCandidateInitiated || m.ProfileID != "p1" || m.JobUUID != got[i].Job.UUID {
			t.Errorf("match %d = %+v", i, m)
		}
	}
	if st.matches[0].ID == st.matches[1].ID {
		t.Error("match ids must be unique")
	}
}

func TestMatchCandidateToJobs_TopKRecordsOnlyReturned(t *testing.T) {
	st := newFakeStore()
	st.candidates["p1"] = model.Embedding{Vector: []float32{1, 0}}
	for i := range 100 {
		st.jobs = append(st.jobs, activeJob(fmt.Sprintf("j%03d", i), nil, float32(i+1), 100))
	}

	got, err := newTestEngine(st).MatchCandidateToJobs(context.Background(), "p1", 25, false)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if len(got) != 25 || len(st.matches) != 25 {
		t.Fatalf("returned %d, recorded %d; want 25 each", len(got), len(st.matches))
	}
	if got[0].Job.UUID != "j099" {
		t.Errorf("best = %s, want j099", got[0].Job.UUID)
	}
}

func TestMatchCandidateToJobs_ExcludeInteracted(t *testing.T) {
	st := newFakeStore()
	st.candidates["p1"] = model.Embedding{Vector: []float32{1, 0}}
	st.profiles["p1"] = model.Profile{ID: "p1", UserID: "u1"}
	st.interactions["u1"] = map[string]struct{}{"applied": {}, "viewed": {}}
	st.jobs = []model.JobEmbedding{
		activeJob("applied", nil, 1, 0),
		activeJob("viewed", nil, 1, 0),
		activeJob("fresh", nil, 0, 1),
	}
	e := newTestEngine(st)

	got, err := e.MatchCandidateToJobs(context.Background(), "p1", 10, true)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if jobIDs(got) != "[fresh]" {
		t.Errorf("with exclusion = %s", jobIDs(got))
	}

	got, err = e.MatchCandidateToJobs(context.Background(), "p1", 10, false)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("without exclusion = %s", jobIDs(got))
	}
}

func TestMatchCandidateToJobs_DismissedExcludedLikeApplied(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	now := time.Now().UTC()
	run, err := st.BeginRun(ctx, model.RunFull, nil)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	var (
		details []model.JobDetail
		embs    []model.Embedding
	)
	for _, id := range []string{"applied", "dismissed", "fresh"} {
		details = append(details, model.JobDetail{UUID: id})
		embs = append(embs, model.Embedding{SubjectID: id, ModelName: "m", Vector: []float32{1, 0}, EmbeddedAt: now})
	}
	if err := st.UpsertJobDetails(ctx, run.ID, details, embs); err != nil {
		t.Fatalf("UpsertJobDetails: %v", err)
	}
	if err := st.CreateProfile(ctx, model.Profile{ID: "p1", UserID: "u1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := st.UpsertCandidateEmbedding(ctx, model.Embedding{SubjectID: "p1", ModelName: "m", Vector: []float32{1, 0}, EmbeddedAt: now}); err != nil {
		t.Fatalf("UpsertCandidateEmbedding: %v", err)
	}
	for _, in := range []model.Interaction{
		{UserID: "u1", JobUUID: "applied", Type: model.InteractionApplied},
		{UserID: "u1", JobUUID: "dismissed", Type: model.InteractionDismissed},
	} {
		if err := st.RecordInteraction(ctx, in, now); err != nil {
			t.Fatalf("RecordInteraction %s: %v", in.Type, err)
		}
	}
	e := NewEngine(st, discardLogger())

	got, err := e.MatchCandidateToJobs(ctx, "p1", 10, true)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if jobIDs(got) != "[fresh]" {
		t.Errorf("with exclusion = %s, want only [fresh]", jobIDs(got))
	}

	got, err = e.MatchCandidateToJobs(ctx, "p1", 10, false)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("without exclusion = %s, want all 3", jobIDs(got))
	}
}

func TestMatchCandidateToJobs_SkipsMismatchedDimensions(t *testing.T) {
	st := newFakeStore()
	st.candidates["p1"] = model.Embedding{Vector: []float32{1, 0}}
	st.jobs = []model.JobEmbedding{
		activeJob("old-model", nil, 1, 0, 0),
		activeJob("ok", nil, 1, 0),
	}

	got, err := newTestEngine(st).MatchCandidateToJobs(context.Background(), "p1", 10, false)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if jobIDs(got) != "[ok]" {
		t.Errorf("got %s", jobIDs(got))
	}
}

func TestMatchCandidateToJobs_RecordFailureKeepsResults(t *testing.T) {
	st := newFakeStore()
	st.matchErr = errors.New("disk full")
	st.candidates["p1"] = model.Embedding{Vector: []float32{1, 0}}
	st.jobs = []model.JobEmbedding{activeJob("j1", nil, 1, 0)}

	got, err := newTestEngine(st).MatchCandidateToJobs(context.Background(), "p1", 10, false)
	if err != nil {
		t.Fatalf("MatchCandidateToJobs: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d results, want 1", len(got))
	}
}

func TestMatchJobToCandidates(t *testing.T) {
	st := newFakeStore()
	st.jobVectors["j1"] = model.Embedding{SubjectID: "j1", Vector: []float32{0, 1}}
	st.pool = []model.CandidateEmbedding{
		{ProfileID: "stale", UpdatedAt: at(100), Vector: []float32{0, 1}},
		{ProfileID: "other", UpdatedAt: at(900), Vector: []float32{1, 0}},
		{ProfileID: "recent", UpdatedAt: at(200), Vector: []float32{0, 2}},
		{ProfileID: "unknown", Vector: []float32{0, 1}},
	}

	got, err := newTestEngine(st).MatchJobToCandidates(context.Background(), "j1", 3)
	if err != nil {
		t.Fatalf("MatchJobToCandidates: %v", err)
	}
	var order []string
	for _, c := range got {
		order = append(order, c.ProfileID)
	}
	if fmt.Sprint(order) != "[recent stale unknown]" {
		t.Fatalf("order = %v", order)
	}
	if len(st.matches) != 3 {
		t.Fatalf("recorded %d matches, want 3", len(st.matches))
	}
	for _, m := range st.matches {
		if m.Type != model.MatchRecruiterSearch || m.JobUUID != "j1" {
			t.Errorf("match = %+v", m)
		}
	}
}

func TestMatchJobToCandidates_NoEmbeddingIsEmpty(t *testing.T) {
	st := newFakeStore()
	st.pool = []model.CandidateEmbedding{{ProfileID: "p1", Vector: []float32{1}}}

	got, err := newTestEngine(st).MatchJobToCandidates(context.Background(), "missing", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v; want empty and no error", got, err)
	}
}

func TestSearchCandidatesBySkills(t *testing.T) {
	st := newFakeStore()
	st.skills = []model.CandidateSkills{
		{ProfileID: "half-first", UserID: "u1", Skills: []string{"Golang", "Docker"}},
		{ProfileID: "none", UserID: "u2", Skills: []string{"Excel"}},
		{ProfileID: "full", UserID: "u3", Skills: []string{"PostgreSQL", "Go"}},
		{ProfileID: "half-second", UserID: "u4", Skills: []string{"postgres admin"}},
		{ProfileID: "empty", UserID: "u5"},
	}

	got, err := newTestEngine(st).SearchCandidatesBySkills(context.Background(), []string{" GO ", "postgres", ""}, 10)
	if err != nil {
		t.Fatalf("SearchCandidatesBySkills: %v", err)
	}

	var order []string
	for _, m := range got {
		order = append(order, m.ProfileID)
	}
	if fmt.Sprint(order) != "[full half-first half-second]" {
		t.Fatalf("order = %v", order)
	}
	if got[0].Score != 1 || got[1].Score != 0.5 || got[2].Score != 0.5 {
		t.Errorf("scores = %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
	if fmt.Sprint(got[1].Matched) != "[go]" || got[1].UserID != "u1" {
		t.Errorf("half-first = %+v", got[1])
	}
	if len(st.matches) != 0 {
		t.Errorf("skill search must not write matches, got %d", len(st.matches))
	}
}

func TestMatchPools_ClosedJobsAndUnembeddedProfiles(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	now := time.Now().UTC()
	run, err := st.BeginRun(ctx, model.RunFull, nil)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	closed := []model.Embedding{{SubjectID: "closed", ModelName: "m", Vector: []float32{1, 0}, EmbeddedAt: now}}
	if err := st.UpsertJobDetails(ctx, run.ID, []model.JobDetail{{UUID: "closed"}}, closed); err != nil {
		t.Fatalf("UpsertJobDetails: %v", err)
	}
	if err := st.Deactivate(ctx, run.ID, []string{"closed"}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	for _, p := range []model.Profile{
		{ID: "embedded", UserID: "u1", Skills: []string{"Go"}, CreatedAt: now, UpdatedAt: now},
		{ID: "skills-only", UserID: "u2", Skills: []string{"Golang"}, CreatedAt: now.Add(time.Second), UpdatedAt: now},
	} {
		if err := st.CreateProfile(ctx, p); err != nil {
			t.Fatalf("CreateProfile %s: %v", p.ID, err)
		}
	}
	if err := st.UpsertCandidateEmbedding(ctx, model.Embedding{SubjectID: "embedded", ModelName: "m", Vector: []float32{1, 0}, EmbeddedAt: now}); err != nil {
		t.Fatalf("UpsertCandidateEmbedding: %v", err)
	}
	e := NewEngine(st, discardLogger())

	// A deactivated posting keeps its vector and can still be staffed against.
	cands, err := e.MatchJobToCandidates(ctx, "closed", 5)
	if err != nil {
		t.Fatalf("MatchJobToCandidates: %v", err)
	}
	if len(cands) != 1 || cands[0].ProfileID != "embedded" {
		t.Errorf("candidates for closed job = %+v", cands)
	}

	// Skill search reads extracted skills, so a profile with no embedding is found.
	found, err := e.SearchCandidatesBySkills(ctx, []string{"go"}, 5)
	if err != nil {
		t.Fatalf("SearchCandidatesBySkills: %v", err)
	}
	var ids []string
	for _, m := range found {
		ids = append(ids, m.ProfileID)
	}
	if fmt.Sprint(ids) != "[embedded skills-only]" {
		t.Errorf("skill search = %v", ids)
	}
}

func TestSearchCandidatesBySkills_EmptyQuery(t *testing.T) {
	st := newFakeStore()
	st.skills = []model.CandidateSkills{{ProfileID: "p1", Skills: []string{"Go"}}}

	got, err := newTestEngine(st).SearchCandidatesBySkills(context.Background(), []string{"  "}, 10)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
}
