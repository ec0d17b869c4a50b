package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

// Each backend test runs these against a fresh, empty store.

func strp(s string) *string { return &s }

func testRunLifecycle(t *testing.T, s model.Store) {
	ctx := context.Background()

	run, err := s.BeginRun(ctx, model.RunIncremental, []string{"Engineering"})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID != model.NewRunID(run.StartedAt) {
		t.Errorf("run id %q does not encode start %v", run.ID, run.StartedAt)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Finished() {
		t.Fatalf("expected one unfinished run, got %+v", runs)
	}
	if len(runs[0].Categories) != 1 || runs[0].Categories[0] != "Engineering" {
		t.Errorf("categories = %v", runs[0].Categories)
	}

	counts := model.RunCounts{TotalSeen: 3, Added: 1, Maintained: 2}
	if err := s.FinishRun(ctx, run.ID, counts); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	runs, err = s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if !runs[0].Finished() || runs[0].TotalSeen != 3 || runs[0].Maintained != 2 || runs[0].Kind != model.RunIncremental {
		t.Errorf("finished run = %+v", runs[0])
	}

	second, err := s.BeginRun(ctx, model.RunFull, nil)
	if err != nil {
		t.Fatalf("second BeginRun: %v", err)
	}
	if second.ID <= run.ID {
		t.Errorf("run ids not increasing: %q then %q", run.ID, second.ID)
	}

	if err := s.FinishRun(ctx, "no-such-run", counts); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("FinishRun unknown: expected ErrNotFound, got %v", err)
	}
}

func testJobLifecycle(t *testing.T, s model.Store) {
	ctx := context.Background()
	run, err := s.BeginRun(ctx, model.RunFull, nil)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	details := []model.JobDetail{
		{UUID: "j1", Title: strp("Go Developer"), CompanyName: strp("Acme"), URL: strp("https://x/j1")},
		{UUID: "j2", Title: strp("Analyst")},
	}
	embs := []model.Embedding{{SubjectID: "j1", ModelName: "m", Vector: []float32{1, 0}}}
	if err := s.UpsertJobDetails(ctx, run.ID, details, embs); err != nil {
		t.Fatalf("UpsertJobDetails: %v", err)
	}
	if err := s.RecordStatuses(ctx, run.ID, []string{"j1", "j2"}, nil, nil); err != nil {
		t.Fatalf("RecordStatuses: %v", err)
	}
	// Rewriting the same statuses is harmless.
	if err := s.RecordStatuses(ctx, run.ID, []string{"j1", "j2"}, nil, nil); err != nil {
		t.Fatalf("RecordStatuses repeat: %v", err)
	}

	j1, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j1.Title != "Go Developer" || j1.CompanyName != "Acme" || !j1.IsActive || j1.FirstSeenRunID != run.ID {
		t.Errorf("j1 = %+v", j1)
	}
	if j1.LastSeenAt == nil || j1.FirstSeenAt == nil {
		t.Fatal("timestamps should be set on insert")
	}
	firstSeen := *j1.LastSeenAt

	missing, err := s.JobsMissingEmbeddings(ctx, 0)
	if err != nil {
		t.Fatalf("JobsMissingEmbeddings: %v", err)
	}
	if len(missing) != 1 || missing[0] != "j2" {
		t.Errorf("missing = %v, want [j2]", missing)
	}

	run2, err := s.BeginRun(ctx, model.RunFull, nil)
	if err != nil {
		t.Fatalf("BeginRun 2: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := s.Touch(ctx, run2.ID, []string{"j1"}); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := s.Deactivate(ctx, run2.ID, []string{"j2"}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	existing, err := s.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	active, err := s.ActiveIDs(ctx)
	if err != nil {
		t.Fatalf("ActiveIDs: %v", err)
	}
	if len(existing) != 2 {
		t.Errorf("existing = %v, deactivated jobs must stay", existing)
	}
	if _, ok := active["j1"]; !ok || len(active) != 1 {
		t.Errorf("active = %v, want {j1}", active)
	}

	j1, _ = s.GetJob(ctx, "j1")
	if j1.LastSeenRunID != run2.ID || j1.FirstSeenRunID != run.ID {
		t.Errorf("run ids after touch = first %q last %q", j1.FirstSeenRunID, j1.LastSeenRunID)
	}
	if j1.LastSeenAt == nil || !j1.LastSeenAt.After(firstSeen) {
		t.Errorf("last_seen_at did not advance: %v -> %v", firstSeen, j1.LastSeenAt)
	}

	n, err := s.ActiveJobCount(ctx)
	if err != nil || n != 1 {
		t.Errorf("ActiveJobCount = %d, %v", n, err)
	}

	jes, err := s.ActiveJobEmbeddings(ctx)
	if err != nil {
		t.Fatalf("ActiveJobEmbeddings: %v", err)
	}
	if len(jes) != 1 || jes[0].Job.UUID != "j1" || len(jes[0].Vector) != 2 {
		t.Errorf("ActiveJobEmbeddings = %+v", jes)
	}

	je, err := s.JobEmbedding(ctx, "j1")
	if err != nil || je.SubjectID != "j1" || je.Dim() != 2 {
		t.Errorf("JobEmbedding = %+v, %v", je, err)
	}
	if _, err := s.JobEmbedding(ctx, "j2"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("JobEmbedding without vector: expected ErrNotFound, got %v", err)
	}

	// Touch reactivates a job that comes back.
	if err := s.Touch(ctx, run2.ID, []string{"j2"}); err != nil {
		t.Fatalf("Touch j2: %v", err)
	}
	j2, _ := s.GetJob(ctx, "j2")
	if !j2.IsActive {
		t.Error("touched job should be active again")
	}

	if _, err := s.GetJob(ctx, "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetJob unknown: expected ErrNotFound, got %v", err)
	}
}

func testUpsertKeepsKnownFields(t *testing.T, s model.Store) {
	ctx := context.Background()
	run, _ := s.BeginRun(ctx, model.RunFull, nil)

	if err := s.UpsertJobDetails(ctx, run.ID, []model.JobDetail{{UUID: "j", Title: strp("Old"), Location: strp("SG")}}, nil); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertJobDetails(ctx, run.ID, []model.JobDetail{{UUID: "j", Title: strp("New")}}, nil); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	j, err := s.GetJob(ctx, "j")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.Title != "New" || j.Location != "SG" {
		t.Errorf("job = %+v, want new title and kept location", j)
	}
}

func testSearchJobs(t *testing.T, s model.Store) {
	ctx := context.Background()
	run, _ := s.BeginRun(ctx, model.RunFull, nil)
	details := []model.JobDetail{
		{UUID: "a", Title: strp("Senior Go Engineer"), CompanyName: strp("Acme")},
		{UUID: "b", Title: strp("Accountant"), CompanyName: strp("Ledger Co")},
		{UUID: "c", Title: strp("Go Intern"), CompanyName: strp("Other")},
	}
	if err := s.UpsertJobDetails(ctx, run.ID, details, nil); err != nil {
		t.Fatalf("UpsertJobDetails: %v", err)
	}
	if err := s.Deactivate(ctx, run.ID, []string{"c"}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	got, err := s.SearchJobs(ctx, "Go", 10, 0)
	if err != nil {
		t.Fatalf("SearchJobs: %v", err)
	}
	if len(got) != 1 || got[0].UUID != "a" {
		t.Errorf("search Go = %+v, want only active job a", got)
	}

	all, err := s.SearchJobs(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("SearchJobs all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d active jobs, want 2", len(all))
	}

	page, err := s.SearchJobs(ctx, "", 1, 1)
	if err != nil {
		t.Fatalf("SearchJobs page: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("page size = %d, want 1", len(page))
	}
}

func testProfiles(t *testing.T, s model.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	if _, err := s.ProfileByUser(ctx, "u1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("ProfileByUser before create: expected ErrNotFound, got %v", err)
	}

	p := model.Profile{ID: "p1", UserID: "u1", RawResumeText: "resume", CreatedAt: now, UpdatedAt: now}
	if err := s.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := s.CreateProfile(ctx, model.Profile{ID: "p2", UserID: "u1", CreatedAt: now, UpdatedAt: now}); err == nil {
		t.Error("second profile for the same user should fail")
	}

	summary := "Backend engineer"
	err := s.UpdateProfile(ctx, "p1", model.ProfileUpdate{
		Skills:     []string{"Go", "SQL"},
		Experience: []model.Experience{{Title: "Engineer", Company: "Acme", Responsibilities: []string{"APIs"}}},
		Summary:    &summary,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	got, err := s.ProfileByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ProfileByUser: %v", err)
	}
	if got.ID != "p1" || got.RawResumeText != "resume" || got.Summary != summary {
		t.Errorf("profile = %+v", got)
	}
	if len(got.Skills) != 2 || got.Skills[1] != "SQL" {
		t.Errorf("skills = %v", got.Skills)
	}
	if len(got.Experience) != 1 || got.Experience[0].Responsibilities[0] != "APIs" {
		t.Errorf("experience = %+v", got.Experience)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", got.UpdatedAt, got.CreatedAt)
	}

	byID, err := s.ProfileByID(ctx, "p1")
	if err != nil || byID.UserID != "u1" {
		t.Errorf("ProfileByID = %+v, %v", byID, err)
	}

	all, err := s.AllCandidateSkills(ctx)
	if err != nil {
		t.Fatalf("AllCandidateSkills: %v", err)
	}
	if len(all) != 1 || all[0].ProfileID != "p1" || all[0].UserID != "u1" || len(all[0].Skills) != 2 {
		t.Errorf("AllCandidateSkills = %+v", all)
	}

	if err := s.UpdateProfile(ctx, "missing", model.ProfileUpdate{Summary: &summary}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("UpdateProfile unknown: expected ErrNotFound, got %v", err)
	}
}

func testCandidateEmbeddings(t *testing.T, s model.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := s.CandidateEmbedding(ctx, "p1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.CreateProfile(ctx, model.Profile{ID: "p1", UserID: "u1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if err := s.UpsertCandidateEmbedding(ctx, model.Embedding{SubjectID: "p1", ModelName: "m1", Vector: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("UpsertCandidateEmbedding: %v", err)
	}
	if err := s.UpsertCandidateEmbedding(ctx, model.Embedding{SubjectID: "p1", ModelName: "m2", Vector: []float32{0, 1}}); err != nil {
		t.Fatalf("UpsertCandidateEmbedding overwrite: %v", err)
	}

	e, err := s.CandidateEmbedding(ctx, "p1")
	if err != nil {
		t.Fatalf("CandidateEmbedding: %v", err)
	}
	if e.ModelName != "m2" || e.Dim() != 2 || e.Vector[1] != 1 {
		t.Errorf("embedding = %+v, want overwritten m2 vector", e)
	}

	all, err := s.CandidateEmbeddings(ctx)
	if err != nil {
		t.Fatalf("CandidateEmbeddings: %v", err)
	}
	if len(all) != 1 || all[0].ProfileID != "p1" || all[0].UpdatedAt == nil {
		t.Errorf("CandidateEmbeddings = %+v", all)
	}
}

func testInteractionsAndMatches(t *testing.T, s model.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	in := model.Interaction{UserID: "u1", JobUUID: "j1", Type: model.InteractionSaved}
	for range 2 {
		if err := s.RecordInteraction(ctx, in, now); err != nil {
			t.Fatalf("RecordInteraction: %v", err)
		}
	}
	if err := s.RecordInteraction(ctx, model.Interaction{UserID: "u1", JobUUID: "j1", Type: model.InteractionViewed}, now); err != nil {
		t.Fatalf("RecordInteraction viewed: %v", err)
	}
	if err := s.RecordInteraction(ctx, model.Interaction{UserID: "u1", JobUUID: "j2", Type: model.InteractionDismissed}, now); err != nil {
		t.Fatalf("RecordInteraction dismissed: %v", err)
	}
	if err := s.RecordInteraction(ctx, model.Interaction{UserID: "u2", JobUUID: "j9", Type: model.InteractionApplied}, now); err != nil {
		t.Fatalf("RecordInteraction other user: %v", err)
	}

	got, err := s.InteractedJobs(ctx, "u1")
	if err != nil {
		t.Fatalf("InteractedJobs: %v", err)
	}
	_, savedOK := got["j1"]
	_, dismissedOK := got["j2"]
	if !savedOK || !dismissedOK || len(got) != 2 {
		t.Errorf("InteractedJobs = %v, want {j1 j2}", got)
	}

	m := model.Match{ProfileID: "p1", JobUUID: "j1", SimilarityScore: 0.75, Type: model.MatchCandidateInitiated, CreatedAt: now}
	m.ID = "m1"
	if err := s.RecordMatch(ctx, m); err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	m.ID = "m2"
	m.CreatedAt = now.Add(time.Second)
	if err := s.RecordMatch(ctx, m); err != nil {
		t.Fatalf("RecordMatch repeat: %v", err)
	}

	ms, err := s.MatchesForProfile(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("MatchesForProfile: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("matches are append-only, got %d", len(ms))
	}
	if ms[0].ID != "m2" || ms[0].SimilarityScore != 0.75 || ms[0].Type != model.MatchCandidateInitiated {
		t.Errorf("newest match = %+v", ms[0])
	}
}

func runSuite(t *testing.T, newStore func(t *testing.T) model.Store) {
	cases := []struct {
		name string
		fn   func(*testing.T, model.Store)
	}{
		{"RunLifecycle", testRunLifecycle},
		{"JobLifecycle", testJobLifecycle},
		{"UpsertKeepsKnownFields", testUpsertKeepsKnownFields},
		{"SearchJobs", testSearchJobs},
		{"Profiles", testProfiles},
		{"CandidateEmbeddings", testCandidateEmbeddings},
		{"InteractionsAndMatches", testInteractionsAndMatches},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}
