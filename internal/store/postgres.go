package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/amishk599/mcfradar/internal/model"
)

var _ model.Store = (*PostgresStore)(nil)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS crawl_runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	kind        TEXT NOT NULL,
	categories  TEXT[],
	total_seen  INTEGER NOT NULL DEFAULT 0,
	added       INTEGER NOT NULL DEFAULT 0,
	maintained  INTEGER NOT NULL DEFAULT 0,
	removed     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS jobs (
	job_uuid          TEXT PRIMARY KEY,
	title             TEXT,
	company_name      TEXT,
	location          TEXT,
	job_url           TEXT,
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	first_seen_run_id TEXT,
	last_seen_run_id  TEXT,
	first_seen_at     TIMESTAMPTZ,
	last_seen_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_jobs_active ON jobs(is_active);

CREATE TABLE IF NOT EXISTS job_run_status (
	run_id   TEXT NOT NULL,
	job_uuid TEXT NOT NULL,
	status   TEXT NOT NULL,
	PRIMARY KEY (run_id, job_uuid)
);

CREATE TABLE IF NOT EXISTS job_embeddings (
	job_uuid    TEXT PRIMARY KEY,
	model_name  TEXT NOT NULL,
	embedding   vector NOT NULL,
	dim         INTEGER NOT NULL,
	embedded_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS candidate_profiles (
	profile_id      TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL UNIQUE,
	raw_resume_text TEXT,
	skills          JSONB,
	experience      JSONB,
	summary         TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS candidate_embeddings (
	profile_id  TEXT PRIMARY KEY,
	model_name  TEXT NOT NULL,
	embedding   vector NOT NULL,
	dim         INTEGER NOT NULL,
	embedded_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS job_interactions (
	user_id          TEXT NOT NULL,
	job_uuid         TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	interacted_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, job_uuid, interaction_type)
);

CREATE TABLE IF NOT EXISTS matches (
	match_id         TEXT PRIMARY KEY,
	profile_id       TEXT NOT NULL,
	job_uuid         TEXT NOT NULL,
	similarity_score DOUBLE PRECISION NOT NULL,
	match_type       TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_matches_profile ON matches(profile_id, created_at);
`

// PostgresStore is the client-server backend. Embeddings live in pgvector
// columns.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres store: database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// BeginRun opens a run record, nudging the start time forward on an id
// collision.
func (s *PostgresStore) BeginRun(ctx context.Context, kind model.RunKind, categories []string) (model.Run, error) {
	started := s.now().UTC().Truncate(time.Microsecond)
	for range 5 {
		id := model.NewRunID(started)
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO crawl_runs (run_id, started_at, kind, categories) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (run_id) DO NOTHING`,
			id, started, string(kind), categories)
		if err != nil {
			return model.Run{}, fmt.Errorf("beginning run: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return model.Run{ID: id, StartedAt: started, Kind: kind, Categories: categories}, nil
		}
		started = started.Add(time.Microsecond)
	}
	return model.Run{}, errors.New("beginning run: could not allocate a unique run id")
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, c model.RunCounts) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crawl_runs SET finished_at = $1, total_seen = $2, added = $3, maintained = $4, removed = $5
		  WHERE run_id = $6`,
		s.now().UTC(), c.TotalSeen, c.Added, c.Maintained, c.Removed, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, started_at, finished_at, kind, categories, total_seen, added, maintained, removed
		   FROM crawl_runs ORDER BY run_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		var (
			r    model.Run
			kind string
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &kind, &r.Categories,
			&r.TotalSeen, &r.Added, &r.Maintained, &r.Removed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Kind = model.RunKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.ids(ctx, "listing existing jobs", `SELECT job_uuid FROM jobs`)
}

func (s *PostgresStore) ActiveIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.ids(ctx, "listing active jobs", `SELECT job_uuid FROM jobs WHERE is_active`)
}

func (s *PostgresStore) RecordStatuses(ctx context.Context, runID string, added, maintained, removed []string) error {
	if len(added)+len(maintained)+len(removed) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for status, ids := range map[model.JobStatus][]string{
			model.StatusAdded:      added,
			model.StatusMaintained: maintained,
			model.StatusRemoved:    removed,
		} {
			if len(ids) == 0 {
				continue
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO job_run_status (run_id, job_uuid, status)
				SELECT $1, u, $3 FROM unnest($2::text[]) AS u
				ON CONFLICT (run_id, job_uuid) DO UPDATE SET status = excluded.status`,
				runID, ids, string(status)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording statuses: %w", err)
	}
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, runID string, jobUUIDs []string) error {
	if len(jobUUIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
		  last_seen_run_id = $1,
		  last_seen_at = GREATEST(last_seen_at, $2),
		  is_active = TRUE
		WHERE job_uuid = ANY($3)`,
		runID, s.now().UTC(), jobUUIDs)
	if err != nil {
		return fmt.Errorf("touching jobs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, runID string, jobUUIDs []string) error {
	if len(jobUUIDs) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `UPDATE jobs SET is_active = FALSE WHERE job_uuid = ANY($1)`, jobUUIDs); err != nil {
		return fmt.Errorf("deactivating jobs: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertJobDetails(ctx context.Context, runID string, details []model.JobDetail, embeddings []model.Embedding) error {
	if len(details) == 0 && len(embeddings) == 0 {
		return nil
	}
	now := s.now().UTC()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, d := range details {
			_, err := tx.Exec(ctx, `
				INSERT INTO jobs (job_uuid, first_seen_run_id, last_seen_run_id, is_active,
				                  first_seen_at, last_seen_at, title, company_name, location, job_url)
				VALUES ($1, $2, $2, TRUE, $3, $3, $4, $5, $6, $7)
				ON CONFLICT (job_uuid) DO UPDATE SET
				  last_seen_run_id = excluded.last_seen_run_id,
				  is_active = TRUE,
				  last_seen_at = GREATEST(jobs.last_seen_at, excluded.last_seen_at),
				  title = COALESCE(excluded.title, jobs.title),
				  company_name = COALESCE(excluded.company_name, jobs.company_name),
				  location = COALESCE(excluded.location, jobs.location),
				  job_url = COALESCE(excluded.job_url, jobs.job_url)`,
				d.UUID, runID, now, d.Title, d.CompanyName, d.Location, d.URL)
			if err != nil {
				return fmt.Errorf("job %s: %w", d.UUID, err)
			}
		}
		for _, e := range embeddings {
			if err := upsertVector(ctx, tx, "job_embeddings", "job_uuid", e); err != nil {
				return fmt.Errorf("embedding for %s: %w", e.SubjectID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upserting job details: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobUUID string) (model.Job, error) {
	j, err := scanPgJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_uuid = $1`, jobUUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Job{}, fmt.Errorf("job %s: %w", jobUUID, model.ErrNotFound)
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("loading job %s: %w", jobUUID, err)
	}
	return j, nil
}

func (s *PostgresStore) SearchJobs(ctx context.Context, keywords string, limit, offset int) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE is_active`
	args := []any{limit, offset}
	if kw := strings.TrimSpace(keywords); kw != "" {
		query += ` AND (title ILIKE $3 OR company_name ILIKE $3 OR location ILIKE $3)`
		args = append(args, "%"+kw+"%")
	}
	query += ` ORDER BY last_seen_at DESC NULLS LAST, job_uuid LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveJobCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting active jobs: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) JobsMissingEmbeddings(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT j.job_uuid FROM jobs j
	            LEFT JOIN job_embeddings e ON e.job_uuid = j.job_uuid
	           WHERE j.is_active AND e.job_uuid IS NULL
	           ORDER BY j.job_uuid`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs missing embeddings: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing jobs missing embeddings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertJobEmbedding(ctx context.Context, e model.Embedding) error {
	if err := upsertVector(ctx, s.pool, "job_embeddings", "job_uuid", e); err != nil {
		return fmt.Errorf("upserting job embedding: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveJobEmbeddings(ctx context.Context) ([]model.JobEmbedding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT j.job_uuid, j.title, j.company_name, j.location, j.job_url, j.is_active,
		       j.first_seen_at, j.last_seen_at, j.first_seen_run_id, j.last_seen_run_id,
		       e.embedding::text
		  FROM jobs j
		  JOIN job_embeddings e ON e.job_uuid = j.job_uuid
		 WHERE j.is_active
		 ORDER BY j.job_uuid`)
	if err != nil {
		return nil, fmt.Errorf("loading job embeddings: %w", err)
	}
	defer rows.Close()

	var out []model.JobEmbedding
	for rows.Next() {
		var vec pgvector.Vector
		j, err := scanPgJob(rows, &vec)
		if err != nil {
			return nil, fmt.Errorf("scanning job embedding: %w", err)
		}
		out = append(out, model.JobEmbedding{Job: j, Vector: vec.Slice()})
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertCandidateEmbedding(ctx context.Context, e model.Embedding) error {
	if err := upsertVector(ctx, s.pool, "candidate_embeddings", "profile_id", e); err != nil {
		return fmt.Errorf("upserting candidate embedding: %w", err)
	}
	return nil
}

func (s *PostgresStore) CandidateEmbedding(ctx context.Context, profileID string) (model.Embedding, error) {
	return s.embedding(ctx, "candidate_embeddings", "profile_id", profileID)
}

func (s *PostgresStore) JobEmbedding(ctx context.Context, jobUUID string) (model.Embedding, error) {
	return s.embedding(ctx, "job_embeddings", "job_uuid", jobUUID)
}

func (s *PostgresStore) embedding(ctx context.Context, table, key, id string) (model.Embedding, error) {
	var (
		e   model.Embedding
		vec pgvector.Vector
	)
	err := s.pool.QueryRow(ctx,
		`SELECT `+key+`, model_name, embedding::text, embedded_at FROM `+table+` WHERE `+key+` = $1`,
		id).Scan(&e.SubjectID, &e.ModelName, &vec, &e.EmbeddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Embedding{}, fmt.Errorf("embedding for %s %s: %w", key, id, model.ErrNotFound)
	}
	if err != nil {
		return model.Embedding{}, fmt.Errorf("loading embedding from %s: %w", table, err)
	}
	e.Vector = vec.Slice()
	return e, nil
}

func (s *PostgresStore) CandidateEmbeddings(ctx context.Context) ([]model.CandidateEmbedding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.profile_id, p.updated_at, e.embedding::text
		  FROM candidate_embeddings e
		  LEFT JOIN candidate_profiles p ON p.profile_id = e.profile_id
		 ORDER BY e.profile_id`)
	if err != nil {
		return nil, fmt.Errorf("loading candidate embeddings: %w", err)
	}
	defer rows.Close()

	var out []model.CandidateEmbedding
	for rows.Next() {
		var (
			c   model.CandidateEmbedding
			vec pgvector.Vector
		)
		if err := rows.Scan(&c.ProfileID, &c.UpdatedAt, &vec); err != nil {
			return nil, fmt.Errorf("scanning candidate embedding: %w", err)
		}
		c.Vector = vec.Slice()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p model.Profile) error {
	skills, err := json.Marshal(p.Skills)
	if err != nil {
		return fmt.Errorf("encoding skills: %w", err)
	}
	exp, err := json.Marshal(p.Experience)
	if err != nil {
		return fmt.Errorf("encoding experience: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO candidate_profiles (profile_id, user_id, raw_resume_text, skills, experience, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.UserID, p.RawResumeText, skills, exp, p.Summary, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("creating profile for user %s: %w", p.UserID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, profileID string, u model.ProfileUpdate) error {
	sets := []string{"updated_at = $1"}
	args := []any{s.now().UTC()}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.RawResumeText != nil {
		add("raw_resume_text", *u.RawResumeText)
	}
	if u.Skills != nil {
		b, err := json.Marshal(u.Skills)
		if err != nil {
			return fmt.Errorf("encoding skills: %w", err)
		}
		add("skills", b)
	}
	if u.Experience != nil {
		b, err := json.Marshal(u.Experience)
		if err != nil {
			return fmt.Errorf("encoding experience: %w", err)
		}
		add("experience", b)
	}
	if u.Summary != nil {
		add("summary", *u.Summary)
	}
	args = append(args, profileID)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE candidate_profiles SET %s WHERE profile_id = $%d`, strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("updating profile %s: %w", profileID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", profileID, model.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ProfileByUser(ctx context.Context, userID string) (model.Profile, error) {
	return s.profileWhere(ctx, "user_id", userID)
}

func (s *PostgresStore) ProfileByID(ctx context.Context, profileID string) (model.Profile, error) {
	return s.profileWhere(ctx, "profile_id", profileID)
}

func (s *PostgresStore) profileWhere(ctx context.Context, column, value string) (model.Profile, error) {
	var (
		p           model.Profile
		raw, sum    *string
		skills, exp []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT profile_id, user_id, raw_resume_text, skills, experience, summary, created_at, updated_at
		  FROM candidate_profiles WHERE `+column+` = $1`, value).
		Scan(&p.ID, &p.UserID, &raw, &skills, &exp, &sum, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("profile with %s %s: %w", column, value, model.ErrNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("loading profile: %w", err)
	}

	if raw != nil {
		p.RawResumeText = *raw
	}
	if sum != nil {
		p.Summary = *sum
	}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &p.Skills); err != nil {
			return model.Profile{}, fmt.Errorf("decoding skills: %w", err)
		}
	}
	if len(exp) > 0 {
		if err := json.Unmarshal(exp, &p.Experience); err != nil {
			return model.Profile{}, fmt.Errorf("decoding experience: %w", err)
		}
	}
	return p, nil
}

func (s *PostgresStore) AllCandidateSkills(ctx context.Context) ([]model.CandidateSkills, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT profile_id, user_id, skills FROM candidate_profiles ORDER BY created_at, profile_id`)
	if err != nil {
		return nil, fmt.Errorf("listing candidate skills: %w", err)
	}
	defer rows.Close()

	var out []model.CandidateSkills
	for rows.Next() {
		var (
			c      model.CandidateSkills
			skills []byte
		)
		if err := rows.Scan(&c.ProfileID, &c.UserID, &skills); err != nil {
			return nil, fmt.Errorf("scanning candidate skills: %w", err)
		}
		if len(skills) > 0 {
			if err := json.Unmarshal(skills, &c.Skills); err != nil {
				return nil, fmt.Errorf("decoding skills for %s: %w", c.ProfileID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecordInteraction(ctx context.Context, in model.Interaction, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO job_interactions (user_id, job_uuid, interaction_type, interacted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, job_uuid, interaction_type) DO UPDATE SET interacted_at = excluded.interacted_at`,
		in.UserID, in.JobUUID, string(in.Type), at.UTC())
	if err != nil {
		return fmt.Errorf("recording interaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) InteractedJobs(ctx context.Context, userID string) (map[string]struct{}, error) {
	return s.ids(ctx, "listing interactions",
		`SELECT DISTINCT job_uuid FROM job_interactions WHERE user_id = $1`, userID)
}

func (s *PostgresStore) RecordMatch(ctx context.Context, m model.Match) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (match_id, profile_id, job_uuid, similarity_score, match_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ProfileID, m.JobUUID, m.SimilarityScore, string(m.Type), m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording match: %w", err)
	}
	return nil
}

func (s *PostgresStore) MatchesForProfile(ctx context.Context, profileID string, limit int) ([]model.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, profile_id, job_uuid, similarity_score, match_type, created_at
		  FROM matches WHERE profile_id = $1
		 ORDER BY created_at DESC, match_id LIMIT $2`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var (
			m   model.Match
			typ string
		)
		if err := rows.Scan(&m.ID, &m.ProfileID, &m.JobUUID, &m.SimilarityScore, &typ, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Type = model.MatchType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ids(ctx context.Context, what, query string, args ...any) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return out, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertVector(ctx context.Context, db execer, table, key string, e model.Embedding) error {
	at := e.EmbeddedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO `+table+` (`+key+`, model_name, embedding, dim, embedded_at)
		VALUES ($1, $2, $3::vector, $4, $5)
		ON CONFLICT (`+key+`) DO UPDATE SET
		  model_name = excluded.model_name,
		  embedding = excluded.embedding,
		  dim = excluded.dim,
		  embedded_at = excluded.embedded_at`,
		e.SubjectID, e.ModelName, pgvector.NewVector(e.Vector), e.Dim(), at.UTC())
	return err
}

func scanPgJob(r pgx.Row, extra ...any) (model.Job, error) {
	var (
		j                             model.Job
		title, company, location, url *string
		firstRun, lastRun             *string
	)
	dest := append([]any{&j.UUID, &title, &company, &location, &url, &j.IsActive,
		&j.FirstSeenAt, &j.LastSeenAt, &firstRun, &lastRun}, extra...)
	if err := r.Scan(dest...); err != nil {
		return model.Job{}, err
	}
	j.Title = deref(title)
	j.CompanyName = deref(company)
	j.Location = deref(location)
	j.URL = deref(url)
	j.FirstSeenRunID = deref(firstRun)
	j.LastSeenRunID = deref(lastRun)
	return j, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
