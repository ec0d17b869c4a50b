package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/mcfradar/internal/model"
)

var _ model.Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS crawl_runs (
	run_id          TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	finished_at     TEXT,
	kind            TEXT NOT NULL,
	categories_json TEXT,
	total_seen      INTEGER NOT NULL DEFAULT 0,
	added           INTEGER NOT NULL DEFAULT 0,
	maintained      INTEGER NOT NULL DEFAULT 0,
	removed         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS jobs (
	job_uuid          TEXT PRIMARY KEY,
	title             TEXT,
	company_name      TEXT,
	location          TEXT,
	job_url           TEXT,
	is_active         INTEGER NOT NULL DEFAULT 1,
	first_seen_run_id TEXT,
	last_seen_run_id  TEXT,
	first_seen_at     TEXT,
	last_seen_at      TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_active ON jobs(is_active);

CREATE TABLE IF NOT EXISTS job_run_status (
	run_id   TEXT NOT NULL,
	job_uuid TEXT NOT NULL,
	status   TEXT NOT NULL,
	PRIMARY KEY (run_id, job_uuid)
);

CREATE TABLE IF NOT EXISTS job_embeddings (
	job_uuid       TEXT PRIMARY KEY,
	model_name     TEXT NOT NULL,
	embedding_json TEXT NOT NULL,
	dim            INTEGER NOT NULL,
	embedded_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS candidate_profiles (
	profile_id      TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL UNIQUE,
	raw_resume_text TEXT,
	skills_json     TEXT,
	experience_json TEXT,
	summary         TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS candidate_embeddings (
	profile_id     TEXT PRIMARY KEY,
	model_name     TEXT NOT NULL,
	embedding_json TEXT NOT NULL,
	dim            INTEGER NOT NULL,
	embedded_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_interactions (
	user_id          TEXT NOT NULL,
	job_uuid         TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	interacted_at    TEXT NOT NULL,
	PRIMARY KEY (user_id, job_uuid, interaction_type)
);

CREATE TABLE IF NOT EXISTS matches (
	match_id         TEXT PRIMARY KEY,
	profile_id       TEXT NOT NULL,
	job_uuid         TEXT NOT NULL,
	similarity_score REAL NOT NULL,
	match_type       TEXT NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_matches_profile ON matches(profile_id, created_at);
`

// SQLiteStore is the embedded backend. Vectors are stored as JSON arrays.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// BeginRun opens a run record. The id is the start time; a collision with an
// existing run moves the start forward by a microsecond.
func (s *SQLiteStore) BeginRun(ctx context.Context, kind model.RunKind, categories []string) (model.Run, error) {
	var cats sql.NullString
	if len(categories) > 0 {
		enc, err := encodeJSON(categories)
		if err != nil {
			return model.Run{}, fmt.Errorf("encoding categories: %w", err)
		}
		cats = sql.NullString{String: enc, Valid: true}
	}

	started := s.now().UTC().Truncate(time.Microsecond)
	for range 5 {
		id := model.NewRunID(started)
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO crawl_runs (run_id, started_at, kind, categories_json) VALUES (?, ?, ?, ?)`,
			id, formatTime(started), string(kind), cats)
		if err != nil {
			return model.Run{}, fmt.Errorf("beginning run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return model.Run{ID: id, StartedAt: started, Kind: kind, Categories: categories}, nil
		}
		started = started.Add(time.Microsecond)
	}
	return model.Run{}, errors.New("beginning run: could not allocate a unique run id")
}

// FinishRun stamps finished_at and the final counts.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, c model.RunCounts) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crawl_runs SET finished_at = ?, total_seen = ?, added = ?, maintained = ?, removed = ? WHERE run_id = ?`,
		formatTime(s.now()), c.TotalSeen, c.Added, c.Maintained, c.Removed, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, model.ErrNotFound)
	}
	return nil
}

// RecentRuns returns runs newest first, unfinished ones included.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, kind, categories_json, total_seen, added, maintained, removed
		   FROM crawl_runs ORDER BY run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		var (
			r        model.Run
			started  string
			finished sql.NullString
			kind     string
			cats     sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &kind, &cats, &r.TotalSeen, &r.Added, &r.Maintained, &r.Removed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parsing run start: %w", err)
		}
		if r.FinishedAt, err = parseNullTime(finished); err != nil {
			return nil, fmt.Errorf("parsing run finish: %w", err)
		}
		if r.Categories, err = decodeStrings(cats); err != nil {
			return nil, fmt.Errorf("decoding run categories: %w", err)
		}
		r.Kind = model.RunKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExistingIDs returns every job ever observed.
func (s *SQLiteStore) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_uuid FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("listing existing jobs: %w", err)
	}
	return idSet(rows)
}

// ActiveIDs returns the jobs currently marked active.
func (s *SQLiteStore) ActiveIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_uuid FROM jobs WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("listing active jobs: %w", err)
	}
	return idSet(rows)
}

// RecordStatuses writes the per-run status rows for all three sets.
func (s *SQLiteStore) RecordStatuses(ctx context.Context, runID string, added, maintained, removed []string) error {
	if len(added)+len(maintained)+len(removed) == 0 {
		return nil
	}
	return s.withTx(ctx, "recording statuses", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO job_run_status (run_id, job_uuid, status) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, set := range []struct {
			status model.JobStatus
			ids    []string
		}{
			{model.StatusAdded, added},
			{model.StatusMaintained, maintained},
			{model.StatusRemoved, removed},
		} {
			for _, id := range set.ids {
				if _, err := stmt.ExecContext(ctx, runID, id, string(set.status)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Touch marks jobs as seen in runID and forces them active. last_seen_at
// never moves backwards.
func (s *SQLiteStore) Touch(ctx context.Context, runID string, jobUUIDs []string) error {
	if len(jobUUIDs) == 0 {
		return nil
	}
	now := formatTime(s.now())
	return s.withTx(ctx, "touching jobs", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE jobs SET
			  last_seen_run_id = ?,
			  last_seen_at = CASE WHEN last_seen_at IS NULL OR last_seen_at < ? THEN ? ELSE last_seen_at END,
			  is_active = 1
			WHERE job_uuid = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range jobUUIDs {
			if _, err := stmt.ExecContext(ctx, runID, now, now, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Deactivate flips is_active off. Rows are never deleted.
func (s *SQLiteStore) Deactivate(ctx context.Context, runID string, jobUUIDs []string) error {
	if len(jobUUIDs) == 0 {
		return nil
	}
	return s.withTx(ctx, "deactivating jobs", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE jobs SET is_active = 0 WHERE job_uuid = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range jobUUIDs {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertJobDetails writes newly added jobs and their embeddings in one
// transaction. Non-nil fields overwrite; nil fields keep what is stored.
func (s *SQLiteStore) UpsertJobDetails(ctx context.Context, runID string, details []model.JobDetail, embeddings []model.Embedding) error {
	if len(details) == 0 && len(embeddings) == 0 {
		return nil
	}
	now := formatTime(s.now())
	return s.withTx(ctx, "upserting job details", func(tx *sql.Tx) error {
		jobStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO jobs (job_uuid, first_seen_run_id, last_seen_run_id, is_active,
			                  first_seen_at, last_seen_at, title, company_name, location, job_url)
			VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (job_uuid) DO UPDATE SET
			  last_seen_run_id = excluded.last_seen_run_id,
			  is_active = 1,
			  last_seen_at = CASE WHEN jobs.last_seen_at IS NULL OR jobs.last_seen_at < excluded.last_seen_at
			                      THEN excluded.last_seen_at ELSE jobs.last_seen_at END,
			  title = COALESCE(excluded.title, jobs.title),
			  company_name = COALESCE(excluded.company_name, jobs.company_name),
			  location = COALESCE(excluded.location, jobs.location),
			  job_url = COALESCE(excluded.job_url, jobs.job_url)`)
		if err != nil {
			return err
		}
		defer jobStmt.Close()

		for _, d := range details {
			if _, err := jobStmt.ExecContext(ctx, d.UUID, runID, runID, now, now,
				nullString(d.Title), nullString(d.CompanyName), nullString(d.Location), nullString(d.URL)); err != nil {
				return fmt.Errorf("job %s: %w", d.UUID, err)
			}
		}

		for _, e := range embeddings {
			if err := upsertEmbeddingTx(ctx, tx, "job_embeddings", "job_uuid", e); err != nil {
				return fmt.Errorf("embedding for %s: %w", e.SubjectID, err)
			}
		}
		return nil
	})
}

// GetJob returns model.ErrNotFound for unknown ids.
func (s *SQLiteStore) GetJob(ctx context.Context, jobUUID string) (model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_uuid = ?`, jobUUID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, fmt.Errorf("job %s: %w", jobUUID, model.ErrNotFound)
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("loading job %s: %w", jobUUID, err)
	}
	return j, nil
}

// SearchJobs lists active jobs matching keywords in title, company or
// location, most recently seen first.
func (s *SQLiteStore) SearchJobs(ctx context.Context, keywords string, limit, offset int) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE is_active = 1`
	var args []any
	if kw := strings.TrimSpace(keywords); kw != "" {
		like := "%" + kw + "%"
		query += ` AND (title LIKE ? OR company_name LIKE ? OR location LIKE ?)`
		args = append(args, like, like, like)
	}
	query += ` ORDER BY last_seen_at DESC, job_uuid LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ActiveJobCount counts active jobs.
func (s *SQLiteStore) ActiveJobCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE is_active = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting active jobs: %w", err)
	}
	return n, nil
}

// JobsMissingEmbeddings lists active jobs with no stored embedding.
func (s *SQLiteStore) JobsMissingEmbeddings(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT j.job_uuid FROM jobs j
	            LEFT JOIN job_embeddings e ON e.job_uuid = j.job_uuid
	           WHERE j.is_active = 1 AND e.job_uuid IS NULL
	           ORDER BY j.job_uuid`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs missing embeddings: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpsertJobEmbedding replaces the job's embedding.
func (s *SQLiteStore) UpsertJobEmbedding(ctx context.Context, e model.Embedding) error {
	return s.withTx(ctx, "upserting job embedding", func(tx *sql.Tx) error {
		return upsertEmbeddingTx(ctx, tx, "job_embeddings", "job_uuid", e)
	})
}

// ActiveJobEmbeddings returns every active job that has an embedding,
// ordered by job id.
func (s *SQLiteStore) ActiveJobEmbeddings(ctx context.Context) ([]model.JobEmbedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT j.job_uuid, j.title, j.company_name, j.location, j.job_url, j.is_active,
		       j.first_seen_at, j.last_seen_at, j.first_seen_run_id, j.last_seen_run_id,
		       e.embedding_json
		  FROM jobs j
		  JOIN job_embeddings e ON e.job_uuid = j.job_uuid
		 WHERE j.is_active = 1
		 ORDER BY j.job_uuid`)
	if err != nil {
		return nil, fmt.Errorf("loading job embeddings: %w", err)
	}
	defer rows.Close()

	var out []model.JobEmbedding
	for rows.Next() {
		var vec string
		j, err := scanJob(rows, &vec)
		if err != nil {
			return nil, fmt.Errorf("scanning job embedding: %w", err)
		}
		v, err := decodeVector(vec)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", j.UUID, err)
		}
		out = append(out, model.JobEmbedding{Job: j, Vector: v})
	}
	return out, rows.Err()
}

// UpsertCandidateEmbedding replaces the profile's embedding.
func (s *SQLiteStore) UpsertCandidateEmbedding(ctx context.Context, e model.Embedding) error {
	return s.withTx(ctx, "upserting candidate embedding", func(tx *sql.Tx) error {
		return upsertEmbeddingTx(ctx, tx, "candidate_embeddings", "profile_id", e)
	})
}

// CandidateEmbedding returns model.ErrNotFound when the profile has none.
func (s *SQLiteStore) CandidateEmbedding(ctx context.Context, profileID string) (model.Embedding, error) {
	return s.embedding(ctx, "candidate_embeddings", "profile_id", profileID)
}

// JobEmbedding returns model.ErrNotFound when the job has none.
func (s *SQLiteStore) JobEmbedding(ctx context.Context, jobUUID string) (model.Embedding, error) {
	return s.embedding(ctx, "job_embeddings", "job_uuid", jobUUID)
}

func (s *SQLiteStore) embedding(ctx context.Context, table, key, id string) (model.Embedding, error) {
	var (
		e       model.Embedding
		vec, ts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+key+`, model_name, embedding_json, embedded_at FROM `+table+` WHERE `+key+` = ?`,
		id).Scan(&e.SubjectID, &e.ModelName, &vec, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Embedding{}, fmt.Errorf("embedding for %s %s: %w", key, id, model.ErrNotFound)
	}
	if err != nil {
		return model.Embedding{}, fmt.Errorf("loading embedding from %s: %w", table, err)
	}
	if e.Vector, err = decodeVector(vec); err != nil {
		return model.Embedding{}, fmt.Errorf("decoding embedding for %s: %w", id, err)
	}
	if e.EmbeddedAt, err = parseTime(ts); err != nil {
		return model.Embedding{}, fmt.Errorf("parsing embedded_at: %w", err)
	}
	return e, nil
}

// CandidateEmbeddings returns every candidate embedding ordered by profile id.
func (s *SQLiteStore) CandidateEmbeddings(ctx context.Context) ([]model.CandidateEmbedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.profile_id, p.updated_at, e.embedding_json
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
			c       model.CandidateEmbedding
			updated sql.NullString
			vec     string
		)
		if err := rows.Scan(&c.ProfileID, &updated, &vec); err != nil {
			return nil, fmt.Errorf("scanning candidate embedding: %w", err)
		}
		if c.UpdatedAt, err = parseNullTime(updated); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		if c.Vector, err = decodeVector(vec); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", c.ProfileID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateProfile inserts a new profile. A user can own only one.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p model.Profile) error {
	skills, err := encodeJSON(p.Skills)
	if err != nil {
		return fmt.Errorf("encoding skills: %w", err)
	}
	exp, err := encodeJSON(p.Experience)
	if err != nil {
		return fmt.Errorf("encoding experience: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO candidate_profiles (profile_id, user_id, raw_resume_text, skills_json, experience_json, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.RawResumeText, skills, exp, p.Summary, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("creating profile for user %s: %w", p.UserID, err)
	}
	return nil
}

// UpdateProfile overwrites the non-nil fields of u and bumps updated_at.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, profileID string, u model.ProfileUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(s.now())}

	if u.RawResumeText != nil {
		sets = append(sets, "raw_resume_text = ?")
		args = append(args, *u.RawResumeText)
	}
	if u.Skills != nil {
		enc, err := encodeJSON(u.Skills)
		if err != nil {
			return fmt.Errorf("encoding skills: %w", err)
		}
		sets = append(sets, "skills_json = ?")
		args = append(args, enc)
	}
	if u.Experience != nil {
		enc, err := encodeJSON(u.Experience)
		if err != nil {
			return fmt.Errorf("encoding experience: %w", err)
		}
		sets = append(sets, "experience_json = ?")
		args = append(args, enc)
	}
	if u.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *u.Summary)
	}
	args = append(args, profileID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE candidate_profiles SET `+strings.Join(sets, ", ")+` WHERE profile_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating profile %s: %w", profileID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %s: %w", profileID, model.ErrNotFound)
	}
	return nil
}

// ProfileByUser returns model.ErrNotFound when the user has no profile.
func (s *SQLiteStore) ProfileByUser(ctx context.Context, userID string) (model.Profile, error) {
	return s.profileWhere(ctx, "user_id", userID)
}

// ProfileByID returns model.ErrNotFound for unknown ids.
func (s *SQLiteStore) ProfileByID(ctx context.Context, profileID string) (model.Profile, error) {
	return s.profileWhere(ctx, "profile_id", profileID)
}

func (s *SQLiteStore) profileWhere(ctx context.Context, column, value string) (model.Profile, error) {
	var (
		p                     model.Profile
		raw, skills, exp, sum sql.NullString
		created, updated      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT profile_id, user_id, raw_resume_text, skills_json, experience_json, summary, created_at, updated_at
		  FROM candidate_profiles WHERE `+column+` = ?`, value).
		Scan(&p.ID, &p.UserID, &raw, &skills, &exp, &sum, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("profile with %s %s: %w", column, value, model.ErrNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("loading profile: %w", err)
	}

	p.RawResumeText = raw.String
	p.Summary = sum.String
	if p.Skills, err = decodeStrings(skills); err != nil {
		return model.Profile{}, fmt.Errorf("decoding skills: %w", err)
	}
	if p.Experience, err = decodeExperience(exp); err != nil {
		return model.Profile{}, fmt.Errorf("decoding experience: %w", err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return model.Profile{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Profile{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) AllCandidateSkills(ctx context.Context) ([]model.CandidateSkills, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT profile_id, user_id, skills_json FROM candidate_profiles ORDER BY created_at, profile_id`)
	if err != nil {
		return nil, fmt.Errorf("listing candidate skills: %w", err)
	}
	defer rows.Close()

	var out []model.CandidateSkills
	for rows.Next() {
		var (
			c      model.CandidateSkills
			skills sql.NullString
		)
		if err := rows.Scan(&c.ProfileID, &c.UserID, &skills); err != nil {
			return nil, fmt.Errorf("scanning candidate skills: %w", err)
		}
		if c.Skills, err = decodeStrings(skills); err != nil {
			return nil, fmt.Errorf("decoding skills for %s: %w", c.ProfileID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordInteraction is idempotent on (user, job, type); repeats refresh the
// timestamp.
func (s *SQLiteStore) RecordInteraction(ctx context.Context, in model.Interaction, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_interactions (user_id, job_uuid, interaction_type, interacted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, job_uuid, interaction_type) DO UPDATE SET interacted_at = excluded.interacted_at`,
		in.UserID, in.JobUUID, string(in.Type), formatTime(at))
	if err != nil {
		return fmt.Errorf("recording interaction: %w", err)
	}
	return nil
}

// InteractedJobs returns every job the user interacted with, of any type.
func (s *SQLiteStore) InteractedJobs(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT job_uuid FROM job_interactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	return idSet(rows)
}

// RecordMatch appends to the match log.
func (s *SQLiteStore) RecordMatch(ctx context.Context, m model.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (match_id, profile_id, job_uuid, similarity_score, match_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProfileID, m.JobUUID, m.SimilarityScore, string(m.Type), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("recording match: %w", err)
	}
	return nil
}

// MatchesForProfile returns the profile's matches, newest first.
func (s *SQLiteStore) MatchesForProfile(ctx context.Context, profileID string, limit int) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, profile_id, job_uuid, similarity_score, match_type, created_at
		  FROM matches WHERE profile_id = ?
		 ORDER BY created_at DESC, match_id LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var (
			m       model.Match
			typ, ts string
		)
		if err := rows.Scan(&m.ID, &m.ProfileID, &m.JobUUID, &m.SimilarityScore, &typ, &ts); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Type = model.MatchType(typ)
		if m.CreatedAt, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, what string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: %w", what, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func upsertEmbeddingTx(ctx context.Context, tx *sql.Tx, table, key string, e model.Embedding) error {
	vec, err := encodeJSON(e.Vector)
	if err != nil {
		return err
	}
	at := e.EmbeddedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+table+` (`+key+`, model_name, embedding_json, dim, embedded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (`+key+`) DO UPDATE SET
		  model_name = excluded.model_name,
		  embedding_json = excluded.embedding_json,
		  dim = excluded.dim,
		  embedded_at = excluded.embedded_at`,
		e.SubjectID, e.ModelName, vec, e.Dim(), formatTime(at))
	return err
}

const jobColumns = `job_uuid, title, company_name, location, job_url, is_active,
	first_seen_at, last_seen_at, first_seen_run_id, last_seen_run_id`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads jobColumns followed by any extra destinations.
func scanJob(r rowScanner, extra ...any) (model.Job, error) {
	var (
		j                                  model.Job
		title, company, location, url      sql.NullString
		firstAt, lastAt, firstRun, lastRun sql.NullString
	)
	dest := append([]any{&j.UUID, &title, &company, &location, &url, &j.IsActive,
		&firstAt, &lastAt, &firstRun, &lastRun}, extra...)
	if err := r.Scan(dest...); err != nil {
		return model.Job{}, err
	}

	j.Title = title.String
	j.CompanyName = company.String
	j.Location = location.String
	j.URL = url.String
	j.FirstSeenRunID = firstRun.String
	j.LastSeenRunID = lastRun.String

	var err error
	if j.FirstSeenAt, err = parseNullTime(firstAt); err != nil {
		return model.Job{}, err
	}
	if j.LastSeenAt, err = parseNullTime(lastAt); err != nil {
		return model.Job{}, err
	}
	return j, nil
}
