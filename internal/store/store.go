// Package store persists jobs, runs, embeddings, profiles, interactions and
// matches. Two interchangeable backends exist: embedded SQLite and PostgreSQL
// with pgvector.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured backend and ensures its schema exists.
func Open(ctx context.Context, driver, sqlitePath, databaseURL string) (model.Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(sqlitePath)
	case DriverPostgres:
		return NewPostgresStore(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		// Rows written by hand or older tools.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStrings(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeExperience(ns sql.NullString) ([]model.Experience, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var out []model.Experience
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeVector(s string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func idSet(rows *sql.Rows) (map[string]struct{}, error) {
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
