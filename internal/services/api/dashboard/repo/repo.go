// Package repo provides the Postgres repository for materialized view
// snapshots (4.H). Each view is one row keyed by name, overwritten on
// every refresh; updated_at is the source of truth for freshness checks,
// never an in-process timestamp
package repo

import (
	"context"
	"encoding/json"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/api/dashboard/domain"
)

// Repo is the dashboard view persistence surface
type Repo interface {
	// Get returns the current stored snapshot for name, or ok=false if
	// the view has never been refreshed
	Get(ctx context.Context, q repokit.Queryer, name domain.ViewName) (domain.View, bool, error)
	// Upsert overwrites the stored snapshot for name with rows, stamping
	// updated_at as now
	Upsert(ctx context.Context, q repokit.Queryer, name domain.ViewName, rows []domain.Row, now time.Time) error
	// StaleSince returns the subset of names whose stored updated_at is
	// older than cutoff, or that have never been refreshed. Every name in
	// domain.AllViews not yet present in storage counts as stale
	StaleSince(ctx context.Context, q repokit.Queryer, names []domain.ViewName, cutoff time.Time) ([]domain.ViewName, error)
}

type (
	// PG is a Postgres implementation of the dashboard view repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Get(ctx context.Context, q repokit.Queryer, name domain.ViewName) (domain.View, bool, error) {
	const sql = `SELECT rows_json, updated_at FROM dashboard_views WHERE name = $1`
	row := q.QueryRow(ctx, sql, string(name))

	var raw []byte
	var updatedAt time.Time
	if err := row.Scan(&raw, &updatedAt); err != nil {
		return domain.View{}, false, nil
	}

	var rows []domain.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return domain.View{}, false, err
	}
	return domain.View{Name: name, Rows: rows, UpdatedAt: updatedAt}, true, nil
}

func (r *queries) Upsert(ctx context.Context, q repokit.Queryer, name domain.ViewName, rows []domain.Row, now time.Time) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	const sql = `
		INSERT INTO dashboard_views (name, rows_json, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET rows_json = $2, updated_at = $3
	`
	_, err = q.Exec(ctx, sql, string(name), raw, now)
	return err
}

func (r *queries) StaleSince(
	ctx context.Context, q repokit.Queryer, names []domain.ViewName, cutoff time.Time,
) ([]domain.ViewName, error) {
	fresh := make(map[domain.ViewName]bool, len(names))

	const sql = `SELECT name FROM dashboard_views WHERE updated_at >= $1`
	rows, err := q.Query(ctx, sql, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		fresh[domain.ViewName(n)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var stale []domain.ViewName
	for _, n := range names {
		if !fresh[n] {
			stale = append(stale, n)
		}
	}
	return stale, nil
}
