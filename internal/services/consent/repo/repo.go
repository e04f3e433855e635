// Package repo provides the Postgres repository for the consent registry
package repo

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/consent/domain"
)

// Repo is the consent persistence surface used by the service layer
type Repo interface {
	// Insert appends one consent row (never updates)
	Insert(ctx context.Context, g domain.Grant, grantedAt time.Time) (domain.Receipt, error)

	// Newest returns the newest row at or before at for (user, category,
	// scope); ok=false when no such row exists
	Newest(ctx context.Context, userID string, category domain.Category, scope domain.Scope, at time.Time) (domain.Receipt, bool, error)

	// ListCurrent returns the newest row per (category, scope) for a user
	ListCurrent(ctx context.Context, userID string) ([]domain.Receipt, error)

	// DeleteForUser removes every consent receipt for a user. Part of the
	// right-to-erasure cascade; idempotent on a user with no receipts
	DeleteForUser(ctx context.Context, userID string) error
}

type (
	// PG is a Postgres implementation of the consent repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Insert appends a new consent row
func (r *queries) Insert(ctx context.Context, g domain.Grant, grantedAt time.Time) (domain.Receipt, error) {
	const sql = `
		INSERT INTO consent_receipts (user_id, category, scope, version, granted, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id string
	row := r.q.QueryRow(ctx, sql, g.UserID, string(g.Category), string(g.Scope), g.Version, g.Granted, grantedAt)
	if err := row.Scan(&id); err != nil {
		return domain.Receipt{}, err
	}
	return domain.Receipt{
		ID:        id,
		UserID:    g.UserID,
		Category:  g.Category,
		Scope:     g.Scope,
		Version:   g.Version,
		Granted:   g.Granted,
		GrantedAt: grantedAt,
	}, nil
}

// Newest returns the newest row at or before at
func (r *queries) Newest(
	ctx context.Context, userID string, category domain.Category, scope domain.Scope, at time.Time,
) (domain.Receipt, bool, error) {
	const sql = `
		SELECT id, version, granted, granted_at
		FROM consent_receipts
		WHERE user_id = $1 AND category = $2 AND scope = $3 AND granted_at <= $4
		ORDER BY granted_at DESC, id DESC
		LIMIT 1
	`
	var rec domain.Receipt
	rec.UserID, rec.Category, rec.Scope = userID, category, scope
	row := r.q.QueryRow(ctx, sql, userID, string(category), string(scope), at)
	if err := row.Scan(&rec.ID, &rec.Version, &rec.Granted, &rec.GrantedAt); err != nil {
		return domain.Receipt{}, false, nil
	}
	return rec, true, nil
}

// ListCurrent returns the newest row per (category, scope) for a user
func (r *queries) ListCurrent(ctx context.Context, userID string) ([]domain.Receipt, error) {
	const sql = `
		SELECT DISTINCT ON (category, scope)
			id, category, scope, version, granted, granted_at
		FROM consent_receipts
		WHERE user_id = $1
		ORDER BY category, scope, granted_at DESC, id DESC
	`
	rows, err := r.q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var rec domain.Receipt
		rec.UserID = userID
		var category, scope string
		if err := rows.Scan(&rec.ID, &category, &scope, &rec.Version, &rec.Granted, &rec.GrantedAt); err != nil {
			return nil, err
		}
		rec.Category = domain.Category(category)
		rec.Scope = domain.Scope(scope)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteForUser removes every consent receipt owned by userID
func (r *queries) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM consent_receipts WHERE user_id = $1`, userID)
	return err
}
