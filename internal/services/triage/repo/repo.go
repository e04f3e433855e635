// Package repo provides the Postgres repository for triage sessions
package repo

import (
	"context"
	"encoding/json"

	core "sahay/internal/core/triage"
	"sahay/internal/modkit/repokit"
	"sahay/internal/services/triage/domain"
)

// Repo is the triage session persistence surface
type Repo interface {
	Insert(ctx context.Context, s domain.Session) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, bool, error)

	// DeleteForOwner removes every triage session owned by ownerID. Part of
	// the right-to-erasure cascade; idempotent on an owner with no sessions
	DeleteForOwner(ctx context.Context, ownerID string) error
}

type (
	// PG is a Postgres implementation of the triage repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Insert persists a newly evaluated session
func (r *queries) Insert(ctx context.Context, s domain.Session) (domain.Session, error) {
	flags, err := json.Marshal(s.RedFlags)
	if err != nil {
		return domain.Session{}, err
	}
	const sql = `
		INSERT INTO triage_sessions (
			owner_id, symptoms_text, category, red_flags, guidance_text, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id string
	row := r.q.QueryRow(ctx, sql, s.OwnerID, s.SymptomsText, string(s.Category), flags, s.GuidanceText, s.CreatedAt)
	if err := row.Scan(&id); err != nil {
		return domain.Session{}, err
	}
	s.ID = id
	return s, nil
}

// Get fetches a session by id
func (r *queries) Get(ctx context.Context, id string) (domain.Session, bool, error) {
	const sql = `
		SELECT id, owner_id, symptoms_text, category, red_flags, guidance_text, created_at
		FROM triage_sessions
		WHERE id = $1
	`
	var s domain.Session
	var category string
	var flags []byte
	row := r.q.QueryRow(ctx, sql, id)
	if err := row.Scan(&s.ID, &s.OwnerID, &s.SymptomsText, &category, &flags, &s.GuidanceText, &s.CreatedAt); err != nil {
		return domain.Session{}, false, nil
	}
	s.Category = core.Category(category)
	if len(flags) > 0 {
		var fs []string
		if err := json.Unmarshal(flags, &fs); err != nil {
			return domain.Session{}, false, err
		}
		s.RedFlags = fs
	}
	return s, true, nil
}

// DeleteForOwner removes every triage session owned by ownerID
func (r *queries) DeleteForOwner(ctx context.Context, ownerID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM triage_sessions WHERE owner_id = $1`, ownerID)
	return err
}
