// Package repo provides Postgres bindings for the ident domain: users,
// role assignments, and opaque bearer tokens
package repo

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/ident/domain"
)

// Repo is the ident persistence surface used by the service layer
type Repo interface {
	// FindOrCreateUser is idempotent on phone
	FindOrCreateUser(ctx context.Context, phone string) (domain.User, error)

	// FindUserByPhone returns (zero, false, nil) when no such user exists
	FindUserByPhone(ctx context.Context, phone string) (domain.User, bool, error)

	// InsertToken stores a token by its hash, never the raw value
	InsertToken(ctx context.Context, tokenHash, userID string, issuedAt, expiresAt time.Time) error

	// ResolveTokenHash returns the owning user id and whether the token is
	// still valid (not revoked, not expired). ok=false covers "not found"
	ResolveTokenHash(ctx context.Context, tokenHash string) (userID string, ok bool, err error)

	// RevokeTokenHash marks a token revoked; idempotent
	RevokeTokenHash(ctx context.Context, tokenHash string) error

	// AssignRole is idempotent (ON CONFLICT DO NOTHING on (user_id, role))
	AssignRole(ctx context.Context, userID string, role domain.Role) error

	// RolesFor returns the roles currently assigned to a user, in no
	// particular order
	RolesFor(ctx context.Context, userID string) ([]domain.Role, error)

	// DeleteUser removes a user's tokens, role assignments, and user row.
	// Part of the right-to-erasure cascade; idempotent on a missing user
	DeleteUser(ctx context.Context, userID string) error
}

type (
	// PG is a Postgres binder for Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for Repo
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// FindOrCreateUser inserts a new user for phone if none exists, otherwise
// returns the existing row
func (r *queries) FindOrCreateUser(ctx context.Context, phone string) (domain.User, error) {
	const sql = `
		INSERT INTO users (phone, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id, phone, created_at
	`
	var u domain.User
	row := r.q.QueryRow(ctx, sql, phone)
	if err := row.Scan(&u.ID, &u.Phone, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// FindUserByPhone looks up an existing user without creating one
func (r *queries) FindUserByPhone(ctx context.Context, phone string) (domain.User, bool, error) {
	const sql = `SELECT id, phone, created_at FROM users WHERE phone = $1`
	var u domain.User
	row := r.q.QueryRow(ctx, sql, phone)
	if err := row.Scan(&u.ID, &u.Phone, &u.CreatedAt); err != nil {
		return domain.User{}, false, nil
	}
	return u, true, nil
}

// InsertToken persists a new bearer token by hash
func (r *queries) InsertToken(ctx context.Context, tokenHash, userID string, issuedAt, expiresAt time.Time) error {
	const sql = `
		INSERT INTO auth_tokens (token_hash, user_id, issued_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, NULL)
	`
	_, err := r.q.Exec(ctx, sql, tokenHash, userID, issuedAt, expiresAt)
	return err
}

// ResolveTokenHash returns the owning user id if the token is present,
// unexpired, and unrevoked
func (r *queries) ResolveTokenHash(ctx context.Context, tokenHash string) (string, bool, error) {
	const sql = `
		SELECT user_id FROM auth_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`
	var userID string
	row := r.q.QueryRow(ctx, sql, tokenHash)
	if err := row.Scan(&userID); err != nil {
		return "", false, nil
	}
	return userID, true, nil
}

// RevokeTokenHash marks a token revoked, idempotently
func (r *queries) RevokeTokenHash(ctx context.Context, tokenHash string) error {
	const sql = `UPDATE auth_tokens SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`
	_, err := r.q.Exec(ctx, sql, tokenHash)
	return err
}

// AssignRole is idempotent on (user_id, role)
func (r *queries) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	const sql = `
		INSERT INTO user_roles (user_id, role, assigned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role) DO NOTHING
	`
	_, err := r.q.Exec(ctx, sql, userID, string(role))
	return err
}

// RolesFor lists a user's assigned roles
func (r *queries) RolesFor(ctx context.Context, userID string) ([]domain.Role, error) {
	const sql = `SELECT role FROM user_roles WHERE user_id = $1`
	rows, err := r.q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, domain.Role(role))
	}
	return out, rows.Err()
}

// DeleteUser removes every row owned by userID across auth_tokens,
// user_roles, and users, in FK-safe order
func (r *queries) DeleteUser(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}
