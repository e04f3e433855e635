// Package service implements identity, bearer-token auth, and role
// assignment (4.I). Tokens are opaque: a random value handed to the
// caller, with only its SHA-256 hash ever stored, so a leaked database
// row cannot be replayed as a bearer token
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	perrs "sahay/internal/platform/errors"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/ident/domain"
	"sahay/internal/services/ident/repo"
)

// tokenTTL is the lifetime of a freshly issued bearer token. Revocation
// (Revoke) is the actual security boundary; expiry is a backstop
const tokenTTL = 30 * 24 * time.Hour

// Service implements domain.Ports
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
}

// New constructs the ident service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Service {
	if db == nil {
		panic("ident.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("ident.Service requires a non-nil Repo binder")
	}
	return &Service{db: db, binder: binder}
}

// Register implements domain.AuthPort, idempotent on phone
func (s *Service) Register(ctx context.Context, phone string) (domain.User, error) {
	var u domain.User
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		u, err = s.binder.Bind(q).FindOrCreateUser(ctx, phone)
		return err
	})
	return u, err
}

// Login implements domain.AuthPort, issuing a fresh opaque bearer token
func (s *Service) Login(ctx context.Context, phone string) (string, domain.User, error) {
	var (
		token string
		u     domain.User
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		existing, ok, err := r.FindUserByPhone(ctx, phone)
		if err != nil {
			return err
		}
		if !ok {
			return perrs.NotFoundf("no user registered for this phone")
		}
		u = existing

		raw, hash, err := newToken()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := r.InsertToken(ctx, hash, u.ID, now, now.Add(tokenTTL)); err != nil {
			return err
		}
		token = raw
		return nil
	})
	return token, u, err
}

// Revoke implements domain.AuthPort
func (s *Service) Revoke(ctx context.Context, token string) error {
	hash := hashToken(token)
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).RevokeTokenHash(ctx, hash)
	})
}

// Resolve implements domain.ResolverPort: every request pipeline step
// starts here to learn who is calling and what they're allowed to do
func (s *Service) Resolve(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, perrs.Unauthorizedf("missing bearer token")
	}
	hash := hashToken(token)

	var p domain.Principal
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		userID, ok, err := r.ResolveTokenHash(ctx, hash)
		if err != nil {
			return err
		}
		if !ok {
			return perrs.Unauthorizedf("invalid or expired token")
		}

		roles, err := r.RolesFor(ctx, userID)
		if err != nil {
			return err
		}
		p = domain.Principal{UserID: userID, Roles: roles}
		return nil
	})
	return p, err
}

// AssignRole implements domain.RoleAdminPort
func (s *Service) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	if !domain.ValidRole(role) {
		return perrs.InvalidArgf("unknown role %q", role)
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).AssignRole(ctx, userID, role)
	})
}

// RolesFor implements domain.RoleAdminPort
func (s *Service) RolesFor(ctx context.Context, userID string) ([]domain.Role, error) {
	var out []domain.Role
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).RolesFor(ctx, userID)
		return err
	})
	return out, err
}

// EraseUserInTx deletes a user's tokens, roles, and user row as one step of
// a right-to-erasure cascade composed by the erasure orchestrator; q must
// belong to the orchestrator's own transaction
func (s *Service) EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error {
	return s.binder.Bind(q).DeleteUser(ctx, userID)
}

// newToken generates a random opaque bearer token and returns both the raw
// value (handed to the caller once) and its hash (the only form stored)
func newToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
