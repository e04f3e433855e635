// Package service implements the consent registry (4.B): grant appends an
// append-only row; isGranted resolves the newest row at or before a time.
// Enforcement (Require) is the seam every handler calls before reading or
// emitting on a user's behalf
package service

import (
	"context"
	"time"

	perrs "sahay/internal/platform/errors"

	"sahay/internal/modkit/repokit"
	adomain "sahay/internal/services/audit/domain"
	cdomain "sahay/internal/services/consent/domain"
	"sahay/internal/services/consent/repo"
)

// auditAppender is the narrow slice of the audit service this package needs,
// letting consent compose its write with an audit entry in the same
// transaction without depending on the full audit service
type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

// Service implements cdomain.Ports
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	audit  auditAppender
}

// New constructs the consent service. audit may be nil in tests that don't
// care about the audit trail
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], audit auditAppender) *Service {
	if db == nil {
		panic("consent.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("consent.Service requires a non-nil Repo binder")
	}
	return &Service{db: db, binder: binder, audit: audit}
}

// Grant implements cdomain.GrantPort
func (s *Service) Grant(ctx context.Context, g cdomain.Grant) (cdomain.Receipt, error) {
	if !cdomain.ValidCategory(g.Category) {
		return cdomain.Receipt{}, perrs.InvalidArgf("unknown consent category %q", g.Category)
	}
	if !cdomain.ValidScope(g.Scope) {
		return cdomain.Receipt{}, perrs.InvalidArgf("unknown consent scope %q", g.Scope)
	}

	var out cdomain.Receipt
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		now := time.Now().UTC()
		r := s.binder.Bind(q)

		rec, err := r.Insert(ctx, g, now)
		if err != nil {
			return err
		}
		out = rec

		if s.audit != nil {
			action := "consent.revoke"
			if g.Granted {
				action = "consent.grant"
			}
			if _, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				ActorID:    g.UserID,
				Action:     action,
				EntityType: "consent",
				EntityID:   rec.ID,
				Ts:         now,
				Payload: map[string]any{
					"category": string(g.Category),
					"scope":    string(g.Scope),
					"version":  g.Version,
					"granted":  g.Granted,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// IsGranted implements cdomain.QueryPort, observing writes committed before
// this check's transaction began (§5)
func (s *Service) IsGranted(ctx context.Context, userID string, category cdomain.Category, scope cdomain.Scope) (bool, error) {
	var granted bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		rec, ok, err := s.binder.Bind(q).Newest(ctx, userID, category, scope, time.Now().UTC())
		if err != nil {
			return err
		}
		granted = ok && rec.Granted
		return nil
	})
	return granted, err
}

// List implements cdomain.QueryPort
func (s *Service) List(ctx context.Context, userID string) ([]cdomain.Receipt, error) {
	var out []cdomain.Receipt
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).ListCurrent(ctx, userID)
		return err
	})
	return out, err
}

// Require implements cdomain.RequirePort: the enforcement gate every
// handler calls before reading or emitting on a user's behalf. Revocation
// takes effect on the very next check — there is no cache to outlive it
func (s *Service) Require(ctx context.Context, userID string, category cdomain.Category, scope cdomain.Scope) error {
	ok, err := s.IsGranted(ctx, userID, category, scope)
	if err != nil {
		return err
	}
	if !ok {
		return perrs.ConsentMissingf("consent required for %s/%s", category, scope)
	}
	return nil
}

// EraseUserInTx deletes a user's consent receipts as one step of a
// right-to-erasure cascade composed by the erasure orchestrator; q must
// belong to the orchestrator's own transaction
func (s *Service) EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error {
	return s.binder.Bind(q).DeleteForUser(ctx, userID)
}
