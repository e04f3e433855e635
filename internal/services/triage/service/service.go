// Package service wraps the core triage engine with session persistence
// and ownership enforcement (4.D)
package service

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	perrs "sahay/internal/platform/errors"

	core "sahay/internal/core/triage"
	"sahay/internal/services/triage/domain"
	"sahay/internal/services/triage/repo"
)

// Service implements domain.Ports
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	engine *core.Engine
}

// New constructs the triage service around a compiled core engine
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], engine *core.Engine) *Service {
	if db == nil {
		panic("triage.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("triage.Service requires a non-nil Repo binder")
	}
	if engine == nil {
		panic("triage.Service requires a non-nil core engine")
	}
	return &Service{db: db, binder: binder, engine: engine}
}

// Create evaluates in through the red-flag engine and persists the result
func (s *Service) Create(ctx context.Context, ownerID string, in domain.Input) (domain.Session, error) {
	res := s.engine.Evaluate(core.Input{
		SymptomsText: in.SymptomsText,
		Age:          in.Age,
		Sex:          in.Sex,
		Pregnancy:    in.Pregnancy,
		Language:     in.Language,
	})

	sess := domain.Session{
		OwnerID:      ownerID,
		SymptomsText: in.SymptomsText,
		Category:     res.Category,
		RedFlags:     res.RedFlags,
		GuidanceText: res.Guidance,
		CreatedAt:    time.Now().UTC(),
	}

	var out domain.Session
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).Insert(ctx, sess)
		return err
	})
	return out, err
}

// Get enforces owner-only reads: an unknown id gets NotFound, and an
// existing session read by anyone but its owner gets Forbidden
func (s *Service) Get(ctx context.Context, callerID, sessionID string) (domain.Session, error) {
	var sess domain.Session
	var found bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		sess, found, err = s.binder.Bind(q).Get(ctx, sessionID)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	if !found {
		return domain.Session{}, perrs.NotFoundf("triage session %s not found", sessionID)
	}
	if sess.OwnerID != callerID {
		return domain.Session{}, perrs.Forbiddenf("triage session %s is not owned by caller", sessionID)
	}
	return sess, nil
}

// EraseUserInTx deletes a user's triage sessions as one step of a
// right-to-erasure cascade composed by the erasure orchestrator; q must
// belong to the orchestrator's own transaction
func (s *Service) EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error {
	return s.binder.Bind(q).DeleteForOwner(ctx, userID)
}
