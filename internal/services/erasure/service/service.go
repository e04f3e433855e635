// Package service implements the right-to-erasure cascade (§3): a user is
// "destroyed only by right-to-erasure (cascades to owned rows; analytics
// rows are de-identified and retained)". One admin-triggered call tears
// down a user's identity, consent receipts, sync data, triage sessions, and
// teleconsultation history, and anonymizes (never deletes) the complaints
// they filed, all inside a single transaction so a failure partway through
// leaves nothing half-erased
package service

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	perrs "sahay/internal/platform/errors"
	adomain "sahay/internal/services/audit/domain"
)

// identEraser is the narrow slice of the ident service this package needs:
// deleting a user's tokens, roles, and user row
type identEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

// consentEraser is the narrow slice of the consent service this package
// needs: deleting a user's consent receipts
type consentEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

// syncEraser is the narrow slice of the sync gateway this package needs:
// deleting a user's profile and append-only logs
type syncEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

// triageEraser is the narrow slice of the triage service this package
// needs: deleting a user's triage sessions
type triageEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

// teleEraser is the narrow slice of the tele service this package needs:
// deleting a citizen's teleconsultation requests and prescriptions
type teleEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

// complaintsEraser is the narrow slice of the complaints service this
// package needs: scrubbing the submitter link on a user's complaints
// without deleting the complaint itself (SLA/audit/anchor history outlives
// the submitter's identity)
type complaintsEraser interface {
	AnonymizeSubmitterInTx(ctx context.Context, q repokit.Queryer, submitterID string) error
}

// auditAppender is the narrow slice of the audit service this package
// needs, letting the cascade record the erasure itself in the same
// transaction it performs the deletes in
type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

// Service implements domain.Ports
type Service struct {
	db         repokit.TxRunner
	ident      identEraser
	consent    consentEraser
	sync       syncEraser
	triage     triageEraser
	tele       teleEraser
	complaints complaintsEraser
	audit      auditAppender
}

// New constructs the erasure cascade. audit may be nil in tests or
// deployments that don't wire that seam; every other dependency is
// required since a cascade skipping a module would silently leave owned
// rows behind
func New(
	db repokit.TxRunner,
	ident identEraser,
	consent consentEraser,
	sync syncEraser,
	triage triageEraser,
	tele teleEraser,
	complaints complaintsEraser,
	audit auditAppender,
) *Service {
	if db == nil {
		panic("erasure.Service requires a non-nil TxRunner")
	}
	if ident == nil || consent == nil || sync == nil || triage == nil || tele == nil || complaints == nil {
		panic("erasure.Service requires all six module erasers")
	}
	return &Service{
		db: db, ident: ident, consent: consent, sync: sync,
		triage: triage, tele: tele, complaints: complaints, audit: audit,
	}
}

// Erase tears down every row userID owns, atomically. actorID is the
// admin who triggered the cascade, recorded on the audit entry; userID
// itself is never the actor since by the time this returns the user row is
// gone
func (s *Service) Erase(ctx context.Context, actorID, userID string) error {
	if userID == "" {
		return perrs.InvalidArgf("user_id must be non-empty")
	}
	now := time.Now().UTC()
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		if err := s.consent.EraseUserInTx(ctx, q, userID); err != nil {
			return err
		}
		if err := s.sync.EraseUserInTx(ctx, q, userID); err != nil {
			return err
		}
		if err := s.triage.EraseUserInTx(ctx, q, userID); err != nil {
			return err
		}
		if err := s.tele.EraseUserInTx(ctx, q, userID); err != nil {
			return err
		}
		if err := s.complaints.AnonymizeSubmitterInTx(ctx, q, userID); err != nil {
			return err
		}
		// ident last: every other step may still need to resolve userID
		// against a real users row (e.g. FK checks upstream), and once the
		// user row is gone there is nothing left to erase it against
		if err := s.ident.EraseUserInTx(ctx, q, userID); err != nil {
			return err
		}
		if s.audit != nil {
			_, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				ActorID:    actorID,
				Action:     "user.erase",
				EntityType: "user",
				EntityID:   userID,
				Ts:         now,
			})
			return err
		}
		return nil
	})
}
