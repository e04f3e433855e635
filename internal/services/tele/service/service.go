// Package service implements the teleconsultation request/prescription
// state machine (§3, §6): a citizen opens a request, a clinician claims and
// drives it to completion, then issues a prescription against it
package service

import (
	"context"
	"time"

	perrs "sahay/internal/platform/errors"

	"sahay/internal/modkit/repokit"
	adomain "sahay/internal/services/audit/domain"
	"sahay/internal/services/tele/domain"
	"sahay/internal/services/tele/repo"
)

// auditAppender is the narrow slice of the audit service tele needs
type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

// Service implements domain.Ports
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	audit  auditAppender
}

// New constructs the tele service. audit may be nil in tests or
// deployments that don't wire that seam
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], audit auditAppender) *Service {
	if db == nil {
		panic("tele.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("tele.Service requires a non-nil Repo binder")
	}
	return &Service{db: db, binder: binder, audit: audit}
}

// Create opens a new teleconsultation request for a citizen
func (s *Service) Create(ctx context.Context, citizenID string) (domain.TeleRequest, error) {
	if citizenID == "" {
		return domain.TeleRequest{}, perrs.InvalidArgf("citizen_id must be non-empty")
	}
	now := time.Now().UTC()
	t := domain.TeleRequest{CitizenID: citizenID, Status: domain.StatusRequested, CreatedAt: now}

	var out domain.TeleRequest
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		rec, err := s.binder.Bind(q).InsertRequest(ctx, t)
		if err != nil {
			return err
		}
		out = rec
		if s.audit != nil {
			_, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				ActorID:    citizenID,
				Action:     "tele_request.create",
				EntityType: "tele_request",
				EntityID:   rec.ID,
				Ts:         now,
			})
			return err
		}
		return nil
	})
	return out, err
}

// EraseUserInTx deletes a citizen's tele requests and prescriptions as one
// step of a right-to-erasure cascade composed by the erasure orchestrator;
// q must belong to the orchestrator's own transaction
func (s *Service) EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error {
	return s.binder.Bind(q).DeleteForCitizen(ctx, userID)
}

// Get enforces that only the citizen who opened the request, its assigned
// clinician, or a privileged caller may read it
func (s *Service) Get(ctx context.Context, callerID string, callerIsPrivileged bool, id string) (domain.TeleRequest, error) {
	var t domain.TeleRequest
	var found bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		t, found, err = s.binder.Bind(q).GetRequest(ctx, id)
		return err
	})
	if err != nil {
		return domain.TeleRequest{}, err
	}
	if !found {
		return domain.TeleRequest{}, perrs.NotFoundf("tele request %s not found", id)
	}
	if !callerIsPrivileged && t.CitizenID != callerID && t.ClinicianID != callerID {
		return domain.TeleRequest{}, perrs.Forbiddenf("tele request %s is not owned by caller", id)
	}
	return t, nil
}

// Transition drives the state machine. Claiming a request (requested ->
// scheduled) requires a non-empty ClinicianID; illegal moves return
// StateInvalid
func (s *Service) Transition(ctx context.Context, id string, in domain.TransitionInput) (domain.TeleRequest, error) {
	if in.To == domain.StatusScheduled && in.ClinicianID == "" {
		return domain.TeleRequest{}, perrs.InvalidArgf("clinician_id is required to schedule a tele request")
	}

	var out domain.TeleRequest
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		t, found, err := r.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return perrs.NotFoundf("tele request %s not found", id)
		}
		if !domain.CanTransition(t.Status, in.To) {
			return perrs.StateInvalidf("cannot transition tele request %s from %s to %s", id, t.Status, in.To)
		}
		if err := r.UpdateRequestStatus(ctx, id, in.ClinicianID, in.To); err != nil {
			return err
		}
		t.Status = in.To
		if in.ClinicianID != "" {
			t.ClinicianID = in.ClinicianID
		}
		out = t

		if s.audit != nil {
			_, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				ActorID:    in.ClinicianID,
				Action:     "tele_request.transition",
				EntityType: "tele_request",
				EntityID:   id,
				Ts:         time.Now().UTC(),
				Payload:    map[string]any{"to": string(in.To)},
			})
			return err
		}
		return nil
	})
	return out, err
}

// Prescribe issues a prescription against a request that has at least
// started (in_progress or completed); summary_text's 160-300 char bound is
// re-checked here as a defense against a validator bypassed at the
// transport boundary
func (s *Service) Prescribe(ctx context.Context, in domain.PrescribeInput) (domain.Prescription, error) {
	if len(in.SummaryText) < 160 || len(in.SummaryText) > 300 {
		return domain.Prescription{}, perrs.InvalidArgf("summary_text must be 160-300 characters, got %d", len(in.SummaryText))
	}
	if len(in.Items) == 0 {
		return domain.Prescription{}, perrs.InvalidArgf("prescription must list at least one item")
	}

	now := time.Now().UTC()
	var out domain.Prescription
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		t, found, err := r.GetRequest(ctx, in.TeleRequestID)
		if err != nil {
			return err
		}
		if !found {
			return perrs.NotFoundf("tele request %s not found", in.TeleRequestID)
		}
		if t.Status != domain.StatusInProgress && t.Status != domain.StatusCompleted {
			return perrs.StateInvalidf("tele request %s has not started a consultation yet (status %s)", in.TeleRequestID, t.Status)
		}

		rec, err := r.InsertPrescription(ctx, domain.Prescription{
			TeleRequestID: in.TeleRequestID,
			ClinicianID:   in.ClinicianID,
			Items:         in.Items,
			SummaryText:   in.SummaryText,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}
		out = rec

		if s.audit != nil {
			_, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				ActorID:    in.ClinicianID,
				Action:     "prescription.create",
				EntityType: "prescription",
				EntityID:   rec.ID,
				Ts:         now,
				Payload:    map[string]any{"tele_request_id": in.TeleRequestID},
			})
			return err
		}
		return nil
	})
	return out, err
}
