// Package service implements the complaint SLA engine (4.E): a status state
// machine with SLA timers, escalation, and closure invariants
package service

import (
	"context"
	"encoding/json"
	"time"

	"sahay/internal/core/canon"
	perrs "sahay/internal/platform/errors"

	"sahay/internal/modkit/repokit"
	adomain "sahay/internal/services/audit/domain"
	cdomain "sahay/internal/services/complaints/domain"
	"sahay/internal/services/complaints/repo"
	odomain "sahay/internal/services/outbox/domain"
)

// auditAppender is the narrow slice of the audit service complaints needs
type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

// anchorEnqueuer is the narrow slice of the anchor service complaints needs:
// queue off-chain create/update jobs, never blocking on chain availability
// (4.F)
type anchorEnqueuer interface {
	EnqueueCreate(ctx context.Context, q repokit.Queryer, complaintID string, complaintHash, slaHash, statusHash [32]byte, createdAt time.Time) error
	EnqueueUpdate(ctx context.Context, q repokit.Queryer, complaintID string, statusHash [32]byte, updatedAt time.Time) error
}

// outboxEnqueuer is the narrow slice of the outbox queue complaints needs to
// raise an at-least-once escalation alert atomically with the escalation
// write, without blocking Tick on delivery
type outboxEnqueuer interface {
	EnqueueInTx(ctx context.Context, q repokit.Queryer, in odomain.Enqueue) (odomain.Message, error)
}

// SLAConfig maps category -> escalation level -> SLA duration. A category
// absent from the map falls back to Default
type SLAConfig struct {
	Default  time.Duration
	PerLevel map[cdomain.Category]map[cdomain.EscalationLevel]time.Duration
}

func (c SLAConfig) slaFor(category cdomain.Category, level cdomain.EscalationLevel) time.Duration {
	if byLevel, ok := c.PerLevel[category]; ok {
		if d, ok := byLevel[level]; ok {
			return d
		}
	}
	if c.Default <= 0 {
		return 72 * time.Hour
	}
	return c.Default
}

// Service implements cdomain.Ports
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	audit  auditAppender
	anchor anchorEnqueuer
	outbox outboxEnqueuer
	sla    SLAConfig
}

// New constructs the complaints service. audit/anchor/outbox may be nil in
// tests or deployments that don't wire those seams
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	audit auditAppender,
	anchor anchorEnqueuer,
	sla SLAConfig,
	outbox outboxEnqueuer,
) *Service {
	if db == nil {
		panic("complaints.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("complaints.Service requires a non-nil Repo binder")
	}
	return &Service{db: db, binder: binder, audit: audit, anchor: anchor, sla: sla, outbox: outbox}
}

// Submit files a new complaint. Anonymous submissions carry no submitter
// and the audit entry for them is scrubbed of IP/device (§9)
func (s *Service) Submit(ctx context.Context, in cdomain.SubmitInput) (cdomain.Complaint, error) {
	now := time.Now().UTC()
	c := cdomain.Complaint{
		SubmitterID:      in.SubmitterID,
		Anonymous:        in.Anonymous,
		Category:         in.Category,
		PayloadEncrypted: in.PayloadEncrypted,
		Status:           cdomain.StatusSubmitted,
		CreatedAt:        now,
		SLADeadline:      now.Add(s.sla.slaFor(in.Category, cdomain.EscalationDistrict)),
		EscalationLevel:  cdomain.EscalationDistrict,
	}

	var out cdomain.Complaint
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		rec, err := s.binder.Bind(q).Insert(ctx, c)
		if err != nil {
			return err
		}
		out = rec

		if s.audit != nil {
			if _, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				ActorID:    rec.SubmitterID,
				Action:     "complaint.submit",
				EntityType: "complaint",
				EntityID:   rec.ID,
				Ts:         now,
				Anonymous:  rec.Anonymous,
				Payload:    map[string]any{"category": string(rec.Category)},
			}); err != nil {
				return err
			}
		}

		if s.anchor != nil {
			complaintHash, err := canon.Sum256(map[string]any{
				"id":       rec.ID,
				"category": string(rec.Category),
			})
			if err != nil {
				return err
			}
			slaHash, err := canon.Sum256(map[string]any{
				"deadline": rec.SLADeadline.Format(time.RFC3339Nano),
				"level":    string(rec.EscalationLevel),
			})
			if err != nil {
				return err
			}
			statusHash, err := canon.Sum256(map[string]any{"status": string(rec.Status)})
			if err != nil {
				return err
			}
			if err := s.anchor.EnqueueCreate(ctx, q, rec.ID, complaintHash, slaHash, statusHash, now); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Get enforces owner-only reads unless the caller holds a privileged role
func (s *Service) Get(ctx context.Context, callerID string, callerIsPrivileged bool, id string) (cdomain.Complaint, error) {
	var c cdomain.Complaint
	var found bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		c, found, err = s.binder.Bind(q).Get(ctx, id)
		return err
	})
	if err != nil {
		return cdomain.Complaint{}, err
	}
	if !found {
		return cdomain.Complaint{}, perrs.NotFoundf("complaint %s not found", id)
	}
	if !callerIsPrivileged && (c.Anonymous || c.SubmitterID != callerID) {
		return cdomain.Complaint{}, perrs.Forbiddenf("complaint %s is not owned by caller", id)
	}
	return c, nil
}

// Transition drives the state machine; illegal moves return StateInvalid
func (s *Service) Transition(ctx context.Context, id string, to cdomain.Status) (cdomain.Complaint, error) {
	var out cdomain.Complaint
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		c, found, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return perrs.NotFoundf("complaint %s not found", id)
		}
		if !cdomain.CanTransition(c.Status, to) {
			return perrs.StateInvalidf("cannot transition complaint %s from %s to %s", id, c.Status, to)
		}
		if err := r.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		c.Status = to
		out = c

		if s.audit != nil {
			_, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				Action:     "complaint.transition",
				EntityType: "complaint",
				EntityID:   id,
				Ts:         time.Now().UTC(),
				Anonymous:  c.Anonymous,
				Payload:    map[string]any{"to": string(to)},
			})
			return err
		}
		return nil
	})
	return out, err
}

// Close transitions a complaint to closed; closure_feedback must be
// non-empty (4.E closure invariant) and the closure hash is anchored
func (s *Service) Close(ctx context.Context, id string, in cdomain.CloseInput) (cdomain.Complaint, error) {
	if in.Feedback == "" {
		return cdomain.Complaint{}, perrs.InvalidArgf("closure_feedback must be non-empty")
	}

	var out cdomain.Complaint
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		c, found, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return perrs.NotFoundf("complaint %s not found", id)
		}
		if !cdomain.CanTransition(c.Status, cdomain.StatusClosed) {
			return perrs.StateInvalidf("cannot close complaint %s from %s", id, c.Status)
		}

		hash, err := canon.Sum256(map[string]any{
			"category":        string(c.Category),
			"resolution_note": in.ResolutionNote,
			"feedback":        in.Feedback,
		})
		if err != nil {
			return err
		}

		if err := r.Close(ctx, id, in.Feedback, hash); err != nil {
			return err
		}
		c.Status = cdomain.StatusClosed
		c.ClosureFeedback = in.Feedback
		c.ClosureHash = hash
		out = c

		now := time.Now().UTC()
		if s.audit != nil {
			if _, err := s.audit.AppendInTx(ctx, q, adomain.Append{
				Action:     "complaint.close",
				EntityType: "complaint",
				EntityID:   id,
				Ts:         now,
				Anonymous:  c.Anonymous,
				Payload:    map[string]any{"closure_hash": hash.Hex()},
			}); err != nil {
				return err
			}
		}
		if s.anchor != nil {
			if err := s.anchor.EnqueueUpdate(ctx, q, id, hash, now); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Tick escalates every unresolved complaint past its SLA deadline (4.E).
// Intended to be called by the central scheduler under an advisory lock so
// only one instance runs it at a time
func (s *Service) Tick(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	escalated := 0

	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		due, err := r.DueForEscalation(ctx, now, 200)
		if err != nil {
			return err
		}

		for _, c := range due {
			next, ok := c.EscalationLevel.Next()
			if !ok {
				if err := r.Escalate(ctx, c.ID, c.EscalationLevel, c.SLADeadline, true); err != nil {
					return err
				}
				continue
			}

			deadline := now.Add(s.sla.slaFor(c.Category, next))
			if err := r.Escalate(ctx, c.ID, next, deadline, false); err != nil {
				return err
			}
			escalated++

			if s.audit != nil {
				if _, err := s.audit.AppendInTx(ctx, q, adomain.Append{
					Action:     "complaint.escalate",
					EntityType: "complaint",
					EntityID:   c.ID,
					Ts:         now,
					Anonymous:  c.Anonymous,
					Payload:    map[string]any{"level": string(next)},
				}); err != nil {
					return err
				}
			}

			if s.anchor != nil {
				statusHash, err := canon.Sum256(map[string]any{
					"complaint_id": c.ID,
					"level":        string(next),
					"at":           now.Format(time.RFC3339Nano),
				})
				if err != nil {
					return err
				}
				if err := s.anchor.EnqueueUpdate(ctx, q, c.ID, statusHash, now); err != nil {
					return err
				}
			}

			if s.outbox != nil {
				payload, err := json.Marshal(map[string]any{
					"complaint_id": c.ID,
					"category":     string(c.Category),
					"level":        string(next),
					"deadline":     deadline.Format(time.RFC3339Nano),
				})
				if err != nil {
					return err
				}
				if _, err := s.outbox.EnqueueInTx(ctx, q, odomain.Enqueue{
					Kind:    odomain.KindSLAEscalationAlert,
					Target:  string(next),
					Payload: payload,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return escalated, nil
}

// AnonymizeSubmitterInTx scrubs a submitter's identity off their complaints
// as one step of a right-to-erasure cascade composed by the erasure
// orchestrator; q must belong to the orchestrator's own transaction.
// Complaints are anonymized, never deleted: SLA/audit/anchor history on a
// complaint outlives the submitter's identity (4.E)
func (s *Service) AnonymizeSubmitterInTx(ctx context.Context, q repokit.Queryer, submitterID string) error {
	return s.binder.Bind(q).AnonymizeSubmitter(ctx, submitterID)
}
