// Package service implements the sync gateway (4.C): per-batch ingestion
// with idempotency by event_id and a per-item outcome. A failing item never
// fails the batch; it is reported back as rejected and the batch continues
package service

import (
	"context"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/sync/domain"
	"sahay/internal/services/sync/repo"
)

// Service implements domain.Ports
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
}

// New constructs the sync gateway service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Service {
	if db == nil {
		panic("sync.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("sync.Service requires a non-nil Repo binder")
	}
	return &Service{db: db, binder: binder}
}

// SubmitBatch processes items in submitted order, each in its own
// transaction so a database error on one item cannot roll back items
// already accepted ahead of it
func (s *Service) SubmitBatch(ctx context.Context, userID string, items []domain.Envelope) (domain.BatchResult, error) {
	out := domain.BatchResult{Results: make([]domain.ItemResult, 0, len(items))}
	for _, ev := range items {
		ev.UserID = userID
		out.Results = append(out.Results, s.submitOne(ctx, ev))
	}
	return out, nil
}

// EraseUserInTx deletes a user's profile and append-only logs as one step
// of a right-to-erasure cascade composed by the erasure orchestrator; q
// must belong to the orchestrator's own transaction
func (s *Service) EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error {
	return s.binder.Bind(q).DeleteForUser(ctx, userID)
}

func (s *Service) submitOne(ctx context.Context, ev domain.Envelope) domain.ItemResult {
	if !valid(ev) {
		return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedInvalid}
	}

	var result domain.ItemResult
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		if serverID, found, err := r.FindEventServerID(ctx, ev.UserID, ev.EventID); err != nil {
			return err
		} else if found {
			result = domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeDuplicate, ServerID: serverID}
			return nil
		}

		if ev.EntityType.AppendOnly() {
			result = s.applyAppendOnly(ctx, r, ev)
		} else {
			result = s.applyProfile(ctx, r, ev)
		}

		return r.RecordEvent(ctx, ev, result.ServerID, result.Outcome)
	})
	if err != nil {
		return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedTransient}
	}
	return result
}

// applyAppendOnly accepts CREATE, rejects UPDATE/DELETE (4.C conflict rules)
func (s *Service) applyAppendOnly(ctx context.Context, r repo.Repo, ev domain.Envelope) domain.ItemResult {
	if ev.Operation != domain.OpCreate {
		return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedAppendOnly}
	}
	id, err := r.InsertAppendOnly(ctx, ev.EntityType, ev.UserID, ev.Payload, ev.ClientTime)
	if err != nil {
		return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedTransient}
	}
	return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeAccepted, ServerID: id}
}

// applyProfile implements deterministic LWW by client_time, with a
// lexicographic event_id tie-break on equal timestamps (4.C)
func (s *Service) applyProfile(ctx context.Context, r repo.Repo, ev domain.Envelope) domain.ItemResult {
	curTime, curEventID, found, err := r.CurrentProfile(ctx, ev.UserID)
	if err != nil {
		return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedTransient}
	}

	if found {
		switch {
		case ev.ClientTime.Before(curTime):
			return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedStale}
		case ev.ClientTime.Equal(curTime) && ev.EventID <= curEventID:
			return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedStale}
		}
	}

	id, err := r.UpsertProfile(ctx, ev.UserID, ev.Payload, ev.ClientTime, ev.EventID)
	if err != nil {
		return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeRejectedTransient}
	}
	return domain.ItemResult{EventID: ev.EventID, Outcome: domain.OutcomeAccepted, ServerID: id}
}

func valid(ev domain.Envelope) bool {
	if ev.EventID == "" || ev.UserID == "" {
		return false
	}
	if !domain.ValidEntityType(ev.EntityType) {
		return false
	}
	if !domain.ValidOperation(ev.Operation) {
		return false
	}
	if len(ev.Payload) == 0 {
		return false
	}
	return true
}
