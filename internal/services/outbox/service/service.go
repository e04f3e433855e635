// Package service implements the at-least-once outbound message queue
// (§3, §5 Supplemented Features). Claiming a batch and extending its lease
// is a multi-row SKIP LOCKED claim so several workers can drain the queue
// concurrently without double-delivering a message
package service

import (
	"context"
	"time"

	perrs "sahay/internal/platform/errors"

	"sahay/internal/modkit/repokit"
	"sahay/internal/platform/logger"
	"sahay/internal/services/outbox/domain"
	"sahay/internal/services/outbox/repo"
)

const (
	defaultBatch = 50
	ownerPrefix  = "outbox"
)

// Service implements domain.Ports
type Service struct {
	db      repokit.TxRunner
	binder  repokit.Binder[repo.Repo]
	log     logger.Logger
	owner   string
	senders map[domain.Kind]domain.Sender
}

// New constructs the outbox service. senders maps each domain.Kind this
// deployment can enqueue to the Sender that delivers it; a Kind with no
// registered Sender fails delivery and is retried like any other error
func New(
	db repokit.TxRunner,
	binder repokit.Binder[repo.Repo],
	owner string,
	senders map[domain.Kind]domain.Sender,
) *Service {
	if db == nil {
		panic("outbox.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("outbox.Service requires a non-nil Binder")
	}
	if owner == "" {
		owner = ownerPrefix
	}
	return &Service{
		db:      db,
		binder:  binder,
		log:     *logger.Named("outbox"),
		owner:   owner,
		senders: senders,
	}
}

// Enqueue implements domain.QueuePort, opening its own transaction
func (s *Service) Enqueue(ctx context.Context, in domain.Enqueue) (domain.Message, error) {
	var out domain.Message
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.EnqueueInTx(ctx, q, in)
		return err
	})
	return out, err
}

// EnqueueInTx inserts one message using an in-flight transaction's Queryer
// so callers (complaints' SLA escalation) can compose
// the enqueue atomically with the domain write that triggered it
func (s *Service) EnqueueInTx(ctx context.Context, q repokit.Queryer, in domain.Enqueue) (domain.Message, error) {
	r := s.binder.Bind(q)
	return r.Insert(ctx, q, domain.Message{Kind: in.Kind, Target: in.Target, Payload: in.Payload})
}

// Tick implements domain.DeliverPort: claim a batch, attempt delivery per
// message, and mark each sent or retried independently so one message's
// failure doesn't roll back another's success
func (s *Service) Tick(ctx context.Context) (int, error) {
	var claimed []domain.Message
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		batch, err := r.ClaimBatch(ctx, q, s.owner, domain.LeaseTTL, defaultBatch)
		if err != nil {
			return err
		}
		claimed = batch
		return nil
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range claimed {
		if s.deliver(ctx, m) {
			sent++
		}
	}
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, m domain.Message) bool {
	sender := s.senders[m.Kind]
	var sendErr error
	if sender == nil {
		sendErr = errNoSender(m.Kind)
	} else {
		sendErr = sender.Send(ctx, m)
	}

	txErr := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		if sendErr != nil {
			return r.MarkRetry(ctx, q, m.ID)
		}
		return r.MarkSent(ctx, q, m.ID, time.Now().UTC())
	})
	if txErr != nil {
		s.log.Error().Err(txErr).Str("message_id", m.ID).Msg("outbox: failed to record delivery outcome")
		return false
	}
	if sendErr != nil {
		s.log.Warn().Err(sendErr).Str("message_id", m.ID).Str("kind", string(m.Kind)).Msg("outbox: delivery failed, requeued")
		return false
	}
	return true
}

func errNoSender(k domain.Kind) error {
	return perrs.Internalf("outbox: no sender registered for kind %q", k)
}
