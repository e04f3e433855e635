// Package repo provides the outbox storage repository, a Postgres-backed
// message table with lease columns, so one claim can lease an arbitrary
// batch of pending message rows
package repo

import (
	"context"
	"fmt"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/outbox/domain"
)

// Repo is the storage surface the outbox service drives
type Repo interface {
	Insert(ctx context.Context, q repokit.Queryer, m domain.Message) (domain.Message, error)

	// ClaimBatch atomically claims up to limit due messages (pending, or
	// failed with an expired lease) for owner, extending their lease by ttl
	ClaimBatch(ctx context.Context, q repokit.Queryer, owner string, ttl time.Duration, limit int) ([]domain.Message, error)

	MarkSent(ctx context.Context, q repokit.Queryer, id string, sentAt time.Time) error

	// MarkRetry clears the lease and bumps attempts; once attempts reaches
	// domain.MaxAttempts the row transitions to StatusDiscarded instead
	MarkRetry(ctx context.Context, q repokit.Queryer, id string) error
}

// PG binds Repo against a Postgres-backed Queryer
type PG struct{}

// NewPG returns a Binder producing a PG-backed Repo
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder[Repo]
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

type queries struct{ q repokit.Queryer }

func (r *queries) Insert(ctx context.Context, q repokit.Queryer, m domain.Message) (domain.Message, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO outbox_messages (kind, target, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, now())
		RETURNING id, created_at
	`, string(m.Kind), m.Target, m.Payload, string(domain.StatusPending))
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return domain.Message{}, err
	}
	m.Status = domain.StatusPending
	return m, nil
}

func (r *queries) ClaimBatch(
	ctx context.Context, q repokit.Queryer, owner string, ttl time.Duration, limit int,
) ([]domain.Message, error) {
	rows, err := q.Query(ctx, `
		UPDATE outbox_messages
		   SET status = $1, lease_owner = $2, lease_expiry = now() + $3::interval
		 WHERE id IN (
			SELECT id FROM outbox_messages
			 WHERE status IN ($4, $1)
			   AND (lease_expiry IS NULL OR lease_expiry <= now())
			   AND attempts < $5
			 ORDER BY created_at
			 LIMIT $6
			 FOR UPDATE SKIP LOCKED
		 )
		RETURNING id, kind, target, payload, status, attempts, created_at
	`, string(domain.StatusFailed), owner, intervalLiteral(ttl), string(domain.StatusPending), domain.MaxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var kind, status string
		if err := rows.Scan(&m.ID, &kind, &m.Target, &m.Payload, &status, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Kind = domain.Kind(kind)
		m.Status = domain.Status(status)
		m.LeaseOwner = owner
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *queries) MarkSent(ctx context.Context, q repokit.Queryer, id string, sentAt time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE outbox_messages SET status = $2, sent_at = $3, lease_owner = NULL, lease_expiry = NULL
		 WHERE id = $1
	`, id, string(domain.StatusSent), sentAt)
	return err
}

func (r *queries) MarkRetry(ctx context.Context, q repokit.Queryer, id string) error {
	_, err := q.Exec(ctx, `
		UPDATE outbox_messages
		   SET attempts = attempts + 1,
		       lease_owner = NULL,
		       lease_expiry = NULL,
		       status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE $4 END
		 WHERE id = $1
	`, id, domain.MaxAttempts, string(domain.StatusDiscarded), string(domain.StatusFailed))
	return err
}

func intervalLiteral(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return fmt.Sprintf("%d seconds", secs)
}
