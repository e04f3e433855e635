// Package repo provides the Postgres repository for anchor jobs and
// per-complaint nonce bookkeeping
package repo

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/anchor/domain"
)

// Repo is the anchor persistence surface
type Repo interface {
	InsertJob(ctx context.Context, q repokit.Queryer, j domain.Job) (domain.Job, error)
	LatestForComplaint(ctx context.Context, q repokit.Queryer, complaintID string) (domain.Job, bool, error)

	// ClaimDue claims queued/retryable jobs past their NextAttemptAt using
	// SELECT ... FOR UPDATE SKIP LOCKED, so concurrent scheduler ticks
	// never submit the same job twice
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Job, error)
	MarkInFlight(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, nextAttempt time.Time) error
	MarkChainUnavailable(ctx context.Context, id string, nextAttempt time.Time) error

	// NextNonce atomically reserves the next nonce for a complaint,
	// inserting a zero row on first use
	NextNonce(ctx context.Context, q repokit.Queryer, complaintID string) (uint64, error)
	// SetNonce overwrites the bookkept nonce after an on-chain recovery read
	SetNonce(ctx context.Context, q repokit.Queryer, complaintID string, nonce uint64) error
}

type (
	// PG is a Postgres implementation of the anchor repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) InsertJob(ctx context.Context, q repokit.Queryer, j domain.Job) (domain.Job, error) {
	const sql = `
		INSERT INTO anchor_jobs (
			complaint_id, kind, complaint_hash, sla_hash, status_hash,
			created_at, updated_at, nonce, status, attempts, next_attempt_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
		RETURNING id
	`
	var id string
	row := q.QueryRow(ctx, sql,
		j.ComplaintID, string(j.Kind), j.ComplaintHash[:], j.SLAHash[:], j.StatusHash[:],
		j.CreatedAt, j.UpdatedAt, j.Nonce, string(domain.JobStatusQueued), j.CreatedAt,
	)
	if err := row.Scan(&id); err != nil {
		return domain.Job{}, err
	}
	j.ID = id
	j.Status = domain.JobStatusQueued
	return j, nil
}

func (r *queries) LatestForComplaint(ctx context.Context, q repokit.Queryer, complaintID string) (domain.Job, bool, error) {
	const sql = `
		SELECT id, complaint_id, kind, complaint_hash, sla_hash, status_hash,
		       created_at, updated_at, nonce, status, attempts, next_attempt_at
		FROM anchor_jobs
		WHERE complaint_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := q.QueryRow(ctx, sql, complaintID)
	j, err := scanJob(row)
	if err != nil {
		return domain.Job{}, false, nil
	}
	return j, true, nil
}

func (r *queries) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Job, error) {
	const sql = `
		SELECT id, complaint_id, kind, complaint_hash, sla_hash, status_hash,
		       created_at, updated_at, nonce, status, attempts, next_attempt_at
		FROM anchor_jobs
		WHERE status IN ('queued', 'chain_unavailable') AND next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.q.Query(ctx, sql, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *queries) MarkInFlight(ctx context.Context, id string) error {
	const sql = `UPDATE anchor_jobs SET status = 'in_flight', attempts = attempts + 1 WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) MarkDone(ctx context.Context, id string) error {
	const sql = `UPDATE anchor_jobs SET status = 'done' WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id)
	return err
}

func (r *queries) MarkRetry(ctx context.Context, id string, nextAttempt time.Time) error {
	const sql = `UPDATE anchor_jobs SET status = 'queued', next_attempt_at = $2 WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id, nextAttempt)
	return err
}

func (r *queries) MarkChainUnavailable(ctx context.Context, id string, nextAttempt time.Time) error {
	const sql = `UPDATE anchor_jobs SET status = 'chain_unavailable', next_attempt_at = $2 WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id, nextAttempt)
	return err
}

func (r *queries) NextNonce(ctx context.Context, q repokit.Queryer, complaintID string) (uint64, error) {
	const sql = `
		INSERT INTO chain_anchors (complaint_id, nonce)
		VALUES ($1, 0)
		ON CONFLICT (complaint_id) DO UPDATE SET nonce = chain_anchors.nonce + 1
		RETURNING nonce
	`
	var n uint64
	row := q.QueryRow(ctx, sql, complaintID)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *queries) SetNonce(ctx context.Context, q repokit.Queryer, complaintID string, nonce uint64) error {
	const sql = `
		INSERT INTO chain_anchors (complaint_id, nonce)
		VALUES ($1, $2)
		ON CONFLICT (complaint_id) DO UPDATE SET nonce = $2
	`
	_, err := q.Exec(ctx, sql, complaintID, nonce)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (domain.Job, error) {
	var j domain.Job
	var kind, status string
	var complaintHash, slaHash, statusHash []byte
	if err := row.Scan(
		&j.ID, &j.ComplaintID, &kind, &complaintHash, &slaHash, &statusHash,
		&j.CreatedAt, &j.UpdatedAt, &j.Nonce, &status, &j.Attempts, &j.NextAttemptAt,
	); err != nil {
		return domain.Job{}, err
	}
	j.Kind = domain.JobKind(kind)
	j.Status = domain.JobStatus(status)
	copy(j.ComplaintHash[:], complaintHash)
	copy(j.SLAHash[:], slaHash)
	copy(j.StatusHash[:], statusHash)
	return j, nil
}
