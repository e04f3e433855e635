// Package repo provides the Postgres repository for complaints
package repo

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/complaints/domain"
)

// Repo is the complaint persistence surface
type Repo interface {
	Insert(ctx context.Context, c domain.Complaint) (domain.Complaint, error)
	Get(ctx context.Context, id string) (domain.Complaint, bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	Close(ctx context.Context, id string, feedback string, closureHash [32]byte) error

	// Escalate sets escalation_level, sla_deadline and escalation_exhausted
	// for one complaint, and moves its status to escalated unless exhausted
	Escalate(ctx context.Context, id string, level domain.EscalationLevel, deadline time.Time, exhausted bool) error

	// DueForEscalation claims unresolved complaints past their deadline
	// using SELECT ... FOR UPDATE SKIP LOCKED, so concurrent scheduler
	// ticks never double-escalate the same row
	DueForEscalation(ctx context.Context, now time.Time, limit int) ([]domain.Complaint, error)

	// AnonymizeSubmitter scrubs the submitter link on every complaint filed
	// by submitterID, in place, the same way an anonymous submission is
	// already stored (4.E). Complaints are never deleted by a
	// right-to-erasure cascade: SLA/audit/anchor history on a complaint
	// outlives the submitter's identity
	AnonymizeSubmitter(ctx context.Context, submitterID string) error
}

type (
	// PG is a Postgres implementation of the complaints repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Insert files a new complaint row
func (r *queries) Insert(ctx context.Context, c domain.Complaint) (domain.Complaint, error) {
	const sql = `
		INSERT INTO complaints (
			submitter_id, anonymous, category, payload_encrypted,
			status, created_at, sla_deadline, escalation_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id string
	row := r.q.QueryRow(ctx, sql,
		nullIfEmpty(c.SubmitterID), c.Anonymous, string(c.Category), c.PayloadEncrypted,
		string(c.Status), c.CreatedAt, c.SLADeadline, string(c.EscalationLevel),
	)
	if err := row.Scan(&id); err != nil {
		return domain.Complaint{}, err
	}
	c.ID = id
	return c, nil
}

// Get fetches a complaint by id
func (r *queries) Get(ctx context.Context, id string) (domain.Complaint, bool, error) {
	const sql = `
		SELECT id, COALESCE(submitter_id, ''), anonymous, category, payload_encrypted,
		       status, created_at, sla_deadline, escalation_level,
		       COALESCE(escalation_exhausted, false), COALESCE(closure_feedback, '')
		FROM complaints
		WHERE id = $1
	`
	var c domain.Complaint
	var category, status, level string
	row := r.q.QueryRow(ctx, sql, id)
	if err := row.Scan(
		&c.ID, &c.SubmitterID, &c.Anonymous, &category, &c.PayloadEncrypted,
		&status, &c.CreatedAt, &c.SLADeadline, &level,
		&c.EscalationDone, &c.ClosureFeedback,
	); err != nil {
		return domain.Complaint{}, false, nil
	}
	c.Category = domain.Category(category)
	c.Status = domain.Status(status)
	c.EscalationLevel = domain.EscalationLevel(level)
	return c, true, nil
}

// UpdateStatus transitions a complaint's status
func (r *queries) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	const sql = `UPDATE complaints SET status = $2 WHERE id = $1`
	_, err := r.q.Exec(ctx, sql, id, string(status))
	return err
}

// Close marks a complaint closed with its closure artifacts
func (r *queries) Close(ctx context.Context, id string, feedback string, closureHash [32]byte) error {
	const sql = `
		UPDATE complaints
		SET status = 'closed', closure_feedback = $2, closure_hash = $3
		WHERE id = $1
	`
	_, err := r.q.Exec(ctx, sql, id, feedback, closureHash[:])
	return err
}

// Escalate bumps one complaint's escalation state
func (r *queries) Escalate(ctx context.Context, id string, level domain.EscalationLevel, deadline time.Time, exhausted bool) error {
	const sql = `
		UPDATE complaints
		SET escalation_level = $2, sla_deadline = $3, escalation_exhausted = $4,
		    status = CASE WHEN $4 THEN status ELSE 'escalated' END
		WHERE id = $1
	`
	_, err := r.q.Exec(ctx, sql, id, string(level), deadline, exhausted)
	return err
}

// DueForEscalation claims unresolved complaints past their SLA deadline
func (r *queries) DueForEscalation(ctx context.Context, now time.Time, limit int) ([]domain.Complaint, error) {
	const sql = `
		SELECT id, COALESCE(submitter_id, ''), anonymous, category, payload_encrypted,
		       status, created_at, sla_deadline, escalation_level,
		       COALESCE(escalation_exhausted, false), COALESCE(closure_feedback, '')
		FROM complaints
		WHERE status NOT IN ('resolved', 'closed')
		  AND sla_deadline < $1
		  AND COALESCE(escalation_exhausted, false) = false
		ORDER BY sla_deadline ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.q.Query(ctx, sql, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Complaint
	for rows.Next() {
		var c domain.Complaint
		var category, status, level string
		if err := rows.Scan(
			&c.ID, &c.SubmitterID, &c.Anonymous, &category, &c.PayloadEncrypted,
			&status, &c.CreatedAt, &c.SLADeadline, &level,
			&c.EscalationDone, &c.ClosureFeedback,
		); err != nil {
			return nil, err
		}
		c.Category = domain.Category(category)
		c.Status = domain.Status(status)
		c.EscalationLevel = domain.EscalationLevel(level)
		out = append(out, c)
	}
	return out, rows.Err()
}

// AnonymizeSubmitter scrubs submitter_id and sets anonymous = true on every
// complaint filed by submitterID
func (r *queries) AnonymizeSubmitter(ctx context.Context, submitterID string) error {
	const sql = `
		UPDATE complaints
		SET submitter_id = NULL, anonymous = true
		WHERE submitter_id = $1
	`
	_, err := r.q.Exec(ctx, sql, submitterID)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
