// Package repo provides the Postgres repository for teleconsultation
// requests and prescriptions
package repo

import (
	"context"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/tele/domain"
)

// Repo is the teleconsultation persistence surface
type Repo interface {
	InsertRequest(ctx context.Context, t domain.TeleRequest) (domain.TeleRequest, error)
	GetRequest(ctx context.Context, id string) (domain.TeleRequest, bool, error)
	UpdateRequestStatus(ctx context.Context, id, clinicianID string, status domain.Status) error
	InsertPrescription(ctx context.Context, p domain.Prescription) (domain.Prescription, error)

	// DeleteForCitizen removes a citizen's prescriptions and tele requests.
	// Part of the right-to-erasure cascade; idempotent on a citizen with no
	// requests
	DeleteForCitizen(ctx context.Context, citizenID string) error
}

type (
	// PG is a Postgres implementation of the tele repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// InsertRequest files a new teleconsultation request row
func (r *queries) InsertRequest(ctx context.Context, t domain.TeleRequest) (domain.TeleRequest, error) {
	const sql = `
		INSERT INTO tele_requests (citizen_id, clinician_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id string
	row := r.q.QueryRow(ctx, sql, t.CitizenID, nullIfEmpty(t.ClinicianID), string(t.Status), t.CreatedAt)
	if err := row.Scan(&id); err != nil {
		return domain.TeleRequest{}, err
	}
	t.ID = id
	return t, nil
}

// GetRequest fetches a teleconsultation request by id
func (r *queries) GetRequest(ctx context.Context, id string) (domain.TeleRequest, bool, error) {
	const sql = `
		SELECT id, citizen_id, COALESCE(clinician_id, ''), status, created_at
		FROM tele_requests
		WHERE id = $1
	`
	var t domain.TeleRequest
	var status string
	row := r.q.QueryRow(ctx, sql, id)
	if err := row.Scan(&t.ID, &t.CitizenID, &t.ClinicianID, &status, &t.CreatedAt); err != nil {
		return domain.TeleRequest{}, false, nil
	}
	t.Status = domain.Status(status)
	return t, true, nil
}

// UpdateRequestStatus transitions a request's status, optionally claiming
// it for a clinician (clinicianID is left untouched when empty)
func (r *queries) UpdateRequestStatus(ctx context.Context, id, clinicianID string, status domain.Status) error {
	const sql = `
		UPDATE tele_requests
		SET status = $2, clinician_id = COALESCE($3, clinician_id)
		WHERE id = $1
	`
	_, err := r.q.Exec(ctx, sql, id, string(status), nullIfEmpty(clinicianID))
	return err
}

// InsertPrescription files a new prescription row
func (r *queries) InsertPrescription(ctx context.Context, p domain.Prescription) (domain.Prescription, error) {
	const sql = `
		INSERT INTO prescriptions (tele_request_id, clinician_id, items, summary_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id string
	row := r.q.QueryRow(ctx, sql, p.TeleRequestID, p.ClinicianID, p.Items, p.SummaryText, p.CreatedAt)
	if err := row.Scan(&id); err != nil {
		return domain.Prescription{}, err
	}
	p.ID = id
	return p, nil
}

// DeleteForCitizen removes every prescription and tele request belonging to
// citizenID, prescriptions first since they reference tele_requests
func (r *queries) DeleteForCitizen(ctx context.Context, citizenID string) error {
	const delPrescriptions = `
		DELETE FROM prescriptions
		WHERE tele_request_id IN (SELECT id FROM tele_requests WHERE citizen_id = $1)
	`
	if _, err := r.q.Exec(ctx, delPrescriptions, citizenID); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `DELETE FROM tele_requests WHERE citizen_id = $1`, citizenID)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
