// Package repo provides the persistence layers for analytics: a Postgres
// audit-only raw event log and a ClickHouse de-identified aggregate sink
package repo

import (
	"context"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/analytics/domain"
)

// RawEvents is the audit-only raw event log, readable only by audit/erasure
// flows, never by any aggregate query
type RawEvents interface {
	Insert(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error)
}

type (
	// PG is a Postgres implementation of RawEvents
	PG        struct{}
	rawEvents struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres raw event log
func NewPG() repokit.Binder[RawEvents] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) RawEvents { return &rawEvents{q: q} }

func (r *rawEvents) Insert(ctx context.Context, e domain.AnalyticsEvent) (domain.AnalyticsEvent, error) {
	const sql = `
		INSERT INTO analytics_events (user_id, event_type, payload_json, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id string
	row := r.q.QueryRow(ctx, sql, e.UserID, string(e.EventType), []byte(e.PayloadJSON), e.CreatedAt)
	if err := row.Scan(&id); err != nil {
		return domain.AnalyticsEvent{}, err
	}
	e.ID = id
	return e, nil
}
