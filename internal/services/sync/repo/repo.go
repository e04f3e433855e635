// Package repo provides the Postgres repository for the sync gateway
package repo

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/sync/domain"
)

// Repo is the sync persistence surface used by the service layer. Every
// method is called inside the caller's transaction so a per-item write and
// its raw-event record commit or roll back together
type Repo interface {
	// FindEventServerID looks up a previously recorded event_id. found=false
	// means this event has never been seen for this user
	FindEventServerID(ctx context.Context, userID, eventID string) (serverID string, found bool, err error)

	// RecordEvent persists the raw envelope plus its resolved outcome; it is
	// the append-only audit trail of everything submitted, independent of
	// whether the domain write landed
	RecordEvent(ctx context.Context, ev domain.Envelope, serverID string, outcome domain.Outcome) error

	// InsertAppendOnly adds one row to the append-only log named by entity
	// (vitals, mood, water) and returns its server id
	InsertAppendOnly(ctx context.Context, entity domain.EntityType, userID string, payload []byte, clientTime time.Time) (serverID string, err error)

	// CurrentProfile returns the profile row's client_time and the event_id
	// that last wrote it, for LWW comparison. found=false means no profile
	// row exists yet for userID
	CurrentProfile(ctx context.Context, userID string) (clientTime time.Time, eventID string, found bool, err error)

	// UpsertProfile replaces the profile row's payload, recording clientTime
	// and eventID as the new LWW watermark
	UpsertProfile(ctx context.Context, userID string, payload []byte, clientTime time.Time, eventID string) (serverID string, err error)

	// DeleteForUser removes a user's profile row, append-only logs
	// (vitals_logs, mood_logs, water_logs), and raw sync_events. Part of
	// the right-to-erasure cascade; idempotent on a user with no rows
	DeleteForUser(ctx context.Context, userID string) error
}

type (
	// PG is a Postgres implementation of the sync repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// FindEventServerID checks sync_events for a prior submission of event_id
func (r *queries) FindEventServerID(ctx context.Context, userID, eventID string) (string, bool, error) {
	const sql = `
		SELECT COALESCE(server_id, '')
		FROM sync_events
		WHERE user_id = $1 AND event_id = $2
		LIMIT 1
	`
	var serverID string
	row := r.q.QueryRow(ctx, sql, userID, eventID)
	if err := row.Scan(&serverID); err != nil {
		return "", false, nil
	}
	return serverID, true, nil
}

// RecordEvent inserts the raw event row, tolerating a concurrent duplicate
// insert for the same (user_id, event_id) by doing nothing on conflict
func (r *queries) RecordEvent(ctx context.Context, ev domain.Envelope, serverID string, outcome domain.Outcome) error {
	const sql = `
		INSERT INTO sync_events (
			event_id, device_id, user_id, entity_type, operation,
			client_time, server_time, payload, outcome, server_id
		) VALUES ($1, $2, $3, $4, $5, $6, now(), $7, $8, NULLIF($9, ''))
		ON CONFLICT (user_id, event_id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, sql,
		ev.EventID, ev.DeviceID, ev.UserID, string(ev.EntityType), string(ev.Operation),
		ev.ClientTime, []byte(ev.Payload), string(outcome), serverID,
	)
	return err
}

// InsertAppendOnly adds one row to the append-only table for entity
func (r *queries) InsertAppendOnly(ctx context.Context, entity domain.EntityType, userID string, payload []byte, clientTime time.Time) (string, error) {
	table, err := appendOnlyTable(entity)
	if err != nil {
		return "", err
	}
	sql := `
		INSERT INTO ` + table + ` (user_id, client_time, payload)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id string
	row := r.q.QueryRow(ctx, sql, userID, clientTime, payload)
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// CurrentProfile reads the profile row's LWW watermark
func (r *queries) CurrentProfile(ctx context.Context, userID string) (time.Time, string, bool, error) {
	const sql = `
		SELECT client_time, last_event_id
		FROM profiles
		WHERE user_id = $1
	`
	var ct time.Time
	var lastEventID string
	row := r.q.QueryRow(ctx, sql, userID)
	if err := row.Scan(&ct, &lastEventID); err != nil {
		return time.Time{}, "", false, nil
	}
	return ct, lastEventID, true, nil
}

// UpsertProfile writes the profile row, overwriting any prior state
func (r *queries) UpsertProfile(ctx context.Context, userID string, payload []byte, clientTime time.Time, eventID string) (string, error) {
	const sql = `
		INSERT INTO profiles (user_id, payload, client_time, last_event_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			client_time = EXCLUDED.client_time,
			last_event_id = EXCLUDED.last_event_id
		RETURNING user_id
	`
	var id string
	row := r.q.QueryRow(ctx, sql, userID, payload, clientTime, eventID)
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteForUser removes a user's profile, every append-only log row, and
// its raw sync_events trail
func (r *queries) DeleteForUser(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, table := range []string{"vitals_logs", "mood_logs", "water_logs"} {
		if _, err := r.q.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
			return err
		}
	}
	_, err := r.q.Exec(ctx, `DELETE FROM sync_events WHERE user_id = $1`, userID)
	return err
}

func appendOnlyTable(entity domain.EntityType) (string, error) {
	switch entity {
	case domain.EntityVitals:
		return "vitals_logs", nil
	case domain.EntityMood:
		return "mood_logs", nil
	case domain.EntityWater:
		return "water_logs", nil
	default:
		return "", errUnknownAppendOnlyEntity
	}
}
