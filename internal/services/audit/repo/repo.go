// Package repo provides the Postgres repository for the audit hash chain
package repo

import (
	"context"
	"encoding/json"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/services/audit/domain"
)

// Repo is the audit persistence surface used by the service layer
type Repo interface {
	// LockTail takes a transaction-scoped advisory lock that serializes seq
	// assignment, then returns the next seq to use plus the
	// previous entry's hash (the zero sentinel if this is seq=1). Must be
	// called inside the same transaction as Insert
	LockTail(ctx context.Context) (nextSeq int64, prevHash [32]byte, err error)

	// Insert persists one fully computed entry
	Insert(ctx context.Context, e domain.Entry) error

	// List returns entries with seq > sinceSeq, ascending, capped at limit
	List(ctx context.Context, sinceSeq int64, limit int) ([]domain.Entry, error)

	// Range returns entries with seq >= fromSeq, ascending, unbounded (verify
	// walks the whole tail from a checkpoint)
	Range(ctx context.Context, fromSeq int64) ([]domain.Entry, error)
}

type (
	// PG is a Postgres implementation of the audit repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// LockTail acquires pg_advisory_xact_lock on a fixed key so concurrent
// transactions serialize on seq assignment, then reads the current tail.
// The advisory lock is released automatically at transaction end.
func (r *queries) LockTail(ctx context.Context) (int64, [32]byte, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('sahay_audit_chain'))`); err != nil {
		return 0, [32]byte{}, err
	}

	row := r.q.QueryRow(ctx, `SELECT seq, entry_hash FROM audit_entries ORDER BY seq DESC LIMIT 1`)
	var seq int64
	var hashHex string
	if err := row.Scan(&seq, &hashHex); err != nil {
		// no rows yet: first entry, zero-hash sentinel
		return 1, [32]byte{}, nil
	}

	var prev [32]byte
	if n, err := hexDecode(hashHex, prev[:]); err != nil || n != 32 {
		return 0, [32]byte{}, err
	}
	return seq + 1, prev, nil
}

// Insert persists one audit entry row
func (r *queries) Insert(ctx context.Context, e domain.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	const sql = `
		INSERT INTO audit_entries (
			seq, actor_id, action, entity_type, entity_id, ip, device, ts, prev_hash, entry_hash, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.q.Exec(ctx, sql,
		e.Seq, nullIfEmpty(e.ActorID), e.Action, e.EntityType, e.EntityID,
		nullIfEmpty(e.IP), nullIfEmpty(e.Device), e.Ts,
		hexEncode(e.PrevHash[:]), hexEncode(e.EntryHash[:]), payload,
	)
	return err
}

// List returns entries with seq > sinceSeq, ascending, capped at limit
func (r *queries) List(ctx context.Context, sinceSeq int64, limit int) ([]domain.Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	const sql = `
		SELECT seq, COALESCE(actor_id,''), action, entity_type, entity_id,
		       COALESCE(ip,''), COALESCE(device,''), ts, prev_hash, entry_hash, payload
		FROM audit_entries
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2
	`
	return r.scanRows(ctx, sql, sinceSeq, limit)
}

// Range returns entries with seq >= fromSeq, ascending, unbounded
func (r *queries) Range(ctx context.Context, fromSeq int64) ([]domain.Entry, error) {
	const sql = `
		SELECT seq, COALESCE(actor_id,''), action, entity_type, entity_id,
		       COALESCE(ip,''), COALESCE(device,''), ts, prev_hash, entry_hash, payload
		FROM audit_entries
		WHERE seq >= $1
		ORDER BY seq ASC
	`
	return r.scanRows(ctx, sql, fromSeq)
}

func (r *queries) scanRows(ctx context.Context, sql string, args ...any) ([]domain.Entry, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var ts time.Time
		var prevHex, hashHex string
		var payload []byte
		if err := rows.Scan(
			&e.Seq, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&e.IP, &e.Device, &ts, &prevHex, &hashHex, &payload,
		); err != nil {
			return nil, err
		}
		e.Ts = ts
		if _, err := hexDecode(prevHex, e.PrevHash[:]); err != nil {
			return nil, err
		}
		if _, err := hexDecode(hashHex, e.EntryHash[:]); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
