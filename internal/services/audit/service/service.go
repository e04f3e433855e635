// Package service implements the tamper-evident audit hash chain (4.A).
// Append runs inside its own transaction by default, but AppendInTx lets a
// caller compose the audit write with a domain write so both commit or
// roll back together (§9: "if the domain write commits but the audit
// append does not, the system is in an undefined state").
package service

import (
	"context"
	"time"

	"sahay/internal/core/canon"
	"sahay/internal/modkit/repokit"
	"sahay/internal/services/audit/domain"
	"sahay/internal/services/audit/repo"
)

// Service implements domain.Ports
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Repo]
}

// New constructs the audit service
func New(db repokit.TxRunner, b repokit.Binder[repo.Repo]) *Service {
	return &Service{DB: db, Binder: b}
}

// Append implements domain.AppendPort, opening its own transaction
func (s *Service) Append(ctx context.Context, in domain.Append) (domain.Entry, error) {
	var out domain.Entry
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.AppendInTx(ctx, q, in)
		return err
	})
	return out, err
}

// AppendInTx appends one entry using an in-flight transaction's Queryer so
// callers can compose the audit write atomically with a domain write
func (s *Service) AppendInTx(ctx context.Context, q repokit.Queryer, in domain.Append) (domain.Entry, error) {
	r := s.Binder.Bind(q)

	nextSeq, prevHash, err := r.LockTail(ctx)
	if err != nil {
		return domain.Entry{}, err
	}

	ip, device := in.IP, in.Device
	if in.Anonymous {
		ip, device = "", ""
	}

	ts := in.Ts
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	payloadDigest, err := canon.Sum256(in.Payload)
	if err != nil {
		return domain.Entry{}, err
	}

	entryHash, err := chainHash(nextSeq, in.ActorID, in.Action, in.EntityType, in.EntityID, ts, prevHash, payloadDigest.Hex())
	if err != nil {
		return domain.Entry{}, err
	}

	e := domain.Entry{
		Seq:        nextSeq,
		ActorID:    in.ActorID,
		Action:     in.Action,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		IP:         ip,
		Device:     device,
		Ts:         ts,
		PrevHash:   prevHash,
		EntryHash:  entryHash,
		Payload:    in.Payload,
	}

	if err := r.Insert(ctx, e); err != nil {
		return domain.Entry{}, err
	}
	return e, nil
}

// List implements domain.ReaderPort
func (s *Service) List(ctx context.Context, sinceSeq int64, limit int) ([]domain.Entry, error) {
	var out []domain.Entry
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).List(ctx, sinceSeq, limit)
		return err
	})
	return out, err
}

// Verify implements domain.ReaderPort, walking the chain from fromSeq (or 1
// for a full verification) and failing at the first break (4.A)
func (s *Service) Verify(ctx context.Context, fromSeq int64) (domain.VerifyResult, error) {
	if fromSeq < 1 {
		fromSeq = 1
	}

	var entries []domain.Entry
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		entries, err = s.Binder.Bind(q).Range(ctx, fromSeq)
		return err
	})
	if err != nil {
		return domain.VerifyResult{}, err
	}

	var prevHash [32]byte
	for i, e := range entries {
		if i == 0 && fromSeq == 1 {
			if e.PrevHash != ([32]byte{}) {
				return domain.VerifyResult{FirstBrokenSeq: e.Seq}, nil
			}
		} else if i > 0 {
			if e.PrevHash != prevHash {
				return domain.VerifyResult{FirstBrokenSeq: e.Seq}, nil
			}
		}

		payloadDigest, err := canon.Sum256(e.Payload)
		if err != nil {
			return domain.VerifyResult{}, err
		}
		recomputed, err := chainHash(e.Seq, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Ts, e.PrevHash, payloadDigest.Hex())
		if err != nil {
			return domain.VerifyResult{}, err
		}
		if recomputed != e.EntryHash {
			return domain.VerifyResult{FirstBrokenSeq: e.Seq}, nil
		}

		prevHash = e.EntryHash
	}

	checked := fromSeq - 1
	if len(entries) > 0 {
		checked = entries[len(entries)-1].Seq
	}
	return domain.VerifyResult{OK: true, CheckedThrough: checked}, nil
}

// chainHash computes entry_hash = H(seq, actor, action, entity, ts,
// prev_hash, payload_digest) per 4.A
func chainHash(
	seq int64,
	actorID, action, entityType, entityID string,
	ts time.Time,
	prevHash [32]byte,
	payloadDigestHex string,
) ([32]byte, error) {
	h, err := canon.Sum256(map[string]any{
		"seq":            seq,
		"actor":          actorID,
		"action":         action,
		"entity_type":    entityType,
		"entity_id":      entityID,
		"ts":             ts.UTC().Format(time.RFC3339Nano),
		"prev_hash":      canon.Hash32(prevHash).Hex(),
		"payload_digest": payloadDigestHex,
	})
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(h), nil
}
