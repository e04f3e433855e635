package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/platform/store"
	"sahay/internal/services/sync/domain"
	"sahay/internal/services/sync/repo"
)

type fakeTx struct{}

func (fakeTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error { return fn(nil) }
func (fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return nil, nil
}
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, nil
}
func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }

type profileRow struct {
	clientTime time.Time
	eventID    string
}

type fakeRepo struct {
	seen       map[string]string // userID/eventID -> server_id
	appendOnly []string
	profiles   map[string]profileRow
	nextID     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{seen: map[string]string{}, profiles: map[string]profileRow{}}
}

func (r *fakeRepo) key(userID, eventID string) string { return userID + "/" + eventID }

func (r *fakeRepo) FindEventServerID(ctx context.Context, userID, eventID string) (string, bool, error) {
	id, ok := r.seen[r.key(userID, eventID)]
	return id, ok, nil
}

func (r *fakeRepo) RecordEvent(ctx context.Context, ev domain.Envelope, serverID string, outcome domain.Outcome) error {
	r.seen[r.key(ev.UserID, ev.EventID)] = serverID
	return nil
}

func (r *fakeRepo) InsertAppendOnly(ctx context.Context, entity domain.EntityType, userID string, payload []byte, clientTime time.Time) (string, error) {
	r.nextID++
	id := string(rune('a' + r.nextID))
	r.appendOnly = append(r.appendOnly, id)
	return id, nil
}

func (r *fakeRepo) CurrentProfile(ctx context.Context, userID string) (time.Time, string, bool, error) {
	p, ok := r.profiles[userID]
	return p.clientTime, p.eventID, ok, nil
}

func (r *fakeRepo) UpsertProfile(ctx context.Context, userID string, payload []byte, clientTime time.Time, eventID string) (string, error) {
	r.profiles[userID] = profileRow{clientTime: clientTime, eventID: eventID}
	return userID, nil
}

func (r *fakeRepo) DeleteForUser(ctx context.Context, userID string) error {
	delete(r.profiles, userID)
	prefix := userID + "/"
	for key := range r.seen {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(r.seen, key)
		}
	}
	return nil
}

var _ repo.Repo = (*fakeRepo)(nil)

type fakeBinder struct{ r *fakeRepo }

func (b fakeBinder) Bind(q repokit.Queryer) repo.Repo { return b.r }

func env(eventID string, entity domain.EntityType, op domain.Operation, ct time.Time) domain.Envelope {
	return domain.Envelope{
		EventID: eventID, DeviceID: "dev1", EntityType: entity, Operation: op,
		ClientTime: ct, Payload: json.RawMessage(`{"x":1}`),
	}
}

func TestSubmitBatch_AcceptsAppendOnlyCreate(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()})

	res, err := svc.SubmitBatch(context.Background(), "u1", []domain.Envelope{
		env("e1", domain.EntityVitals, domain.OpCreate, time.Now()),
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].Outcome != domain.OutcomeAccepted {
		t.Fatalf("results = %+v, want one accepted item", res.Results)
	}
}

func TestSubmitBatch_RejectsAppendOnlyUpdate(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()})

	res, err := svc.SubmitBatch(context.Background(), "u1", []domain.Envelope{
		env("e1", domain.EntityVitals, domain.OpUpdate, time.Now()),
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if res.Results[0].Outcome != domain.OutcomeRejectedAppendOnly {
		t.Fatalf("outcome = %s, want rejected:append_only", res.Results[0].Outcome)
	}
}

func TestSubmitBatch_IsIdempotentByEventID(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()})

	items := []domain.Envelope{env("e1", domain.EntityWater, domain.OpCreate, time.Now())}
	first, err := svc.SubmitBatch(context.Background(), "u1", items)
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	second, err := svc.SubmitBatch(context.Background(), "u1", items)
	if err != nil {
		t.Fatalf("SubmitBatch (replay): %v", err)
	}
	if second.Results[0].Outcome != domain.OutcomeDuplicate {
		t.Fatalf("replay outcome = %s, want duplicate", second.Results[0].Outcome)
	}
	if second.Results[0].ServerID != first.Results[0].ServerID {
		t.Fatalf("replay must report the original server_id")
	}
}

func TestSubmitBatch_ProfileLWWRejectsStaleAndTieBreaksByEventID(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()})

	base := time.Now().UTC()
	if _, err := svc.SubmitBatch(context.Background(), "u1", []domain.Envelope{
		env("e2", domain.EntityProfile, domain.OpCreate, base),
	}); err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}

	// an older client_time must be rejected as stale
	res, err := svc.SubmitBatch(context.Background(), "u1", []domain.Envelope{
		env("e1", domain.EntityProfile, domain.OpCreate, base.Add(-time.Minute)),
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if res.Results[0].Outcome != domain.OutcomeRejectedStale {
		t.Fatalf("outcome = %s, want rejected:stale", res.Results[0].Outcome)
	}

	// equal client_time, lexicographically smaller event_id loses the tie
	res, err = svc.SubmitBatch(context.Background(), "u1", []domain.Envelope{
		env("e0", domain.EntityProfile, domain.OpCreate, base),
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if res.Results[0].Outcome != domain.OutcomeRejectedStale {
		t.Fatalf("tie-break outcome = %s, want rejected:stale", res.Results[0].Outcome)
	}

	// equal client_time, lexicographically larger event_id wins the tie
	res, err = svc.SubmitBatch(context.Background(), "u1", []domain.Envelope{
		env("e3", domain.EntityProfile, domain.OpCreate, base),
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if res.Results[0].Outcome != domain.OutcomeAccepted {
		t.Fatalf("tie-break outcome = %s, want accepted", res.Results[0].Outcome)
	}
}

func TestSubmitBatch_InvalidItemsDoNotFailTheBatch(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeBinder{newFakeRepo()})

	res, err := svc.SubmitBatch(context.Background(), "u1", []domain.Envelope{
		env("", domain.EntityVitals, domain.OpCreate, time.Now()),
		env("e1", domain.EntityVitals, domain.OpCreate, time.Now()),
	})
	if err != nil {
		t.Fatalf("SubmitBatch must never fail as a whole: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(res.Results))
	}
	if res.Results[0].Outcome != domain.OutcomeRejectedInvalid {
		t.Fatalf("first outcome = %s, want rejected:invalid", res.Results[0].Outcome)
	}
	if res.Results[1].Outcome != domain.OutcomeAccepted {
		t.Fatalf("second outcome = %s, want accepted", res.Results[1].Outcome)
	}
}
