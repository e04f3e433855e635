package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/platform/store"
	adomain "sahay/internal/services/analytics/domain"
	"sahay/internal/services/analytics/repo"
	cdomain "sahay/internal/services/consent/domain"
)

// fakeTx runs fn directly against a nil Queryer; fakeRawEvents never
// dereferences it
type fakeTx struct{}

func (fakeTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error { return fn(nil) }
func (fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return nil, nil
}
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, nil
}
func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }

type fakeRawEvents struct {
	rows []adomain.AnalyticsEvent
}

func (r *fakeRawEvents) Insert(ctx context.Context, e adomain.AnalyticsEvent) (adomain.AnalyticsEvent, error) {
	e.ID = "evt"
	r.rows = append(r.rows, e)
	return e, nil
}

type fakeRawBinder struct{ r *fakeRawEvents }

func (b fakeRawBinder) Bind(q repokit.Queryer) repo.RawEvents { return b.r }

var _ repo.RawEvents = (*fakeRawEvents)(nil)

type fakeAgg struct {
	inserted  []adomain.AggregateRow
	insertErr error
	queryRows []adomain.AggregateRow
	queryErr  error
	lastK     int
}

func (a *fakeAgg) InsertDeltas(ctx context.Context, rows []adomain.AggregateRow) error {
	if a.insertErr != nil {
		return a.insertErr
	}
	a.inserted = append(a.inserted, rows...)
	return nil
}

func (a *fakeAgg) Query(ctx context.Context, f adomain.QueryFilter, k int) ([]adomain.AggregateRow, error) {
	a.lastK = k
	return a.queryRows, a.queryErr
}

type fakeConsent struct {
	err       error
	lastUser  string
	callCount int
}

func (c *fakeConsent) Require(ctx context.Context, userID string, category cdomain.Category, scope cdomain.Scope) error {
	c.callCount++
	c.lastUser = userID
	return c.err
}

func validEmit(userID string) adomain.EmitInput {
	return adomain.EmitInput{
		UserID:    userID,
		EventType: adomain.EventComplaintSubmitted,
		Category:  "water",
		EventTime: time.Date(2026, 7, 31, 10, 7, 0, 0, time.UTC),
		Pincode:   "560001",
		Gender:    "female",
		Payload:   map[string]any{"severity": "high"},
	}
}

func TestEmit_RejectsUnknownEventType(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, &fakeAgg{}, nil)

	in := validEmit("u1")
	in.EventType = "not_a_real_event"
	if err := svc.Emit(context.Background(), in); err == nil {
		t.Fatalf("expected error for unknown event_type")
	}
}

func TestEmit_RejectsCategoryNotAllowedForEventType(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, &fakeAgg{}, nil)

	in := validEmit("u1")
	in.Category = "routine" // valid for vaccination_recorded, not complaint_submitted
	if err := svc.Emit(context.Background(), in); err == nil {
		t.Fatalf("expected error for category not allowed under event_type")
	}
}

func TestEmit_RejectsDisallowedPayloadKey(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, &fakeAgg{}, nil)

	in := validEmit("u1")
	in.Payload = map[string]any{"phone": "9999999999"}
	if err := svc.Emit(context.Background(), in); err == nil {
		t.Fatalf("expected error for disallowed payload key")
	}
}

func TestEmit_EnforcesConsentWhenConfigured(t *testing.T) {
	t.Parallel()
	consent := &fakeConsent{err: errors.New("consent missing")}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, &fakeAgg{}, consent)

	if err := svc.Emit(context.Background(), validEmit("u1")); err == nil {
		t.Fatalf("expected consent error to propagate")
	}
	if consent.callCount != 1 {
		t.Fatalf("consent.Require calls = %d, want 1", consent.callCount)
	}
	if consent.lastUser != "u1" {
		t.Fatalf("consent checked for user %q, want u1", consent.lastUser)
	}
}

func TestEmit_SkipsConsentCheckWhenNotConfigured(t *testing.T) {
	t.Parallel()
	raw := &fakeRawEvents{}
	svc := New(fakeTx{}, fakeRawBinder{raw}, &fakeAgg{}, nil)

	if err := svc.Emit(context.Background(), validEmit("u1")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(raw.rows) != 1 {
		t.Fatalf("raw rows = %d, want 1", len(raw.rows))
	}
}

func TestEmit_BuffersBelowThresholdWithoutFlushing(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	if err := svc.Emit(context.Background(), validEmit("u1")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(agg.inserted) != 0 {
		t.Fatalf("expected no flush below threshold, got %d inserted rows", len(agg.inserted))
	}
	if len(svc.buffer) != 1 {
		t.Fatalf("buffer size = %d, want 1", len(svc.buffer))
	}
}

func TestEmit_SameKeyAccumulatesSingleBufferEntry(t *testing.T) {
	t.Parallel()
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, &fakeAgg{}, nil)

	in := validEmit("u1")
	for i := 0; i < 3; i++ {
		if err := svc.Emit(context.Background(), in); err != nil {
			t.Fatalf("Emit %d: %v", i, err)
		}
	}
	if len(svc.buffer) != 1 {
		t.Fatalf("buffer size = %d, want 1 (same key accumulates)", len(svc.buffer))
	}
	for _, row := range svc.buffer {
		if row.Count != 3 {
			t.Fatalf("count = %d, want 3", row.Count)
		}
	}
}

func TestEmit_FlushesAutomaticallyAtThreshold(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	in := validEmit("u1")
	for i := 0; i < flushThreshold; i++ {
		in.Pincode = string(rune('0'+i/10)) + string(rune('0'+i%10)) + "0001" // distinct first 3 chars, so a distinct GeoCell per event
		if err := svc.Emit(context.Background(), in); err != nil {
			t.Fatalf("Emit %d: %v", i, err)
		}
	}
	if len(svc.buffer) != 0 {
		t.Fatalf("buffer should be empty after automatic flush, got %d entries", len(svc.buffer))
	}
	if len(agg.inserted) == 0 {
		t.Fatalf("expected automatic flush to insert rows")
	}
}

func TestFlush_RestoresBufferOnInsertFailure(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{insertErr: errors.New("clickhouse down")}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	if err := svc.Emit(context.Background(), validEmit("u1")); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if _, err := svc.Flush(context.Background()); err == nil {
		t.Fatalf("expected Flush to propagate insert error")
	}
	if len(svc.buffer) != 1 {
		t.Fatalf("buffer should be restored after failed flush, got %d entries", len(svc.buffer))
	}
}

func TestFlush_NoopWhenBufferEmpty(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	n, err := svc.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n != 0 {
		t.Fatalf("flushed = %d, want 0", n)
	}
}

func TestQuery_UsesFilterKOverDefault(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	if _, err := svc.Summary(context.Background(), adomain.QueryFilter{K: 12}); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if agg.lastK != 12 {
		t.Fatalf("k = %d, want 12 (explicit override)", agg.lastK)
	}
}

func TestQuery_FallsBackToServiceDefaultK(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	if _, err := svc.Summary(context.Background(), adomain.QueryFilter{}); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if agg.lastK != defaultK {
		t.Fatalf("k = %d, want default %d", agg.lastK, defaultK)
	}
}

func TestTopRegion_TruncatesToLimit(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{queryRows: []adomain.AggregateRow{
		{Count: 10}, {Count: 9}, {Count: 8},
	}}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	rows, err := svc.TopRegion(context.Background(), adomain.QueryFilter{}, 2)
	if err != nil {
		t.Fatalf("TopRegion: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestTopRegion_NoTruncationWhenUnderLimit(t *testing.T) {
	t.Parallel()
	agg := &fakeAgg{queryRows: []adomain.AggregateRow{{Count: 10}}}
	svc := New(fakeTx{}, fakeRawBinder{&fakeRawEvents{}}, agg, nil)

	rows, err := svc.TopRegion(context.Background(), adomain.QueryFilter{}, 5)
	if err != nil {
		t.Fatalf("TopRegion: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
}
