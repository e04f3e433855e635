// Package service implements the de-identified analytics pipeline (4.G):
// consent-gated emission, payload de-identification, an in-memory
// aggregation buffer, and k-anonymous queries
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sahay/internal/modkit/repokit"
	adomain "sahay/internal/services/analytics/domain"
	"sahay/internal/services/analytics/repo"
	cdomain "sahay/internal/services/consent/domain"

	perrs "sahay/internal/platform/errors"
)

const (
	defaultK         = 5
	flushThreshold   = 100
	flushConcurrency = 4
)

// consentRequirer is the narrow slice of the consent service analytics
// needs: every emission re-checks analytics + gov_aggregated consent (4.B)
type consentRequirer interface {
	Require(ctx context.Context, userID string, category cdomain.Category, scope cdomain.Scope) error
}

// Service implements adomain.Ports
type Service struct {
	db        repokit.TxRunner
	rawBinder repokit.Binder[repo.RawEvents]
	agg       repo.AggSink
	consent   consentRequirer
	defaultK  int

	mu     sync.Mutex
	buffer map[string]adomain.AggregateRow
}

// New constructs the analytics service
func New(db repokit.TxRunner, rawBinder repokit.Binder[repo.RawEvents], agg repo.AggSink, consent consentRequirer) *Service {
	if db == nil {
		panic("analytics.Service requires a non-nil TxRunner")
	}
	if rawBinder == nil {
		panic("analytics.Service requires a non-nil RawEvents binder")
	}
	if agg == nil {
		panic("analytics.Service requires a non-nil AggSink")
	}
	return &Service{
		db:        db,
		rawBinder: rawBinder,
		agg:       agg,
		consent:   consent,
		defaultK:  defaultK,
		buffer:    make(map[string]adomain.AggregateRow),
	}
}

// Emit de-identifies in, re-checks consent, records the raw audit-only
// event, and accumulates the de-identified count into the buffer,
// flushing immediately if the buffer has reached its size threshold
func (s *Service) Emit(ctx context.Context, in adomain.EmitInput) error {
	if !adomain.ValidEventType(in.EventType) {
		return perrs.InvalidArgf("analytics: event_type %q is not in the allow-list", in.EventType)
	}
	if !adomain.ValidCategory(in.EventType, in.Category) {
		return perrs.InvalidArgf("analytics: category %q is not allowed for event_type %q", in.Category, in.EventType)
	}
	for key := range in.Payload {
		if adomain.DisallowedKey(key) {
			return perrs.InvalidArgf("analytics: payload key %q is disallowed", key)
		}
	}

	if s.consent != nil {
		if err := s.consent.Require(ctx, in.UserID, cdomain.CategoryAnalytics, cdomain.ScopeGovAggregated); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return perrs.InvalidArgf("analytics: payload does not marshal to JSON: %v", err)
	}

	now := time.Now().UTC()
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		_, err := s.rawBinder.Bind(q).Insert(ctx, adomain.AnalyticsEvent{
			UserID:      in.UserID,
			EventType:   in.EventType,
			PayloadJSON: payload,
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return err
	}

	key := adomain.AggregateKey{
		EventType:  in.EventType,
		Category:   in.Category,
		TimeBucket: adomain.TimeBucket(in.EventTime),
		GeoCell:    adomain.GeoCell(in.Pincode),
		AgeBucket:  adomain.AgeBucket(in.AgeYears),
		Gender:     in.Gender,
	}

	full := s.bufferAdd(key)
	if full {
		_, err := s.Flush(ctx)
		return err
	}
	return nil
}

// bufferAdd increments the buffered count for key and reports whether the
// buffer has reached flushThreshold entries
func (s *Service) bufferAdd(key adomain.AggregateKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.buffer[key.String()]
	row.Key = key
	row.Count++
	s.buffer[key.String()] = row
	return len(s.buffer) >= flushThreshold
}

// Flush moves the buffer to the ClickHouse aggregate sink. The map swap
// happens under the mutex, held only briefly; the UPSERT itself runs
// outside the lock so concurrent Emit calls are never blocked on I/O
func (s *Service) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	pending := s.buffer
	s.buffer = make(map[string]adomain.AggregateRow)
	s.mu.Unlock()

	rows := make([]adomain.AggregateRow, 0, len(pending))
	for _, row := range pending {
		rows = append(rows, row)
	}

	if err := s.flushChunks(ctx, rows); err != nil {
		// put the rows back so a failed flush doesn't lose counts
		s.mu.Lock()
		for _, row := range rows {
			cur := s.buffer[row.Key.String()]
			if cur.Key == (adomain.AggregateKey{}) {
				cur.Key = row.Key
			}
			cur.Count += row.Count
			s.buffer[row.Key.String()] = cur
		}
		s.mu.Unlock()
		return 0, err
	}
	return len(rows), nil
}

// flushChunks fans the insert out across bounded concurrent workers via
// errgroup, matching the concurrency pattern the pack uses for parallel
// I/O fan-out
func (s *Service) flushChunks(ctx context.Context, rows []adomain.AggregateRow) error {
	const chunkSize = 200
	if len(rows) <= chunkSize {
		return s.agg.InsertDeltas(ctx, rows)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(flushConcurrency)
	for i := 0; i < len(rows); i += chunkSize {
		end := i + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[i:end]
		g.Go(func() error {
			return s.agg.InsertDeltas(gctx, chunk)
		})
	}
	return g.Wait()
}

func (s *Service) k(f adomain.QueryFilter) int {
	if f.K > 0 {
		return f.K
	}
	return s.defaultK
}

// Summary implements adomain.QueryPort
func (s *Service) Summary(ctx context.Context, f adomain.QueryFilter) ([]adomain.AggregateRow, error) {
	return s.agg.Query(ctx, f, s.k(f))
}

// TimeSeries implements adomain.QueryPort
func (s *Service) TimeSeries(ctx context.Context, f adomain.QueryFilter) ([]adomain.AggregateRow, error) {
	return s.agg.Query(ctx, f, s.k(f))
}

// Heatmap implements adomain.QueryPort
func (s *Service) Heatmap(ctx context.Context, f adomain.QueryFilter) ([]adomain.AggregateRow, error) {
	return s.agg.Query(ctx, f, s.k(f))
}

// ByCategory implements adomain.QueryPort
func (s *Service) ByCategory(ctx context.Context, f adomain.QueryFilter) ([]adomain.AggregateRow, error) {
	return s.agg.Query(ctx, f, s.k(f))
}

// Demographic implements adomain.QueryPort
func (s *Service) Demographic(ctx context.Context, f adomain.QueryFilter) ([]adomain.AggregateRow, error) {
	return s.agg.Query(ctx, f, s.k(f))
}

// TopRegion implements adomain.QueryPort; limit bounds the result after
// k-anonymity filtering
func (s *Service) TopRegion(ctx context.Context, f adomain.QueryFilter, limit int) ([]adomain.AggregateRow, error) {
	rows, err := s.agg.Query(ctx, f, s.k(f))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
