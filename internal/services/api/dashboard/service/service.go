// Package service implements the dashboard materialized views (4.H):
// periodic/on-demand recomputation over the analytics aggregate and a
// storage-backed freshness check, grounded on the teacher's due-row
// refresh pattern rather than an in-process last-run clock
package service

import (
	"context"
	"fmt"
	"time"

	"sahay/internal/modkit/repokit"
	adomain "sahay/internal/services/analytics/domain"
	"sahay/internal/services/api/dashboard/domain"
	"sahay/internal/services/api/dashboard/repo"

	perrs "sahay/internal/platform/errors"
)

// defaultWindow bounds how far back a view recomputation looks; dashboards
// are rolling windows, not all-time totals
const defaultWindow = 7 * 24 * time.Hour

// analyticsQuerier is the narrow slice of the analytics service dashboard
// views read from: k-anonymous aggregate rows for a filtered window
type analyticsQuerier interface {
	Summary(ctx context.Context, f adomain.QueryFilter) ([]adomain.AggregateRow, error)
}

type viewSpec struct {
	eventType adomain.EventType
	dims      func(k adomain.AggregateKey) string // composite dim label, merged across time buckets
	dimLabel  string
}

var specs = map[domain.ViewName]viewSpec{
	domain.ViewDailyTriageCounts: {
		eventType: adomain.EventTriageCompleted,
		dims:      func(k adomain.AggregateKey) string { return k.TimeBucket.Format("2006-01-02") },
		dimLabel:  "date",
	},
	domain.ViewComplaintByDistrict: {
		eventType: adomain.EventComplaintSubmitted,
		dims:      func(k adomain.AggregateKey) string { return k.GeoCell },
		dimLabel:  "district",
	},
	domain.ViewSymptomHeatmap: {
		eventType: adomain.EventTriageCompleted,
		dims:      func(k adomain.AggregateKey) string { return k.Category + "|" + k.AgeBucket },
		dimLabel:  "category_age",
	},
	domain.ViewSLABreachCounts: {
		eventType: adomain.EventComplaintEscalated,
		dims:      func(k adomain.AggregateKey) string { return k.GeoCell },
		dimLabel:  "district",
	},
}

// Service implements domain.Ports
type Service struct {
	db        repokit.TxRunner
	binder    repokit.Binder[repo.Repo]
	analytics analyticsQuerier
}

// New constructs the dashboard service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], analytics analyticsQuerier) *Service {
	if db == nil {
		panic("dashboard.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("dashboard.Service requires a non-nil Repo binder")
	}
	if analytics == nil {
		panic("dashboard.Service requires a non-nil analytics query port")
	}
	return &Service{db: db, binder: binder, analytics: analytics}
}

// Get implements domain.QueryPort
func (s *Service) Get(ctx context.Context, name domain.ViewName) (domain.View, error) {
	if !domain.ValidView(name) {
		return domain.View{}, perrs.InvalidArgf("dashboard: unknown view %q", name)
	}
	var out domain.View
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		v, ok, err := s.binder.Bind(q).Get(ctx, q, name)
		if err != nil {
			return err
		}
		if !ok {
			return perrs.NotFoundf("dashboard: view %q has not been refreshed yet", name)
		}
		out = v
		return nil
	})
	return out, err
}

// Refresh implements domain.AdminPort, recomputing name unconditionally
func (s *Service) Refresh(ctx context.Context, name domain.ViewName) error {
	spec, ok := specs[name]
	if !ok {
		return perrs.InvalidArgf("dashboard: unknown view %q", name)
	}
	return s.refreshOne(ctx, name, spec)
}

// RefreshDue implements domain.AdminPort. It reads each view's own
// updated_at from storage and recomputes only the ones past
// domain.FreshnessSLO, never comparing against an in-process timestamp
func (s *Service) RefreshDue(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-domain.FreshnessSLO)

	var stale []domain.ViewName
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		stale, err = s.binder.Bind(q).StaleSince(ctx, q, domain.AllViews, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}

	for _, name := range stale {
		if err := s.refreshOne(ctx, name, specs[name]); err != nil {
			return 0, fmt.Errorf("dashboard: refresh %s: %w", name, err)
		}
	}
	return len(stale), nil
}

func (s *Service) refreshOne(ctx context.Context, name domain.ViewName, spec viewSpec) error {
	now := time.Now().UTC()
	agg, err := s.analytics.Summary(ctx, adomain.QueryFilter{
		EventType: spec.eventType,
		Since:     now.Add(-defaultWindow),
		Until:     now,
	})
	if err != nil {
		return err
	}

	rows := mergeByDim(agg, spec.dims, spec.dimLabel)
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).Upsert(ctx, q, name, rows, now)
	})
}

// mergeByDim collapses aggregate rows sharing a dim label (e.g. the same
// day across several 15 minute buckets) into a single summed dashboard row
func mergeByDim(agg []adomain.AggregateRow, dim func(adomain.AggregateKey) string, dimLabel string) []domain.Row {
	counts := make(map[string]int64)
	order := make([]string, 0)
	for _, a := range agg {
		label := dim(a.Key)
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label] += a.Count
	}
	rows := make([]domain.Row, 0, len(order))
	for _, label := range order {
		rows = append(rows, domain.Row{
			Dims:  map[string]string{dimLabel: label},
			Count: counts[label],
		})
	}
	return rows
}
