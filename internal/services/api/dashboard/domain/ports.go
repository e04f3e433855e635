package domain

import "context"

// QueryPort serves a single materialized view to dashboard readers
type QueryPort interface {
	Get(ctx context.Context, name ViewName) (View, error)
}

// AdminPort drives on-demand and scheduled refresh
type AdminPort interface {
	// Refresh recomputes one view unconditionally
	Refresh(ctx context.Context, name ViewName) error
	// RefreshDue recomputes every view whose stored row is older than
	// FreshnessSLO, read from the view's own updated_at column
	RefreshDue(ctx context.Context) (refreshed int, err error)
}

// Ports is the full dashboard surface
type Ports interface {
	QueryPort
	AdminPort
}
