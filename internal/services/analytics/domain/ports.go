package domain

import "context"

// EmitterPort de-identifies and buffers one analytics event. Consent
// (analytics + gov_aggregated) is re-checked on every call
type EmitterPort interface {
	Emit(ctx context.Context, in EmitInput) error
}

// QueryPort answers the dashboard's read surface. Every method filters
// rows with count < k before returning (query-time k-anonymity, 4.G)
type QueryPort interface {
	Summary(ctx context.Context, f QueryFilter) ([]AggregateRow, error)
	TimeSeries(ctx context.Context, f QueryFilter) ([]AggregateRow, error)
	Heatmap(ctx context.Context, f QueryFilter) ([]AggregateRow, error)
	ByCategory(ctx context.Context, f QueryFilter) ([]AggregateRow, error)
	Demographic(ctx context.Context, f QueryFilter) ([]AggregateRow, error)
	TopRegion(ctx context.Context, f QueryFilter, limit int) ([]AggregateRow, error)
}

// SchedulerPort drives the aggregation buffer's flush, called by the
// central scheduler on a timer and by an explicit admin request
type SchedulerPort interface {
	Flush(ctx context.Context) (flushed int, err error)
}

// Ports bundles the analytics surface for module wiring
type Ports interface {
	EmitterPort
	QueryPort
	SchedulerPort
}
