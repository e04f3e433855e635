package repo

import (
	"context"

	"sahay/internal/platform/store"
	"sahay/internal/services/analytics/domain"
)

// AggSink is the ClickHouse-backed aggregate store. Flushes are append-only
// delta inserts (ClickHouse's natural idiom, mirroring the teacher's hits
// writer); every read sums deltas per key so the buffer's UPSERT semantics
// fall out of SUM(count) at query time rather than a literal UPDATE
type AggSink interface {
	// InsertDeltas appends one row per buffered key with its accumulated
	// count since the last flush
	InsertDeltas(ctx context.Context, rows []domain.AggregateRow) error

	// Query sums deltas grouped by key for rows matching f, filtering
	// out any group whose summed count is below k (query-time k-anonymity)
	Query(ctx context.Context, f domain.QueryFilter, k int) ([]domain.AggregateRow, error)
}

// CH implements AggSink with ClickHouse
type CH struct{ ch store.Clickhouse }

// NewCH constructs a new aggregate sink with a required CH instance
func NewCH(ch store.Clickhouse) *CH { return &CH{ch: ch} }

const aggTable = "sahay.analytics_agg_deltas (" +
	"event_type, category, time_bucket, geo_cell, age_bucket, gender, count_delta, flushed_at" +
	")"

// InsertDeltas implements AggSink
func (r *CH) InsertDeltas(ctx context.Context, rows []domain.AggregateRow) error {
	if len(rows) == 0 {
		return nil
	}
	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		k := row.Key
		data = append(data, []any{
			string(k.EventType), k.Category, k.TimeBucket, k.GeoCell, k.AgeBucket, k.Gender,
			row.Count, k.TimeBucket,
		})
	}
	return r.ch.Insert(ctx, aggTable, data)
}

// Query implements AggSink
func (r *CH) Query(ctx context.Context, f domain.QueryFilter, k int) ([]domain.AggregateRow, error) {
	q := `
	SELECT event_type, category, time_bucket, geo_cell, age_bucket, gender, sum(count_delta) AS cnt
	FROM sahay.analytics_agg_deltas
	WHERE 1 = 1
	`
	var args []any
	if f.EventType != "" {
		q += "  AND event_type = ?\n"
		args = append(args, string(f.EventType))
	}
	if f.Category != "" {
		q += "  AND category = ?\n"
		args = append(args, f.Category)
	}
	if !f.Since.IsZero() {
		q += "  AND time_bucket >= ?\n"
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		q += "  AND time_bucket < ?\n"
		args = append(args, f.Until.UTC())
	}
	if f.GeoCell != "" {
		q += "  AND geo_cell = ?\n"
		args = append(args, f.GeoCell)
	}
	q += "GROUP BY event_type, category, time_bucket, geo_cell, age_bucket, gender\n"
	q += "HAVING sum(count_delta) >= ?\n"
	args = append(args, k)
	q += "ORDER BY time_bucket ASC"

	rows, err := r.ch.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AggregateRow
	for rows.Next() {
		var row domain.AggregateRow
		var eventType string
		if err := rows.Scan(
			&eventType, &row.Key.Category, &row.Key.TimeBucket, &row.Key.GeoCell,
			&row.Key.AgeBucket, &row.Key.Gender, &row.Count,
		); err != nil {
			return nil, err
		}
		row.Key.EventType = domain.EventType(eventType)
		out = append(out, row)
	}
	return out, rows.Err()
}
