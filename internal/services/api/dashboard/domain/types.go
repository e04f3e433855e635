// Package domain holds the dashboard pipeline's types (4.H): named
// materialized views over the de-identified analytics aggregate and their
// freshness bookkeeping
package domain

import "time"

// ViewName is a closed set of materialized views the dashboard serves
type ViewName string

const (
	ViewDailyTriageCounts   ViewName = "daily_triage_counts"
	ViewComplaintByDistrict ViewName = "complaint_by_district"
	ViewSymptomHeatmap      ViewName = "symptom_heatmap"
	ViewSLABreachCounts     ViewName = "sla_breach_counts"
)

// AllViews lists every materialized view refreshed by the scheduled job
var AllViews = []ViewName{
	ViewDailyTriageCounts,
	ViewComplaintByDistrict,
	ViewSymptomHeatmap,
	ViewSLABreachCounts,
}

// ValidView reports whether name is a known view
func ValidView(name ViewName) bool {
	for _, v := range AllViews {
		if v == name {
			return true
		}
	}
	return false
}

// Row is one k-anonymous row of a materialized view. Shape mirrors the
// analytics aggregate row it was computed from; Dims carries whatever
// dimension labels matter for that view (district, age_bucket, etc)
type Row struct {
	Dims  map[string]string `json:"dims"`
	Count int64             `json:"count"`
}

// View is a named, refreshed snapshot. UpdatedAt is read back from storage,
// never tracked as an in-process variable, so freshness checks always
// reflect what was actually committed
type View struct {
	Name      ViewName  `json:"name"`
	Rows      []Row     `json:"rows"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FreshnessSLO is the staleness threshold past which a view is due for
// refresh regardless of the scheduler's cadence
const FreshnessSLO = 15 * time.Minute

// RefreshInterval is how often the scheduler attempts a refresh pass
const RefreshInterval = 10 * time.Minute
