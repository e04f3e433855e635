package domain

import "time"

// EmitDTO is the wire payload for POST /analytics/events
type EmitDTO struct {
	EventType string         `json:"event_type" validate:"required"`
	Category  string         `json:"category" validate:"required"`
	EventTime time.Time      `json:"event_time" validate:"required"`
	Pincode   string         `json:"pincode"`
	AgeYears  *int           `json:"age_years" validate:"omitempty,gte=0,lte=130"`
	Gender    string         `json:"gender"`
	Payload   map[string]any `json:"payload"`
}

// QueryDTO is the shared wire payload for every aggregate query endpoint
type QueryDTO struct {
	EventType string    `json:"event_type"`
	Category  string    `json:"category"`
	Since     time.Time `json:"since"`
	Until     time.Time `json:"until"`
	GeoCell   string    `json:"geo_cell"`
	K         int       `json:"k" validate:"omitempty,gte=1"`
	Limit     int       `json:"limit" validate:"omitempty,gte=1,lte=500"`
}

// ToFilter converts the wire DTO to the domain query filter
func (d QueryDTO) ToFilter() QueryFilter {
	return QueryFilter{
		EventType: EventType(d.EventType),
		Category:  d.Category,
		Since:     d.Since,
		Until:     d.Until,
		GeoCell:   d.GeoCell,
		K:         d.K,
	}
}
