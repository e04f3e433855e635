// Package domain holds the de-identified analytics pipeline's types
// (4.G): de-identification rules, the aggregation key, and the
// query-time k-anonymity contract
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType is a closed allow-list of emittable analytics events
type EventType string

const (
	EventTriageCompleted          EventType = "triage_completed"
	EventTriageEmergency          EventType = "triage_emergency"
	EventComplaintSubmitted       EventType = "complaint_submitted"
	EventComplaintResolved        EventType = "complaint_resolved"
	EventComplaintEscalated       EventType = "complaint_escalated"
	EventVaccinationRecorded      EventType = "vaccination_recorded"
	EventNeuroscreenCompleted     EventType = "neuroscreen_completed"
	EventDailyWellnessLogged      EventType = "daily_wellness_logged"
	EventTeleRequestCreated       EventType = "tele_request_created"
	EventTeleConsultationComplete EventType = "tele_consultation_completed"
)

// categoryAllowList is the per-event-type set of acceptable category values
var categoryAllowList = map[EventType]map[string]bool{
	EventTriageCompleted:          {"respiratory": true, "fever": true, "gi": true, "injury": true, "mental_health": true, "other": true},
	EventTriageEmergency:          {"respiratory": true, "fever": true, "gi": true, "injury": true, "mental_health": true, "other": true},
	EventComplaintSubmitted:       {"water": true, "health": true, "sanitation": true, "nutrition": true, "other": true},
	EventComplaintResolved:        {"water": true, "health": true, "sanitation": true, "nutrition": true, "other": true},
	EventComplaintEscalated:       {"water": true, "health": true, "sanitation": true, "nutrition": true, "other": true},
	EventVaccinationRecorded:      {"routine": true, "catchup": true, "outbreak_response": true},
	EventNeuroscreenCompleted:     {"developmental": true, "behavioral": true},
	EventDailyWellnessLogged:      {"mood": true, "vitals": true, "water": true},
	EventTeleRequestCreated:       {"asha": true, "clinician": true},
	EventTeleConsultationComplete: {"asha": true, "clinician": true},
}

// ValidEventType reports whether t is a member of the closed allow-list
func ValidEventType(t EventType) bool {
	_, ok := categoryAllowList[t]
	return ok
}

// ValidCategory reports whether category is allowed for t
func ValidCategory(t EventType, category string) bool {
	allow, ok := categoryAllowList[t]
	if !ok {
		return false
	}
	return allow[category]
}

// disallowedKeys is the closed set of payload keys that, if present after
// canonicalization, make Emit reject the payload with an InvalidArgument
// error; there is no separate InvalidPayload error code
var disallowedKeys = map[string]bool{
	"user_id": true, "username": true, "phone": true, "email": true,
	"complaint_id": true, "full_name": true, "name": true, "address": true,
	"gps": true, "latitude": true, "longitude": true, "evidence": true,
	"filename": true, "url": true, "comment": true, "text": true, "description": true,
}

// DisallowedKey reports whether key is on the closed disallow-list,
// case-insensitive
func DisallowedKey(key string) bool {
	return disallowedKeys[strings.ToLower(key)]
}

// AgeBucket maps a raw age in years to its coarse, k-anonymity-safe bucket
func AgeBucket(ageYears *int) string {
	if ageYears == nil {
		return "unknown"
	}
	a := *ageYears
	switch {
	case a < 0:
		return "unknown"
	case a <= 5:
		return "0-5"
	case a <= 12:
		return "6-12"
	case a <= 18:
		return "13-18"
	case a <= 35:
		return "19-35"
	case a <= 60:
		return "36-60"
	default:
		return "60+"
	}
}

// GeoCell maps a pincode to a district-level cell: "pincode_", the first 3
// characters, and an "xxx" suffix (560001 -> pincode_560xxx). Production may substitute an H3 cell at resolution 7
func GeoCell(pincode string) string {
	p := strings.TrimSpace(pincode)
	if len(p) < 3 {
		return "unknown"
	}
	return "pincode_" + p[:3] + "xxx"
}

// TimeBucket floors t to the nearest 15 minute boundary, UTC
func TimeBucket(t time.Time) time.Time {
	u := t.UTC()
	m := u.Minute() / 15 * 15
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), m, 0, 0, time.UTC)
}

// EmitInput is the payload to emit one analytics event
type EmitInput struct {
	UserID    string // for the consent check and the raw audit-only row only, never aggregated
	EventType EventType
	Category  string
	EventTime time.Time
	Pincode   string
	AgeYears  *int
	Gender    string
	Payload   map[string]any // free-form context, checked against the disallow-list
}

// AnalyticsEvent is the raw, audit-only record of an emission. user_id is
// retained here for audit/erasure purposes only; it never appears in
// AggregateKey or any query result
type AnalyticsEvent struct {
	ID          string
	UserID      string
	EventType   EventType
	PayloadJSON json.RawMessage
	CreatedAt   time.Time
}

// AggregateKey is the de-identified grouping key aggregated counts are
// bucketed under. String forms the in-memory buffer's map key; the
// ClickHouse sink stores the key's parts as separate columns
type AggregateKey struct {
	EventType  EventType
	Category   string
	TimeBucket time.Time
	GeoCell    string
	AgeBucket  string
	Gender     string
}

// String renders the key in the canonical
// event_type|category|time_bucket|geo_cell|age_bucket|gender form
func (k AggregateKey) String() string {
	g := k.Gender
	if g == "" {
		g = "unknown"
	}
	return strings.Join([]string{
		string(k.EventType), k.Category, k.TimeBucket.Format(time.RFC3339), k.GeoCell, k.AgeBucket, g,
	}, "|")
}

// AggregateRow is one de-identified, k-anonymous aggregate count
type AggregateRow struct {
	Key   AggregateKey
	Count int64
}

// QueryFilter narrows an aggregate query. Zero-value fields are unfiltered
type QueryFilter struct {
	EventType EventType
	Category  string
	Since     time.Time
	Until     time.Time
	GeoCell   string
	K         int // k-anonymity threshold override; <= 0 means use the service default
}
