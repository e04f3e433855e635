// Package domain defines the core types for the consent registry (4.B):
// append-only versioned grants where the current state is the newest row
package domain

import "time"

// Category is the kind of consent being granted or withdrawn
type Category string

const (
	CategoryTracking   Category = "tracking"
	CategoryCloudSync  Category = "cloud_sync"
	CategoryNeuro      Category = "neuro"
	CategoryComplaints Category = "complaints"
	CategoryAnalytics  Category = "analytics"
)

// Scope is who the grant applies to
type Scope string

const (
	ScopeASHA          Scope = "asha"
	ScopeClinician     Scope = "clinician"
	ScopeGovAggregated Scope = "gov_aggregated"
)

// ValidCategory reports whether c is a member of the closed category set
func ValidCategory(c Category) bool {
	switch c {
	case CategoryTracking, CategoryCloudSync, CategoryNeuro, CategoryComplaints, CategoryAnalytics:
		return true
	default:
		return false
	}
}

// ValidScope reports whether s is a member of the closed scope set
func ValidScope(s Scope) bool {
	switch s {
	case ScopeASHA, ScopeClinician, ScopeGovAggregated:
		return true
	default:
		return false
	}
}

// Receipt is one append-only consent row. Never updated: a change in
// grant state, or a version bump, is always a new row
type Receipt struct {
	ID        string
	UserID    string
	Category  Category
	Scope     Scope
	Version   int
	Granted   bool
	GrantedAt time.Time
}

// Grant is the input to record a new consent state
type Grant struct {
	UserID   string
	Category Category
	Scope    Scope
	Version  int
	Granted  bool
}
