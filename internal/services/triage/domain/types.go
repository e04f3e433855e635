// Package domain holds the triage session types (4.D). Red-flag detection
// and guidance rendering live in the core engine; this package owns session
// persistence and ownership
package domain

import (
	"time"

	core "sahay/internal/core/triage"
)

// Input is the request payload for a new triage session
type Input struct {
	SymptomsText string
	Age          int
	Sex          string
	Pregnancy    bool
	Language     string
}

// Session is a persisted triage evaluation, owned by the citizen who
// submitted it
type Session struct {
	ID           string
	OwnerID      string
	SymptomsText string
	Category     core.Category
	RedFlags     []string
	GuidanceText string
	CreatedAt    time.Time
}
