// Package domain holds the right-to-erasure port the cascade implements
package domain

import "context"

// ErasePort destroys one user's owned rows across every module that holds
// them. Complaints are anonymized in place rather than deleted, and
// analytics rows are never touched: both outlive the identity that
// produced them (§3)
type ErasePort interface {
	Erase(ctx context.Context, actorID, userID string) error
}

// Ports is the full erasure surface
type Ports interface {
	ErasePort
}
