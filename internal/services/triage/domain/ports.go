package domain

import "context"

// SessionPort runs a new triage evaluation and persists it, and fetches a
// session back under an ownership check
type SessionPort interface {
	// Create evaluates in and stores the resulting session under ownerID
	Create(ctx context.Context, ownerID string, in Input) (Session, error)

	// Get returns a session by id, enforcing that callerID owns it (4.D:
	// "only the session's owner_id may read; others receive Forbidden")
	Get(ctx context.Context, callerID, sessionID string) (Session, error)
}

// Ports bundles the module's surface for cross-module wiring
type Ports interface {
	SessionPort
}
