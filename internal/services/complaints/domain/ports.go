package domain

import "context"

// SubmitPort files a new complaint
type SubmitPort interface {
	Submit(ctx context.Context, in SubmitInput) (Complaint, error)
}

// ReadPort fetches a complaint under an ownership check
type ReadPort interface {
	// Get enforces owner-only reads unless callerIsPrivileged is true (an
	// RBAC role explicitly granting a broader view, checked by the caller)
	Get(ctx context.Context, callerID string, callerIsPrivileged bool, id string) (Complaint, error)
}

// TransitionPort drives the complaint state machine
type TransitionPort interface {
	Transition(ctx context.Context, id string, to Status) (Complaint, error)
	Close(ctx context.Context, id string, in CloseInput) (Complaint, error)
}

// SchedulerPort runs one SLA sweep; called by the central scheduler under
// an advisory lock so only one instance ticks at a time (§5)
type SchedulerPort interface {
	// Tick bumps escalation on every unresolved complaint past its
	// sla_deadline and returns how many it escalated
	Tick(ctx context.Context) (escalated int, err error)
}

// Ports bundles the module's surface for cross-module wiring
type Ports interface {
	SubmitPort
	ReadPort
	TransitionPort
	SchedulerPort
}
