package domain

import "context"

// CreatePort opens a new teleconsultation request
type CreatePort interface {
	Create(ctx context.Context, citizenID string) (TeleRequest, error)
}

// ReadPort fetches a request under an ownership check: the citizen who
// opened it, the clinician it is assigned to, or a privileged caller
type ReadPort interface {
	Get(ctx context.Context, callerID string, callerIsPrivileged bool, id string) (TeleRequest, error)
}

// TransitionPort drives the request state machine
type TransitionPort interface {
	Transition(ctx context.Context, id string, in TransitionInput) (TeleRequest, error)
}

// PrescribePort issues a prescription against an in-progress or completed
// request
type PrescribePort interface {
	Prescribe(ctx context.Context, in PrescribeInput) (Prescription, error)
}

// Ports bundles the module's surface for cross-module wiring
type Ports interface {
	CreatePort
	ReadPort
	TransitionPort
	PrescribePort
}
