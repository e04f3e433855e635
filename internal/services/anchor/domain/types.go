// Package domain holds the anchor job types (4.F): every complaint
// creation and status change is anchored to an external chain contract as
// a hash commitment, queued and retried independently of the request path
package domain

import "time"

// JobKind distinguishes the two chain operations a complaint can enqueue
type JobKind string

const (
	JobKindCreate JobKind = "create"
	JobKindUpdate JobKind = "update"
)

// JobStatus tracks an anchor job through its queue lifecycle
type JobStatus string

const (
	JobStatusQueued           JobStatus = "queued"
	JobStatusInFlight         JobStatus = "in_flight"
	JobStatusDone             JobStatus = "done"
	JobStatusChainUnavailable JobStatus = "chain_unavailable"
)

// Job is one queued chain submission for a complaint
type Job struct {
	ID            string
	ComplaintID   string
	Kind          JobKind
	ComplaintHash [32]byte
	SLAHash       [32]byte
	StatusHash    [32]byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Nonce         uint64
	Status        JobStatus
	Attempts      int
	NextAttemptAt time.Time
}

// Status is a caller-facing view of a complaint's anchor state
type Status struct {
	ComplaintID string
	Anchored    bool
	LastStatus  JobStatus
	Attempts    int
}
