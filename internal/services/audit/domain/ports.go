package domain

import "context"

// AppendPort appends one audit entry inside the caller's transaction.
// Implementations must acquire the seq under a transaction-scoped lock on
// the sequence source so concurrent appends within different transactions
// serialize correctly (§5)
type AppendPort interface {
	Append(ctx context.Context, in Append) (Entry, error)
}

// ReaderPort lists and verifies the chain
type ReaderPort interface {
	List(ctx context.Context, sinceSeq int64, limit int) ([]Entry, error)
	Verify(ctx context.Context, fromSeq int64) (VerifyResult, error)
}

// Ports bundles both surfaces for module wiring
type Ports interface {
	AppendPort
	ReaderPort
}
