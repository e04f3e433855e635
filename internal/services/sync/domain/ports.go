package domain

import "context"

// GatewayPort is the sync gateway's public surface
type GatewayPort interface {
	// SubmitBatch applies an ordered batch of envelopes for userID, in order,
	// and returns a per-item outcome. A failure on one item never rejects
	// the batch; it reports that item as rejected:transient and continues
	SubmitBatch(ctx context.Context, userID string, items []Envelope) (BatchResult, error)
}

// Ports bundles the module's surface for cross-module wiring
type Ports interface {
	GatewayPort
}
