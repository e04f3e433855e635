package domain

import "context"

// QueuePort enqueues durable outbound messages
type QueuePort interface {
	Enqueue(ctx context.Context, in Enqueue) (Message, error)
}

// DeliverPort drains pending/retryable messages and attempts delivery
type DeliverPort interface {
	// Tick claims a batch of due messages and attempts delivery, returning
	// how many were sent. A message whose Sender returns an error is
	// requeued with its lease cleared until MaxAttempts is exhausted
	Tick(ctx context.Context) (int, error)
}

// Ports is the full outbox surface
type Ports interface {
	QueuePort
	DeliverPort
}

// Sender delivers one message payload to its target. Implementations are
// kind-specific (SMS gateway, webhook, in-app notification) and registered
// per Kind
type Sender interface {
	Send(ctx context.Context, m Message) error
}
