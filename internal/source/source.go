// Package source delivers raw status messages from the capture transport.
package source

import "context"

// Delivery is one raw message. Ack and Nack settle it with the transport.
type Delivery struct {
	Body []byte
	Ack  func() error
	Nack func(requeue bool) error
}

// Source streams deliveries until ctx ends or the transport is exhausted,
// then closes the channel. Err reports why the channel closed early; it is
// nil after a clean end or a cancel and must be read after the close.
type Source interface {
	Deliveries(ctx context.Context) (<-chan Delivery, error)
	Err() error
	Close() error
}

func noop() error         { return nil }
func noopNack(bool) error { return nil }
