// Package queue abstracts the FIFO work queue the intake handler publishes
// to and the worker polls, per spec.md §4.7 (C2).
package queue

import (
	"context"
	"time"

	"github.com/Electrostatics/apbs-aws/internal/config"
)

// Message is one queue message: an opaque body plus the receipt handle
// needed to delete or extend the visibility of that specific delivery.
type Message struct {
	Body          string
	ReceiptHandle string
}

// Gateway is the queue contract: receive/delete/extend-lease/send over a
// single FIFO work queue, per spec.md §4.7.
type Gateway interface {
	// Receive long-polls for at most one message with the given visibility
	// timeout. It returns (nil, nil) if the poll timed out with nothing
	// available.
	Receive(ctx context.Context, visibilityTimeout time.Duration) (*Message, error)

	// Delete removes a message the caller has finished processing.
	Delete(ctx context.Context, msg *Message) error

	// ExtendVisibility changes a received message's remaining visibility
	// window to exactly seconds, per spec.md §4.3 step 6 ("extend ... to
	// that value so the lease does not expire mid-execution").
	ExtendVisibility(ctx context.Context, msg *Message, seconds int) error

	// Send publishes a new message body onto the queue.
	Send(ctx context.Context, body string) error
}

// New constructs the SQS-backed Gateway against queueName. There is only
// one backend (spec.md names a single FIFO work queue, not a
// provider-selectable abstraction like the object store), so unlike
// objectstore.New this takes no provider switch. queueName is a parameter
// rather than always reading cfg.JobQueueName because the intake handler
// polls a separate notification queue (cfg.IntakeQueueName) for the same
// Gateway contract while publishing onto the work queue.
func New(ctx context.Context, cfg *config.Config, queueName string) (Gateway, error) {
	return newSQSBackend(ctx, cfg, queueName)
}
