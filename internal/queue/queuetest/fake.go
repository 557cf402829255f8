// Package queuetest provides an in-memory queue.Gateway for internal/worker
// and internal/intake tests.
package queuetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Electrostatics/apbs-aws/internal/queue"
)

type fakeMessage struct {
	body    string
	deleted bool
}

// Fake is an in-memory FIFO queue.Gateway.
type Fake struct {
	mu       sync.Mutex
	messages []*fakeMessage
	handles  map[string]*fakeMessage
	nextID   int

	// ReceiveErr, DeleteErr, ExtendErr, SendErr force every matching call
	// to fail while they are set.
	ReceiveErr error
	DeleteErr  error
	ExtendErr  error
	SendErr    error

	// Extensions records ExtendVisibility calls.
	Extensions []Extension
}

// Extension records one ExtendVisibility call.
type Extension struct {
	ReceiptHandle string
	Seconds       int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{handles: make(map[string]*fakeMessage)}
}

func (f *Fake) Receive(ctx context.Context, visibilityTimeout time.Duration) (*queue.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReceiveErr != nil {
		return nil, f.ReceiveErr
	}
	if len(f.messages) == 0 {
		return nil, nil
	}

	m := f.messages[0]
	f.messages = f.messages[1:]
	f.nextID++
	handle := fmt.Sprintf("handle-%d", f.nextID)
	f.handles[handle] = m

	return &queue.Message{Body: m.body, ReceiptHandle: handle}, nil
}

func (f *Fake) Delete(ctx context.Context, msg *queue.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if m, ok := f.handles[msg.ReceiptHandle]; ok {
		m.deleted = true
		delete(f.handles, msg.ReceiptHandle)
	}
	return nil
}

func (f *Fake) ExtendVisibility(ctx context.Context, msg *queue.Message, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExtendErr != nil {
		return f.ExtendErr
	}
	f.Extensions = append(f.Extensions, Extension{ReceiptHandle: msg.ReceiptHandle, Seconds: seconds})
	return nil
}

func (f *Fake) Send(ctx context.Context, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.messages = append(f.messages, &fakeMessage{body: body})
	return nil
}

// Pending returns the number of messages not yet received.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
