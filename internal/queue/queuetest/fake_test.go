package queuetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Electrostatics/apbs-aws/internal/queue"
)

var _ queue.Gateway = (*Fake)(nil)

func TestFakeReceiveEmpty(t *testing.T) {
	f := New()
	msg, err := f.Receive(context.Background(), 300*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil message, got %+v", msg)
	}
}

func TestFakeSendReceiveDelete(t *testing.T) {
	f := New()
	if err := f.Send(context.Background(), `{"job_id":"abc"}`); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := f.Pending(); got != 1 {
		t.Fatalf("Pending() = %d, want 1", got)
	}

	msg, err := f.Receive(context.Background(), 300*time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Body != `{"job_id":"abc"}` {
		t.Errorf("Body = %q", msg.Body)
	}
	if f.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after receive", f.Pending())
	}

	if err := f.ExtendVisibility(context.Background(), msg, 2000); err != nil {
		t.Fatalf("ExtendVisibility: %v", err)
	}
	if len(f.Extensions) != 1 || f.Extensions[0].Seconds != 2000 {
		t.Errorf("Extensions = %+v", f.Extensions)
	}

	if err := f.Delete(context.Background(), msg); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestFakeErrorInjection(t *testing.T) {
	f := New()
	f.SendErr = errors.New("boom")
	if err := f.Send(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}
