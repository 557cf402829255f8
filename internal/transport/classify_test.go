package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeSuccess},
		{"canceled", context.Canceled, ErrorTypeFatal},
		{"deadline", context.DeadlineExceeded, ErrorTypeNetwork},
		{"expired token", errors.New("ExpiredToken: credentials expired"), ErrorTypeCredential},
		{"403", errors.New("status 403 Forbidden"), ErrorTypeCredential},
		{"connection reset", errors.New("read: connection reset by peer"), ErrorTypeNetwork},
		{"throttled", errors.New("SlowDown: please reduce request rate"), ErrorTypeRetryable},
		{"503", errors.New("503 Service Unavailable"), ErrorTypeRetryable},
		{"404", errors.New("NoSuchKey: 404 not found"), ErrorTypeFatal},
		{"unknown", errors.New("something weird happened"), ErrorTypeFatal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetrySucceedsAfterRetryable(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryStopsOnFatal(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		attempts++
		return errors.New("404 not found")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on fatal)", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		attempts++
		return errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		attempts++
		return errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 0 {
		t.Errorf("attempts = %d, want 0", attempts)
	}
}
