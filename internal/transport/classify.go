// Package transport classifies object-store and queue transport failures
// into the retry/terminal taxonomy spec.md §7 describes, and provides the
// exponential-backoff helper the worker and intake handler use around
// object-store and queue calls.
package transport

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"
)

// ErrorType classifies a transport failure for retry purposes.
type ErrorType int

const (
	// ErrorTypeSuccess means the call did not fail.
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential means the request was rejected for auth reasons;
	// distinct from ErrorTypeFatal because a credential refresh (handled by
	// the SDK's own credential chain) may make the next attempt succeed.
	ErrorTypeCredential
	// ErrorTypeNetwork means a connection-level failure; retryable.
	ErrorTypeNetwork
	// ErrorTypeRetryable means the remote service reported a transient
	// failure (throttling, 5xx); retryable.
	ErrorTypeRetryable
	// ErrorTypeFatal means the request is malformed or refers to something
	// that does not exist; retrying will not help.
	ErrorTypeFatal
)

// Classify determines the error type for retry strategy. Grounded on the
// teacher's internal/http.ClassifyError, trimmed to the failure modes S3,
// Azure Blob, and SQS actually surface.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ErrorTypeFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeNetwork
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "expired"),
		strings.Contains(errStr, "invalid token"),
		strings.Contains(errStr, "expiredtoken"),
		strings.Contains(errStr, "403"),
		strings.Contains(errStr, "unauthorized"),
		strings.Contains(errStr, "authentication failed"),
		strings.Contains(errStr, "authenticationfailed"),
		strings.Contains(errStr, "invalid sas"),
		strings.Contains(errStr, "signature not valid"),
		strings.Contains(errStr, "authorization failure"):
		return ErrorTypeCredential

	case strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "i/o timeout"),
		strings.Contains(errStr, "eof"),
		strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "broken pipe"),
		strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "use of closed network connection"):
		return ErrorTypeNetwork

	case strings.Contains(errStr, "requesttimeout"),
		strings.Contains(errStr, "internalerror"),
		strings.Contains(errStr, "serviceunavailable"),
		strings.Contains(errStr, "slowdown"),
		strings.Contains(errStr, "throttl"),
		strings.Contains(errStr, "429"),
		strings.Contains(errStr, "500"),
		strings.Contains(errStr, "502"),
		strings.Contains(errStr, "503"),
		strings.Contains(errStr, "504"),
		strings.Contains(errStr, "serverbusy"),
		strings.Contains(errStr, "operationtimeout"):
		return ErrorTypeRetryable

	case strings.Contains(errStr, "400"),
		strings.Contains(errStr, "404"),
		strings.Contains(errStr, "notfound"),
		strings.Contains(errStr, "invalid"):
		return ErrorTypeFatal
	}

	return ErrorTypeFatal
}

// Policy holds retry parameters for Retry.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// OnRetry, if set, is invoked before each retry sleep.
	OnRetry func(attempt int, err error, errType ErrorType)
}

// DefaultPolicy matches the teacher's observed S3/Azure tuning.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  8,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     15 * time.Second,
	}
}

// Backoff returns an exponential delay with full jitter, grounded on the
// teacher's CalculateBackoff.
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	base := time.Duration(1<<uint(attempt)) * initial
	if base > max {
		base = max
	}
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base)))
}

// Retry runs op, retrying on ErrorTypeNetwork/ErrorTypeRetryable/
// ErrorTypeCredential up to policy.MaxAttempts times, and returning
// immediately on ErrorTypeFatal or context cancellation.
func Retry(ctx context.Context, policy Policy, op func() error) error {
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		errType := Classify(err)
		if errType == ErrorTypeFatal {
			return err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, err, errType)
		}

		delay := Backoff(attempt, policy.InitialDelay, policy.MaxDelay)
		if errType == ErrorTypeCredential && delay < time.Second {
			delay = time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
