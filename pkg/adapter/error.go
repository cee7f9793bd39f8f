package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportKind classifies transport failures. The correction loop
// aborts on any of them instead of burning retries on a dead upstream.
type TransportKind string

const (
	// TransportTimeout covers deadline expiry on the call.
	TransportTimeout TransportKind = "timeout"
	// TransportRequest covers connection and request-level failures.
	TransportRequest TransportKind = "request"
	// TransportUpstreamStatus covers non-2xx provider responses.
	TransportUpstreamStatus TransportKind = "upstream_status"
	// TransportProtocol covers unreadable or malformed provider payloads.
	TransportProtocol TransportKind = "protocol"
)

// TransportError wraps provider failures with a kind and, for status
// failures, the HTTP status code.
type TransportError struct {
	Kind   TransportKind
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("transport error (%s, status=%d): %v", e.Kind, e.Status, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("transport error (%s)", e.Kind)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransport reports whether err is a transport-level failure, as
// opposed to a well-formed but unusable model response.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// wrapTransport classifies an arbitrary provider error, preferring
// timeout over request failure.
func wrapTransport(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && ctx.Err() == context.DeadlineExceeded) {
		return &TransportError{Kind: TransportTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: TransportTimeout, Err: err}
	}
	return &TransportError{Kind: TransportRequest, Err: err}
}
