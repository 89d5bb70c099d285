package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorKind classifies a connection failure
type ErrorKind int

// Connection failure kinds
const (
	KindTimeout ErrorKind = iota
	KindRefused
	KindAuthFailed
	KindUnreachable
)

// String returns the kind's wire name
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRefused:
		return "refused"
	case KindAuthFailed:
		return "auth_failed"
	default:
		return "unreachable"
	}
}

// ConnError is a classified connection failure for one host
type ConnError struct {
	Kind ErrorKind
	Host string
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connection to %s failed (%s): %v", e.Host, e.Kind, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// Classify wraps an error from a dial attempt into a ConnError. Timeouts
// and refused connections are distinguished so the retry policy can treat
// them differently.
func Classify(host string, err error) *ConnError {
	var ce *ConnError
	if errors.As(err, &ce) {
		return ce
	}

	kind := KindUnreachable
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = KindRefused
	case strings.Contains(err.Error(), "unable to authenticate"),
		strings.Contains(err.Error(), "permission denied"),
		strings.Contains(err.Error(), "handshake failed"):
		kind = KindAuthFailed
	}

	return &ConnError{Kind: kind, Host: host, Err: err}
}

// IsRetryable reports whether a failure is transient. Authentication
// failures and refused connections are never retried.
func IsRetryable(err error) bool {
	var ce *ConnError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == KindTimeout || ce.Kind == KindUnreachable
}

// IsAuthFailure reports whether a failure was an authentication rejection
func IsAuthFailure(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce) && ce.Kind == KindAuthFailed
}
