package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zumanm1/device-audit-win-sub002/pkg/credentials"
	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

type fakeTransport struct {
	closed bool
}

func (t *fakeTransport) Run(_ context.Context, command string) (string, error) {
	return "output of " + command, nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

// fakeDialer fails a configurable number of times before succeeding
type fakeDialer struct {
	mu        sync.Mutex
	dialCount int
	failures  int
	failWith  error
}

func (d *fakeDialer) Dial(_ context.Context, device models.Device, _ models.Credentials) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialCount++
	if d.dialCount <= d.failures {
		return nil, d.failWith
	}
	return &fakeTransport{}, nil
}

func (d *fakeDialer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialCount
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testDevice() models.Device {
	return models.Device{Hostname: "r1", Address: "10.0.0.1", CredentialRef: "lab"}
}

func testResolver() credentials.Resolver {
	return credentials.Static{"lab": {Username: "admin", Password: "secret"}}
}

func newTestManager(dialer Dialer, attempts int) *Manager {
	return NewManager(ManagerConfig{
		ConnectAttempts: attempts,
		BackoffMin:      time.Millisecond,
		BackoffMax:      2 * time.Millisecond,
	}, dialer, testResolver(), testLogger())
}

func TestOpenPoolsSessions(t *testing.T) {
	dialer := &fakeDialer{}
	m := newTestManager(dialer, 2)

	first, err := m.Open(context.Background(), testDevice())
	if err != nil {
		t.Fatalf("First open failed: %v", err)
	}
	second, err := m.Open(context.Background(), testDevice())
	if err != nil {
		t.Fatalf("Second open failed: %v", err)
	}

	if first != second {
		t.Error("Expected the pooled session to be reused")
	}
	if dialer.calls() != 1 {
		t.Errorf("Expected a single dial, got %d", dialer.calls())
	}
}

func TestOpenRetriesTransientErrors(t *testing.T) {
	dialer := &fakeDialer{
		failures: 1,
		failWith: &ConnError{Kind: KindTimeout, Host: "10.0.0.1", Err: errors.New("i/o timeout")},
	}
	m := newTestManager(dialer, 3)

	if _, err := m.Open(context.Background(), testDevice()); err != nil {
		t.Fatalf("Open should succeed on the second attempt: %v", err)
	}
	if dialer.calls() != 2 {
		t.Errorf("Expected 2 dial attempts, got %d", dialer.calls())
	}
}

func TestOpenHonorsAttemptLimit(t *testing.T) {
	dialer := &fakeDialer{
		failures: 100,
		failWith: &ConnError{Kind: KindUnreachable, Host: "10.0.0.1", Err: errors.New("no route to host")},
	}
	m := newTestManager(dialer, 2)

	_, err := m.Open(context.Background(), testDevice())
	if err == nil {
		t.Fatal("Expected open to fail")
	}
	if dialer.calls() != 2 {
		t.Errorf("Expected exactly 2 dial attempts, got %d", dialer.calls())
	}
}

func TestOpenNeverRetriesAuthFailures(t *testing.T) {
	dialer := &fakeDialer{
		failures: 100,
		failWith: &ConnError{Kind: KindAuthFailed, Host: "10.0.0.1", Err: errors.New("unable to authenticate")},
	}
	m := newTestManager(dialer, 5)

	_, err := m.Open(context.Background(), testDevice())
	if err == nil {
		t.Fatal("Expected open to fail")
	}
	if !IsAuthFailure(err) {
		t.Errorf("Expected auth failure, got %v", err)
	}
	if dialer.calls() != 1 {
		t.Errorf("Auth failures must not be retried, got %d attempts", dialer.calls())
	}
}

func TestOpenNeverRetriesRefused(t *testing.T) {
	dialer := &fakeDialer{
		failures: 100,
		failWith: &ConnError{Kind: KindRefused, Host: "10.0.0.1", Err: errors.New("connection refused")},
	}
	m := newTestManager(dialer, 5)

	if _, err := m.Open(context.Background(), testDevice()); err == nil {
		t.Fatal("Expected open to fail")
	}
	if dialer.calls() != 1 {
		t.Errorf("Refused connections must not be retried, got %d attempts", dialer.calls())
	}
}

func TestOpenResolvesCredentialsFirst(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager(ManagerConfig{ConnectAttempts: 1}, dialer, credentials.Static{}, testLogger())

	_, err := m.Open(context.Background(), testDevice())
	if err == nil {
		t.Fatal("Expected a credential resolution error")
	}
	if dialer.calls() != 0 {
		t.Error("Dial must not be attempted without resolved credentials")
	}
}

func TestCloseAllDrainsPool(t *testing.T) {
	dialer := &fakeDialer{}
	m := newTestManager(dialer, 1)

	sess, err := m.Open(context.Background(), testDevice())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	m.CloseAll()

	if !sess.transport.(*fakeTransport).closed {
		t.Error("CloseAll did not close the pooled transport")
	}

	m.Open(context.Background(), testDevice())
	if dialer.calls() != 2 {
		t.Errorf("Expected a fresh dial after CloseAll, got %d total dials", dialer.calls())
	}
}

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{context.DeadlineExceeded, KindTimeout},
		{fmt.Errorf("ssh: unable to authenticate, attempted methods [password]"), KindAuthFailed},
		{errors.New("no route to host"), KindUnreachable},
	}
	for _, tc := range cases {
		ce := Classify("10.0.0.1", tc.err)
		if ce.Kind != tc.kind {
			t.Errorf("Classify(%v): expected %s, got %s", tc.err, tc.kind, ce.Kind)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := &ConnError{Kind: KindTimeout, Err: errors.New("timeout")}
	if !IsRetryable(retryable) {
		t.Error("Timeouts should be retryable")
	}
	permanent := &ConnError{Kind: KindAuthFailed, Err: errors.New("bad password")}
	if IsRetryable(permanent) {
		t.Error("Auth failures should not be retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("Unclassified errors should not be retryable")
	}
}
