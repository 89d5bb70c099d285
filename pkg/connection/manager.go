package connection

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	"github.com/zumanm1/device-audit-win-sub002/pkg/credentials"
	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Manager opens, pools and tears down device sessions for one run. At most
// one underlying transport exists per (device, jump host) pair; later
// phases of the same device reuse the pooled session. The pool is scoped to
// the run that created it, never process-wide.
type Manager struct {
	dialer   Dialer
	resolver credentials.Resolver
	logger   *logrus.Logger
	jumpAddr string

	attempts   int
	backoffMin time.Duration
	backoffMax time.Duration

	mu   sync.Mutex
	pool map[string]*Session
}

// ManagerConfig carries the retry and pooling knobs for one run
type ManagerConfig struct {
	JumpHost        string
	ConnectAttempts int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
}

// NewManager creates a run-scoped connection manager
func NewManager(cfg ManagerConfig, dialer Dialer, resolver credentials.Resolver, logger *logrus.Logger) *Manager {
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Manager{
		dialer:     dialer,
		resolver:   resolver,
		logger:     logger,
		jumpAddr:   cfg.JumpHost,
		attempts:   attempts,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
		pool:       make(map[string]*Session),
	}
}

func (m *Manager) poolKey(device models.Device) string {
	return device.Address + "|" + m.jumpAddr
}

// Open returns the pooled session for the device, dialing one if none
// exists yet. Transient failures (timeout, unreachable) are retried up to
// the configured attempt count with backoff; authentication failures and
// refused connections are returned immediately.
func (m *Manager) Open(ctx context.Context, device models.Device) (*Session, error) {
	key := m.poolKey(device)

	m.mu.Lock()
	if sess, ok := m.pool[key]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	creds, err := m.resolver.Resolve(device)
	if err != nil {
		return nil, err
	}

	bo := &backoff.Backoff{
		Min:    m.backoffMin,
		Max:    m.backoffMax,
		Factor: 2,
		Jitter: false,
	}

	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		transport, err := m.dialer.Dial(ctx, device, creds)
		if err == nil {
			sess := NewSession(device, transport, false)
			m.mu.Lock()
			m.pool[key] = sess
			m.mu.Unlock()
			m.logger.Debugf("Opened session to %s (attempt %d)", device.Address, attempt)
			return sess, nil
		}

		lastErr = Classify(device.Address, err)
		if !IsRetryable(lastErr) {
			m.logger.Debugf("Connection to %s failed permanently: %v", device.Address, lastErr)
			return nil, lastErr
		}
		if attempt == m.attempts {
			break
		}

		delay := bo.Duration()
		m.logger.Debugf("Connection to %s failed (attempt %d/%d), retrying in %s: %v",
			device.Address, attempt, m.attempts, delay, lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// CloseAll tears down every pooled session and the jump host client. Called
// once at run end.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.pool))
	for _, s := range m.pool {
		sessions = append(sessions, s)
	}
	m.pool = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			m.logger.Debugf("Closing session to %s: %v", s.Device.Address, err)
		}
	}

	if closer, ok := m.dialer.(io.Closer); ok {
		closer.Close()
	}
}
