// Package fallback decides whether a failed real connection is replaced by
// deterministic simulated behavior for the remainder of a device's
// pipeline.
package fallback

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zumanm1/device-audit-win-sub002/pkg/connection"
	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Controller wraps the connection manager's open. When auto-fallback is
// enabled and a real connection fails, the device transitions to simulated
// mode for the rest of the run: no further real I/O is attempted for it and
// all phase data comes from its deterministic profile.
type Controller struct {
	manager *connection.Manager
	auto    bool
	logger  *logrus.Logger

	mu        sync.Mutex
	simulated map[string]*connection.Session
}

// NewController creates a run-scoped fallback controller
func NewController(manager *connection.Manager, autoFallback bool, logger *logrus.Logger) *Controller {
	return &Controller{
		manager:   manager,
		auto:      autoFallback,
		logger:    logger,
		simulated: make(map[string]*connection.Session),
	}
}

// Acquire returns a session for the device: the pooled real session when
// reachable, the simulated session once the device is in simulated mode,
// or the connection error when fallback is disabled.
func (c *Controller) Acquire(ctx context.Context, device models.Device, result *models.AuditResult) (*connection.Session, error) {
	if sess := c.simSession(device); sess != nil {
		return sess, nil
	}

	sess, err := c.manager.Open(ctx, device)
	if err == nil {
		return sess, nil
	}
	if !c.auto {
		return nil, err
	}
	return c.engage(device, result, err), nil
}

// EngageOnFailure switches the device to simulated mode after a failed
// reachability probe, when auto-fallback is enabled. Returns true if the
// device is now simulated.
func (c *Controller) EngageOnFailure(device models.Device, result *models.AuditResult, cause error) bool {
	if !c.auto {
		return false
	}
	c.engage(device, result, cause)
	return true
}

// IsSimulated reports whether the device is in simulated mode for this run
func (c *Controller) IsSimulated(device models.Device) bool {
	return c.simSession(device) != nil
}

func (c *Controller) simSession(device models.Device) *connection.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simulated[device.Address]
}

func (c *Controller) engage(device models.Device, result *models.AuditResult, cause error) *connection.Session {
	c.mu.Lock()
	sess, ok := c.simulated[device.Address]
	if !ok {
		sess = connection.NewSession(device, &simTransport{
			device:  device,
			profile: ProfileFor(device),
		}, true)
		c.simulated[device.Address] = sess
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warnf("Device %s unreachable, switching to simulated session: %v", device.Hostname, cause)
		if result != nil {
			result.AddNote(fmt.Sprintf("TEST MODE enabled for %s: simulated data substituted after connection failure", device.Hostname))
		}
	}
	return sess
}
