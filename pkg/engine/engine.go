// Package engine runs audit pipelines across a device inventory with a
// bounded worker pool. All run state (connection pool, fallback state,
// aggregator) is created at run start and torn down at run end, so
// concurrent runs never interfere.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zumanm1/device-audit-win-sub002/pkg/config"
	"github.com/zumanm1/device-audit-win-sub002/pkg/connection"
	"github.com/zumanm1/device-audit-win-sub002/pkg/credentials"
	"github.com/zumanm1/device-audit-win-sub002/pkg/fallback"
	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
	"github.com/zumanm1/device-audit-win-sub002/pkg/pipeline"
	"github.com/zumanm1/device-audit-win-sub002/pkg/report"
)

// Outcome is the run-level result returned to the caller
type Outcome string

// Run outcomes
const (
	OutcomeCompleted             Outcome = "Completed"
	OutcomeCompletedWithFailures Outcome = "CompletedWithFailures"
	OutcomeAborted               Outcome = "Aborted"
)

// Engine audits a device inventory. Dialer and Prober may be replaced
// before Run for testing; left nil, real SSH and network probing are used.
type Engine struct {
	Version string
	Dialer  connection.Dialer
	Prober  pipeline.Prober

	cfg      config.Config
	resolver credentials.Resolver
	logger   *logrus.Logger
}

// New creates an engine for the given configuration
func New(cfg config.Config, resolver credentials.Resolver, logger *logrus.Logger) *Engine {
	return &Engine{
		Version:  "1.0.0",
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
	}
}

// Run audits every device in the inventory and returns the run report.
// One worker owns one device end-to-end; a device failure never terminates
// the run. Cancelling the context stops scheduling of not-yet-started
// devices; in-flight pipelines keep whatever phases completed.
func (e *Engine) Run(ctx context.Context, devices []models.Device) (*models.Report, Outcome, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, OutcomeAborted, err
	}
	if len(devices) == 0 {
		return nil, OutcomeAborted, fmt.Errorf("no devices to audit")
	}

	dialer := e.Dialer
	if dialer == nil {
		sshDialer, err := e.buildSSHDialer()
		if err != nil {
			return nil, OutcomeAborted, err
		}
		dialer = sshDialer
	}

	manager := connection.NewManager(connection.ManagerConfig{
		JumpHost:        e.cfg.JumpHost,
		ConnectAttempts: e.cfg.ConnectAttempts,
		BackoffMin:      e.cfg.BackoffMin,
		BackoffMax:      e.cfg.BackoffMax,
	}, dialer, e.resolver, e.logger)
	defer manager.CloseAll()

	fb := fallback.NewController(manager, e.cfg.AutoFallback, e.logger)

	prober := e.Prober
	if prober == nil {
		prober = &pipeline.NetProber{
			PingTimeout: e.cfg.PingTimeout,
			PortTimeout: e.cfg.PortTimeout,
		}
	}
	pl := pipeline.New(e.cfg, fb, prober, e.logger)

	agg := report.NewAggregator(e.Version)
	e.logger.Infof("Starting audit run %s: %d devices, %d workers, audits: %v",
		agg.ReportID(), len(devices), e.cfg.Workers, e.cfg.AuditTypes)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, e.cfg.Workers)
	aborted := false

	for _, device := range devices {
		if ctx.Err() != nil {
			e.logger.Warnf("Run cancelled, %s and later devices not scheduled", device.Hostname)
			aborted = true
			break
		}

		wg.Add(1)
		go func(device models.Device) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			for _, auditType := range e.cfg.AuditTypes {
				if ctx.Err() != nil {
					// Audit types not yet started for this device are
					// dropped on cancellation, like unscheduled devices.
					return
				}
				agg.Add(pl.Run(ctx, device, auditType))
			}
		}(device)
	}

	wg.Wait()
	rep := agg.Finalize()

	outcome := e.outcome(rep, aborted || ctx.Err() != nil)
	e.logger.Infof("Audit run %s finished: %s (%d audits, %d failed phases)",
		rep.ReportID, outcome, rep.Summary.Audits, rep.Summary.Failed)
	return rep, outcome, nil
}

func (e *Engine) buildSSHDialer() (*connection.SSHDialer, error) {
	var jumpCreds models.Credentials
	if e.cfg.JumpHost != "" {
		jumpDevice := models.Device{
			Hostname:      e.cfg.JumpHost,
			Address:       e.cfg.JumpHost,
			CredentialRef: e.cfg.JumpHostCredRef,
		}
		creds, err := e.resolver.Resolve(jumpDevice)
		if err != nil {
			return nil, fmt.Errorf("resolving jump host credentials: %w", err)
		}
		jumpCreds = creds
	}
	return connection.NewSSHDialer(e.cfg.JumpHost, jumpCreds, e.cfg.ConnectTimeout, e.cfg.CommandTimeout), nil
}

func (e *Engine) outcome(rep *models.Report, aborted bool) Outcome {
	if aborted {
		return OutcomeAborted
	}
	if rep.Summary.Failed > 0 {
		return OutcomeCompletedWithFailures
	}
	return OutcomeCompleted
}
