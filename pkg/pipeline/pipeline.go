// Package pipeline drives the per-device, per-audit-type phase state
// machine. Each audit type declares a fixed, ordered phase sequence;
// dependencies between phases are edges on the phase descriptors, walked
// generically rather than special-cased by name.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zumanm1/device-audit-win-sub002/pkg/config"
	"github.com/zumanm1/device-audit-win-sub002/pkg/fallback"
	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
	"github.com/zumanm1/device-audit-win-sub002/pkg/risk"
)

// Phase describes one step of an audit sequence. A phase either requires a
// named predecessor to have succeeded, or is flagged always-run and
// executes regardless of upstream outcome. Terminal phases stop the whole
// sequence when they fail, recording nothing for the phases after them.
type Phase struct {
	Name      string
	Requires  string
	AlwaysRun bool
	Terminal  bool
	Run       func(ctx context.Context, ex *Execution) *models.PhaseResult
}

// Execution is the per-pipeline working state shared between phases
type Execution struct {
	Device   models.Device
	Result   *models.AuditResult
	Findings risk.Findings
}

// Pipeline executes audit sequences for devices. Safe for concurrent use:
// per-device state lives in the Execution, shared state only in the
// fallback controller and connection pool.
type Pipeline struct {
	cfg       config.Config
	fb        *fallback.Controller
	prober    Prober
	logger    *logrus.Logger
	sequences map[models.AuditType][]Phase
}

// New builds a pipeline with its phase sequences resolved up front
func New(cfg config.Config, fb *fallback.Controller, prober Prober, logger *logrus.Logger) *Pipeline {
	p := &Pipeline{cfg: cfg, fb: fb, prober: prober, logger: logger}
	p.sequences = map[models.AuditType][]Phase{
		models.AuditConnectivity: {
			{Name: PhaseIcmpPing, Run: p.phaseIcmpPing},
			{Name: PhaseTcpPorts, Run: p.phaseTcpPorts},
			{Name: PhaseDnsResolution, Run: p.phaseDnsResolution},
		},
		models.AuditSecurity: {
			{Name: PhaseConnectivity, Run: p.phaseConnectivity},
			{Name: PhaseAuthentication, Requires: PhaseConnectivity, Run: p.phaseAuthentication},
			{Name: PhaseConfigAudit, Requires: PhaseAuthentication, Run: p.phaseConfigAudit},
			{Name: PhaseRiskAssessment, AlwaysRun: true, Run: p.phaseRiskAssessment},
			{Name: PhaseReporting, Requires: PhaseRiskAssessment, Run: p.phaseReporting},
		},
		models.AuditTelnet: {
			{Name: PhaseConnection, Terminal: true, Run: p.phaseTelnetConnection},
			{Name: PhaseTelnetConfig, Requires: PhaseConnection, Run: p.phaseTelnetConfig},
			{Name: PhaseTelnetPort, Requires: PhaseConnection, Run: p.phaseTelnetPort},
		},
	}
	return p
}

// Sequence returns the declared phase names for an audit type
func (p *Pipeline) Sequence(auditType models.AuditType) []string {
	names := make([]string, 0, len(p.sequences[auditType]))
	for _, ph := range p.sequences[auditType] {
		names = append(names, ph.Name)
	}
	return names
}

// Run executes one audit type for one device and returns its result. A
// fault inside a phase is contained to this device: the result records the
// abort and the caller moves on.
func (p *Pipeline) Run(ctx context.Context, device models.Device, auditType models.AuditType) *models.AuditResult {
	result := models.NewAuditResult(uuid.NewString(), device, auditType)
	ex := &Execution{Device: device, Result: result}

	if err := p.validate(device, auditType); err != nil {
		p.logger.Warnf("Skipping %s audit for invalid device record: %v", auditType, err)
		result.Phases.Add(failed(PhaseValidation, nil, err))
		result.Finalize()
		return result
	}

	if p.fb.IsSimulated(device) {
		result.AddNote(fmt.Sprintf("TEST MODE active for %s: device is using simulated data for this run", device.Hostname))
	}

	p.execute(ctx, ex, auditType)

	if auditType == models.AuditTelnet {
		result.Recommendations = risk.Classify(ex.Findings)
	}
	result.Finalize()
	return result
}

// validate enforces the device record invariants before any phase runs
func (p *Pipeline) validate(device models.Device, auditType models.AuditType) error {
	if err := device.Validate(); err != nil {
		return err
	}
	if auditType != models.AuditConnectivity && device.CredentialRef == "" {
		return fmt.Errorf("device %s has no credential reference", device.Hostname)
	}
	return nil
}

func (p *Pipeline) execute(ctx context.Context, ex *Execution, auditType models.AuditType) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("Pipeline for %s/%s aborted by internal error: %v",
				ex.Device.Hostname, auditType, r)
			ex.Result.AddNote(fmt.Sprintf("pipeline aborted by internal error: %v", r))
		}
	}()

	for _, ph := range p.sequences[auditType] {
		if ctx.Err() != nil {
			ex.Result.AddNote(fmt.Sprintf("run aborted before phase %s", ph.Name))
			return
		}

		if !ph.AlwaysRun && ph.Requires != "" {
			prev := ex.Result.Phases.Get(ph.Requires)
			if prev == nil || prev.Status != models.StatusSuccess {
				ex.Result.Phases.Add(&models.PhaseResult{
					Name:   ph.Name,
					Status: models.StatusSkipped,
					Error:  fmt.Sprintf("Skipped due to %s failure", strings.ToLower(ph.Requires)),
				})
				continue
			}
		}

		pr := ph.Run(ctx, ex)
		ex.Result.Phases.Add(pr)
		p.logger.Debugf("Device %s phase %s: %s", ex.Device.Hostname, ph.Name, pr.Status)

		if ph.Terminal && pr.Status == models.StatusFailed {
			return
		}
	}
}
