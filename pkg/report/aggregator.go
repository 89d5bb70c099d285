// Package report accumulates per-device audit results into the single
// run-scoped report.
package report

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Aggregator collects audit results from concurrent device workers into
// one report. Safe for concurrent use; created at run start and finalized
// exactly once when the run ends.
type Aggregator struct {
	mu     sync.Mutex
	report *models.Report
}

// NewAggregator creates the report shell for one run
func NewAggregator(toolVersion string) *Aggregator {
	return &Aggregator{
		report: &models.Report{
			ReportID:    uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
			ToolVersion: toolVersion,
			Results:     []*models.AuditResult{},
		},
	}
}

// ReportID returns the run identifier shared by every collected result
func (a *Aggregator) ReportID() string {
	return a.report.ReportID
}

// Add appends one audit result to the run report
func (a *Aggregator) Add(result *models.AuditResult) {
	if result == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report.Results = append(a.report.Results, result)
}

// Finalize computes the run summary and returns the finished report
func (a *Aggregator) Finalize() *models.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	devices := map[string]bool{}
	s := models.RunSummary{}
	for _, res := range a.report.Results {
		devices[res.DeviceInfo.Address] = true
		s.Audits++
		s.TotalPhases += res.Summary.TotalPhases
		s.Success += res.Summary.Success
		s.Failed += res.Summary.Failed
		s.Skipped += res.Summary.Skipped
		s.Vulnerable += res.Summary.Vulnerable
		s.Secure += res.Summary.Secure
		s.IssuesFound += res.Summary.IssuesFound
	}
	s.Devices = len(devices)
	a.report.Summary = s
	return a.report
}
