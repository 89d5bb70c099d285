package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AuditType identifies one of the supported audit pipelines
type AuditType string

// Supported audit types
const (
	AuditConnectivity AuditType = "connectivity"
	AuditSecurity     AuditType = "security"
	AuditTelnet       AuditType = "telnet"
)

// AllAuditTypes returns every supported audit type in declaration order
func AllAuditTypes() []AuditType {
	return []AuditType{AuditConnectivity, AuditSecurity, AuditTelnet}
}

// ParseAuditType validates a string against the supported audit types
func ParseAuditType(s string) (AuditType, error) {
	switch AuditType(s) {
	case AuditConnectivity, AuditSecurity, AuditTelnet:
		return AuditType(s), nil
	}
	return "", fmt.Errorf("unknown audit type: %q", s)
}

// PhaseStatus is the outcome of a single audit phase
type PhaseStatus string

// Phase outcomes
const (
	StatusSuccess    PhaseStatus = "Success"
	StatusFailed     PhaseStatus = "Failed"
	StatusSkipped    PhaseStatus = "Skipped"
	StatusVulnerable PhaseStatus = "Vulnerable"
	StatusSecure     PhaseStatus = "Secure"
)

// Severity levels for recommendations
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Device represents one network device from the inventory. Devices are
// immutable once loaded for a run.
type Device struct {
	Hostname      string `json:"hostname"`
	Address       string `json:"address"`
	DeviceType    string `json:"device_type"`
	Model         string `json:"model,omitempty"`
	CredentialRef string `json:"credential_ref"`
}

// Validate checks that the record carries the fields every pipeline needs
func (d Device) Validate() error {
	if d.Hostname == "" {
		return fmt.Errorf("device record missing hostname")
	}
	if d.Address == "" {
		return fmt.Errorf("device %s missing management address", d.Hostname)
	}
	return nil
}

// Credentials holds resolved login material for one device
type Credentials struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	EnableSecret string `json:"enable_secret,omitempty"`
}

// PhaseResult is the write-once outcome of one audit phase
type PhaseResult struct {
	Name    string                 `json:"name"`
	Status  PhaseStatus            `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// PhaseMap is an insertion-ordered map of phase name to PhaseResult. The
// JSON encoding preserves insertion order, which equals execution order.
type PhaseMap struct {
	order   []string
	entries map[string]*PhaseResult
}

// NewPhaseMap returns an empty ordered phase map
func NewPhaseMap() *PhaseMap {
	return &PhaseMap{entries: make(map[string]*PhaseResult)}
}

// Add records a phase result. A phase result is write-once: adding a
// duplicate name returns an error and leaves the original untouched.
func (m *PhaseMap) Add(pr *PhaseResult) error {
	if pr == nil || pr.Name == "" {
		return fmt.Errorf("phase result must carry a name")
	}
	if _, exists := m.entries[pr.Name]; exists {
		return fmt.Errorf("phase %s already recorded", pr.Name)
	}
	m.order = append(m.order, pr.Name)
	m.entries[pr.Name] = pr
	return nil
}

// Get returns the result for a phase name, or nil if absent
func (m *PhaseMap) Get(name string) *PhaseResult {
	return m.entries[name]
}

// Names returns the phase names in execution order
func (m *PhaseMap) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of recorded phases
func (m *PhaseMap) Len() int {
	return len(m.order)
}

// MarshalJSON encodes the map as a JSON object in insertion order
func (m *PhaseMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.entries[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Recommendation is one severity-tagged remediation produced by the risk
// classifier
type Recommendation struct {
	Text      string `json:"text"`
	Severity  string `json:"severity"`
	Reference string `json:"reference"`
}

// Note is a timestamped free-text annotation on an audit result
type Note struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Summary tallies phase statuses for one audit result
type Summary struct {
	TotalPhases int `json:"total_phases"`
	Success     int `json:"success"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	Vulnerable  int `json:"vulnerable"`
	Secure      int `json:"secure"`
	IssuesFound int `json:"issues_found"`
}

// AuditResult holds everything produced by one device's pipeline for one
// audit type
type AuditResult struct {
	AuditID         string           `json:"audit_id"`
	DeviceInfo      Device           `json:"device_info"`
	AuditType       AuditType        `json:"audit_type"`
	Timestamp       time.Time        `json:"timestamp"`
	Phases          *PhaseMap        `json:"phases"`
	Summary         Summary          `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Notes           []Note           `json:"notes"`
}

// NewAuditResult creates an empty result for one device and audit type
func NewAuditResult(auditID string, device Device, auditType AuditType) *AuditResult {
	return &AuditResult{
		AuditID:         auditID,
		DeviceInfo:      device,
		AuditType:       auditType,
		Timestamp:       time.Now().UTC(),
		Phases:          NewPhaseMap(),
		Recommendations: []Recommendation{},
		Notes:           []Note{},
	}
}

// AddNote appends a timestamped note
func (r *AuditResult) AddNote(text string) {
	r.Notes = append(r.Notes, Note{Timestamp: time.Now().UTC(), Text: text})
}

// Finalize recomputes the summary from the recorded phases
func (r *AuditResult) Finalize() {
	s := Summary{IssuesFound: len(r.Recommendations)}
	for _, name := range r.Phases.Names() {
		s.TotalPhases++
		switch r.Phases.Get(name).Status {
		case StatusSuccess:
			s.Success++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusVulnerable:
			s.Vulnerable++
		case StatusSecure:
			s.Secure++
		}
	}
	r.Summary = s
}

// RunSummary tallies phase statuses across every result in a report
type RunSummary struct {
	Devices      int `json:"devices"`
	Audits       int `json:"audits"`
	TotalPhases  int `json:"total_phases"`
	Success      int `json:"success"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	Vulnerable   int `json:"vulnerable"`
	Secure       int `json:"secure"`
	IssuesFound  int `json:"issues_found"`
}

// Report is the run-scoped collection of audit results
type Report struct {
	ReportID    string         `json:"report_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	ToolVersion string         `json:"tool_version"`
	Results     []*AuditResult `json:"results"`
	Summary     RunSummary     `json:"summary"`
}
