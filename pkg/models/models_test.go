package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPhaseMapPreservesInsertionOrder(t *testing.T) {
	m := NewPhaseMap()
	names := []string{"Connectivity", "Authentication", "ConfigAudit", "RiskAssessment", "Reporting"}
	for _, name := range names {
		if err := m.Add(&PhaseResult{Name: name, Status: StatusSuccess}); err != nil {
			t.Fatalf("Adding phase %s: %v", name, err)
		}
	}

	got := m.Names()
	if len(got) != len(names) {
		t.Fatalf("Expected %d phases, got %d", len(names), len(got))
	}
	for i, name := range names {
		if got[i] != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, got[i])
		}
	}
}

func TestPhaseMapIsWriteOnce(t *testing.T) {
	m := NewPhaseMap()
	if err := m.Add(&PhaseResult{Name: "IcmpPing", Status: StatusSuccess}); err != nil {
		t.Fatalf("First add failed: %v", err)
	}
	if err := m.Add(&PhaseResult{Name: "IcmpPing", Status: StatusFailed}); err == nil {
		t.Fatal("Expected error on duplicate phase name")
	}
	if m.Get("IcmpPing").Status != StatusSuccess {
		t.Error("Duplicate add overwrote the original phase result")
	}
	if m.Len() != 1 {
		t.Errorf("Expected 1 phase, got %d", m.Len())
	}
}

func TestPhaseMapJSONOrder(t *testing.T) {
	m := NewPhaseMap()
	for _, name := range []string{"Connection", "TelnetConfig", "TelnetPort"} {
		m.Add(&PhaseResult{Name: name, Status: StatusSecure})
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	s := string(data)
	first := strings.Index(s, "Connection")
	second := strings.Index(s, "TelnetConfig")
	third := strings.Index(s, "TelnetPort")
	if first < 0 || second < 0 || third < 0 {
		t.Fatalf("Phase names missing from JSON: %s", s)
	}
	if !(first < second && second < third) {
		t.Errorf("JSON does not preserve execution order: %s", s)
	}
}

func TestAuditResultJSONFieldNames(t *testing.T) {
	result := NewAuditResult("audit-1", Device{Hostname: "r1", Address: "10.0.0.1"}, AuditSecurity)
	result.Phases.Add(&PhaseResult{Name: "Connectivity", Status: StatusSuccess})
	result.AddNote("TEST MODE enabled for r1")
	result.Finalize()

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	for _, field := range []string{
		`"audit_id"`, `"device_info"`, `"audit_type"`, `"timestamp"`,
		`"phases"`, `"summary"`, `"recommendations"`, `"notes"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Serialized result missing field %s: %s", field, data)
		}
	}
}

func TestFinalizeTallies(t *testing.T) {
	result := NewAuditResult("audit-2", Device{Hostname: "r2", Address: "10.0.0.2"}, AuditSecurity)
	result.Phases.Add(&PhaseResult{Name: "Connectivity", Status: StatusFailed})
	result.Phases.Add(&PhaseResult{Name: "Authentication", Status: StatusSkipped})
	result.Phases.Add(&PhaseResult{Name: "ConfigAudit", Status: StatusSkipped})
	result.Phases.Add(&PhaseResult{Name: "RiskAssessment", Status: StatusSuccess})
	result.Phases.Add(&PhaseResult{Name: "Reporting", Status: StatusSuccess})
	result.Recommendations = []Recommendation{{Text: "x", Severity: SeverityMedium, Reference: "CA-7"}}
	result.Finalize()

	s := result.Summary
	if s.TotalPhases != 5 || s.Failed != 1 || s.Skipped != 2 || s.Success != 2 {
		t.Errorf("Unexpected summary: %+v", s)
	}
	if s.IssuesFound != 1 {
		t.Errorf("Expected 1 issue found, got %d", s.IssuesFound)
	}
}

func TestDeviceValidate(t *testing.T) {
	if err := (Device{Address: "10.0.0.1"}).Validate(); err == nil {
		t.Error("Expected error for missing hostname")
	}
	if err := (Device{Hostname: "r1"}).Validate(); err == nil {
		t.Error("Expected error for missing address")
	}
	if err := (Device{Hostname: "r1", Address: "10.0.0.1"}).Validate(); err != nil {
		t.Errorf("Valid device rejected: %v", err)
	}
}

func TestParseAuditType(t *testing.T) {
	for _, valid := range []string{"connectivity", "security", "telnet"} {
		if _, err := ParseAuditType(valid); err != nil {
			t.Errorf("Valid audit type %q rejected: %v", valid, err)
		}
	}
	if _, err := ParseAuditType("firmware"); err == nil {
		t.Error("Expected error for unknown audit type")
	}
}
