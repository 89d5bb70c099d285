package risk

import (
	"reflect"
	"testing"

	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

func TestClassifyVulnerableTelnetDevice(t *testing.T) {
	f := Findings{
		TelnetEnabled:    true,
		VTYLines:         2,
		AuxTelnet:        true,
		Port23Accessible: true,
	}

	recs := Classify(f)
	if len(recs) != 4 {
		t.Fatalf("Expected exactly 4 recommendations, got %d: %+v", len(recs), recs)
	}

	expected := []struct {
		severity  string
		reference string
	}{
		{models.SeverityCritical, "AC-17, IA-2"},
		{models.SeverityHigh, "AC-3"},
		{models.SeverityCritical, "AC-17"},
		{models.SeverityCritical, "SC-7"},
	}
	for i, want := range expected {
		if recs[i].Severity != want.severity {
			t.Errorf("Recommendation %d: expected severity %s, got %s", i, want.severity, recs[i].Severity)
		}
		if recs[i].Reference != want.reference {
			t.Errorf("Recommendation %d: expected reference %s, got %s", i, want.reference, recs[i].Reference)
		}
	}
}

func TestClassifySecureTelnetDevice(t *testing.T) {
	f := Findings{
		TelnetEnabled:    false,
		Port23Accessible: false,
	}

	recs := Classify(f)
	if len(recs) != 0 {
		t.Errorf("Expected no recommendations for secure device, got %d: %+v", len(recs), recs)
	}
}

func TestClassifyEmptyFindings(t *testing.T) {
	recs := Classify(Findings{})
	if len(recs) != 0 {
		t.Errorf("Empty findings should produce no recommendations, got %d", len(recs))
	}
	if recs == nil {
		t.Error("Classify should return an empty list, not nil")
	}
}

func TestClassifyIsPure(t *testing.T) {
	f := Findings{
		TelnetEnabled:       true,
		VTYLines:            5,
		ACLApplied:          false,
		Port23Accessible:    true,
		WeakPasswords:       []string{"operator"},
		UnusedAccounts:      []string{"backup", "test"},
		UnnecessaryServices: []string{"ip http server"},
		AuditHistoryKnown:   true,
		RecentAudit:         false,
	}

	first := Classify(f)
	second := Classify(f)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classify is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestClassifyAccountAndServiceRules(t *testing.T) {
	f := Findings{
		WeakPasswords:       []string{"operator"},
		UnusedAccounts:      []string{"backup"},
		UnnecessaryServices: []string{"service finger"},
		AuditHistoryKnown:   true,
		RecentAudit:         false,
	}

	recs := Classify(f)
	if len(recs) != 4 {
		t.Fatalf("Expected 4 recommendations, got %d: %+v", len(recs), recs)
	}

	wantRefs := []string{"IA-5", "AC-2", "CM-7", "CA-7"}
	for i, ref := range wantRefs {
		if recs[i].Reference != ref {
			t.Errorf("Recommendation %d: expected reference %s, got %s", i, ref, recs[i].Reference)
		}
	}
}

func TestClassifyAuditHistoryNeedsObservation(t *testing.T) {
	// Without an observed configuration the audit-history rule must not
	// fire; otherwise unreached devices would always carry a finding.
	recs := Classify(Findings{AuditHistoryKnown: false, RecentAudit: false})
	if len(recs) != 0 {
		t.Errorf("Audit-history rule fired without observation: %+v", recs)
	}

	recs = Classify(Findings{AuditHistoryKnown: true, RecentAudit: false})
	if len(recs) != 1 || recs[0].Reference != "CA-7" {
		t.Errorf("Expected a single CA-7 recommendation, got %+v", recs)
	}
}

func TestHighestSeverity(t *testing.T) {
	if got := HighestSeverity(nil); got != "" {
		t.Errorf("Expected empty severity for empty list, got %q", got)
	}

	recs := []models.Recommendation{
		{Severity: models.SeverityMedium},
		{Severity: models.SeverityCritical},
		{Severity: models.SeverityHigh},
	}
	if got := HighestSeverity(recs); got != models.SeverityCritical {
		t.Errorf("Expected critical, got %q", got)
	}
}
