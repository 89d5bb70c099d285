// Package risk maps structured audit findings to severity-ranked
// recommendations. Classification is a pure function over a fixed, ordered
// rule table: identical findings produce an identical list, every
// invocation.
package risk

import (
	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Findings is the structured device posture assembled by the audit phases.
// The zero value represents a device for which nothing was observed.
type Findings struct {
	TelnetEnabled       bool
	VTYLines            int
	AuxTelnet           bool
	ACLApplied          bool
	Port23Accessible    bool
	WeakPasswords       []string
	UnusedAccounts      []string
	UnnecessaryServices []string
	AuditHistoryKnown   bool
	RecentAudit         bool
}

type rule struct {
	match     func(Findings) bool
	text      string
	severity  string
	reference string
}

// The rule table is evaluated strictly in order; each matching rule
// contributes one recommendation.
var rules = []rule{
	{
		match:     func(f Findings) bool { return f.TelnetEnabled },
		text:      "Disable telnet and use SSH for all device management sessions",
		severity:  models.SeverityCritical,
		reference: "AC-17, IA-2",
	},
	{
		match:     func(f Findings) bool { return f.TelnetEnabled && f.VTYLines > 0 && !f.ACLApplied },
		text:      "Apply an access-class ACL to restrict VTY line access",
		severity:  models.SeverityHigh,
		reference: "AC-3",
	},
	{
		match:     func(f Findings) bool { return f.AuxTelnet },
		text:      "Disable telnet on the AUX line",
		severity:  models.SeverityCritical,
		reference: "AC-17",
	},
	{
		match:     func(f Findings) bool { return f.Port23Accessible },
		text:      "Block inbound TCP port 23 at the network boundary",
		severity:  models.SeverityCritical,
		reference: "SC-7",
	},
	{
		match:     func(f Findings) bool { return len(f.WeakPasswords) > 0 },
		text:      "Replace weak or default passwords on all local accounts",
		severity:  models.SeverityCritical,
		reference: "IA-5",
	},
	{
		match:     func(f Findings) bool { return len(f.UnusedAccounts) > 0 },
		text:      "Remove unused local accounts",
		severity:  models.SeverityMedium,
		reference: "AC-2",
	},
	{
		match:     func(f Findings) bool { return len(f.UnnecessaryServices) > 0 },
		text:      "Disable unnecessary services on the device",
		severity:  models.SeverityHigh,
		reference: "CM-7",
	},
	{
		match:     func(f Findings) bool { return f.AuditHistoryKnown && !f.RecentAudit },
		text:      "Enable configuration archiving and change logging for audit history",
		severity:  models.SeverityMedium,
		reference: "CA-7",
	},
}

// Classify evaluates the findings against the rule table and returns the
// matching recommendations in table order
func Classify(f Findings) []models.Recommendation {
	recs := []models.Recommendation{}
	for _, r := range rules {
		if r.match(f) {
			recs = append(recs, models.Recommendation{
				Text:      r.text,
				Severity:  r.severity,
				Reference: r.reference,
			})
		}
	}
	return recs
}

// HighestSeverity returns the most severe level present in a
// recommendation list, or an empty string for an empty list
func HighestSeverity(recs []models.Recommendation) string {
	rank := map[string]int{
		models.SeverityLow:      1,
		models.SeverityMedium:   2,
		models.SeverityHigh:     3,
		models.SeverityCritical: 4,
	}
	best := ""
	for _, r := range recs {
		if rank[r.Severity] > rank[best] {
			best = r.Severity
		}
	}
	return best
}
