package pipeline

import (
	"strconv"
	"strings"

	"github.com/zumanm1/device-audit-win-sub002/pkg/risk"
)

// Password values considered weak or vendor-default
var weakPasswords = map[string]bool{
	"admin":    true,
	"cisco":    true,
	"cisco123": true,
	"password": true,
	"123456":   true,
	"default":  true,
	"letmein":  true,
}

// Account names that indicate leftover or unused logins
var unusedAccountNames = map[string]bool{
	"backup": true,
	"guest":  true,
	"old":    true,
	"temp":   true,
	"test":   true,
	"unused": true,
}

// Service lines that should not be enabled on an audited device
var unnecessaryServices = []string{
	"service tcp-small-servers",
	"service udp-small-servers",
	"service finger",
	"ip http server",
}

// ParseRunningConfig extracts security findings from a device running
// configuration. The parser understands the line/transport/access-class
// blocks of IOS-style configurations; unknown lines are ignored.
func ParseRunningConfig(text string) risk.Findings {
	f := risk.Findings{AuditHistoryKnown: true}

	block := "" // "vty", "aux" or ""
	blockLines := 0

	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		indented := strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")

		if !indented {
			block = ""
			switch {
			case strings.HasPrefix(trimmed, "line vty"):
				block = "vty"
				blockLines = vtyLineCount(trimmed)
				f.VTYLines += blockLines
			case strings.HasPrefix(trimmed, "line aux"):
				block = "aux"
			case strings.HasPrefix(trimmed, "username "):
				parseUsername(trimmed, &f)
			case strings.HasPrefix(trimmed, "archive"):
				f.RecentAudit = true
			default:
				for _, svc := range unnecessaryServices {
					if trimmed == svc {
						f.UnnecessaryServices = append(f.UnnecessaryServices, svc)
					}
				}
			}
			continue
		}

		switch block {
		case "vty":
			if trimmed == "transport input telnet" || trimmed == "transport input all" {
				f.TelnetEnabled = true
			}
			if strings.HasPrefix(trimmed, "access-class") {
				f.ACLApplied = true
			}
		case "aux":
			if trimmed == "transport input telnet" || trimmed == "transport input all" {
				f.AuxTelnet = true
			}
		}
	}

	return f
}

// vtyLineCount derives the number of terminal lines from "line vty A B"
func vtyLineCount(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 4 {
		first, err1 := strconv.Atoi(fields[2])
		last, err2 := strconv.Atoi(fields[3])
		if err1 == nil && err2 == nil && last >= first {
			return last - first + 1
		}
	}
	return 1
}

// parseUsername inspects one "username ..." line for weak passwords and
// leftover accounts
func parseUsername(s string, f *risk.Findings) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return
	}
	name := fields[1]
	if unusedAccountNames[strings.ToLower(name)] {
		f.UnusedAccounts = append(f.UnusedAccounts, name)
	}
	for i, field := range fields {
		if field == "password" || field == "secret" {
			// Skip an optional encryption-type digit before the value
			value := ""
			if i+2 < len(fields) && (fields[i+1] == "0" || fields[i+1] == "7") {
				value = fields[i+2]
			} else if i+1 < len(fields) {
				value = fields[i+1]
			}
			if weakPasswords[strings.ToLower(value)] {
				f.WeakPasswords = append(f.WeakPasswords, name)
			}
			return
		}
	}
}
