package fallback

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Profile is the fixed synthetic posture of one device in simulated mode.
// It is derived from the device hostname alone, so the same device yields
// the same profile on every run and every phase.
type Profile struct {
	TelnetEnabled  bool
	VTYLines       int
	AuxTelnet      bool
	ACLApplied     bool
	Port23Open     bool
	WeakPasswords  []string
	UnusedAccounts []string
	ExtraServices  []string
	RecentAudit    bool
	OpenPorts      []int
	LatencyMs      int
	OSVersion      string
}

// ProfileFor derives the deterministic profile for a device
func ProfileFor(device models.Device) Profile {
	h := fnv.New64a()
	h.Write([]byte(device.Hostname))
	seed := h.Sum64()

	p := Profile{
		TelnetEnabled: seed%100 < 40,
		VTYLines:      2 + int(seed%4),
		ACLApplied:    seed%5 == 0,
		RecentAudit:   seed%3 == 0,
		LatencyMs:     1 + int(seed%20),
		OSVersion:     fmt.Sprintf("15.%d(%d)M", seed%3+1, seed%7+1),
		OpenPorts:     []int{22},
	}
	p.AuxTelnet = p.TelnetEnabled && seed%2 == 0
	p.Port23Open = p.TelnetEnabled
	if p.TelnetEnabled {
		p.OpenPorts = append(p.OpenPorts, 23)
	}
	if seed%4 == 0 {
		p.OpenPorts = append(p.OpenPorts, 80)
		p.ExtraServices = append(p.ExtraServices, "ip http server")
	}
	if seed%7 == 0 {
		p.ExtraServices = append(p.ExtraServices, "service tcp-small-servers")
	}
	if seed%6 == 0 {
		p.WeakPasswords = append(p.WeakPasswords, "admin")
	}
	if seed%5 == 1 {
		p.UnusedAccounts = append(p.UnusedAccounts, "backup")
	}
	return p
}

// RunningConfig renders the profile as a device configuration, so
// simulated sessions answer the same commands a real session would
func (p Profile) RunningConfig(device models.Device) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hostname %s\n!\n", device.Hostname)
	fmt.Fprintf(&b, "username admin privilege 15 password 0 S3cure!Pass\n")
	for _, weak := range p.WeakPasswords {
		fmt.Fprintf(&b, "username operator password 0 %s\n", weak)
	}
	for _, acct := range p.UnusedAccounts {
		fmt.Fprintf(&b, "username %s password 0 ChangeMe123\n", acct)
	}
	b.WriteString("!\n")
	for _, svc := range p.ExtraServices {
		fmt.Fprintf(&b, "%s\n", svc)
	}
	b.WriteString("!\n")
	fmt.Fprintf(&b, "line vty 0 %d\n", p.VTYLines-1)
	if p.TelnetEnabled {
		b.WriteString(" transport input telnet\n")
	} else {
		b.WriteString(" transport input ssh\n")
	}
	if p.ACLApplied {
		b.WriteString(" access-class 10 in\n")
	}
	b.WriteString(" login local\n")
	b.WriteString("line aux 0\n")
	if p.AuxTelnet {
		b.WriteString(" transport input telnet\n")
	} else {
		b.WriteString(" no exec\n")
	}
	b.WriteString("!\n")
	if p.RecentAudit {
		b.WriteString("archive\n log config\n  logging enable\n")
	}
	b.WriteString("end\n")
	return b.String()
}

// simTransport answers session commands from a profile without any I/O
type simTransport struct {
	device  models.Device
	profile Profile
}

func (t *simTransport) Run(_ context.Context, command string) (string, error) {
	switch {
	case strings.Contains(command, "running-config"):
		return t.profile.RunningConfig(t.device), nil
	case strings.Contains(command, "show version"):
		return fmt.Sprintf("%s Software, Version %s\nuptime is 12 weeks\n",
			t.device.Hostname, t.profile.OSVersion), nil
	case strings.Contains(command, "show privilege"):
		return "Current privilege level is 15\n", nil
	default:
		return fmt.Sprintf("%s#%s\n", t.device.Hostname, command), nil
	}
}

func (t *simTransport) Close() error {
	return nil
}
