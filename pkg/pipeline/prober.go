package pipeline

import (
	"context"
	"net"
	"strconv"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// PingStats summarizes one ICMP probe
type PingStats struct {
	PacketsSent int
	PacketsRecv int
	AvgRtt      time.Duration
}

// Prober performs the raw reachability checks the connectivity phases are
// built on. Injected so tests can run pipelines without touching the
// network.
type Prober interface {
	Ping(ctx context.Context, addr string) (PingStats, error)
	PortOpen(ctx context.Context, addr string, port int) bool
	Lookup(ctx context.Context, host string) ([]string, error)
	Reverse(ctx context.Context, addr string) ([]string, error)
}

// NetProber probes the real network
type NetProber struct {
	PingTimeout time.Duration
	PortTimeout time.Duration
}

// Ping sends one ICMP echo request and waits for the reply
func (p *NetProber) Ping(ctx context.Context, addr string) (PingStats, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return PingStats{}, err
	}
	pinger.Count = 1
	pinger.Timeout = p.PingTimeout
	// Unprivileged UDP ping so the auditor does not require raw sockets
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return PingStats{}, err
	}
	stats := pinger.Statistics()
	return PingStats{
		PacketsSent: stats.PacketsSent,
		PacketsRecv: stats.PacketsRecv,
		AvgRtt:      stats.AvgRtt,
	}, nil
}

// PortOpen attempts a TCP connection to addr:port within the port timeout
func (p *NetProber) PortOpen(ctx context.Context, addr string, port int) bool {
	d := net.Dialer{Timeout: p.PortTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Lookup resolves a hostname to addresses
func (p *NetProber) Lookup(ctx context.Context, host string) ([]string, error) {
	lctx, cancel := context.WithTimeout(ctx, p.PortTimeout)
	defer cancel()
	return net.DefaultResolver.LookupHost(lctx, host)
}

// Reverse resolves an address to PTR names
func (p *NetProber) Reverse(ctx context.Context, addr string) ([]string, error) {
	lctx, cancel := context.WithTimeout(ctx, p.PortTimeout)
	defer cancel()
	return net.DefaultResolver.LookupAddr(lctx, addr)
}
