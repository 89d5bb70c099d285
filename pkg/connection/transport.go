package connection

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Transport executes commands over one open channel to a device
type Transport interface {
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

// Dialer opens a transport to one device
type Dialer interface {
	Dial(ctx context.Context, device models.Device, creds models.Credentials) (Transport, error)
}

// Session is an open transport bound to one device for the duration of a
// run. A session is owned by the worker processing its device.
type Session struct {
	Device    models.Device
	Simulated bool
	transport Transport
}

// NewSession wraps a transport for a device
func NewSession(device models.Device, transport Transport, simulated bool) *Session {
	return &Session{Device: device, Simulated: simulated, transport: transport}
}

// Run executes one command on the session
func (s *Session) Run(ctx context.Context, command string) (string, error) {
	return s.transport.Run(ctx, command)
}

// Close tears down the underlying transport
func (s *Session) Close() error {
	return s.transport.Close()
}

// SSHDialer opens SSH transports, optionally tunneled through a jump host.
// The jump host is authenticated at most once per run; the authenticated
// client is reused for nested channels to every target routed through it.
type SSHDialer struct {
	JumpAddr       string
	JumpCreds      models.Credentials
	ConnectTimeout time.Duration
	CommandTimeout time.Duration

	jumpOnce   sync.Once
	jumpClient *ssh.Client
	jumpErr    error
}

// NewSSHDialer builds a dialer with the given per-attempt timeouts
func NewSSHDialer(jumpAddr string, jumpCreds models.Credentials, connectTimeout, commandTimeout time.Duration) *SSHDialer {
	return &SSHDialer{
		JumpAddr:       jumpAddr,
		JumpCreds:      jumpCreds,
		ConnectTimeout: connectTimeout,
		CommandTimeout: commandTimeout,
	}
}

func clientConfig(creds models.Credentials, timeout time.Duration) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = creds.Password
				}
				return answers, nil
			}),
		},
		// Device host keys are not pinned; the inventory is trusted.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, "22")
	}
	return addr
}

// Dial opens an SSH transport to the device, through the jump host when one
// is configured
func (d *SSHDialer) Dial(ctx context.Context, device models.Device, creds models.Credentials) (Transport, error) {
	addr := withDefaultPort(device.Address)
	cfg := clientConfig(creds, d.ConnectTimeout)

	if d.JumpAddr == "" {
		client, err := ssh.Dial("tcp", addr, cfg)
		if err != nil {
			return nil, Classify(addr, err)
		}
		return &sshTransport{client: client, timeout: d.CommandTimeout}, nil
	}

	jump, err := d.jump()
	if err != nil {
		// A jump host authentication failure is fatal for every device
		// routed through it; never fall through to a direct connection.
		return nil, err
	}

	conn, err := jump.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, Classify(addr, err)
	}
	nc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, Classify(addr, err)
	}
	return &sshTransport{client: ssh.NewClient(nc, chans, reqs), timeout: d.CommandTimeout}, nil
}

// jump authenticates to the jump host exactly once and latches the outcome
func (d *SSHDialer) jump() (*ssh.Client, error) {
	d.jumpOnce.Do(func() {
		addr := withDefaultPort(d.JumpAddr)
		client, err := ssh.Dial("tcp", addr, clientConfig(d.JumpCreds, d.ConnectTimeout))
		if err != nil {
			d.jumpErr = Classify(addr, err)
			return
		}
		d.jumpClient = client
	})
	return d.jumpClient, d.jumpErr
}

// Close tears down the jump host client if one was established
func (d *SSHDialer) Close() error {
	if d.jumpClient != nil {
		return d.jumpClient.Close()
	}
	return nil
}

// sshTransport runs each command in a fresh SSH session on a shared client
type sshTransport struct {
	client  *ssh.Client
	timeout time.Duration
}

func (t *sshTransport) Run(ctx context.Context, command string) (string, error) {
	sess, err := t.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening command session: %w", err)
	}
	defer sess.Close()

	rctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case <-rctx.Done():
		sess.Close()
		return "", &ConnError{Kind: KindTimeout, Host: t.client.RemoteAddr().String(),
			Err: fmt.Errorf("command %q timed out", command)}
	case res := <-done:
		if res.err != nil {
			return string(res.out), fmt.Errorf("command %q failed: %w", command, res.err)
		}
		return string(res.out), nil
	}
}

func (t *sshTransport) Close() error {
	return t.client.Close()
}
