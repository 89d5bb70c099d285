package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Config holds the audit engine configuration
type Config struct {
	AuditTypes      []models.AuditType // Audit pipelines to run per device
	JumpHost        string             // Optional jump host address (host:port)
	JumpHostCredRef string             // Credential reference for the jump host
	AutoFallback    bool               // Substitute simulated sessions on connection failure
	Workers         int                // Number of concurrent device workers
	ConnectAttempts int                // Connection attempts per open (transient errors only)
	BackoffMin      time.Duration      // Minimum retry delay between attempts
	BackoffMax      time.Duration      // Maximum retry delay between attempts
	ConnectTimeout  time.Duration      // Timeout per connection attempt
	CommandTimeout  time.Duration      // Timeout per command execution
	PingTimeout     time.Duration      // Timeout for ICMP probes
	PortTimeout     time.Duration      // Timeout per TCP port probe
	ScanPorts       []int              // Ports probed by the connectivity audit
	OutputFile      string             // File to write the report to
	InventoryFile   string             // Device inventory file (JSON)
	CredentialsFile string             // Credential store file (JSON)
	Verbose         bool               // Enable verbose output
}

// DefaultConfig returns a configuration with conservative defaults
func DefaultConfig() Config {
	return Config{
		AuditTypes:      models.AllAuditTypes(),
		AutoFallback:    true,
		Workers:         5,
		ConnectAttempts: 2,
		BackoffMin:      1 * time.Second,
		BackoffMax:      5 * time.Second,
		ConnectTimeout:  10 * time.Second,
		CommandTimeout:  15 * time.Second,
		PingTimeout:     5 * time.Second,
		PortTimeout:     3 * time.Second,
		ScanPorts: []int{
			22,  // SSH
			23,  // Telnet
			80,  // HTTP
			161, // SNMP
			443, // HTTPS
			830, // NETCONF
		},
		InventoryFile:   "data/inventory.json",
		CredentialsFile: "data/credentials.json",
	}
}

// LoadConfigFromFile loads configuration from a JSON file, layered on top
// of the defaults
func LoadConfigFromFile(filePath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(data, &cfg)
	return cfg, err
}

// Validate checks the configuration for values the engine cannot run with
func (c Config) Validate() error {
	if len(c.AuditTypes) == 0 {
		return fmt.Errorf("no audit types selected")
	}
	for _, at := range c.AuditTypes {
		if _, err := models.ParseAuditType(string(at)); err != nil {
			return err
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Workers)
	}
	if c.ConnectAttempts < 1 {
		return fmt.Errorf("connect attempts must be at least 1, got %d", c.ConnectAttempts)
	}
	return nil
}

// WriteReportToFile writes a finished report to a JSON file
func WriteReportToFile(report *models.Report, filePath string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}
