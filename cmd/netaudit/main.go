package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/zumanm1/device-audit-win-sub002/pkg/config"
	"github.com/zumanm1/device-audit-win-sub002/pkg/credentials"
	"github.com/zumanm1/device-audit-win-sub002/pkg/engine"
	"github.com/zumanm1/device-audit-win-sub002/pkg/inventory"
	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

const (
	appName    = "Network Device Audit Engine"
	appVersion = "1.0.0"
)

var log = logrus.New()

func main() {
	app := &cli.App{
		Name:    "netaudit",
		Usage:   "Audit network devices for connectivity health and security posture",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"vv"},
				Usage:   "Enable verbose output",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"NETAUDIT_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logLevel := c.String("log-level")
			if c.Bool("verbose") {
				logLevel = "debug"
			}
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				level = logrus.InfoLevel
			}
			log.SetLevel(level)

			log.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05",
			})

			return nil
		},
		Commands: []*cli.Command{
			commandRun(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// commandRun returns the audit run command configuration
func commandRun() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run the selected audits across the device inventory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "inventory",
				Aliases: []string{"i"},
				Usage:   "Device inventory `FILE` (JSON)",
			},
			&cli.StringFlag{
				Name:    "credentials",
				Usage:   "Credential store `FILE` (JSON)",
			},
			&cli.StringFlag{
				Name:    "audit",
				Aliases: []string{"a"},
				Value:   "all",
				Usage:   "Audit types to run: connectivity, security, telnet or all (comma separated)",
			},
			&cli.StringFlag{
				Name:  "jump-host",
				Usage: "Tunnel device sessions through this jump host (host:port)",
			},
			&cli.StringFlag{
				Name:  "jump-cred-ref",
				Usage: "Credential reference for the jump host",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   5,
				Usage:   "Number of concurrent device workers",
			},
			&cli.IntFlag{
				Name:  "attempts",
				Value: 2,
				Usage: "Connection attempts per device (transient errors only)",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Value: 10,
				Usage: "Timeout in seconds per connection attempt",
			},
			&cli.BoolFlag{
				Name:  "no-fallback",
				Usage: "Fail unreachable devices instead of substituting simulated data",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "report.json",
				Usage:   "Output `FILE` for the audit report (JSON)",
			},
		},
		Action: runAudit,
	}
}

func runAudit(c *cli.Context) error {
	displayBanner()

	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	devices, err := inventory.LoadFromFile(cfg.InventoryFile)
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}

	resolver, err := credentials.NewFileStore(cfg.CredentialsFile)
	if err != nil {
		return fmt.Errorf("loading credential store: %w", err)
	}

	// Stop scheduling new devices on Ctrl+C; in-flight pipelines finish
	// their current phase and their results are kept.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(cfg, resolver, log)
	eng.Version = appVersion

	start := time.Now()
	rep, outcome, err := eng.Run(ctx, devices)
	if err != nil {
		return err
	}

	printSummary(rep, outcome, time.Since(start))

	if cfg.OutputFile != "" {
		if err := config.WriteReportToFile(rep, cfg.OutputFile); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		log.Infof("Report written to %s", cfg.OutputFile)
	}

	return nil
}

// buildConfig layers CLI flags over the config file and the defaults
func buildConfig(c *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadConfigFromFile(path)
		if err != nil {
			log.Warnf("Failed to load config file, using defaults: %v", err)
		} else {
			cfg = loaded
		}
	}

	if v := c.String("inventory"); v != "" {
		cfg.InventoryFile = v
	}
	if v := c.String("credentials"); v != "" {
		cfg.CredentialsFile = v
	}
	if v := c.String("jump-host"); v != "" {
		cfg.JumpHost = v
	}
	if v := c.String("jump-cred-ref"); v != "" {
		cfg.JumpHostCredRef = v
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("attempts") {
		cfg.ConnectAttempts = c.Int("attempts")
	}
	if c.IsSet("timeout") {
		cfg.ConnectTimeout = time.Duration(c.Int("timeout")) * time.Second
	}
	if c.Bool("no-fallback") {
		cfg.AutoFallback = false
	}
	if v := c.String("output"); v != "" {
		cfg.OutputFile = v
	}

	if audit := c.String("audit"); audit != "" && audit != "all" {
		var types []models.AuditType
		for _, name := range strings.Split(audit, ",") {
			at, err := models.ParseAuditType(strings.TrimSpace(name))
			if err != nil {
				return cfg, err
			}
			types = append(types, at)
		}
		cfg.AuditTypes = types
	}

	return cfg, cfg.Validate()
}

// printSummary renders the per-device outcome table on the terminal
func printSummary(rep *models.Report, outcome engine.Outcome, elapsed time.Duration) {
	fmt.Println()
	color.Cyan("Audit run %s finished in %s", rep.ReportID, elapsed.Round(time.Millisecond))

	for _, res := range rep.Results {
		fmt.Printf("\n%s [%s]\n", color.New(color.Bold).Sprint(res.DeviceInfo.Hostname), res.AuditType)
		for _, name := range res.Phases.Names() {
			pr := res.Phases.Get(name)
			statusColor := color.New(color.FgGreen)
			switch pr.Status {
			case models.StatusFailed, models.StatusVulnerable:
				statusColor = color.New(color.FgRed)
			case models.StatusSkipped:
				statusColor = color.New(color.FgYellow)
			}
			fmt.Printf("  %-16s %s\n", name, statusColor.Sprint(pr.Status))
		}
		for _, rec := range res.Recommendations {
			color.Yellow("  -> [%s] %s (%s)", rec.Severity, rec.Text, rec.Reference)
		}
	}

	fmt.Println()
	s := rep.Summary
	line := fmt.Sprintf("Outcome: %s | devices: %d | audits: %d | phases: %d (success %d, failed %d, skipped %d, vulnerable %d, secure %d) | issues: %d",
		outcome, s.Devices, s.Audits, s.TotalPhases, s.Success, s.Failed, s.Skipped, s.Vulnerable, s.Secure, s.IssuesFound)
	switch outcome {
	case engine.OutcomeCompleted:
		color.Green("%s", line)
	case engine.OutcomeCompletedWithFailures:
		color.Yellow("%s", line)
	default:
		color.Red("%s", line)
	}
}

func displayBanner() {
	banner := `
╔══════════════════════════════════════════════════╗
║                                                  ║
║           Network Device Audit Engine            ║
║                                                  ║
║           Connect - Audit - Classify             ║
║                                                  ║
╚══════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}
