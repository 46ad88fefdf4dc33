package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/impactguard/impactguard/pkg/api"
	"github.com/impactguard/impactguard/pkg/assessment"
	"github.com/impactguard/impactguard/pkg/catalog"
	"github.com/impactguard/impactguard/pkg/config"
	"github.com/impactguard/impactguard/pkg/models"
)

const (
	appName    = "ImpactGuard"
	appVersion = "1.0.0"
)

var log = logrus.New()

func main() {
	ensureAppDirectories()

	app := &cli.App{
		Name:        "impactguard",
		Usage:       "AI Security & Sustainability Assessment Hub",
		Version:     appVersion,
		HideVersion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"ver"},
				Usage:   "Print version information",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"IMPACTGUARD_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("version") {
				fmt.Printf("%s v%s\n", appName, appVersion)
				os.Exit(0)
			}

			level, err := logrus.ParseLevel(c.String("log-level"))
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
			commandServe(),
			commandAssess(),
			commandVectors(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// ensureAppDirectories creates necessary directories for the application
func ensureAppDirectories() {
	dirs := []string{
		"data",
		"data/db",
		"data/reports",
		"data/logs",
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("Error creating directory %s: %v\n", dir, err)
		}
	}
}

func loadConfig(c *cli.Context) config.Config {
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadConfigFromFile(path)
		if err != nil {
			log.Warnf("Failed to load config from %s: %v", path, err)
		}
		return cfg
	}
	return config.DefaultConfig()
}

// commandServe returns the dashboard command configuration
func commandServe() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   "8080",
				Usage:   "Port to run the dashboard on",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			if c.IsSet("port") {
				cfg.DashboardPort = c.String("port")
			}

			server, err := api.NewServer(cfg, log)
			if err != nil {
				return err
			}

			color.Green("Starting %s dashboard on http://localhost:%s", appName, cfg.DashboardPort)
			color.Yellow("Press Ctrl+C to stop")

			return server.Start()
		},
	}
}

// commandAssess returns the one-shot assessment command configuration
func commandAssess() *cli.Command {
	return &cli.Command{
		Name:    "assess",
		Aliases: []string{"a"},
		Usage:   "Run a simulated assessment against a target from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Aliases:  []string{"n"},
				Usage:    "Target name",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Value: "http://localhost",
				Usage: "Target endpoint URL",
			},
			&cli.Float64Flag{
				Name:    "duration",
				Aliases: []string{"d"},
				Value:   30,
				Usage:   "Assessment duration in seconds",
			},
			&cli.Float64Flag{
				Name:  "probability",
				Usage: "Per-step finding probability (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			if c.IsSet("probability") {
				cfg.FindingProbability = c.Float64("probability")
			}

			cat, err := catalog.New(cfg)
			if err != nil {
				return err
			}

			target := models.Target{
				Name:     c.String("name"),
				Endpoint: c.String("endpoint"),
				Type:     models.TargetLLM,
			}
			duration := time.Duration(c.Float64("duration") * float64(time.Second))

			opts := assessment.OptionsFromConfig(cfg)
			opts.Logger = log
			runner := assessment.NewRunner(opts)

			events, err := runner.Start(context.Background(), target, cat.Vectors(), duration)
			if err != nil {
				return err
			}

			color.Cyan("Assessing %s with %d test vectors over %s", target.Name, len(cat.Vectors()), duration)

			var (
				mu     sync.Mutex
				snap   = assessment.Snapshot{Running: true}
				result *models.RunResult
				runErr *models.RunError
			)

			go func() {
				for ev := range events {
					switch ev.Type {
					case assessment.EventProgress:
						mu.Lock()
						snap.Progress = ev.Progress
						mu.Unlock()
					case assessment.EventFinding:
						mu.Lock()
						snap.VulnerabilitiesFound++
						mu.Unlock()
						fmt.Println()
						printFinding(ev.Finding)
					case assessment.EventDone:
						mu.Lock()
						result = ev.Result
						snap.Running = false
						mu.Unlock()
					case assessment.EventError:
						mu.Lock()
						runErr = ev.Err
						snap.Running = false
						mu.Unlock()
					}
				}
			}()

			observer := assessment.NewObserver(cfg.ObserverInterval, func(s assessment.Snapshot) {
				fmt.Printf("\rProgress: %3.0f%% | Findings: %d", s.Progress*100, s.VulnerabilitiesFound)
			})
			observer.Watch(context.Background(), func() assessment.Snapshot {
				mu.Lock()
				defer mu.Unlock()
				return snap
			})
			fmt.Println()

			if runErr != nil {
				return fmt.Errorf("%s", runErr.Message)
			}
			if result != nil {
				printSummary(result)
			}
			return nil
		},
	}
}

func printFinding(f *models.Finding) {
	level := color.New(color.FgYellow)
	switch f.Severity {
	case models.SeverityCritical:
		level = color.New(color.FgRed, color.Bold)
	case models.SeverityHigh:
		level = color.New(color.FgRed)
	case models.SeverityLow:
		level = color.New(color.FgCyan)
	}
	level.Printf("  %s [%s] %s\n", f.ID, f.Severity, f.TestName)
}

func printSummary(r *models.RunResult) {
	color.Green("\nAssessment %s", r.Status)
	fmt.Printf("  Target:          %s\n", r.TargetName)
	fmt.Printf("  Tests run:       %d\n", r.Summary.TotalTests)
	fmt.Printf("  Vulnerabilities: %d\n", r.Summary.VulnerabilitiesFound)
	fmt.Printf("  Risk score:      %d\n", r.Summary.RiskScore)

	counts := r.CountBySeverity()
	for _, sev := range []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		if counts[sev] > 0 {
			fmt.Printf("    %-8s %d\n", sev, counts[sev])
		}
	}
}

// commandVectors returns the catalog listing command configuration
func commandVectors() *cli.Command {
	return &cli.Command{
		Name:  "vectors",
		Usage: "List the test vector catalog",
		Action: func(c *cli.Context) error {
			cat, err := catalog.New(loadConfig(c))
			if err != nil {
				return err
			}

			for category, vectors := range cat.ByCategory() {
				color.Cyan("%s", category)
				for _, tv := range vectors {
					fmt.Printf("  %-25s %-30s %s\n", tv.ID, tv.Name, tv.Severity)
				}
			}
			return nil
		},
	}
}
