package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/impactguard/impactguard/pkg/models"
)

// Config holds the application configuration
type Config struct {
	DashboardPort   string // Port for the web dashboard
	Verbose         bool   // Enable verbose output
	DatabasePath    string // Path to the test vector catalog directory
	ExportDirectory string // Directory to save exported reports
	EnableExports   bool   // Enable export endpoints

	// Assessment runner policy. The probability and the weight table are the
	// only real "policy" in the simulated runner, so they are configuration
	// rather than hidden constants.
	RunnerSteps        int                     // Number of simulated steps per run
	FindingProbability float64                 // Chance of a finding per step
	SeverityWeights    map[models.Severity]int // Risk contribution per severity
	VariantsPerVector  int                     // Reported test variations per vector
	ObserverInterval   time.Duration           // Poll interval for progress rendering

	// Citation lookups
	CrossRefBaseURL    string        // Base URL of the CrossRef API
	CitationTimeout    time.Duration // Per-request timeout for citation lookups
	CitationRetries    int           // Attempts for DOI/URL resolvability checks
	CitationRate       float64       // Outbound requests per second to CrossRef
	CitationStrictness int           // Essential fields a search result may be missing

	SessionMaxIdle time.Duration // Idle time before a session is purged
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() Config {
	return Config{
		DashboardPort:      "8080",
		DatabasePath:       "data/db",
		ExportDirectory:    "data/reports",
		EnableExports:      true,
		RunnerSteps:        100,
		FindingProbability: 0.20,
		SeverityWeights:    models.DefaultSeverityWeights(),
		VariantsPerVector:  10,
		ObserverInterval:   100 * time.Millisecond,
		CrossRefBaseURL:    "https://api.crossref.org",
		CitationTimeout:    10 * time.Second,
		CitationRetries:    3,
		CitationRate:       2,
		CitationStrictness: 1,
		SessionMaxIdle:     2 * time.Hour,
	}
}

// LoadConfigFromFile loads configuration from a JSON file
func LoadConfigFromFile(filePath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(data, &cfg)
	return cfg, err
}
