package models

import (
	"time"
)

// TargetType identifies the kind of AI system under test.
type TargetType string

const (
	TargetLLM     TargetType = "LLM"
	TargetAPI     TargetType = "API"
	TargetWebApp  TargetType = "WebApp"
	TargetMLModel TargetType = "MLModel"
	TargetOther   TargetType = "Other"
)

// Valid reports whether t is one of the known target types.
func (t TargetType) Valid() bool {
	switch t {
	case TargetLLM, TargetAPI, TargetWebApp, TargetMLModel, TargetOther:
		return true
	}
	return false
}

// Target represents a configured AI system that assessments run against.
type Target struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Endpoint    string     `json:"endpoint"`
	Type        TargetType `json:"type"`
	APIKey      string     `json:"-"`
	Description string     `json:"description,omitempty"`
	AddedAt     time.Time  `json:"added_at"`
}

// Category groups test vectors by the framework they originate from.
type Category string

const (
	CategoryOWASP    Category = "owasp"
	CategoryNIST     Category = "nist"
	CategoryFairness Category = "fairness"
	CategoryPrivacy  Category = "privacy"
	CategoryExploit  Category = "exploit"
)

// Severity levels
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultSeverityWeights is the risk contribution of one finding per severity.
func DefaultSeverityWeights() map[Severity]int {
	return map[Severity]int{
		SeverityLow:      1,
		SeverityMedium:   2,
		SeverityHigh:     3,
		SeverityCritical: 5,
	}
}

// TestVector is a static catalog entry describing one category of check.
type TestVector struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
}

// Finding represents a single simulated vulnerability discovered during a run.
// Findings are append-only: once recorded they are never mutated.
type Finding struct {
	ID         string    `json:"id"`
	TestVector string    `json:"test_vector"`
	TestName   string    `json:"test_name"`
	Severity   Severity  `json:"severity"`
	Details    string    `json:"details"`
	Timestamp  time.Time `json:"timestamp"`
}

// RunStatus tags how an assessment run ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// Summary aggregates the headline numbers of one assessment run.
type Summary struct {
	TotalTests           int `json:"total_tests"`
	VulnerabilitiesFound int `json:"vulnerabilities_found"`
	RiskScore            int `json:"risk_score"`
}

// RunResult is the complete output of one assessment run. A cancelled run
// still carries the findings recorded before cancellation.
type RunResult struct {
	Summary         Summary   `json:"summary"`
	Vulnerabilities []Finding `json:"vulnerabilities"`
	Status          RunStatus `json:"status"`
	TargetName      string    `json:"target"`
	Timestamp       time.Time `json:"timestamp"`
}

// CountBySeverity returns the number of findings per severity level.
func (r *RunResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, f := range r.Vulnerabilities {
		counts[f.Severity]++
	}
	return counts
}

// RunError is the structured payload stored when a run fails unexpectedly.
type RunError struct {
	Message   string    `json:"error_message"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Insight is one prompt/response record imported for review.
type Insight struct {
	User     string `json:"user"`
	Category string `json:"category"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}
