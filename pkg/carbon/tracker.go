package carbon

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Approximate conversion factor from kg CO2eq to kWh consumed.
	kwhPerKgCO2 = 0.6
	// One kg CO2eq offsets roughly this many tree-days of absorption.
	treeDaysPerKg = 16.5

	minMeasurement = 0.001
	maxMeasurement = 0.1
)

// Tracker records simulated carbon emissions for one project. Measurements
// are drawn at Stop time; a real deployment would wire an energy meter here.
type Tracker struct {
	mu           sync.Mutex
	projectName  string
	tracking     bool
	measurements []float64
	total        float64
	rng          *rand.Rand
	logger       *logrus.Logger
}

// NewTracker creates a carbon tracker for the named project.
func NewTracker(projectName string, logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{
		projectName: projectName,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger,
	}
}

// ProjectName returns the project this tracker was initialized for.
func (t *Tracker) ProjectName() string {
	return t.projectName
}

// Start begins a measurement window.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tracking {
		return fmt.Errorf("carbon tracking already active for %s", t.projectName)
	}
	t.tracking = true
	t.logger.Info("Carbon emission tracking started")
	return nil
}

// Stop closes the measurement window and records its emissions in kg CO2eq.
func (t *Tracker) Stop() (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.tracking {
		return 0, fmt.Errorf("carbon tracking is not active")
	}

	emissions := minMeasurement + t.rng.Float64()*(maxMeasurement-minMeasurement)
	t.tracking = false
	t.measurements = append(t.measurements, emissions)
	t.total += emissions

	t.logger.Infof("Carbon emission tracking stopped. Measured: %.4f kg CO2eq", emissions)
	return emissions, nil
}

// Tracking reports whether a measurement window is open.
func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// TotalEmissions returns the emissions accumulated across all measurements.
func (t *Tracker) TotalEmissions() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Measurements returns a copy of all recorded measurements.
func (t *Tracker) Measurements() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.measurements))
	copy(out, t.measurements)
	return out
}

// Strategy describes one emissions mitigation option.
type Strategy struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	PotentialSavings string `json:"potential_savings"`
	Difficulty       string `json:"implementation_difficulty"`
}

// Report summarizes the tracked emissions and their equivalents.
type Report struct {
	ProjectName          string     `json:"project_name"`
	TotalEmissionsKg     float64    `json:"total_emissions_kg"`
	EnergyConsumptionKWh float64    `json:"energy_consumption_kwh"`
	Measurements         []float64  `json:"measurements"`
	TreesEquivalent      float64    `json:"trees_equivalent"`
	MitigationStrategies []Strategy `json:"mitigation_strategies"`
}

// Report generates an emissions report from the measurements so far.
func (t *Tracker) Report() *Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	measurements := make([]float64, len(t.measurements))
	copy(measurements, t.measurements)

	return &Report{
		ProjectName:          t.projectName,
		TotalEmissionsKg:     t.total,
		EnergyConsumptionKWh: t.total / kwhPerKgCO2,
		Measurements:         measurements,
		TreesEquivalent:      t.total * treeDaysPerKg,
		MitigationStrategies: MitigationStrategies(),
	}
}

// MitigationStrategies returns the built-in set of emissions reduction options.
func MitigationStrategies() []Strategy {
	return []Strategy{
		{
			Name:             "Optimize AI Model Size",
			Description:      "Reduce model parameters and optimize architecture",
			PotentialSavings: "20-60% reduction in emissions",
			Difficulty:       "Medium",
		},
		{
			Name:             "Implement Model Distillation",
			Description:      "Create smaller, efficient versions of larger models",
			PotentialSavings: "40-80% reduction in emissions",
			Difficulty:       "High",
		},
		{
			Name:             "Use Efficient Hardware",
			Description:      "Deploy on energy-efficient hardware (e.g., specialized AI chips)",
			PotentialSavings: "30-50% reduction in emissions",
			Difficulty:       "Medium",
		},
	}
}
