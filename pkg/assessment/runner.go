package assessment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/impactguard/impactguard/pkg/config"
	"github.com/impactguard/impactguard/pkg/models"
)

// EventType classifies runner events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventFinding  EventType = "finding"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one item on a run's event stream. The runner is the only writer;
// consumers drain the stream and never touch runner state directly.
type Event struct {
	Type     EventType
	Progress float64
	Finding  *models.Finding
	Result   *models.RunResult
	Err      *models.RunError
}

// Options controls the simulated assessment. Probability and the severity
// weight table are the policy of this subsystem and are always injectable.
type Options struct {
	Steps              int
	FindingProbability float64
	SeverityWeights    map[models.Severity]int
	VariantsPerVector  int
	Rand               *rand.Rand
	Logger             *logrus.Logger
}

// OptionsFromConfig builds runner options from the application configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Steps:              cfg.RunnerSteps,
		FindingProbability: cfg.FindingProbability,
		SeverityWeights:    cfg.SeverityWeights,
		VariantsPerVector:  cfg.VariantsPerVector,
	}
}

// Runner simulates vulnerability assessments against a target. A run always
// executes a fixed number of steps; only the per-step sleep scales with the
// requested duration.
type Runner struct {
	opts   Options
	logger *logrus.Logger
}

// NewRunner creates a runner, filling unset options with defaults.
func NewRunner(opts Options) *Runner {
	if opts.Steps <= 0 {
		opts.Steps = 100
	}
	if opts.FindingProbability == 0 {
		opts.FindingProbability = 0.20
	}
	if opts.SeverityWeights == nil {
		opts.SeverityWeights = models.DefaultSeverityWeights()
	}
	if opts.VariantsPerVector <= 0 {
		opts.VariantsPerVector = 10
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{opts: opts, logger: logger}
}

func validateInputs(target models.Target, vectors []models.TestVector, duration time.Duration) error {
	if target.Name == "" {
		return fmt.Errorf("target name must not be empty")
	}
	if len(vectors) == 0 {
		return fmt.Errorf("at least one test vector is required")
	}
	if duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

// Run executes an assessment synchronously. Cancelling the context ends the
// run early; the returned result is then tagged cancelled and keeps every
// finding recorded up to that point.
func (r *Runner) Run(ctx context.Context, target models.Target, vectors []models.TestVector, duration time.Duration) (*models.RunResult, error) {
	if err := validateInputs(target, vectors, duration); err != nil {
		return nil, err
	}
	return r.run(ctx, target, vectors, duration, nil), nil
}

// Start executes an assessment in the background and returns its event
// stream. The channel is buffered to hold a full run, so a slow consumer
// never blocks the runner. The stream is closed after the final done event.
func (r *Runner) Start(ctx context.Context, target models.Target, vectors []models.TestVector, duration time.Duration) (<-chan Event, error) {
	if err := validateInputs(target, vectors, duration); err != nil {
		return nil, err
	}

	// Worst case one progress and one finding event per step, plus done.
	events := make(chan Event, 2*r.opts.Steps+1)
	go func() {
		defer close(events)
		defer func() {
			if p := recover(); p != nil {
				r.logger.Errorf("assessment run panicked: %v", p)
				events <- Event{Type: EventError, Err: &models.RunError{
					Message:   fmt.Sprintf("Test execution failed: %v", p),
					Timestamp: time.Now(),
				}}
			}
		}()
		result := r.run(ctx, target, vectors, duration, events)
		events <- Event{Type: EventDone, Result: result}
	}()
	return events, nil
}

func (r *Runner) run(ctx context.Context, target models.Target, vectors []models.TestVector, duration time.Duration, events chan<- Event) *models.RunResult {
	r.logger.Infof("Starting assessment against %s with %d test vectors", target.Name, len(vectors))

	result := &models.RunResult{
		Status:          models.RunCompleted,
		TargetName:      target.Name,
		Vulnerabilities: []models.Finding{},
	}
	riskScore := 0

	stepSleep := duration / time.Duration(r.opts.Steps)
	timer := time.NewTimer(stepSleep)
	defer timer.Stop()

loop:
	for i := 0; i < r.opts.Steps; i++ {
		// Cancellation is cooperative: checked before each step's sleep and
		// again while sleeping, so worst-case latency is one step interval.
		select {
		case <-ctx.Done():
			result.Status = models.RunCancelled
			break loop
		default:
		}

		timer.Reset(stepSleep)
		select {
		case <-ctx.Done():
			result.Status = models.RunCancelled
			break loop
		case <-timer.C:
		}

		progress := float64(i+1) / float64(r.opts.Steps)
		if events != nil {
			events <- Event{Type: EventProgress, Progress: progress}
		}

		if r.opts.Rand.Float64() < r.opts.FindingProbability {
			vector := vectors[r.opts.Rand.Intn(len(vectors))]
			finding := models.Finding{
				ID:         fmt.Sprintf("VULN-%d", len(result.Vulnerabilities)+1),
				TestVector: vector.ID,
				TestName:   vector.Name,
				Severity:   vector.Severity,
				Details:    fmt.Sprintf("Simulated vulnerability found in %s using %s test vector.", target.Name, vector.Name),
				Timestamp:  time.Now(),
			}
			result.Vulnerabilities = append(result.Vulnerabilities, finding)

			weight, ok := r.opts.SeverityWeights[vector.Severity]
			if !ok {
				weight = 1
			}
			riskScore += weight

			r.logger.Infof("Found vulnerability: %s (%s)", finding.ID, finding.Severity)
			if events != nil {
				f := finding
				events <- Event{Type: EventFinding, Finding: &f}
			}
		}
	}

	result.Summary = models.Summary{
		TotalTests:           len(vectors) * r.opts.VariantsPerVector,
		VulnerabilitiesFound: len(result.Vulnerabilities),
		RiskScore:            riskScore,
	}
	result.Timestamp = time.Now()

	if result.Status == models.RunCancelled {
		r.logger.Info("Assessment was cancelled")
	} else {
		r.logger.Infof("Assessment completed: %d vulnerabilities found", result.Summary.VulnerabilitiesFound)
	}
	return result
}
