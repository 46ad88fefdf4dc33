package assessment

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactguard/impactguard/pkg/models"
)

func testVectors() []models.TestVector {
	return []models.TestVector{
		{ID: "sql_injection", Name: "SQL Injection", Category: models.CategoryOWASP, Severity: models.SeverityHigh},
		{ID: "prompt_injection", Name: "Prompt Injection", Category: models.CategoryOWASP, Severity: models.SeverityCritical},
		{ID: "nist_governance", Name: "AI Governance", Category: models.CategoryNIST, Severity: models.SeverityMedium},
	}
}

func testTarget() models.Target {
	return models.Target{Name: "demo-model", Endpoint: "http://localhost", Type: models.TargetLLM}
}

func newTestRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(42))
	}
	return NewRunner(opts)
}

func TestRunValidatesInputs(t *testing.T) {
	r := newTestRunner(t, Options{Steps: 5})
	ctx := context.Background()

	_, err := r.Run(ctx, models.Target{}, testVectors(), time.Second)
	assert.Error(t, err)

	_, err = r.Run(ctx, testTarget(), nil, time.Second)
	assert.Error(t, err)

	_, err = r.Run(ctx, testTarget(), testVectors(), 0)
	assert.Error(t, err)
}

func TestRunStepCountIsFixed(t *testing.T) {
	// The step count never changes with duration, only the per-step sleep.
	for _, duration := range []time.Duration{50 * time.Millisecond, 200 * time.Millisecond} {
		r := newTestRunner(t, Options{Steps: 100, FindingProbability: 0.2})

		events, err := r.Start(context.Background(), testTarget(), testVectors(), duration)
		require.NoError(t, err)

		progressEvents := 0
		for ev := range events {
			if ev.Type == EventProgress {
				progressEvents++
			}
		}
		assert.Equal(t, 100, progressEvents)
	}
}

func TestRunRiskScoreMatchesFindings(t *testing.T) {
	weights := models.DefaultSeverityWeights()
	r := newTestRunner(t, Options{
		Steps:              50,
		FindingProbability: 1.0, // a finding on every step
		SeverityWeights:    weights,
	})

	result, err := r.Run(context.Background(), testTarget(), testVectors(), 50*time.Millisecond)
	require.NoError(t, err)

	require.Len(t, result.Vulnerabilities, 50)
	assert.Equal(t, len(result.Vulnerabilities), result.Summary.VulnerabilitiesFound)

	expected := 0
	for _, f := range result.Vulnerabilities {
		expected += weights[f.Severity]
	}
	assert.Equal(t, expected, result.Summary.RiskScore)
}

func TestRunFindingIDsAreSequential(t *testing.T) {
	r := newTestRunner(t, Options{Steps: 5, FindingProbability: 1.0})

	result, err := r.Run(context.Background(), testTarget(), testVectors(), 10*time.Millisecond)
	require.NoError(t, err)

	require.Len(t, result.Vulnerabilities, 5)
	for i, f := range result.Vulnerabilities {
		assert.Equal(t, fmt.Sprintf("VULN-%d", i+1), f.ID)
		assert.Contains(t, f.Details, "demo-model")
		assert.Contains(t, f.Details, f.TestName)
		assert.False(t, f.Timestamp.IsZero())
	}
}

func TestRunTotalTestsUsesVariantMultiplier(t *testing.T) {
	r := newTestRunner(t, Options{Steps: 10, FindingProbability: 0, VariantsPerVector: 10})

	result, err := r.Run(context.Background(), testTarget(), testVectors(), 10*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, len(testVectors())*10, result.Summary.TotalTests)
	assert.Equal(t, models.RunCompleted, result.Status)
	assert.Empty(t, result.Vulnerabilities)
	assert.Zero(t, result.Summary.RiskScore)
}

func TestRunSingleCriticalVectorScenario(t *testing.T) {
	vectors := []models.TestVector{
		{ID: "jailbreaking", Name: "Jailbreaking Resistance", Category: models.CategoryExploit, Severity: models.SeverityCritical},
	}
	r := newTestRunner(t, Options{Steps: 100})

	result, err := r.Run(context.Background(), testTarget(), vectors, time.Second)
	require.NoError(t, err)

	assert.Equal(t, 10, result.Summary.TotalTests)
	// Every finding is critical, so the score is a multiple of its weight.
	assert.Equal(t, 5*len(result.Vulnerabilities), result.Summary.RiskScore)
}

func TestRunCancellationKeepsPartialResult(t *testing.T) {
	r := newTestRunner(t, Options{Steps: 100, FindingProbability: 1.0})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := r.Start(ctx, testTarget(), testVectors(), 10*time.Second)
	require.NoError(t, err)

	// Let a few steps elapse, then cancel mid-run.
	time.Sleep(350 * time.Millisecond)
	cancelled := time.Now()
	cancel()

	var result *models.RunResult
	var done time.Time
	for ev := range events {
		if ev.Type == EventDone {
			result = ev.Result
			done = time.Now()
		}
	}

	require.NotNil(t, result)
	assert.Equal(t, models.RunCancelled, result.Status)
	assert.NotEmpty(t, result.Vulnerabilities, "findings recorded before cancellation must survive")
	assert.Equal(t, len(result.Vulnerabilities), result.Summary.VulnerabilitiesFound)

	// One step sleeps 100ms here; the run must wind down within one interval.
	assert.Less(t, done.Sub(cancelled), 150*time.Millisecond)
}

func TestRunProgressIsMonotone(t *testing.T) {
	r := newTestRunner(t, Options{Steps: 40, FindingProbability: 0.5})

	events, err := r.Start(context.Background(), testTarget(), testVectors(), 40*time.Millisecond)
	require.NoError(t, err)

	last := 0.0
	for ev := range events {
		if ev.Type != EventProgress {
			continue
		}
		assert.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
	}
	assert.InDelta(t, 1.0, last, 1e-9)
}

func TestStartClosesStreamAfterDone(t *testing.T) {
	r := newTestRunner(t, Options{Steps: 5})

	events, err := r.Start(context.Background(), testTarget(), testVectors(), 5*time.Millisecond)
	require.NoError(t, err)

	sawDone := false
	for ev := range events {
		if ev.Type == EventDone {
			sawDone = true
			require.NotNil(t, ev.Result)
		}
	}
	assert.True(t, sawDone)
}
