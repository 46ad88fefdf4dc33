package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartStopLifecycle(t *testing.T) {
	tracker := NewTracker("impactguard", nil)
	assert.False(t, tracker.Tracking())

	require.NoError(t, tracker.Start())
	assert.True(t, tracker.Tracking())

	// Starting twice is an error; the open window stays open.
	assert.Error(t, tracker.Start())
	assert.True(t, tracker.Tracking())

	emissions, err := tracker.Stop()
	require.NoError(t, err)
	assert.False(t, tracker.Tracking())
	assert.GreaterOrEqual(t, emissions, 0.001)
	assert.LessOrEqual(t, emissions, 0.1)

	_, err = tracker.Stop()
	assert.Error(t, err)
}

func TestMeasurementsAccumulate(t *testing.T) {
	tracker := NewTracker("impactguard", nil)

	var total float64
	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.Start())
		emissions, err := tracker.Stop()
		require.NoError(t, err)
		total += emissions
	}

	assert.Len(t, tracker.Measurements(), 3)
	assert.InDelta(t, total, tracker.TotalEmissions(), 1e-9)
}

func TestMeasurementsReturnsACopy(t *testing.T) {
	tracker := NewTracker("impactguard", nil)
	require.NoError(t, tracker.Start())
	_, err := tracker.Stop()
	require.NoError(t, err)

	m := tracker.Measurements()
	m[0] = 999
	assert.NotEqual(t, 999.0, tracker.Measurements()[0])
}

func TestReportDerivedFigures(t *testing.T) {
	tracker := NewTracker("impactguard", nil)
	require.NoError(t, tracker.Start())
	emissions, err := tracker.Stop()
	require.NoError(t, err)

	report := tracker.Report()
	assert.Equal(t, "impactguard", report.ProjectName)
	assert.InDelta(t, emissions, report.TotalEmissionsKg, 1e-9)
	assert.InDelta(t, emissions/0.6, report.EnergyConsumptionKWh, 1e-9)
	assert.InDelta(t, emissions*16.5, report.TreesEquivalent, 1e-9)
	require.Len(t, report.Measurements, 1)
	require.Len(t, report.MitigationStrategies, 3)
	assert.Equal(t, "Optimize AI Model Size", report.MitigationStrategies[0].Name)
}

func TestReportOnFreshTrackerIsZero(t *testing.T) {
	report := NewTracker("empty", nil).Report()
	assert.Zero(t, report.TotalEmissionsKg)
	assert.Empty(t, report.Measurements)
	assert.NotEmpty(t, report.MitigationStrategies)
}
