package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBehavior_InsufficientHistory(t *testing.T) {
	d := NewBehaviorDetector(DefaultWindow, DefaultZThreshold)

	// No history and single-sample history never flag, whatever the amount.
	assert.False(t, d.Anomalous(nil, 1_000_000))
	assert.False(t, d.Anomalous([]float64{10}, 1_000_000))
}

func TestBehavior_ZeroVariance(t *testing.T) {
	d := NewBehaviorDetector(DefaultWindow, DefaultZThreshold)

	// Identical recent amounts give std = 0 and therefore z = 0. This never
	// flags regardless of magnitude. Documented gap, not a bug.
	history := []float64{100, 100, 100, 100, 100}
	assert.False(t, d.Anomalous(history, 100))
	assert.False(t, d.Anomalous(history, 1_000_000))
}

func TestBehavior_Outlier(t *testing.T) {
	d := NewBehaviorDetector(DefaultWindow, DefaultZThreshold)

	history := []float64{100, 105, 95, 102, 98}
	assert.False(t, d.Anomalous(history, 103))
	assert.True(t, d.Anomalous(history, 10_000))
}

func TestBehavior_WindowsOldHistory(t *testing.T) {
	d := NewBehaviorDetector(5, DefaultZThreshold)

	// Old large amounts fall outside the window; only the recent five
	// near-100 amounts form the baseline.
	history := []float64{50_000, 60_000, 100, 105, 95, 102, 98}
	assert.True(t, d.Anomalous(history, 10_000))
	assert.False(t, d.Anomalous(history, 101))
}

func TestBehavior_DefaultsOnBadParams(t *testing.T) {
	d := NewBehaviorDetector(0, -1)
	assert.Equal(t, DefaultWindow, d.window)
	assert.Equal(t, DefaultZThreshold, d.zThreshold)
}
