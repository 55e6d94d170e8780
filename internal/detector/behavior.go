// Package detector implements the per-transaction fraud signals: behavioral
// amount anomalies and implausible-travel geo drift. Detectors are pure
// scoring functions over caller-supplied history; they hold no state of
// their own.
package detector

import "math"

// Default behavioral detection parameters.
const (
	DefaultWindow     = 5
	DefaultZThreshold = 2.5
)

// BehaviorDetector flags transaction amounts that deviate sharply from the
// instrument's recent history, using a z-score over a sliding window.
type BehaviorDetector struct {
	window     int
	zThreshold float64
}

// NewBehaviorDetector creates a detector with the given window size and
// z-score threshold. Non-positive values fall back to the defaults.
func NewBehaviorDetector(window int, zThreshold float64) *BehaviorDetector {
	if window <= 0 {
		window = DefaultWindow
	}
	if zThreshold <= 0 {
		zThreshold = DefaultZThreshold
	}
	return &BehaviorDetector{window: window, zThreshold: zThreshold}
}

// Anomalous reports whether amount is a behavioral outlier against history,
// which must be ordered oldest to newest. Only the most recent window
// amounts are considered.
//
// Fewer than 2 samples never flags: there is no baseline to deviate from.
// A zero-variance window (every recent amount identical) also never flags,
// regardless of the candidate amount, because the z-score is defined as 0 when the
// standard deviation is 0. That gap is intentional and preserved.
func (d *BehaviorDetector) Anomalous(history []float64, amount float64) bool {
	amounts := history
	if len(amounts) > d.window {
		amounts = amounts[len(amounts)-d.window:]
	}
	if len(amounts) < 2 {
		return false
	}

	var sum float64
	for _, a := range amounts {
		sum += a
	}
	mean := sum / float64(len(amounts))

	var variance float64
	for _, a := range amounts {
		variance += (a - mean) * (a - mean)
	}
	// Population standard deviation over the window.
	std := math.Sqrt(variance / float64(len(amounts)))

	z := 0.0
	if std != 0 {
		z = math.Abs(amount-mean) / std
	}
	return z > d.zThreshold
}
