// Package calibrate derives size thresholds from observed prominence scores.
//
// Two independent procedures live here: voice-range calibration, which samples
// raw scores during a deliberate user utterance and derives percentile-based
// thresholds, and noise-floor calibration, which is delegated entirely to the
// scoring oracle and only tracked as a status here. The two are never run
// concurrently; caller discipline, not enforced internally.
package calibrate

import (
	"errors"
	"sort"

	"prosody-caption-service/internal/caption/classify"
)

// MinSamples is the minimum number of scores a voice calibration needs.
const MinSamples = 5

// ErrInsufficientSamples is returned when a voice calibration finishes with
// fewer than MinSamples scores. Existing thresholds are left untouched.
var ErrInsufficientSamples = errors.New("voice calibration requires at least 5 samples")

// ErrNotActive is returned when Finish is called without a preceding Begin.
var ErrNotActive = errors.New("voice calibration is not active")

// Result holds the outcome of a successful voice-range calibration.
type Result struct {
	Thresholds  classify.Thresholds `json:"thresholds"`
	ObservedMin float64             `json:"observedMin"`
	ObservedMax float64             `json:"observedMax"`
	SampleCount int                 `json:"sampleCount"`
}

// Voice collects raw prominence scores between an explicit Begin and Finish.
// Owned by the session loop; not safe for concurrent use.
type Voice struct {
	active  bool
	samples []float64
}

// NewVoice creates an inactive voice calibration collector.
func NewVoice() *Voice {
	return &Voice{}
}

// Active reports whether a calibration window is open.
func (v *Voice) Active() bool {
	return v.active
}

// SampleCount returns the number of scores collected so far.
func (v *Voice) SampleCount() int {
	return len(v.samples)
}

// Begin opens a calibration window, clearing any previous sample collection.
func (v *Voice) Begin() {
	v.active = true
	v.samples = v.samples[:0]
}

// Observe records one raw prominence score. Ignored when no window is open.
func (v *Voice) Observe(score float64) {
	if !v.active {
		return
	}
	v.samples = append(v.samples, score)
}

// Finish closes the calibration window and derives thresholds from the
// collected samples: smallMax is the 25th percentile, normalMax the 75th,
// both nearest-rank (index = floor(q*count) into the sorted samples, no
// interpolation). Fewer than MinSamples is a non-fatal error; the caller
// keeps its previous thresholds.
func (v *Voice) Finish() (Result, error) {
	if !v.active {
		return Result{}, ErrNotActive
	}
	v.active = false

	if len(v.samples) < MinSamples {
		return Result{}, ErrInsufficientSamples
	}

	sorted := make([]float64, len(v.samples))
	copy(sorted, v.samples)
	sort.Float64s(sorted)

	res := Result{
		Thresholds: classify.Thresholds{
			SmallMax:  nearestRank(sorted, 0.25),
			NormalMax: nearestRank(sorted, 0.75),
		},
		ObservedMin: sorted[0],
		ObservedMax: sorted[len(sorted)-1],
		SampleCount: len(sorted),
	}
	v.samples = v.samples[:0]
	return res, nil
}

// nearestRank indexes into a sorted sample set without interpolation.
func nearestRank(sorted []float64, q float64) float64 {
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// NoiseFloor tracks the oracle-driven noise calibration status. While the
// oracle reports calibrating, prominence events must be discarded by the
// consumer even if the oracle fails to suppress them itself.
type NoiseFloor struct {
	calibrating bool
	completed   int
}

// NewNoiseFloor creates an idle noise-floor tracker.
func NewNoiseFloor() *NoiseFloor {
	return &NoiseFloor{}
}

// Start marks the oracle as calibrating.
func (n *NoiseFloor) Start() {
	n.calibrating = true
}

// End marks the oracle calibration as complete.
func (n *NoiseFloor) End() {
	if n.calibrating {
		n.completed++
	}
	n.calibrating = false
}

// Calibrating reports whether the oracle is currently calibrating.
func (n *NoiseFloor) Calibrating() bool {
	return n.calibrating
}

// Completed returns how many noise calibrations have finished.
func (n *NoiseFloor) Completed() int {
	return n.completed
}
