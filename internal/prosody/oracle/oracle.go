// Package oracle defines the interface for prominence scoring oracles.
//
// An oracle consumes raw audio samples and asynchronously emits discrete
// prominence events for syllable-like stress detections. The acoustic
// analysis itself is opaque to the caption pipeline; only the event shape and
// the calibration signals are part of the contract.
package oracle

import (
	"context"

	"prosody-caption-service/internal/models"
)

// Config gates which raw detections the oracle forwards as events. The
// filtering happens inside the oracle, not in the pipeline.
type Config struct {
	// ProminenceThreshold is the minimum fusion score an event must reach.
	ProminenceThreshold float64
	// MinSyllableDistMs suppresses detections closer together than this.
	MinSyllableDistMs int64
	// MinEnergyThreshold is the minimum frame energy for a detection.
	MinEnergyThreshold float64
	// CalibrationDurationMs is how long a noise-floor calibration runs.
	CalibrationDurationMs int64
}

// DefaultConfig returns the standard oracle gating parameters.
func DefaultConfig() Config {
	return Config{
		ProminenceThreshold:   0.15,
		MinSyllableDistMs:     120,
		MinEnergyThreshold:    0.01,
		CalibrationDurationMs: 1500,
	}
}

// Callback receives events and calibration signals from an oracle.
type Callback interface {
	// OnProminence is called for each forwarded prominence event.
	OnProminence(ev models.ProminenceEvent)

	// OnCalibrationStart is called when a noise-floor calibration begins.
	// Consumers must discard any event arriving before OnCalibrationEnd.
	OnCalibrationStart()

	// OnCalibrationEnd is called when a noise-floor calibration completes.
	OnCalibrationEnd()

	// OnError is called when the oracle fails.
	OnError(err error)
}

// Oracle is a prominence scoring source (external acoustic front end or a
// built-in detector).
type Oracle interface {
	// Start begins the scoring session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio feeds one chunk of mono float32 samples captured at the
	// given monotonic timestamp.
	SendAudio(ctx context.Context, samples []float32, timestampMs int64) error

	// StartCalibration triggers a noise-floor recalibration; completion is
	// signaled via the calibration callbacks.
	StartCalibration(ctx context.Context) error

	// Close ends the session and releases resources.
	Close() error
}
