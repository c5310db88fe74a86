// Package mock provides a deterministic prominence oracle for testing and
// demo runs without a real acoustic front end.
//
// Events are emitted synchronously from SendAudio so tests keep full control
// of timing: one scripted event per audio chunk, stamped with the chunk's
// timestamp. A calibration runs for a fixed number of chunks and suppresses
// events while active.
package mock

import (
	"context"
	"sync"

	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/prosody/oracle"
)

// CalibrationChunks is how many audio chunks a mock calibration spans.
const CalibrationChunks = 3

// DefaultScript is the scripted event cycle: alternating stressed and
// unstressed syllables with plausible feature values.
var DefaultScript = []models.ProminenceEvent{
	{Score: 0.82, Features: models.Features{Energy: 0.30, SpectralFlux: 0.40, HighFreqEnergy: 0.20, MFCCDelta: 0.10}},
	{Score: 0.25, Features: models.Features{Energy: 0.10, SpectralFlux: 0.15, HighFreqEnergy: 0.05, MFCCDelta: 0.02}},
	{Score: 0.55, Features: models.Features{Energy: 0.18, SpectralFlux: 0.22, HighFreqEnergy: 0.12, MFCCDelta: 0.05}},
	{Score: 0.91, Features: models.Features{Energy: 0.35, SpectralFlux: 0.50, HighFreqEnergy: 0.25, MFCCDelta: 0.12}},
	{Score: 0.15, Features: models.Features{Energy: 0.06, SpectralFlux: 0.08, HighFreqEnergy: 0.03, MFCCDelta: 0.01}},
}

// Adapter implements oracle.Oracle with scripted events.
type Adapter struct {
	mu          sync.Mutex
	cb          oracle.Callback
	script      []models.ProminenceEvent
	idx         int
	calibrating bool
	calChunks   int
	closed      bool
}

// New creates a mock oracle using DefaultScript.
func New() *Adapter {
	return NewScripted(DefaultScript)
}

// NewScripted creates a mock oracle cycling through the given events.
func NewScripted(script []models.ProminenceEvent) *Adapter {
	return &Adapter{script: script}
}

// Start registers the callback.
func (a *Adapter) Start(_ context.Context, cb oracle.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

// SendAudio emits the next scripted event stamped with the chunk timestamp.
// During calibration no events are emitted; after CalibrationChunks chunks
// the calibration completes.
func (a *Adapter) SendAudio(_ context.Context, _ []float32, timestampMs int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil || len(a.script) == 0 {
		return nil
	}

	if a.calibrating {
		a.calChunks++
		if a.calChunks >= CalibrationChunks {
			a.calibrating = false
			a.cb.OnCalibrationEnd()
		}
		return nil
	}

	ev := a.script[a.idx]
	a.idx = (a.idx + 1) % len(a.script)
	ev.TimestampMs = timestampMs
	a.cb.OnProminence(ev)
	return nil
}

// StartCalibration begins a simulated noise-floor calibration.
func (a *Adapter) StartCalibration(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil {
		return nil
	}
	a.calibrating = true
	a.calChunks = 0
	a.cb.OnCalibrationStart()
	return nil
}

// Close ends the mock session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
