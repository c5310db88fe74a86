// Package energy implements a pure-Go prominence oracle driven by RMS energy.
//
// It is a stand-in for a full acoustic front end: syllable onsets are
// detected from short-time energy with hysteresis, and spectral measures are
// approximated with time-domain proxies. Good enough to run the caption
// pipeline end to end without external models.
package energy

import (
	"context"
	"math"
	"sync"

	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/prosody/oracle"
)

const (
	// initialPeakRef seeds the adaptive loudness reference before any
	// speech has been observed.
	initialPeakRef = 0.25
	// peakDecay slowly forgets the loudness reference so the score range
	// adapts when the speaker moves or changes volume.
	peakDecay = 0.999
	// fallRatio ends a syllable once energy drops below this fraction of
	// the onset threshold (hysteresis against flicker).
	fallRatio = 0.6
	// noiseFloorMargin scales the calibrated ambient level into the onset
	// threshold.
	noiseFloorMargin = 3.0
)

// Detector implements oracle.Oracle using short-time RMS energy.
type Detector struct {
	mu  sync.Mutex
	cfg oracle.Config
	cb  oracle.Callback

	noiseFloor  float64
	peakRef     float64
	prevRMS     float64
	inSyllable  bool
	lastEventMs int64

	calibrating bool
	calStartMs  int64
	calSum      float64
	calSumSq    float64
	calFrames   int

	closed bool
}

// New creates an energy detector with the given gating config.
func New(cfg oracle.Config) *Detector {
	return &Detector{
		cfg:     cfg,
		peakRef: initialPeakRef,
		// Far enough in the past that the first onset always clears the
		// distance gate without risking subtraction overflow.
		lastEventMs: math.MinInt64 / 2,
	}
}

// Start registers the callback.
func (d *Detector) Start(_ context.Context, cb oracle.Callback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
	return nil
}

// SendAudio analyzes one chunk of mono samples. At most one prominence event
// is emitted per chunk, on a detected syllable onset that clears the config
// gates. During calibration the chunk feeds the ambient noise measurement
// instead and no events are emitted.
func (d *Detector) SendAudio(_ context.Context, samples []float32, timestampMs int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.cb == nil || len(samples) == 0 {
		return nil
	}

	level := rms(samples)
	flux := math.Abs(level - d.prevRMS)
	hf := diffRMS(samples)
	d.prevRMS = level

	if d.calibrating {
		d.observeCalibration(level, timestampMs)
		return nil
	}

	if level > d.peakRef {
		d.peakRef = level
	} else {
		d.peakRef *= peakDecay
		if d.peakRef < initialPeakRef {
			d.peakRef = initialPeakRef
		}
	}

	rise := d.onsetThreshold()
	if d.inSyllable {
		if level < rise*fallRatio {
			d.inSyllable = false
		}
		return nil
	}
	if level < rise {
		return nil
	}
	d.inSyllable = true

	if level < d.cfg.MinEnergyThreshold {
		return nil
	}
	if timestampMs-d.lastEventMs < d.cfg.MinSyllableDistMs {
		return nil
	}

	score := d.normalize(level)
	if score < d.cfg.ProminenceThreshold {
		return nil
	}

	d.lastEventMs = timestampMs
	d.cb.OnProminence(models.ProminenceEvent{
		TimestampMs: timestampMs,
		Score:       score,
		Features: models.Features{
			Energy:         level,
			SpectralFlux:   flux,
			HighFreqEnergy: hf,
			MFCCDelta:      0,
		},
	})
	return nil
}

// StartCalibration begins measuring the ambient noise floor. Events are
// suppressed until CalibrationDurationMs of audio has been observed.
func (d *Detector) StartCalibration(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.cb == nil {
		return nil
	}
	d.calibrating = true
	d.calStartMs = -1
	d.calSum, d.calSumSq, d.calFrames = 0, 0, 0
	d.cb.OnCalibrationStart()
	return nil
}

// Close ends the session.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// NoiseFloor returns the last calibrated ambient level.
func (d *Detector) NoiseFloor() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.noiseFloor
}

func (d *Detector) observeCalibration(level float64, timestampMs int64) {
	if d.calStartMs < 0 {
		d.calStartMs = timestampMs
	}
	d.calSum += level
	d.calSumSq += level * level
	d.calFrames++

	if timestampMs-d.calStartMs < d.cfg.CalibrationDurationMs {
		return
	}

	mean := d.calSum / float64(d.calFrames)
	variance := d.calSumSq/float64(d.calFrames) - mean*mean
	if variance < 0 {
		variance = 0
	}
	// Ambient level plus two standard deviations keeps steady background
	// noise below the onset threshold.
	d.noiseFloor = mean + 2*math.Sqrt(variance)
	d.calibrating = false
	d.inSyllable = false
	d.cb.OnCalibrationEnd()
}

func (d *Detector) onsetThreshold() float64 {
	t := d.cfg.MinEnergyThreshold
	if scaled := d.noiseFloor * noiseFloorMargin; scaled > t {
		t = scaled
	}
	return t
}

// normalize maps a frame level into [0,1] relative to the calibrated floor
// and the adaptive loudness reference.
func (d *Detector) normalize(level float64) float64 {
	span := d.peakRef - d.noiseFloor
	if span <= 0 {
		return 1
	}
	score := (level - d.noiseFloor) / span
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func rms(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// diffRMS measures the energy of the first difference, a cheap proxy for
// high-frequency content.
func diffRMS(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(samples); i++ {
		d := float64(samples[i] - samples[i-1])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)-1))
}
