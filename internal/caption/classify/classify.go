// Package classify maps continuous prominence scores to discrete display tiers.
package classify

import (
	"errors"

	"prosody-caption-service/internal/models"
)

// ErrInvalidThresholds is returned when a threshold write violates the
// ordering invariant. The previous thresholds remain in effect.
var ErrInvalidThresholds = errors.New("thresholds must satisfy 0 <= smallMax <= normalMax <= 1")

// Default threshold values used until a calibration or manual setting
// overwrites them.
const (
	DefaultSmallMax  = 0.33
	DefaultNormalMax = 0.66
)

// Thresholds are the tier boundaries for size classification.
// Invariant: 0 <= SmallMax <= NormalMax <= 1. Written by three independent
// sources (manual control, voice calibration, defaults); last writer wins.
type Thresholds struct {
	SmallMax  float64 `json:"smallMax"`
	NormalMax float64 `json:"normalMax"`
}

// DefaultThresholds returns the built-in tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{SmallMax: DefaultSmallMax, NormalMax: DefaultNormalMax}
}

// Valid reports whether the thresholds satisfy the ordering invariant.
func (t Thresholds) Valid() bool {
	return t.SmallMax >= 0 && t.SmallMax <= t.NormalMax && t.NormalMax <= 1
}

// ScoreToLevel maps a prominence score to a display tier.
// Boundaries are strict: a score equal to SmallMax is normal, a score equal
// to NormalMax is large.
func ScoreToLevel(score float64, t Thresholds) models.SizeLevel {
	switch {
	case score < t.SmallMax:
		return models.SizeSmall
	case score < t.NormalMax:
		return models.SizeNormal
	default:
		return models.SizeLarge
	}
}
