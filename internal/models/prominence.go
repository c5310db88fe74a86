// Package models defines the data structures shared across the caption pipeline.
package models

// Features holds the acoustic feature vector attached to a prominence event.
// The values come straight from the scoring oracle and are never recomputed here.
type Features struct {
	Energy         float64 `json:"energy"`
	SpectralFlux   float64 `json:"spectralFlux"`
	HighFreqEnergy float64 `json:"highFreqEnergy"`
	MFCCDelta      float64 `json:"mfccDelta"`
}

// ProminenceEvent is a single syllable-like stress detection emitted by the
// scoring oracle. Immutable once created; ownership passes to the event buffer.
type ProminenceEvent struct {
	TimestampMs int64    `json:"timestamp"`
	Score       float64  `json:"fusionScore"`
	Features    Features `json:"features"`
}
