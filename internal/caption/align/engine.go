// Package align reconciles finalized recognition results with the prominence
// event stream and computes one score per word.
package align

import (
	"prosody-caption-service/internal/caption/tokenize"
	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/prosody/buffer"
)

// Config holds the alignment constants.
type Config struct {
	// LookbackCapMs caps the back-projection window regardless of how much
	// history the event buffer retains.
	LookbackCapMs int64
	// NoEvidenceScore is assigned when no prominence events match a word.
	// Kept below the normal tier so unmatched words render small.
	NoEvidenceScore float64
	// InterimScore is the fixed neutral score for not-yet-finalized words.
	InterimScore float64
	// GapClampMs bounds the duration proxy derived from inter-event gaps.
	GapClampMs int64
	// LastEventProxyMs is the duration proxy for the last event in a match
	// set, which has no following event to measure a gap against.
	LastEventProxyMs int64
}

// DefaultConfig returns the standard alignment constants.
func DefaultConfig() Config {
	return Config{
		LookbackCapMs:    2000,
		NoEvidenceScore:  0.2,
		InterimScore:     0.5,
		GapClampMs:       300,
		LastEventProxyMs: 100,
	}
}

// Engine computes per-word prominence scores for finalized text segments.
//
// Exact per-word utterance timestamps are not available from the recognizer,
// so the engine back-projects: it assumes the N words of a segment were spoken
// evenly across a lookback window ending at the result's arrival time, each
// word claiming the midpoint of its equal-width slot. Precision is traded for
// robustness against recognizer latency jitter.
type Engine struct {
	cfg Config
	buf *buffer.Buffer
}

// New creates an alignment engine reading from the given event buffer.
func New(buf *buffer.Buffer, cfg Config) *Engine {
	return &Engine{cfg: cfg, buf: buf}
}

// AlignFinal tokenizes a finalized segment, estimates each word's utterance
// time and computes a weighted prominence score per word. The returned words
// carry Interim=false and are never revised afterwards. An empty segment
// yields an empty result.
func (e *Engine) AlignFinal(segment string, arrivalMs int64) []models.ScoredWord {
	words := tokenize.Words(segment)
	if len(words) == 0 {
		return nil
	}

	window := e.buf.WindowMs()
	if window > e.cfg.LookbackCapMs {
		window = e.cfg.LookbackCapMs
	}

	n := int64(len(words))
	slot := float64(window) / float64(n)
	tolerance := int64(1.5 * slot)

	out := make([]models.ScoredWord, 0, len(words))
	for i, text := range words {
		center := arrivalMs - window + int64((float64(i)+0.5)*slot)
		matched := e.buf.QueryNear(center, tolerance)
		out = append(out, models.ScoredWord{
			Text:  text,
			Score: e.weightedScore(matched),
		})
	}
	return out
}

// AlignInterim tokenizes an interim segment and assigns every word the fixed
// neutral score. Interim words are replaced wholesale on the next result and
// are never promoted into the finalized sequence.
func (e *Engine) AlignInterim(segment string) []models.ScoredWord {
	words := tokenize.Words(segment)
	if len(words) == 0 {
		return nil
	}

	out := make([]models.ScoredWord, 0, len(words))
	for _, text := range words {
		out = append(out, models.ScoredWord{
			Text:    text,
			Score:   e.cfg.InterimScore,
			Interim: true,
		})
	}
	return out
}

// weightedScore computes the energy-weighted mean of the matched event scores.
// Each event's weight is energy multiplied by a duration proxy: the clamped
// gap to the next matched event, or a fixed default for the last event. The
// proxy approximates energy integrated over the syllable's active duration
// without true syllable boundaries.
func (e *Engine) weightedScore(matched []models.ProminenceEvent) float64 {
	if len(matched) == 0 {
		return e.cfg.NoEvidenceScore
	}

	var sum, total float64
	for i, ev := range matched {
		proxy := e.cfg.LastEventProxyMs
		if i < len(matched)-1 {
			gap := matched[i+1].TimestampMs - ev.TimestampMs
			if gap < 0 {
				gap = 0
			}
			if gap > e.cfg.GapClampMs {
				gap = e.cfg.GapClampMs
			}
			proxy = gap
		}
		w := ev.Features.Energy * float64(proxy)
		sum += ev.Score * w
		total += w
	}

	if total <= 0 {
		return e.cfg.NoEvidenceScore
	}
	return sum / total
}
