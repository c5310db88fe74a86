// Package fallback supplies a deterministic caption sequence for degraded
// mode, when no speech recognizer is available. The words carry fixed stress
// markup and flow through the same classification and render path as live
// captions.
package fallback

import "prosody-caption-service/internal/models"

// script is the fixed demo sequence. Scores are chosen to exercise all three
// display tiers.
var script = []models.ScoredWord{
	{Text: "LIVE", Score: 0.92},
	{Text: "captions", Score: 0.45},
	{Text: "sized", Score: 0.30},
	{Text: "by", Score: 0.12},
	{Text: "STRESS", Score: 0.95},
	{Text: "every", Score: 0.40},
	{Text: "word", Score: 0.55},
	{Text: "grows", Score: 0.78},
	{Text: "with", Score: 0.15},
	{Text: "EMPHASIS", Score: 0.98},
	{Text: "and", Score: 0.10},
	{Text: "shrinks", Score: 0.28},
	{Text: "when", Score: 0.20},
	{Text: "quiet", Score: 0.25},
}

// Generator walks the demo script one word per prominence-event tick,
// independent of the alignment path. Owned by the session loop.
type Generator struct {
	idx int
}

// New creates a generator positioned at the start of the script.
func New() *Generator {
	return &Generator{}
}

// Next returns the next scripted word and advances, wrapping at the end.
func (g *Generator) Next() models.ScoredWord {
	w := script[g.idx]
	g.idx = (g.idx + 1) % len(script)
	return w
}

// Reset rewinds the generator to the start of the script.
func (g *Generator) Reset() {
	g.idx = 0
}

// Len returns the script length.
func Len() int {
	return len(script)
}
