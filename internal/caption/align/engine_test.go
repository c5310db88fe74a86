package align

import (
	"math"
	"testing"

	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/prosody/buffer"
)

func newEngine(windowMs int64) (*Engine, *buffer.Buffer) {
	buf := buffer.New(windowMs)
	return New(buf, DefaultConfig()), buf
}

func pushEvent(buf *buffer.Buffer, ts int64, score, energy float64) {
	buf.Push(models.ProminenceEvent{
		TimestampMs: ts,
		Score:       score,
		Features:    models.Features{Energy: energy},
	})
}

func TestAlignFinal_EmptySegment(t *testing.T) {
	e, _ := newEngine(3000)
	if got := e.AlignFinal("", 1000); got != nil {
		t.Errorf("expected nil for empty segment, got %v", got)
	}
	if got := e.AlignFinal("   ", 1000); got != nil {
		t.Errorf("expected nil for whitespace segment, got %v", got)
	}
}

func TestAlignFinal_OneScorePerWord(t *testing.T) {
	e, buf := newEngine(3000)
	pushEvent(buf, 500, 0.8, 0.2)

	got := e.AlignFinal("the quick brown fox", 1000)
	if len(got) != 4 {
		t.Fatalf("expected 4 scored words, got %d", len(got))
	}
	for i, w := range got {
		if w.Interim {
			t.Errorf("word %d: finalized word marked interim", i)
		}
		if w.Score < 0 || w.Score > 1 {
			t.Errorf("word %d: score %v out of [0,1]", i, w.Score)
		}
	}
}

func TestAlignFinal_NoMatchFallback(t *testing.T) {
	e, buf := newEngine(3000)
	// Event far outside any word's tolerance window.
	pushEvent(buf, 100000, 0.9, 0.5)

	got := e.AlignFinal("hello world", 1000)
	for i, w := range got {
		if w.Score != 0.2 {
			t.Errorf("word %d: expected no-evidence floor 0.2, got %v", i, w.Score)
		}
	}
}

func TestAlignFinal_ZeroEnergyFallsBackToFloor(t *testing.T) {
	e, buf := newEngine(1000)
	pushEvent(buf, 400, 0.9, 0)
	pushEvent(buf, 600, 0.8, 0)

	got := e.AlignFinal("word", 1000)
	if len(got) != 1 {
		t.Fatalf("expected 1 word, got %d", len(got))
	}
	if got[0].Score != 0.2 {
		t.Errorf("expected floor 0.2 on zero total weight, got %v", got[0].Score)
	}
}

func TestAlignFinal_WeightedMeanWithinHull(t *testing.T) {
	e, buf := newEngine(1000)
	pushEvent(buf, 300, 0.1, 0.4)
	pushEvent(buf, 500, 0.9, 0.7)
	pushEvent(buf, 700, 0.4, 0.2)

	got := e.AlignFinal("word", 1000)
	if len(got) != 1 {
		t.Fatalf("expected 1 word, got %d", len(got))
	}
	if got[0].Score < 0.1 || got[0].Score > 0.9 {
		t.Errorf("weighted mean %v escapes the convex hull of matched scores", got[0].Score)
	}
}

// Hand-calculated scenario: events at t={100:0.2, 400:0.9, 700:0.3}, energy
// 0.1 each; "go now" arrives at T=1000 with a 1000 ms lookback. Both word
// slots (centers 250 and 750, tolerance 750) match all three events.
// Duration proxies: 300, 300 (clamped gaps) and 100 (last event default), so
// both words score (0.2*30 + 0.9*30 + 0.3*10) / 70 = 36/70.
func TestAlignFinal_HandCalculatedScenario(t *testing.T) {
	e, buf := newEngine(1000)
	pushEvent(buf, 100, 0.2, 0.1)
	pushEvent(buf, 400, 0.9, 0.1)
	pushEvent(buf, 700, 0.3, 0.1)

	got := e.AlignFinal("go now", 1000)
	if len(got) != 2 {
		t.Fatalf("expected 2 words, got %d", len(got))
	}

	want := 36.0 / 70.0
	for i, w := range got {
		if math.Abs(w.Score-want) > 1e-9 {
			t.Errorf("word %d (%q): expected score %v, got %v", i, w.Text, want, w.Score)
		}
	}
	if got[0].Text != "go" || got[1].Text != "now" {
		t.Errorf("unexpected word order: %v", got)
	}
}

func TestAlignFinal_LookbackCappedAtTwoSeconds(t *testing.T) {
	e, buf := newEngine(3000)
	// One word: slot = 2000, center = arrival - 2000 + 1000 = arrival - 1000,
	// tolerance = 3000. An event 4 s before arrival is outside it.
	pushEvent(buf, 1000, 0.9, 0.5)

	got := e.AlignFinal("word", 5000)
	if got[0].Score != 0.2 {
		t.Errorf("expected event outside capped lookback to be ignored, got score %v", got[0].Score)
	}

	// The same event is matched when arrival moves close enough.
	got = e.AlignFinal("word", 2500)
	if got[0].Score != 0.9 {
		t.Errorf("expected single matched event score 0.9, got %v", got[0].Score)
	}
}

func TestAlignFinal_OutOfOrderGapTreatedAsZero(t *testing.T) {
	e, buf := newEngine(1000)
	// Jittered arrival order: the negative gap contributes zero weight and the
	// last event's fixed proxy carries the mean.
	pushEvent(buf, 600, 0.9, 0.5)
	pushEvent(buf, 500, 0.3, 0.5)

	got := e.AlignFinal("word", 1000)
	if len(got) != 1 {
		t.Fatalf("expected 1 word, got %d", len(got))
	}
	if math.Abs(got[0].Score-0.3) > 1e-9 {
		t.Errorf("expected last-event score 0.3 to dominate, got %v", got[0].Score)
	}
}

func TestAlignInterim_NeutralScores(t *testing.T) {
	e, _ := newEngine(3000)

	got := e.AlignInterim("hello big world")
	if len(got) != 3 {
		t.Fatalf("expected 3 words, got %d", len(got))
	}
	for i, w := range got {
		if !w.Interim {
			t.Errorf("word %d: expected interim flag", i)
		}
		if w.Score != 0.5 {
			t.Errorf("word %d: expected neutral 0.5, got %v", i, w.Score)
		}
	}

	if got := e.AlignInterim(""); got != nil {
		t.Errorf("expected nil for empty interim segment, got %v", got)
	}
}
