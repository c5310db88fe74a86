package fallback

import "testing"

func TestGenerator_Deterministic(t *testing.T) {
	a := New()
	b := New()

	for i := 0; i < Len()*2; i++ {
		wa, wb := a.Next(), b.Next()
		if wa != wb {
			t.Fatalf("tick %d: generators diverged: %+v vs %+v", i, wa, wb)
		}
	}
}

func TestGenerator_WrapsAround(t *testing.T) {
	g := New()
	first := g.Next()
	for i := 1; i < Len(); i++ {
		g.Next()
	}
	if again := g.Next(); again != first {
		t.Errorf("expected wrap to first word %+v, got %+v", first, again)
	}
}

func TestGenerator_Reset(t *testing.T) {
	g := New()
	first := g.Next()
	g.Next()
	g.Reset()
	if got := g.Next(); got != first {
		t.Errorf("expected first word after reset, got %+v", got)
	}
}

func TestScript_ScoresInRange(t *testing.T) {
	g := New()
	for i := 0; i < Len(); i++ {
		w := g.Next()
		if w.Score < 0 || w.Score > 1 {
			t.Errorf("word %q: score %v out of [0,1]", w.Text, w.Score)
		}
		if w.Text == "" {
			t.Errorf("word %d: empty text", i)
		}
		if w.Interim {
			t.Errorf("word %q: fallback words are finalized", w.Text)
		}
	}
}
