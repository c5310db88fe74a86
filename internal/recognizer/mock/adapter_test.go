package mock

import (
	"context"
	"sync"
	"testing"
)

type recordingCallback struct {
	mu       sync.Mutex
	interims []string
	finals   []string
	eous     int
	errs     []error
}

func (r *recordingCallback) OnInterim(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interims = append(r.interims, text)
}

func (r *recordingCallback) OnFinal(text string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finals = append(r.finals, text)
}

func (r *recordingCallback) OnEndOfUtterance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eous++
}

func (r *recordingCallback) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func TestAdapter_ProgressiveInterimsThenFinal(t *testing.T) {
	script := []Utterance{
		{Interims: []string{"go", "go now"}, Final: "go now please", Confidence: 0.9},
	}
	a := NewScripted(script, 0)
	cb := &recordingCallback{}
	ctx := context.Background()
	if err := a.Start(ctx, cb); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := a.SendAudio(ctx, []byte{0}); err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
	}

	if len(cb.interims) != 2 {
		t.Fatalf("expected 2 interims, got %d: %v", len(cb.interims), cb.interims)
	}
	if cb.interims[0] != "go" || cb.interims[1] != "go now" {
		t.Errorf("unexpected interim progression: %v", cb.interims)
	}
	if len(cb.finals) != 1 || cb.finals[0] != "go now please" {
		t.Errorf("expected exactly one final 'go now please', got %v", cb.finals)
	}
	if cb.eous != 1 {
		t.Errorf("expected 1 end-of-utterance, got %d", cb.eous)
	}
}

func TestAdapter_CyclesToNextUtterance(t *testing.T) {
	script := []Utterance{
		{Interims: []string{"a"}, Final: "a b", Confidence: 0.9},
		{Interims: []string{"c"}, Final: "c d", Confidence: 0.9},
	}
	a := NewScripted(script, 0)
	cb := &recordingCallback{}
	ctx := context.Background()
	_ = a.Start(ctx, cb)

	// 2 frames per utterance: one interim, one final.
	for i := 0; i < 4; i++ {
		_ = a.SendAudio(ctx, []byte{0})
	}

	if len(cb.finals) != 2 {
		t.Fatalf("expected 2 finals, got %v", cb.finals)
	}
	if cb.finals[0] != "a b" || cb.finals[1] != "c d" {
		t.Errorf("unexpected final sequence: %v", cb.finals)
	}
	if cb.eous != 2 {
		t.Errorf("expected 2 end-of-utterance signals, got %d", cb.eous)
	}
}

func TestAdapter_NoResultsAfterClose(t *testing.T) {
	a := NewScripted(DefaultUtterances, 0)
	cb := &recordingCallback{}
	ctx := context.Background()
	_ = a.Start(ctx, cb)
	_ = a.Close()

	_ = a.SendAudio(ctx, []byte{0})
	if len(cb.interims) != 0 || len(cb.finals) != 0 {
		t.Errorf("expected no results after close, got %v / %v", cb.interims, cb.finals)
	}
}
