package recognizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeAdapter struct {
	mu     sync.Mutex
	starts int
	cb     Callback
}

func (f *fakeAdapter) Start(_ context.Context, cb Callback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.cb = cb
	return nil
}

func (f *fakeAdapter) SendAudio(context.Context, []byte) error { return nil }
func (f *fakeAdapter) Close() error                            { return nil }

func (f *fakeAdapter) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeAdapter) emitError(err error) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	cb.OnError(err)
}

type countingCallback struct {
	mu     sync.Mutex
	errs   []error
	finals []string
}

func (c *countingCallback) OnInterim(string) {}
func (c *countingCallback) OnFinal(text string, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finals = append(c.finals, text)
}
func (c *countingCallback) OnEndOfUtterance() {}
func (c *countingCallback) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *countingCallback) errCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRunner_RestartsOnTransientError(t *testing.T) {
	adapter := &fakeAdapter{}
	runner := NewRunner(adapter)
	runner.backoff = time.Millisecond
	restarts := 0
	var restartMu sync.Mutex
	runner.OnRestart = func() {
		restartMu.Lock()
		restarts++
		restartMu.Unlock()
	}
	cb := &countingCallback{}

	if err := runner.Start(context.Background(), cb); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	adapter.emitError(ErrNoSpeech)

	waitFor(t, func() bool { return adapter.startCount() == 2 },
		"expected adapter restart after transient error")

	restartMu.Lock()
	got := restarts
	restartMu.Unlock()
	if got != 1 {
		t.Errorf("expected 1 restart notification, got %d", got)
	}
	if cb.errCount() != 0 {
		t.Errorf("transient error must not reach the callback, got %v", cb.errs)
	}
}

func TestRunner_ForwardsFatalError(t *testing.T) {
	adapter := &fakeAdapter{}
	runner := NewRunner(adapter)
	runner.backoff = time.Millisecond
	cb := &countingCallback{}

	_ = runner.Start(context.Background(), cb)
	fatal := errors.New("microphone permission denied")
	adapter.emitError(fatal)

	waitFor(t, func() bool { return cb.errCount() == 1 },
		"expected fatal error to reach the callback")

	if adapter.startCount() != 1 {
		t.Errorf("fatal error must not restart the adapter, got %d starts", adapter.startCount())
	}
	if !errors.Is(cb.errs[0], fatal) {
		t.Errorf("expected original error, got %v", cb.errs[0])
	}
}

func TestRunner_NoRestartAfterClose(t *testing.T) {
	adapter := &fakeAdapter{}
	runner := NewRunner(adapter)
	runner.backoff = time.Millisecond
	cb := &countingCallback{}

	_ = runner.Start(context.Background(), cb)
	_ = runner.Close()
	adapter.emitError(ErrAborted)

	time.Sleep(50 * time.Millisecond)
	if adapter.startCount() != 1 {
		t.Errorf("expected no restart after close, got %d starts", adapter.startCount())
	}
}

func TestRunner_ResultsPassThrough(t *testing.T) {
	adapter := &fakeAdapter{}
	runner := NewRunner(adapter)
	cb := &countingCallback{}

	_ = runner.Start(context.Background(), cb)
	adapter.cb.OnFinal("hello there", 0.9)

	if len(cb.finals) != 1 || cb.finals[0] != "hello there" {
		t.Errorf("expected final to pass through, got %v", cb.finals)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no speech sentinel", ErrNoSpeech, true},
		{"aborted sentinel", ErrAborted, true},
		{"wrapped sentinel", errors.Join(errors.New("ctx"), ErrNoSpeech), true},
		{"marked transient", MarkTransient(errors.New("stream reset")), true},
		{"plain error", errors.New("boom"), false},
		{"nil marked", MarkTransient(nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
