package recognizer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prosody-caption-service/internal/observability/logging"
)

// defaultRestartBackoff spaces restart attempts after transient errors.
const defaultRestartBackoff = 250 * time.Millisecond

// Runner supervises an adapter session: transient recognition errors ("no
// speech detected", stream resets) restart the adapter automatically and are
// never surfaced; anything else is passed through to the callback so the
// caller can degrade.
type Runner struct {
	adapter Adapter
	backoff time.Duration
	logger  zerolog.Logger

	// OnRestart, when set, is invoked once per automatic restart.
	OnRestart func()

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a runner for the given adapter.
func NewRunner(adapter Adapter) *Runner {
	return &Runner{
		adapter: adapter,
		backoff: defaultRestartBackoff,
		logger:  logging.WithComponent("recognizer-runner"),
	}
}

// Start begins the supervised session.
func (r *Runner) Start(ctx context.Context, cb Callback) error {
	return r.adapter.Start(ctx, &supervisedCallback{runner: r, ctx: ctx, inner: cb})
}

// SendAudio forwards audio to the underlying adapter.
func (r *Runner) SendAudio(ctx context.Context, audio []byte) error {
	return r.adapter.SendAudio(ctx, audio)
}

// Close stops supervision and the underlying session.
func (r *Runner) Close() error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	return r.adapter.Close()
}

func (r *Runner) restart(ctx context.Context, cb Callback, cause error) {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped || ctx.Err() != nil {
		return
	}

	r.logger.Info().Err(cause).Dur("backoff", r.backoff).Msg("Restarting recognition session")
	if r.OnRestart != nil {
		r.OnRestart()
	}

	time.Sleep(r.backoff)
	if err := r.adapter.Start(ctx, &supervisedCallback{runner: r, ctx: ctx, inner: cb}); err != nil {
		// A failed restart is no longer transient; let the caller decide.
		cb.OnError(err)
	}
}

// supervisedCallback intercepts OnError to drive restarts; all results pass
// straight through.
type supervisedCallback struct {
	runner *Runner
	ctx    context.Context
	inner  Callback
}

func (s *supervisedCallback) OnInterim(text string) { s.inner.OnInterim(text) }

func (s *supervisedCallback) OnFinal(text string, confidence float64) {
	s.inner.OnFinal(text, confidence)
}

func (s *supervisedCallback) OnEndOfUtterance() { s.inner.OnEndOfUtterance() }

func (s *supervisedCallback) OnError(err error) {
	if IsTransient(err) {
		go s.runner.restart(s.ctx, s.inner, err)
		return
	}
	s.inner.OnError(err)
}
