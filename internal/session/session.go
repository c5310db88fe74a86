// Package session runs the caption pipeline for one capture session.
//
// All mutable pipeline state (event buffer, transcript, calibration,
// thresholds, utterance lifecycle) is owned by a single goroutine; adapters
// post work onto the command channel and never touch state directly. That
// serialization is what lets the buffer and transcript types stay lock-free.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"prosody-caption-service/internal/calibrate"
	"prosody-caption-service/internal/caption/align"
	"prosody-caption-service/internal/caption/classify"
	"prosody-caption-service/internal/caption/transcript"
	"prosody-caption-service/internal/caption/utterance"
	"prosody-caption-service/internal/fallback"
	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/observability/logging"
	"prosody-caption-service/internal/observability/metrics"
	"prosody-caption-service/internal/prosody/buffer"
	"prosody-caption-service/internal/render"
	"prosody-caption-service/internal/schema"
)

// DefaultMaxInterims bounds interim replacements per utterance, guarding
// against a recognizer stuck emitting interims without ever finalizing.
const DefaultMaxInterims = 500

// publishTimeout bounds one outbound publish attempt.
const publishTimeout = 5 * time.Second

// publishQueueDepth bounds events waiting on a slow broker before drops.
const publishQueueDepth = 64

// publishJob is one validated event queued for delivery.
type publishJob struct {
	final bool
	event any
}

// Publisher is the outbound event sink.
type Publisher interface {
	PublishInterim(ctx context.Context, key string, event any) error
	PublishFinal(ctx context.Context, key string, event any) error
}

// Broadcaster pushes caption frames to renderer clients.
type Broadcaster interface {
	Broadcast(frame render.Frame)
}

// Config holds per-session tuning.
type Config struct {
	SessionID      string
	BufferWindowMs int64
	MaxWords       int
	MaxInterims    int
	Align          align.Config
	Thresholds     classify.Thresholds
	// Clock returns milliseconds on the session's monotonic timeline. Nil
	// defaults to wall-clock milliseconds since session start.
	Clock func() int64
	// FallbackTick drives scripted words on a timer while degraded, covering
	// the case where the oracle is down too. Zero disables the ticker;
	// prominence events still advance the script.
	FallbackTick time.Duration
}

// Snapshot is the render-ready view of the session returned to API callers.
type Snapshot struct {
	SessionID   string              `json:"sessionId"`
	UtteranceID string              `json:"utteranceId"`
	Status      string              `json:"status"`
	Words       []models.RenderWord `json:"words"`
	Thresholds  classify.Thresholds `json:"thresholds"`
}

// Session is the single-owner pipeline actor.
type Session struct {
	cfg       Config
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	publisher Publisher
	broadcast Broadcaster
	validator *schema.Validator
	clock     func() int64
	sessionID string

	buf        *buffer.Buffer
	engine     *align.Engine
	state      *transcript.State
	voice      *calibrate.Voice
	noise      *calibrate.NoiseFloor
	thresholds classify.Thresholds
	lifecycle  *utterance.Lifecycle
	idGen      *utterance.Generator
	demo       *fallback.Generator

	interimCount int
	degraded     bool

	cmds chan func()
	pubQ chan publishJob
	quit chan struct{}
	done chan struct{}
}

// New creates a session actor. Run must be called before any handler.
func New(cfg Config, pub Publisher, bc Broadcaster) *Session {
	if cfg.MaxInterims <= 0 {
		cfg.MaxInterims = DefaultMaxInterims
	}
	if cfg.Align == (align.Config{}) {
		cfg.Align = align.DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		start := time.Now()
		clock = func() int64 { return time.Since(start).Milliseconds() }
	}

	buf := buffer.New(cfg.BufferWindowMs)
	idGen := utterance.NewGenerator()

	thresholds := cfg.Thresholds
	if !thresholds.Valid() || thresholds == (classify.Thresholds{}) {
		thresholds = classify.DefaultThresholds()
	}

	return &Session{
		cfg:        cfg,
		logger:     logging.WithSession(cfg.SessionID),
		metrics:    metrics.DefaultMetrics,
		publisher:  pub,
		broadcast:  bc,
		validator:  schema.New(),
		clock:      clock,
		sessionID:  cfg.SessionID,
		buf:        buf,
		engine:     align.New(buf, cfg.Align),
		state:      transcript.New(cfg.MaxWords),
		voice:      calibrate.NewVoice(),
		noise:      calibrate.NewNoiseFloor(),
		thresholds: thresholds,
		lifecycle:  utterance.NewLifecycle(idGen.Next(cfg.SessionID)),
		idGen:      idGen,
		demo:       fallback.New(),
		cmds:       make(chan func(), 256),
		pubQ:       make(chan publishJob, publishQueueDepth),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes commands until the context is cancelled or Stop is called.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	if s.publisher != nil {
		go s.publishLoop(ctx)
	}

	var tick <-chan time.Time
	var ticker *time.Ticker
	if s.cfg.FallbackTick > 0 {
		ticker = time.NewTicker(s.cfg.FallbackTick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case cmd := <-s.cmds:
			cmd()
		case <-tick:
			s.fallbackTick()
		}
	}
}

// Stop terminates the actor loop and waits for it to exit.
func (s *Session) Stop() {
	close(s.quit)
	<-s.done
}

// post enqueues a command without waiting.
func (s *Session) post(cmd func()) {
	select {
	case s.cmds <- cmd:
	case <-s.done:
	}
}

// call enqueues a command and waits for it to run.
func (s *Session) call(cmd func()) {
	ran := make(chan struct{})
	s.post(func() {
		cmd()
		close(ran)
	})
	select {
	case <-ran:
	case <-s.done:
	}
}

// HandleProminence ingests one prominence event from the oracle.
func (s *Session) HandleProminence(ev models.ProminenceEvent) {
	s.post(func() {
		if s.noise.Calibrating() {
			s.metrics.RecordEventDiscarded("noise_calibration")
			return
		}

		s.buf.Push(ev)
		s.buf.Prune(s.clock())
		s.metrics.RecordEvent(s.buf.Len())

		if s.voice.Active() {
			s.voice.Observe(ev.Score)
		}

		// Degraded mode has no recognizer to produce words, so each
		// prominence event advances the scripted sequence instead.
		if s.degraded {
			s.fallbackTick()
		}
	})
}

// HandleInterim ingests an interim recognition result.
func (s *Session) HandleInterim(text string) {
	s.post(func() {
		if err := s.lifecycle.AcceptInterim(); err != nil {
			// Interim text after the final belongs to the next utterance;
			// dropped rather than displayed against a scored batch.
			s.logger.Debug().Str("utterance", s.lifecycle.ID()).Msg("Interim after final, dropping")
			return
		}
		if s.interimCount >= s.cfg.MaxInterims {
			s.logger.Warn().
				Str("utterance", s.lifecycle.ID()).
				Int("limit", s.cfg.MaxInterims).
				Msg("Interim limit exceeded, dropping")
			return
		}
		s.interimCount++

		words := s.engine.AlignInterim(text)
		if len(words) == 0 {
			// No interim text pending means an empty interim list, not a
			// stale one.
			s.state.ClearInterim()
			s.broadcastFrame(s.status())
			return
		}
		s.state.ReplaceInterim(words)
		s.metrics.RecordInterim()

		event := models.CaptionInterim{
			EventType:   "caption.interim",
			SessionID:   s.sessionID,
			UtteranceID: s.lifecycle.ID(),
			TimestampMs: s.clock(),
			Text:        text,
		}
		s.publishInterim(event)
		s.broadcastFrame(render.StatusLive)
	})
}

// HandleFinal ingests a finalized recognition result and scores it.
func (s *Session) HandleFinal(text string, confidence float64) {
	s.post(func() {
		arrival := s.clock()
		words := s.engine.AlignFinal(text, arrival)
		if len(words) == 0 {
			// Recognizers flush empty finals on silence. They must not
			// consume the utterance's single final slot or drop displayed
			// interim words.
			return
		}

		if err := s.lifecycle.AcceptFinal(); err != nil {
			s.logger.Warn().Err(err).Str("utterance", s.lifecycle.ID()).Msg("Rejecting final result")
			return
		}

		s.state.ClearInterim()
		s.state.AppendFinal(words)

		noEvidence := 0
		outWords := make([]models.CaptionWord, 0, len(words))
		for _, w := range words {
			if w.Score == s.cfg.Align.NoEvidenceScore {
				noEvidence++
			}
			outWords = append(outWords, models.CaptionWord{
				Text:      w.Text,
				Score:     w.Score,
				SizeLevel: classify.ScoreToLevel(w.Score, s.thresholds),
			})
		}
		s.metrics.RecordAlignment(len(words), noEvidence)

		event := models.CaptionFinal{
			EventType:   "caption.final",
			SessionID:   s.sessionID,
			UtteranceID: s.lifecycle.ID(),
			TimestampMs: arrival,
			Words:       outWords,
			Confidence:  confidence,
		}
		s.publishFinal(event)
		s.broadcastFrame(render.StatusLive)
	})
}

// HandleEndOfUtterance advances to the next utterance.
func (s *Session) HandleEndOfUtterance() {
	s.post(func() {
		s.lifecycle.Advance(s.idGen.Next(s.sessionID))
		s.interimCount = 0
	})
}

// HandleRecognizerFatal drops the open utterance and enters degraded mode.
func (s *Session) HandleRecognizerFatal(err error) {
	s.post(func() {
		s.logger.Error().Err(err).Msg("Recognizer failed, entering degraded mode")
		s.metrics.RecordRecognizerError("fatal")
		s.lifecycle.Drop()
		s.state.ClearInterim()
		s.degraded = true
		s.broadcastFrame(render.StatusDegraded)
	})
}

// HandleNoiseCalibrationStart marks the oracle noise calibration as running.
// Prominence events are discarded until it ends.
func (s *Session) HandleNoiseCalibrationStart() {
	s.post(func() {
		s.noise.Start()
		s.buf.Clear()
		s.broadcastFrame(render.StatusCalibrate)
	})
}

// HandleNoiseCalibrationEnd marks the oracle noise calibration as complete.
func (s *Session) HandleNoiseCalibrationEnd() {
	s.post(func() {
		s.noise.End()
		s.metrics.NoiseCalibrations.Inc()
		s.broadcastFrame(s.status())
	})
}

// StartVoiceCalibration opens a voice-range calibration window.
func (s *Session) StartVoiceCalibration() {
	s.call(func() {
		s.voice.Begin()
		s.logger.Info().Msg("Voice calibration started")
	})
}

// FinishVoiceCalibration closes the window and applies derived thresholds.
// Existing thresholds survive an insufficient-sample failure.
func (s *Session) FinishVoiceCalibration() (calibrate.Result, error) {
	var res calibrate.Result
	var err error
	s.call(func() {
		res, err = s.voice.Finish()
		if err != nil {
			s.metrics.VoiceCalibrationErrors.Inc()
			return
		}
		s.thresholds = res.Thresholds
		s.metrics.VoiceCalibrations.Inc()
		s.metrics.RecordThresholdWrite("calibration")
		s.logger.Info().
			Float64("smallMax", res.Thresholds.SmallMax).
			Float64("normalMax", res.Thresholds.NormalMax).
			Int("samples", res.SampleCount).
			Msg("Voice calibration applied")
		s.broadcastFrame(s.status())
	})
	return res, err
}

// SetThresholds overwrites the size thresholds from manual control.
func (s *Session) SetThresholds(t classify.Thresholds) error {
	var err error
	s.call(func() {
		if !t.Valid() {
			err = classify.ErrInvalidThresholds
			return
		}
		s.thresholds = t
		s.metrics.RecordThresholdWrite("manual")
		s.broadcastFrame(s.status())
	})
	return err
}

// ResetTranscript clears the displayable caption state.
func (s *Session) ResetTranscript() {
	s.call(func() {
		s.state.Reset()
		s.broadcastFrame(s.status())
	})
}

// Snapshot returns the current render-ready view.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.call(func() {
		snap = Snapshot{
			SessionID:   s.sessionID,
			UtteranceID: s.lifecycle.ID(),
			Status:      s.status(),
			Words:       s.renderWords(),
			Thresholds:  s.thresholds,
		}
	})
	return snap
}

func (s *Session) fallbackTick() {
	if !s.degraded {
		return
	}
	w := s.demo.Next()
	s.state.AppendFinal([]models.ScoredWord{w})
	s.metrics.FallbackTicks.Inc()
	s.broadcastFrame(render.StatusDegraded)
}

func (s *Session) status() string {
	switch {
	case s.noise.Calibrating() || s.voice.Active():
		return render.StatusCalibrate
	case s.degraded:
		return render.StatusDegraded
	default:
		return render.StatusLive
	}
}

func (s *Session) renderWords() []models.RenderWord {
	scored := s.state.Snapshot()
	out := make([]models.RenderWord, 0, len(scored))
	for _, w := range scored {
		out = append(out, models.RenderWord{
			Text:      w.Text,
			SizeLevel: classify.ScoreToLevel(w.Score, s.thresholds),
			IsInterim: w.Interim,
		})
	}
	return out
}

func (s *Session) broadcastFrame(status string) {
	if s.broadcast == nil {
		return
	}
	s.broadcast.Broadcast(render.Frame{
		Status:      status,
		Words:       s.renderWords(),
		TimestampMs: s.clock(),
	})
}

func (s *Session) publishInterim(event models.CaptionInterim) {
	if s.publisher == nil {
		return
	}
	if err := s.validator.Validate(event); err != nil {
		s.logger.Error().Err(err).Msg("Interim event failed validation, not publishing")
		return
	}
	s.enqueuePublish(publishJob{event: event})
}

func (s *Session) publishFinal(event models.CaptionFinal) {
	if s.publisher == nil {
		return
	}
	if err := s.validator.Validate(event); err != nil {
		s.logger.Error().Err(err).Msg("Final event failed validation, not publishing")
		return
	}
	s.enqueuePublish(publishJob{final: true, event: event})
}

func (s *Session) enqueuePublish(job publishJob) {
	select {
	case s.pubQ <- job:
	default:
		s.logger.Warn().Msg("Publish queue full, dropping event")
	}
}

// publishLoop drains the publish queue off the actor goroutine so a stalled
// broker never blocks caption rendering. Queue order preserves the interim
// and final delivery order.
func (s *Session) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case job := <-s.pubQ:
			pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			var err error
			if job.final {
				err = s.publisher.PublishFinal(pubCtx, s.sessionID, job.event)
			} else {
				err = s.publisher.PublishInterim(pubCtx, s.sessionID, job.event)
			}
			cancel()
			if err != nil {
				s.logger.Error().Err(err).Msg("Event publish failed")
			}
		}
	}
}
