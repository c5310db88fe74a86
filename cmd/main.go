package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	apihttp "prosody-caption-service/internal/api/http"
	"prosody-caption-service/internal/audio"
	"prosody-caption-service/internal/caption/align"
	"prosody-caption-service/internal/caption/classify"
	"prosody-caption-service/internal/config"
	"prosody-caption-service/internal/events"
	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/observability"
	"prosody-caption-service/internal/observability/logging"
	"prosody-caption-service/internal/observability/metrics"
	"prosody-caption-service/internal/prosody/oracle"
	oracleenergy "prosody-caption-service/internal/prosody/oracle/energy"
	oraclemock "prosody-caption-service/internal/prosody/oracle/mock"
	"prosody-caption-service/internal/recognizer"
	recoggoogle "prosody-caption-service/internal/recognizer/google"
	recogmock "prosody-caption-service/internal/recognizer/mock"
	recogremote "prosody-caption-service/internal/recognizer/remote"
	"prosody-caption-service/internal/render"
	"prosody-caption-service/internal/session"
)

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	logger := logging.WithComponent("main")

	var ready atomic.Bool
	obsServer := observability.NewServer(":"+cfg.Observability.MetricsPort, ready.Load)
	obsServer.Start()

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicInterim: cfg.Kafka.TopicInterim,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	var hub *render.Hub
	if cfg.Render.Enabled {
		hub = render.NewHub()
	}

	start := time.Now()
	clock := func() int64 { return time.Since(start).Milliseconds() }

	sess := session.New(session.Config{
		SessionID:      newSessionID(),
		BufferWindowMs: cfg.Pipeline.BufferWindowMs,
		MaxWords:       cfg.Pipeline.MaxTranscriptWords,
		MaxInterims:    cfg.Pipeline.MaxInterimsPerUtterance,
		Align: align.Config{
			LookbackCapMs:    cfg.Pipeline.LookbackCapMs,
			NoEvidenceScore:  align.DefaultConfig().NoEvidenceScore,
			InterimScore:     align.DefaultConfig().InterimScore,
			GapClampMs:       align.DefaultConfig().GapClampMs,
			LastEventProxyMs: align.DefaultConfig().LastEventProxyMs,
		},
		Thresholds: classify.Thresholds{
			SmallMax:  cfg.Pipeline.SmallMax,
			NormalMax: cfg.Pipeline.NormalMax,
		},
		Clock:        clock,
		FallbackTick: cfg.Pipeline.FallbackTick,
	}, publisher, broadcaster(hub))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		sess.Run(ctx)
		return nil
	})

	// Prominence oracle
	orc := buildOracle(cfg)
	if err := orc.Start(ctx, &oracleCallback{sess: sess}); err != nil {
		logger.Error().Err(err).Msg("Oracle start failed")
		os.Exit(1)
	}
	defer orc.Close()

	// Establish the ambient noise floor before scoring live speech.
	if err := orc.StartCalibration(ctx); err != nil {
		logger.Warn().Err(err).Msg("Noise calibration failed to start")
	}

	// Speech recognizer, supervised for transient-error restarts. A failed
	// init sends the pipeline into degraded mode instead of exiting.
	runner := buildRecognizer(ctx, cfg, sess)
	if runner != nil {
		defer runner.Close()
	}

	// Audio fan-out: one capture stream feeds both the oracle and the
	// recognizer.
	if cfg.Audio.Enabled {
		capt, err := audio.NewCapturer(cfg.Audio.SampleRateHz, cfg.Audio.ChunkFrames, 32, clock)
		if err != nil {
			logger.Error().Err(err).Msg("Audio init failed")
			os.Exit(1)
		}
		if err := capt.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Audio capture failed")
			os.Exit(1)
		}
		defer capt.Stop()

		g.Go(func() error {
			feedAudio(ctx, capt.Output(), orc, runner)
			return nil
		})
	} else {
		// No microphone: drive the mock adapters on a fixed cadence so the
		// demo pipeline still produces captions.
		g.Go(func() error {
			feedSynthetic(ctx, clock, orc, runner)
			return nil
		})
	}

	// Control API
	httpServer := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      apihttp.NewRouter(sess, renderHandler(hub)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// gRPC health endpoint for mesh probes
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		logger.Error().Err(err).Msg("gRPC listen failed")
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)
	g.Go(func() error {
		logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
		return grpcServer.Serve(lis)
	})

	ready.Store(true)
	logger.Info().Msg("Prosody caption service started")

	<-ctx.Done()
	ready.Store(false)
	logger.Info().Msg("Shutting down")

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = obsServer.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Shutdown with error")
		os.Exit(1)
	}
}

func newSessionID() string {
	return "sess-" + time.Now().UTC().Format("20060102T150405")
}

func buildOracle(cfg *config.Config) oracle.Oracle {
	oc := oracle.Config{
		ProminenceThreshold:   cfg.Oracle.ProminenceThreshold,
		MinSyllableDistMs:     cfg.Oracle.MinSyllableDistMs,
		MinEnergyThreshold:    cfg.Oracle.MinEnergyThreshold,
		CalibrationDurationMs: cfg.Oracle.CalibrationDurationMs,
	}
	switch cfg.Oracle.Provider {
	case "mock":
		return oraclemock.New()
	default:
		return oracleenergy.New(oc)
	}
}

// buildRecognizer wires the configured recognition adapter behind the
// restart supervisor. Returns nil after a fatal init failure, in which case
// the session is already degraded.
func buildRecognizer(ctx context.Context, cfg *config.Config, sess *session.Session) *recognizer.Runner {
	logger := logging.WithComponent("main")

	var adapter recognizer.Adapter
	switch cfg.Recognizer.Provider {
	case "google":
		a, err := recoggoogle.New(ctx, recoggoogle.Config{
			LanguageCode:   cfg.Recognizer.LanguageCode,
			SampleRateHz:   int32(cfg.Recognizer.SampleRateHz),
			InterimResults: cfg.Recognizer.InterimResults,
			AudioEncoding:  cfg.Recognizer.AudioEncoding,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Google recognizer init failed")
			sess.HandleRecognizerFatal(err)
			return nil
		}
		adapter = a
	case "remote":
		adapter = recogremote.New(recogremote.Config{
			URL:        cfg.Recognizer.RemoteURL,
			Language:   cfg.Recognizer.LanguageCode,
			SampleRate: cfg.Recognizer.SampleRateHz,
		})
	default:
		adapter = recogmock.New()
	}

	runner := recognizer.NewRunner(adapter)
	runner.OnRestart = func() {
		metrics.DefaultMetrics.RecognizerRestarts.Inc()
	}

	if err := runner.Start(ctx, &recognizerCallback{sess: sess}); err != nil {
		logger.Error().Err(err).Msg("Recognizer start failed")
		sess.HandleRecognizerFatal(err)
		return nil
	}
	return runner
}

func feedAudio(ctx context.Context, chunks <-chan audio.Chunk, orc oracle.Oracle, runner *recognizer.Runner) {
	logger := logging.WithComponent("audio-feed")
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if err := orc.SendAudio(ctx, chunk.Data, chunk.TimestampMs); err != nil {
				logger.Warn().Err(err).Msg("Oracle rejected audio chunk")
			}
			if runner != nil {
				if err := runner.SendAudio(ctx, audio.ToPCM16(chunk.Data)); err != nil {
					logger.Warn().Err(err).Msg("Recognizer rejected audio chunk")
				}
			}
		}
	}
}

// feedSynthetic sends silent chunks on a fixed cadence, enough to advance
// the mock adapters.
func feedSynthetic(ctx context.Context, clock func() int64, orc oracle.Oracle, runner *recognizer.Runner) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	silence := make([]float32, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = orc.SendAudio(ctx, silence, clock())
			if runner != nil {
				_ = runner.SendAudio(ctx, audio.ToPCM16(silence))
			}
		}
	}
}

func broadcaster(hub *render.Hub) session.Broadcaster {
	if hub == nil {
		return nil
	}
	return hub
}

func renderHandler(hub *render.Hub) http.Handler {
	if hub == nil {
		return nil
	}
	return hub
}

// oracleCallback routes oracle signals onto the session actor.
type oracleCallback struct {
	sess *session.Session
}

func (c *oracleCallback) OnProminence(ev models.ProminenceEvent) { c.sess.HandleProminence(ev) }
func (c *oracleCallback) OnCalibrationStart()                    { c.sess.HandleNoiseCalibrationStart() }
func (c *oracleCallback) OnCalibrationEnd()                      { c.sess.HandleNoiseCalibrationEnd() }
func (c *oracleCallback) OnError(err error) {
	logging.WithComponent("oracle").Error().Err(err).Msg("Oracle error")
}

// recognizerCallback routes recognition results onto the session actor. Only
// fatal errors arrive here; the runner absorbs transient ones.
type recognizerCallback struct {
	sess *session.Session
}

func (c *recognizerCallback) OnInterim(text string) { c.sess.HandleInterim(text) }
func (c *recognizerCallback) OnFinal(text string, confidence float64) {
	c.sess.HandleFinal(text, confidence)
}
func (c *recognizerCallback) OnEndOfUtterance() { c.sess.HandleEndOfUtterance() }
func (c *recognizerCallback) OnError(err error) { c.sess.HandleRecognizerFatal(err) }
