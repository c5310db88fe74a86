// Package audio captures microphone input with backpressure.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"prosody-caption-service/internal/observability/logging"
	"prosody-caption-service/internal/observability/metrics"
)

// Chunk is one captured block of mono float32 samples. TimestampMs comes
// from the injected session clock, keeping chunk timestamps on the same
// timeline as prominence events and alignment arrival times.
type Chunk struct {
	Data        []float32
	TimestampMs int64
}

// Capturer reads mono audio from the default input device. Chunks are
// delivered on a buffered channel; when the consumer falls behind, chunks
// are dropped rather than blocking the device callback path.
type Capturer struct {
	outCh        chan Chunk
	sampleRate   int
	framesPerBuf int
	clock        func() int64
	logger       zerolog.Logger
	metrics      *metrics.Metrics

	mu      sync.Mutex
	stream  *portaudio.Stream
	cancel  context.CancelFunc
	running bool
}

// NewCapturer initializes portaudio and prepares a capturer. The clock must
// be the same monotonic millisecond source the pipeline stamps prominence
// events with; nil falls back to a private epoch, acceptable only when
// nothing correlates chunk timestamps across components.
func NewCapturer(sampleRate, framesPerBuf, channelDepth int, clock func() int64) (*Capturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	if framesPerBuf <= 0 {
		framesPerBuf = 1024
	}
	if channelDepth <= 0 {
		channelDepth = 32
	}

	return &Capturer{
		outCh:        make(chan Chunk, channelDepth),
		sampleRate:   sampleRate,
		framesPerBuf: framesPerBuf,
		clock:        resolveClock(clock),
		logger:       logging.WithComponent("audio-capture"),
		metrics:      metrics.DefaultMetrics,
	}, nil
}

// resolveClock substitutes a private epoch when no shared clock is given.
func resolveClock(clock func() int64) func() int64 {
	if clock != nil {
		return clock
	}
	start := time.Now()
	return func() int64 { return time.Since(start).Milliseconds() }
}

// Output returns the channel for receiving audio chunks.
func (c *Capturer) Output() <-chan Chunk { return c.outCh }

// Start opens the default input device and begins reading.
func (c *Capturer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.sampleRate),
		FramesPerBuffer: c.framesPerBuf,
	}

	buf := make([]float32, c.framesPerBuf)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}

	captureCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.stream = stream
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Info().
		Str("device", dev.Name).
		Int("sampleRate", c.sampleRate).
		Int("framesPerBuffer", c.framesPerBuf).
		Msg("Audio capture started")

	go func() {
		for {
			select {
			case <-captureCtx.Done():
				return
			default:
			}

			if err := stream.Read(); err != nil {
				c.logger.Debug().Err(err).Msg("Audio read error")
				return
			}

			chunk := Chunk{
				Data:        append([]float32(nil), buf...),
				TimestampMs: c.clock(),
			}

			select {
			case c.outCh <- chunk:
				c.metrics.AudioChunks.Inc()
			default:
				c.logger.Debug().Msg("Audio channel full, dropping chunk")
			}
		}
	}()

	return nil
}

// Stop halts capture and releases the device.
func (c *Capturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false

	if c.cancel != nil {
		c.cancel()
	}
	if c.stream != nil {
		_ = c.stream.Stop()
		_ = c.stream.Close()
		c.stream = nil
	}
	_ = portaudio.Terminate()
}
