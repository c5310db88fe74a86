package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"prosody-caption-service/internal/observability/logging"
	"prosody-caption-service/internal/recognizer"
)

// pingInterval keeps idle connections alive through proxies.
const pingInterval = 15 * time.Second

// Config holds remote engine connection parameters.
type Config struct {
	URL        string
	Language   string
	SampleRate int
}

// Client implements recognizer.Adapter over the remote websocket protocol.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cb     recognizer.Callback
	cancel context.CancelFunc
	closed bool
}

// New creates a remote recognizer client. No connection is made until Start.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		logger: logging.WithComponent("recognizer-remote"),
	}
}

// Start dials the engine, sends the start control message and begins the
// read and keepalive loops.
func (c *Client) Start(ctx context.Context, cb recognizer.Callback) error {
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial remote recognizer: %w", err)
	}

	start := startMessage{
		Type: "start",
		Config: startConfig{
			Language:   c.cfg.Language,
			SampleRate: c.cfg.SampleRate,
		},
	}
	if err := wsjson.Write(ctx, conn, start); err != nil {
		conn.Close(websocket.StatusInternalError, "start failed")
		return fmt.Errorf("send start message: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.cb = cb
	c.cancel = cancel
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(loopCtx, conn, cb)
	go c.pingLoop(loopCtx, conn)
	return nil
}

// SendAudio forwards raw samples as one binary frame.
func (c *Client) SendAudio(ctx context.Context, audio []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errors.New("remote recognizer not started")
	}
	return conn.Write(ctx, websocket.MessageBinary, audio)
}

// Close sends the stop control message and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = wsjson.Write(ctx, c.conn, stopMessage{Type: "stop"})
	return c.conn.Close(websocket.StatusNormalClosure, "session stopped")
}

// readLoop decodes server frames and dispatches them to the callback.
// Malformed messages are logged and skipped; they never take the pipeline
// down. A closed connection is reported as a transient error so the runner
// reconnects.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, cb recognizer.Callback) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed && ctx.Err() == nil {
				cb.OnError(recognizer.MarkTransient(fmt.Errorf("remote recognizer read: %w", err)))
			}
			return
		}
		if typ != websocket.MessageText {
			// Binary frames only travel client → server.
			continue
		}

		ev, err := decodeServer(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Discarding malformed server message")
			continue
		}

		switch ev := ev.(type) {
		case startedEvent:
			c.logger.Info().Msg("Remote recognition session started")
		case pongEvent:
			// Keepalive reply; nothing to do.
		case resultEvent:
			if ev.IsFinal {
				cb.OnFinal(ev.Transcript, ev.Confidence)
				cb.OnEndOfUtterance()
			} else {
				cb.OnInterim(ev.Transcript)
			}
		case errorEvent:
			cb.OnError(recognizer.MarkTransient(fmt.Errorf("remote recognizer: %s", ev.Message)))
		}
	}
}

// pingLoop sends protocol-level ping messages until the session ends.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wsjson.Write(ctx, conn, pingMessage{Type: "ping"}); err != nil {
				return
			}
		}
	}
}
