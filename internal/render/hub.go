// Package render broadcasts caption frames to websocket renderer clients.
package render

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/observability/logging"
	"prosody-caption-service/internal/observability/metrics"
)

// writeTimeout bounds a single frame write so one slow client cannot stall
// the broadcast.
const writeTimeout = 2 * time.Second

// Status values carried on every frame.
const (
	StatusLive      = "live"
	StatusDegraded  = "degraded"
	StatusCalibrate = "calibrating"
)

// Frame is one caption snapshot pushed to renderer clients.
type Frame struct {
	Type        string              `json:"type"`
	Status      string              `json:"status"`
	Words       []models.RenderWord `json:"words"`
	TimestampMs int64               `json:"timestamp"`
}

// Hub fans caption frames out to connected websocket clients. New clients
// immediately receive the latest frame so they never start from a blank
// caption line.
type Hub struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
	last  *Frame
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		logger:  logging.WithComponent("render-hub"),
		metrics: metrics.DefaultMetrics,
		conns:   make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Clients are write-only; inbound frames are drained
// and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Websocket accept failed")
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	last := h.last
	count := len(h.conns)
	h.mu.Unlock()
	h.metrics.RenderClients.Set(float64(count))

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		count := len(h.conns)
		h.mu.Unlock()
		h.metrics.RenderClients.Set(float64(count))
	}()

	h.logger.Info().Str("remote", r.RemoteAddr).Msg("Renderer connected")

	if last != nil {
		ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
		_ = wsjson.Write(ctx, conn, last)
		cancel()
	}

	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			h.logger.Debug().Err(err).Msg("Renderer disconnected")
			return
		}
	}
}

// Broadcast pushes one frame to every connected client and remembers it for
// late joiners.
func (h *Hub) Broadcast(frame Frame) {
	if frame.Type == "" {
		frame.Type = "caption"
	}

	h.mu.Lock()
	h.last = &frame
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.metrics.RenderFrames.Inc()

	for _, c := range conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, frame)
		}(c)
	}
}

// ClientCount reports the number of connected renderers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// LastFrame returns the most recently broadcast frame, or nil before the
// first broadcast.
func (h *Hub) LastFrame() *Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}
