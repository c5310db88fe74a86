package render

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"prosody-caption-service/internal/models"
)

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(h)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	conn, _, err := websocket.Dial(ctx, url, nil)
	cancel()
	if err != nil {
		srv.Close()
		t.Fatalf("dial failed: %v", err)
	}
	return conn, func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		srv.Close()
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var f Frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	h := NewHub()
	conn, cleanup := dialHub(t, h)
	defer cleanup()

	waitClients(t, h, 1)

	h.Broadcast(Frame{
		Status:      StatusLive,
		Words:       []models.RenderWord{{Text: "go", SizeLevel: models.SizeLarge}},
		TimestampMs: 1000,
	})

	f := readFrame(t, conn)
	if f.Type != "caption" {
		t.Errorf("expected default frame type 'caption', got %q", f.Type)
	}
	if f.Status != StatusLive {
		t.Errorf("expected status live, got %q", f.Status)
	}
	if len(f.Words) != 1 || f.Words[0].Text != "go" || f.Words[0].SizeLevel != models.SizeLarge {
		t.Errorf("unexpected words: %+v", f.Words)
	}
}

func TestHub_LateJoinerGetsLastFrame(t *testing.T) {
	h := NewHub()
	h.Broadcast(Frame{
		Status:      StatusDegraded,
		Words:       []models.RenderWord{{Text: "demo", SizeLevel: models.SizeNormal}},
		TimestampMs: 500,
	})

	conn, cleanup := dialHub(t, h)
	defer cleanup()

	f := readFrame(t, conn)
	if f.Status != StatusDegraded || len(f.Words) != 1 || f.Words[0].Text != "demo" {
		t.Errorf("late joiner should receive last frame, got %+v", f)
	}
}

func TestHub_ClientCountTracksDisconnect(t *testing.T) {
	h := NewHub()
	conn, cleanup := dialHub(t, h)

	waitClients(t, h, 1)

	_ = conn.Close(websocket.StatusNormalClosure, "")
	cleanup()

	waitClients(t, h, 0)
}

func TestHub_LastFrameNilBeforeBroadcast(t *testing.T) {
	h := NewHub()
	if h.LastFrame() != nil {
		t.Error("expected nil last frame before first broadcast")
	}
}

func waitClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, h.ClientCount())
}
