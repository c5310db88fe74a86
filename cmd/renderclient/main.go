// Command renderclient connects to the caption websocket and prints frames
// to the terminal, marking word sizes with simple markup. Useful for
// checking the pipeline without a graphical renderer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"prosody-caption-service/internal/models"
	"prosody-caption-service/internal/render"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws/captions", "caption websocket URL")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.Dial(ctx, *url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *url, err)
		os.Exit(1)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	fmt.Printf("connected to %s\n", *url)

	for {
		var frame render.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "read: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[%s] %s\n", frame.Status, formatWords(frame.Words))
	}
}

// formatWords renders size tiers as text markup: small words in brackets,
// large words uppercase with bangs, interim words with a trailing ellipsis.
func formatWords(words []models.RenderWord) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		text := w.Text
		switch w.SizeLevel {
		case models.SizeSmall:
			text = "(" + text + ")"
		case models.SizeLarge:
			text = "*" + strings.ToUpper(text) + "*"
		}
		if w.IsInterim {
			text += "…"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
