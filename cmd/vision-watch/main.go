// Vision Watch - follow a running client's cycle from the terminal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vision-replica/pkg/cycle"
)

var icons = map[cycle.State]string{
	cycle.StateIdle:      "💤",
	cycle.StateRecording: "🎙️ ",
	cycle.StateCapturing: "📷",
	cycle.StateUploading: "📤",
	cycle.StatePlaying:   "🔊",
}

func main() {
	addr := flag.String("addr", "localhost:8080", "Dashboard host:port")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/status"}
	fmt.Printf("👀 Watching %s (Ctrl+C to exit)\n", u.String())

	backoff := time.Second
	for ctx.Err() == nil {
		err := watch(ctx, u.String(), os.Stdout)
		if ctx.Err() != nil {
			break
		}
		log.Printf("⚠️  %v, reconnecting in %s", err, backoff)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
	fmt.Println("\n👋 Goodbye!")
}

// watch prints snapshots from the status socket until it closes or ctx ends.
func watch(ctx context.Context, wsURL string, w io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var last string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var snap cycle.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		if line := format(snap); line != last {
			fmt.Fprintln(w, line)
			last = line
		}
	}
}

// format renders one snapshot as a status line.
func format(s cycle.Snapshot) string {
	line := fmt.Sprintf("%s %-9s", icons[s.State], s.State)
	if s.StatusText != "" {
		line += "  " + s.StatusText
	}
	if s.State == cycle.StateIdle && s.ResponseText != "" {
		line += "  💬 " + s.ResponseText
	}
	if s.LastError != nil {
		line += fmt.Sprintf("  ❌ %s: %s", s.LastError.Kind, s.LastError.Message)
	}
	return line
}
