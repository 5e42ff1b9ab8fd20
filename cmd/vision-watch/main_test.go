package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vision-replica/pkg/cycle"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "🎙️  recording  Start speaking..",
		format(cycle.Snapshot{State: cycle.StateRecording, StatusText: "Start speaking.."}))
	assert.Equal(t, "💤 idle       💬 A cat.",
		format(cycle.Snapshot{State: cycle.StateIdle, ResponseText: "A cat."}))
	assert.Contains(t,
		format(cycle.Snapshot{State: cycle.StateIdle, LastError: &cycle.ErrorInfo{Kind: cycle.KindNetworkFailure, Message: "refused"}}),
		"network_failure: refused")
}

func TestWatchPrintsChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range []string{
			`{"state":"idle"}`,
			`{"state":"idle"}`,
			`not json`,
			`{"state":"recording","status_text":"Start speaking"}`,
		} {
			conn.WriteMessage(websocket.TextMessage, []byte(msg))
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := watch(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/status", &out)
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "idle")
	assert.Contains(t, lines[1], "Start speaking")
}
