package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn blocks reads until closed and records text writes.
type fakeConn struct {
	mu      sync.Mutex
	written []string
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.TextMessage {
		f.mu.Lock()
		f.written = append(f.written, string(data))
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func TestHubReplaysLastMessage(t *testing.T) {
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	require.NoError(t, h.BroadcastJSON(map[string]string{"state": "idle"}))
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.last != nil
	}, time.Second, time.Millisecond)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()

	require.Eventually(t, func() bool { return len(conn.Written()) == 1 }, time.Second, time.Millisecond)
	assert.JSONEq(t, `{"state":"idle"}`, conn.Written()[0])
	assert.Equal(t, 1, h.ClientCount())

	require.NoError(t, h.BroadcastJSON(map[string]string{"state": "recording"}))
	require.Eventually(t, func() bool { return len(conn.Written()) == 2 }, time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHubStopsWithContext(t *testing.T) {
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.False(t, h.IsRunning())

	// Joining a stopped hub must not block.
	late := NewClient(h, newFakeConn())
	_, ok := <-late.send
	assert.False(t, ok)
}
