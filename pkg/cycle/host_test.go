package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostSubscribeStartsWithCurrent(t *testing.T) {
	h := NewHost()
	h.SetStatusText("hello")

	ch, stop := h.Subscribe()
	defer stop()

	snap := <-ch
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "hello", snap.StatusText)
}

func TestHostSlowSubscriberSeesLatest(t *testing.T) {
	h := NewHost()
	ch, stop := h.Subscribe()
	defer stop()

	for _, s := range []string{"a", "b", "c"} {
		h.SetStatusText(s)
	}

	snap := <-ch
	assert.Equal(t, "c", snap.StatusText)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}

func TestHostBeginRejectsBusy(t *testing.T) {
	h := NewHost()

	id, err := h.begin()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = h.begin()
	assert.ErrorIs(t, err, ErrCycleInProgress)

	h.finish(&Error{Kind: KindNetworkFailure, Stage: StateUploading, Err: assert.AnError})
	snap := h.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, KindNetworkFailure, snap.LastError.Kind)

	_, err = h.begin()
	require.NoError(t, err)
	assert.Nil(t, h.Snapshot().LastError)
}

func TestHostUnsubscribeClosesChannel(t *testing.T) {
	h := NewHost()
	ch, stop := h.Subscribe()
	<-ch
	stop()
	stop()

	_, ok := <-ch
	assert.False(t, ok)
	h.SetStatusText("after")
}

func TestStateBusy(t *testing.T) {
	assert.False(t, StateIdle.Busy())
	for _, s := range []State{StateRecording, StateCapturing, StateUploading, StatePlaying} {
		assert.True(t, s.Busy(), s)
	}
}
