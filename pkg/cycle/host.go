package cycle

import (
	"sync"
	"time"

	"github.com/teslashibe/go-vision-replica/pkg/camera"
)

// ErrorInfo is the published form of the last failure.
type ErrorInfo struct {
	Kind    Kind   `json:"kind"`
	Stage   State  `json:"stage"`
	Message string `json:"message"`
}

// Snapshot is the observable cycle state.
type Snapshot struct {
	State        State         `json:"state"`
	StatusText   string        `json:"status_text"`
	ResponseText string        `json:"response_text"`
	Facing       camera.Facing `json:"facing,omitempty"`
	LastError    *ErrorInfo    `json:"last_error,omitempty"`
	Cycle        uint64        `json:"cycle"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Host owns the cycle state and notifies subscribers of every change.
// Subscribers get buffered channels holding the latest snapshot; a slow
// reader skips intermediate snapshots but never misses the newest.
type Host struct {
	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// NewHost creates a host in the idle state.
func NewHost() *Host {
	return &Host{
		snap: Snapshot{State: StateIdle, UpdatedAt: time.Now()},
		subs: make(map[int]chan Snapshot),
	}
}

// Snapshot returns the current state.
func (h *Host) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// State returns the current cycle state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap.State
}

// Subscribe returns a channel receiving snapshots, starting with the
// current one, and a function that ends the subscription.
func (h *Host) Subscribe() (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Snapshot, 1)
	ch <- h.snap
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// PublishResponse sets the response text.
func (h *Host) PublishResponse(text string) {
	h.update(func(s *Snapshot) { s.ResponseText = text })
}

// SetStatusText sets the transient status line.
func (h *Host) SetStatusText(text string) {
	h.update(func(s *Snapshot) { s.StatusText = text })
}

// SetFacing records the active camera.
func (h *Host) SetFacing(f camera.Facing) {
	h.update(func(s *Snapshot) { s.Facing = f })
}

// begin moves from Idle to Recording. It fails if a cycle is in flight.
func (h *Host) begin() (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.snap.State.Busy() {
		return 0, ErrCycleInProgress
	}
	h.snap.Cycle++
	h.snap.State = StateRecording
	h.snap.ResponseText = ""
	h.snap.LastError = nil
	h.snap.UpdatedAt = time.Now()
	h.broadcast()
	return h.snap.Cycle, nil
}

func (h *Host) transition(to State) {
	h.update(func(s *Snapshot) { s.State = to })
}

// finish returns to Idle, recording err when non-nil.
func (h *Host) finish(err *Error) {
	h.update(func(s *Snapshot) {
		s.State = StateIdle
		s.StatusText = ""
		if err != nil {
			s.LastError = &ErrorInfo{Kind: err.Kind, Stage: err.Stage, Message: err.Err.Error()}
		}
	})
}

func (h *Host) update(fn func(*Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.snap)
	h.snap.UpdatedAt = time.Now()
	h.broadcast()
}

// broadcast replaces any unread snapshot with the current one.
// Caller holds h.mu.
func (h *Host) broadcast() {
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- h.snap
	}
}
