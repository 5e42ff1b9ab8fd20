package upload

import (
	"context"
	"sync"
	"time"
)

// Mock implements Uploader for testing.
type Mock struct {
	// UploadFunc is called when Upload is invoked.
	UploadFunc func(ctx context.Context, body []byte, boundary string) (*Response, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method   string
	Body     []byte
	Boundary string
	Time     time.Time
}

// NewMock creates a mock that answers every upload with a short reply.
func NewMock() *Mock {
	return &Mock{
		UploadFunc: func(ctx context.Context, body []byte, boundary string) (*Response, error) {
			return &Response{
				Text:      "Mock response",
				SpeechMP3: "SUQzBAAAAAAAAA==",
				BytesSent: len(body),
			}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Upload calls UploadFunc and records the call.
func (m *Mock) Upload(ctx context.Context, body []byte, boundary string) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Upload", Body: body, Boundary: boundary, Time: time.Now()})
	fn := m.UploadFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, body, boundary)
	}
	return nil, &NetworkError{Op: "send", Err: ErrNoEndpoint}
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Health", Time: time.Now()})
	fn := m.HealthFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of calls to a method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

var _ Uploader = (*Mock)(nil)
