package backend

import (
	"context"
	"sync"
	"time"
)

// Mock implements Inferencer for testing.
type Mock struct {
	TranscribeFunc func(ctx context.Context, audio []byte, filename string) (string, error)
	DescribeFunc   func(ctx context.Context, question string, image []byte) (string, error)
	SpeakFunc      func(ctx context.Context, text string) ([]byte, error)
	HealthFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Input  string
	Time   time.Time
}

// NewMock creates a mock that hears "what is this" and sees a cat.
func NewMock() *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, audio []byte, filename string) (string, error) {
			return "what is this", nil
		},
		DescribeFunc: func(ctx context.Context, question string, image []byte) (string, error) {
			return "A cat.", nil
		},
		SpeakFunc: func(ctx context.Context, text string) ([]byte, error) {
			return []byte("ID3" + text), nil
		},
	}
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	m.record("Transcribe", filename)
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, filename)
	}
	return "", nil
}

// Describe calls DescribeFunc and records the call.
func (m *Mock) Describe(ctx context.Context, question string, image []byte) (string, error) {
	m.record("Describe", question)
	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, question, image)
	}
	return "", WrapError(stepDescribe, ErrEmptyReply)
}

// Speak calls SpeakFunc and records the call.
func (m *Mock) Speak(ctx context.Context, text string) ([]byte, error) {
	m.record("Speak", text)
	if m.SpeakFunc != nil {
		return m.SpeakFunc(ctx, text)
	}
	return nil, nil
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns the number of calls to a specific method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *Mock) record(method, input string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Input: input, Time: time.Now()})
}

var _ Inferencer = (*Mock)(nil)
