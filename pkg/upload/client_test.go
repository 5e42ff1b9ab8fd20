package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teslashibe/go-vision-replica/pkg/formdata"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithEndpoint(server.URL + "/process")}, opts...)
	client, err := NewClient(opts...)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestClientUpload(t *testing.T) {
	body, err := formdata.Encode([]byte("audio"), []byte("image"), "XYZ")
	if err != nil {
		t.Fatal(err)
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process" {
			t.Errorf("Expected /process, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "multipart/form-data; boundary=XYZ" {
			t.Errorf("Unexpected content type %q", ct)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if _, hdr, err := r.FormFile("audio"); err != nil || hdr.Filename != "recording.m4a" {
			t.Errorf("audio part: %v %v", hdr, err)
		}
		if _, hdr, err := r.FormFile("image"); err != nil || hdr.Filename != "image.jpg" {
			t.Errorf("image part: %v %v", hdr, err)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"response_text":"A cat.","speech_mp3":"SUQz"}`)
	})

	resp, err := client.Upload(context.Background(), body, "XYZ")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Text != "A cat." {
		t.Errorf("Expected 'A cat.', got %q", resp.Text)
	}
	if resp.SpeechMP3 != "SUQz" {
		t.Errorf("Expected 'SUQz', got %q", resp.SpeechMP3)
	}
	if resp.BytesSent != len(body) {
		t.Errorf("Expected %d bytes sent, got %d", len(body), resp.BytesSent)
	}
}

func TestClientUploadParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing text", `{"speech_mp3":"SUQz"}`, "response_text"},
		{"missing speech", `{"response_text":"hi"}`, "speech_mp3"},
		{"null speech", `{"response_text":"hi","speech_mp3":null}`, "speech_mp3"},
		{"numeric text", `{"response_text":42,"speech_mp3":"SUQz"}`, "response_text"},
		{"not json", `<html>oops</html>`, ""},
		{"array", `[1,2,3]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})

			_, err := client.Upload(context.Background(), []byte("x"), "XYZ")
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *ParseError, got %T: %v", err, err)
			}
			if perr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, perr.Field)
			}
		})
	}
}

func TestClientUploadAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"Audio or image file is missing"}`)
	})

	_, err := client.Upload(context.Background(), []byte("x"), "XYZ")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Audio or image file is missing" {
		t.Errorf("Unexpected message %q", apiErr.Message)
	}
	if !apiErr.IsClientError() || apiErr.IsServerError() {
		t.Error("Expected client error classification")
	}
}

func TestClientUploadTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := client.Upload(context.Background(), []byte("x"), "XYZ")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %T: %v", err, err)
	}
	if !netErr.Timeout {
		t.Errorf("Expected timeout, got %v", netErr)
	}
}

func TestClientUploadConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL + "/process"
	server.Close()

	client, err := NewClient(WithEndpoint(endpoint), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Upload(context.Background(), []byte("x"), "XYZ")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %T: %v", err, err)
	}
	if netErr.Timeout {
		t.Error("Connection refused should not be a timeout")
	}
}

func TestClientUploadCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Upload(ctx, []byte("x"), "XYZ")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled in chain, got %v", err)
	}
}

func TestClientUploadEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	})
	if _, err := client.Upload(context.Background(), nil, "XYZ"); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Expected ErrEmptyBody, got %v", err)
	}
}

func TestClientHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"message":"welcome"}`)
	})

	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(WithEndpoint("")); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("Expected ErrNoEndpoint, got %v", err)
	}
	if _, err := NewClient(WithTimeout(0)); !errors.Is(err, ErrInvalidTimeout) {
		t.Errorf("Expected ErrInvalidTimeout, got %v", err)
	}
	if _, err := NewClient(WithEndpoint("not a url")); err == nil {
		t.Error("Expected invalid endpoint error")
	}
}

func TestMockCallTracking(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	if _, err := m.Upload(ctx, []byte("body"), "B"); err != nil {
		t.Fatal(err)
	}
	_ = m.Health(ctx)

	if m.CallCount("Upload") != 1 || m.CallCount("Health") != 1 {
		t.Errorf("Unexpected calls: %+v", m.Calls())
	}
	if got := m.Calls()[0].Boundary; got != "B" {
		t.Errorf("Expected boundary B, got %q", got)
	}

	m.Reset()
	if len(m.Calls()) != 0 {
		t.Error("Reset did not clear calls")
	}
}
