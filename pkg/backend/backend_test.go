package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vision-replica/pkg/formdata"
)

func processRequest(t *testing.T, body []byte, contentType string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/process", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	out := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestWelcome(t *testing.T) {
	s := NewServer(ServerConfig{}, NewMock())
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Welcome to your favourite server!", decode(t, resp)["Server Running"])
}

func TestProcess(t *testing.T) {
	reg := prometheus.NewRegistry()
	inf := NewMock()
	s := NewServer(ServerConfig{Registry: reg}, inf)

	body, err := formdata.Encode([]byte("m4a-bytes"), []byte("jpeg-bytes"), "XYZ")
	require.NoError(t, err)

	resp, err := s.App().Test(processRequest(t, body, formdata.ContentType("XYZ")), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	assert.Equal(t, "A cat.", out["response_text"])
	speech, err := base64.StdEncoding.DecodeString(out["speech_mp3"])
	require.NoError(t, err)
	assert.Equal(t, "ID3A cat.", string(speech))

	calls := inf.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Transcribe", calls[0].Method)
	assert.Equal(t, formdata.AudioFilename, calls[0].Input)
	assert.Equal(t, "what is this", calls[1].Input)
	assert.Equal(t, "A cat.", calls[2].Input)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.requests.WithLabelValues("ok")))
}

func TestProcessMissingPart(t *testing.T) {
	inf := NewMock()
	s := NewServer(ServerConfig{}, inf)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(formdata.AudioField, formdata.AudioFilename)
	require.NoError(t, err)
	part.Write([]byte("m4a"))
	require.NoError(t, w.Close())

	resp, err := s.App().Test(processRequest(t, buf.Bytes(), w.FormDataContentType()), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Audio or image file is missing", decode(t, resp)["error"])
	assert.Equal(t, 0, inf.CallCount("Transcribe"))
}

func TestProcessImageTooLarge(t *testing.T) {
	inf := NewMock()
	s := NewServer(ServerConfig{MaxImageBytes: 8}, inf)

	body, err := formdata.Encode([]byte("m4a"), []byte("more than eight bytes"), "XYZ")
	require.NoError(t, err)

	resp, err := s.App().Test(processRequest(t, body, formdata.ContentType("XYZ")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Image file size exceeds 10 MB", decode(t, resp)["error"])
	assert.Equal(t, 0, inf.CallCount("Transcribe"))
}

func TestProcessUpstreamFailure(t *testing.T) {
	inf := NewMock()
	inf.DescribeFunc = func(ctx context.Context, question string, image []byte) (string, error) {
		return "", &APIError{StatusCode: 500, Message: "boom", Step: stepDescribe}
	}
	s := NewServer(ServerConfig{}, inf)

	body, err := formdata.Encode([]byte("m4a"), []byte("jpeg"), "XYZ")
	require.NoError(t, err)

	resp, err := s.App().Test(processRequest(t, body, formdata.ContentType("XYZ")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["error"], "boom")
	assert.Equal(t, 0, inf.CallCount("Speak"))
}

func TestPrompt(t *testing.T) {
	p := Prompt("  what is this ")
	assert.True(t, strings.HasPrefix(p, "Here's the question: what is this. Make the response quick"))
	assert.Contains(t, p, "maximum 2-3 sentences")
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

// fakeOpenAI serves the three endpoints the pipeline calls.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, DefaultTranscribeModel, r.FormValue("model"))
		f, _, err := r.FormFile("file")
		assert.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "m4a", string(data))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"what is this"}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultVisionModel, req.Model)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.Len(t, req.Messages, 1)
		assert.Len(t, req.Messages[0].Content, 2)
		assert.Contains(t, req.Messages[0].Content[0].Text, "what is this")
		assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("jpeg")),
			req.Messages[0].Content[1].ImageURL.URL)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"A cat."},"finish_reason":"stop"}],"usage":{"total_tokens":9}}`)
	})
	mux.HandleFunc("/v1/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "A cat.", req["input"])
		assert.Equal(t, DefaultVoice, req["voice"])
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-mp3"))
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIPipeline(t *testing.T) {
	srv := fakeOpenAI(t)
	inf, err := NewOpenAI(WithAPIKey("sk-test"), WithBaseURL(srv.URL+"/v1/"))
	require.NoError(t, err)

	ctx := context.Background()
	q, err := inf.Transcribe(ctx, []byte("m4a"), formdata.AudioFilename)
	require.NoError(t, err)
	assert.Equal(t, "what is this", q)

	answer, err := inf.Describe(ctx, q, []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "A cat.", answer)

	speech, err := inf.Speak(ctx, answer)
	require.NoError(t, err)
	assert.Equal(t, "ID3-mp3", string(speech))

	err = inf.Health(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.True(t, apiErr.IsUnauthorized())
}
