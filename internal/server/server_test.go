package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/crimson-sun/quill/internal/engine"
	"github.com/crimson-sun/quill/internal/model"
	"github.com/crimson-sun/quill/internal/output"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

// fakeCorrector answers from a table and records calls. hook, when set, runs
// inside Correct and may block or fail.
type fakeCorrector struct {
	mu      sync.Mutex
	answers map[string]string
	calls   []string
	hook    func(ctx context.Context, text string) error
}

func (f *fakeCorrector) Correct(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, text); err != nil {
			return "", err
		}
	}
	if out, ok := f.answers[text]; ok {
		return out, nil
	}
	return text, nil
}

func (f *fakeCorrector) Name() string { return "fake" }
func (f *fakeCorrector) Close() error { return nil }

func (f *fakeCorrector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(fc *fakeCorrector, opts Options) *Server {
	opts.Logger = quietLogger()
	return New(engine.New(fc, nil), opts)
}

func post(t *testing.T, h http.Handler, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/correct", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestCorrectScenarios(t *testing.T) {
	fc := &fakeCorrector{answers: map[string]string{
		"This is wrong grammar": "This is wrong grammar.",
		"hello world":           "Hello world",
		"is this correct?":      "Is this correct.",
		"Correct sentence.":     "Correct sentence.",
	}}
	h := newTestServer(fc, Options{}).Handler()

	tests := []struct {
		text          string
		wantCorrected string
		wantType      string
	}{
		{"This is wrong grammar", "This is wrong grammar.", "Grammar/Syntax"},
		{"hello world", "Hello world", "Capitalization"},
		{"is this correct?", "Is this correct.", "Punctuation"},
		{"Correct sentence.", "Correct sentence.", "No Error"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"text": tt.text})
			rec := post(t, h, string(body))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			got := decode(t, rec)
			assert.Equal(t, tt.text, got["original_text"])
			assert.Equal(t, tt.wantCorrected, got["corrected"])
			assert.Equal(t, tt.wantType, got["error_type"])
			assert.Len(t, got, 3)
		})
	}
}

func TestCorrectBodyMatchesCLIRecord(t *testing.T) {
	fc := &fakeCorrector{answers: map[string]string{"hello world": "Hello world"}}
	h := newTestServer(fc, Options{}).Handler()

	rec := post(t, h, `{"text": "hello world"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	want, err := json.Marshal(output.FromResult(model.CorrectionResult{
		OriginalText:  "hello world",
		CorrectedText: "Hello world",
		ErrorType:     model.Capitalization,
	}))
	require.NoError(t, err)
	assert.JSONEq(t, string(want), rec.Body.String())
}

func TestCorrectRejectsMissingText(t *testing.T) {
	fc := &fakeCorrector{}
	h := newTestServer(fc, Options{}).Handler()

	bodies := []string{
		`{"text": ""}`,
		`{"text": "   "}`,
		`{"text": "\t\n"}`,
		`{}`,
		`{"sentence": "wrong field"}`,
		`not json`,
		``,
	}
	for _, body := range bodies {
		rec := post(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, map[string]string{"error": "No text provided"}, decode(t, rec), "body %q", body)
	}
	assert.Zero(t, fc.callCount(), "engine must not be called for invalid input")
}

func TestCorrectEngineFailureSanitized(t *testing.T) {
	fc := &fakeCorrector{hook: func(context.Context, string) error {
		return &model.EngineError{Engine: "fake", Err: errors.New("tensor shape mismatch")}
	}}
	h := newTestServer(fc, Options{}).Handler()

	rec := post(t, h, `{"text": "anything"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "correction failed", decode(t, rec)["error"])
	assert.Equal(t, 1, fc.callCount(), "no retries")
}

func TestCorrectEngineFailureExposed(t *testing.T) {
	fc := &fakeCorrector{hook: func(context.Context, string) error {
		return &model.EngineError{Engine: "fake", Err: errors.New("tensor shape mismatch")}
	}}
	h := newTestServer(fc, Options{ExposeErrors: true}).Handler()

	rec := post(t, h, `{"text": "anything"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "fake engine: tensor shape mismatch", decode(t, rec)["error"])
}

func TestCorrectTimeout(t *testing.T) {
	fc := &fakeCorrector{hook: func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	h := newTestServer(fc, Options{RequestTimeout: 20 * time.Millisecond}).Handler()

	rec := post(t, h, `{"text": "slow"}`)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "correction timed out", decode(t, rec)["error"])
}

func TestCorrectTimeoutHeader(t *testing.T) {
	fc := &fakeCorrector{hook: func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	h := newTestServer(fc, Options{RequestTimeout: time.Minute}).Handler()

	start := time.Now()
	rec := post(t, h, `{"text": "slow"}`, "X-Request-Timeout", "0.02")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestTimeoutHeaderParsing(t *testing.T) {
	s := newTestServer(&fakeCorrector{}, Options{
		RequestTimeout:    30 * time.Second,
		MaxRequestTimeout: 60 * time.Second,
	})

	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 30 * time.Second},
		{"5", 5 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{"600", 60 * time.Second},
		{"0", 30 * time.Second},
		{"-3", 30 * time.Second},
		{"soon", 30 * time.Second},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/correct", nil)
		if tt.header != "" {
			req.Header.Set("X-Request-Timeout", tt.header)
		}
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req
		assert.Equal(t, tt.want, s.timeout(c), "header %q", tt.header)
	}
}

func TestCorrectBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fc := &fakeCorrector{hook: func(ctx context.Context, text string) error {
		if text == "first" {
			close(started)
			<-release
		}
		return nil
	}}
	h := newTestServer(fc, Options{MaxConcurrent: 1}).Handler()

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- post(t, h, `{"text": "first"}`) }()
	<-started

	rec := post(t, h, `{"text": "second"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "server busy", decode(t, rec)["error"])

	close(release)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, fc.callCount(), "rejected request must not reach the engine")

	// The slot is free again.
	rec = post(t, h, `{"text": "third"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCorrectBodyTooLarge(t *testing.T) {
	fc := &fakeCorrector{}
	h := newTestServer(fc, Options{MaxBodyBytes: 32}).Handler()

	rec := post(t, h, `{"text": "`+strings.Repeat("a", 100)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request too large", decode(t, rec)["error"])
	assert.Zero(t, fc.callCount())
}

func TestCorrectPanicRecovered(t *testing.T) {
	fc := &fakeCorrector{hook: func(context.Context, string) error {
		panic("engine exploded")
	}}
	h := newTestServer(fc, Options{}).Handler()

	rec := post(t, h, `{"text": "boom"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "correction failed", decode(t, rec)["error"])

	// The admission slot was released during unwinding.
	fc.mu.Lock()
	fc.hook = nil
	fc.mu.Unlock()
	rec = post(t, h, `{"text": "fine"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHome(t *testing.T) {
	h := newTestServer(&fakeCorrector{}, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Model is running.", rec.Body.String())
}

func TestHealthzAndLabels(t *testing.T) {
	h := newTestServer(&fakeCorrector{}, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok", "engine": "fake"}, decode(t, rec))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/labels", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Labels []string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"No Error", "Punctuation", "Capitalization", "Grammar/Syntax"}, body.Labels)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestServer(&fakeCorrector{}, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/correct", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", decode(t, rec)["error"])
}

func TestCORS(t *testing.T) {
	h := newTestServer(&fakeCorrector{}, Options{}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/correct", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	rec = post(t, h, `{"text": "Fine."}`)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	h := newTestServer(&fakeCorrector{}, Options{}).Handler()

	rec := post(t, h, `{"text": "Fine."}`)
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err, "generated id should be a uuid")

	incoming := uuid.NewString()
	rec = post(t, h, `{"text": "Fine."}`, "X-Request-ID", incoming)
	assert.Equal(t, incoming, rec.Header().Get("X-Request-ID"))

	rec = post(t, h, `{"text": "Fine."}`, "X-Request-ID", "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-ID"))

	// Error responses carry an id too.
	rec = post(t, h, `{"text": ""}`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(&fakeCorrector{}, Options{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	client.CloseIdleConnections()
}

func TestListenAndServeBadAddr(t *testing.T) {
	s := newTestServer(&fakeCorrector{}, Options{})
	err := s.ListenAndServe(context.Background(), "not-an-address")
	assert.Error(t, err)
}
