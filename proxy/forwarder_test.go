package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mihmosh/whisper-flash/errors"
	"github.com/mihmosh/whisper-flash/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAPIKey = "proxy-secret"

func newTestProxy(t *testing.T, issuer TokenIssuer, targets ...string) *gin.Engine {
	t.Helper()
	cfg := Config{
		APIKey:          testAPIKey,
		Targets:         targets,
		TokenTTL:        time.Minute,
		UpstreamTimeout: 5 * time.Second,
	}
	cfg.ApplyDefaults()

	svc, err := NewService(cfg, issuer, logger.NewDefault("test"), nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func doProxy(r *gin.Engine, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func authed() map[string]string {
	return map[string]string{"X-API-Key": testAPIKey}
}

// errorCode decodes the structured error body and returns its code.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body %q is not structured: %v", rec.Body.String(), err)
	}
	if resp.Error.Message == "" {
		t.Errorf("error body %q has no message", rec.Body.String())
	}
	return resp.Error.Code
}

func TestForwardRejectsBadAPIKeyBeforeUpstream(t *testing.T) {
	upstreamCalled := false
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalled = true
	}))
	defer upstream.Close()

	issuer := &fakeIssuer{}
	r := newTestProxy(t, issuer, upstream.URL)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"missing key", nil},
		{"wrong key", map[string]string{"X-API-Key": "wrong"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doProxy(r, http.MethodGet, "/0/health", nil, tt.headers)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
	if upstreamCalled {
		t.Error("upstream must not be called for unauthorized requests")
	}
	if issuer.calls.Load() != 0 {
		t.Error("no token should be fetched for unauthorized requests")
	}
}

func TestForwardInvalidIndex(t *testing.T) {
	r := newTestProxy(t, &fakeIssuer{}, "http://worker-0.invalid")

	for _, path := range []string{"/abc/health", "/5/health", "/-1/health"} {
		rec := doProxy(r, http.MethodGet, path, nil, authed())
		if rec.Code != http.StatusBadRequest {
			t.Errorf("path %s: status = %d, want 400", path, rec.Code)
		}
		if code := errorCode(t, rec); code != apperrors.ErrCodeInvalidInput {
			t.Errorf("path %s: error code = %q, want %q", path, code, apperrors.ErrCodeInvalidInput)
		}
	}
}

func TestForwardTokenFetchFailure(t *testing.T) {
	issuer := &fakeIssuer{}
	issuer.token = func(string) (string, error) {
		return "", io.ErrUnexpectedEOF
	}
	r := newTestProxy(t, issuer, "http://worker-0.invalid")

	rec := doProxy(r, http.MethodGet, "/0/health", nil, authed())
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if code := errorCode(t, rec); code != apperrors.ErrCodeTokenFetch {
		t.Errorf("error code = %q, want %q", code, apperrors.ErrCodeTokenFetch)
	}
}

func TestForwardUpstreamUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	r := newTestProxy(t, &fakeIssuer{}, dead.URL)

	rec := doProxy(r, http.MethodGet, "/0/health", nil, authed())
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if code := errorCode(t, rec); code != apperrors.ErrCodeUpstreamUnavailable {
		t.Errorf("error code = %q, want %q", code, apperrors.ErrCodeUpstreamUnavailable)
	}
}

func TestForwardPassesRequestThrough(t *testing.T) {
	var gotAuth, gotAPIKey, gotPath, gotQuery, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("X-API-Key")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"accepted","chunk_id":"c-1"}`))
	}))
	defer upstream.Close()

	r := newTestProxy(t, &fakeIssuer{}, upstream.URL)

	rec := doProxy(r, http.MethodPost, "/0/enqueue_chunk?lang=ru", strings.NewReader("chunk-bytes"), authed())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Errorf("Authorization = %q, want Bearer token", gotAuth)
	}
	if gotAPIKey != "" {
		t.Error("X-API-Key must be stripped before forwarding")
	}
	if gotPath != "/enqueue_chunk" {
		t.Errorf("path = %q, want /enqueue_chunk", gotPath)
	}
	if gotQuery != "lang=ru" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotBody != "chunk-bytes" {
		t.Errorf("body = %q", gotBody)
	}
	if !strings.Contains(rec.Body.String(), "c-1") {
		t.Errorf("response body = %q", rec.Body.String())
	}
}

func TestForwardKeepsRepeatedHeaderValues(t *testing.T) {
	var gotTags []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTags = r.Header.Values("X-Trace-Tag")
	}))
	defer upstream.Close()

	r := newTestProxy(t, &fakeIssuer{}, upstream.URL)

	req := httptest.NewRequest(http.MethodGet, "/0/health", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Add("X-Trace-Tag", "first")
	req.Header.Add("X-Trace-Tag", "second")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if want := []string{"first", "second"}; !reflect.DeepEqual(gotTags, want) {
		t.Errorf("X-Trace-Tag upstream = %v, want %v", gotTags, want)
	}
}

func TestForwardCopiesUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"queue full"}`))
	}))
	defer upstream.Close()

	r := newTestProxy(t, &fakeIssuer{}, upstream.URL)

	rec := doProxy(r, http.MethodPost, "/0/enqueue_chunk", nil, authed())
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 passed through", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "queue full") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestForwardRoutesByIndex(t *testing.T) {
	mk := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(name))
		}))
	}
	w0, w1 := mk("worker-0"), mk("worker-1")
	defer w0.Close()
	defer w1.Close()

	r := newTestProxy(t, &fakeIssuer{}, w0.URL, w1.URL)

	rec := doProxy(r, http.MethodGet, "/1/health", nil, authed())
	if rec.Body.String() != "worker-1" {
		t.Errorf("index 1 reached %q", rec.Body.String())
	}
	rec = doProxy(r, http.MethodGet, "/0/health", nil, authed())
	if rec.Body.String() != "worker-0" {
		t.Errorf("index 0 reached %q", rec.Body.String())
	}
}

func TestForwardReusesTokenAcrossRequests(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	issuer := &fakeIssuer{}
	r := newTestProxy(t, issuer, upstream.URL)

	for i := 0; i < 5; i++ {
		rec := doProxy(r, http.MethodGet, "/0/health", nil, authed())
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if issuer.calls.Load() != 1 {
		t.Errorf("issuer calls = %d, want 1 (token cached across requests)", issuer.calls.Load())
	}
}
