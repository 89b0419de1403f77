package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestDoJoinsBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL + "/"})

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if gotPath != "/health" {
		t.Errorf("path = %q, want /health", gotPath)
	}
}

func TestDoAppliesAuth(t *testing.T) {
	tests := []struct {
		name       string
		auth       *AuthConfig
		wantHeader string
		wantValue  string
	}{
		{"bearer", BearerAuth("tok-123"), "Authorization", "Bearer tok-123"},
		{"api key default header", APIKeyAuth("secret"), "X-Api-Key", "secret"},
		{"api key custom header", APIKeyAuthHeader("secret", "X-Proxy-Key"), "X-Proxy-Key", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got http.Header
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Clone()
			}))
			defer srv.Close()

			c := newTestClient(t, Config{BaseURL: srv.URL, Auth: tt.auth})
			if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
				t.Fatalf("Do failed: %v", err)
			}
			if got.Get(tt.wantHeader) != tt.wantValue {
				t.Errorf("header %s = %q, want %q", tt.wantHeader, got.Get(tt.wantHeader), tt.wantValue)
			}
		})
	}
}

func TestRequestAuthOverridesClientAuth(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL, Auth: BearerAuth("client-token")})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/",
		Auth:   BearerAuth("request-token"),
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != "Bearer request-token" {
		t.Errorf("Authorization = %q, want request-level token", got)
	}
}

func TestDoJSONBody(t *testing.T) {
	var gotCT string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/",
		Body:   map[string]string{"status": "accepted"},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q", gotCT)
	}
	if gotBody["status"] != "accepted" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestDoMultipartBody(t *testing.T) {
	var gotFile []byte
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		gotFile, _ = io.ReadAll(f)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/enqueue_chunk",
		Body: &MultipartBody{
			Files: []FileField{AudioFile("chunk_003.flac", []byte("flac-bytes"))},
		},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if gotName != "chunk_003.flac" {
		t.Errorf("filename = %q", gotName)
	}
	if string(gotFile) != "flac-bytes" {
		t.Errorf("file content = %q", gotFile)
	}
}

func TestDoClassifiesErrors(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusUnauthorized, IsAuth, "401 auth"},
		{http.StatusNotFound, IsNotFound, "404 not found"},
		{http.StatusServiceUnavailable, IsUnavailable, "503 unavailable"},
		{http.StatusInternalServerError, IsRetryable, "500 retryable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newTestClient(t, Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("error %v not classified as expected", err)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("response should carry status %d", tt.status)
			}
		})
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxAttempts = 5
	retryCfg.InitialBackoff = time.Millisecond

	c := newTestClient(t, Config{BaseURL: srv.URL, Retry: retryCfg})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("Do failed after retries: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestDoDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	retryCfg := DefaultRetryConfig()
	retryCfg.InitialBackoff = time.Millisecond

	c := newTestClient(t, Config{BaseURL: srv.URL, Retry: retryCfg})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 401)", calls.Load())
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","queue_size":2,"device":"cuda"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})

	var out struct {
		Status    string `json:"status"`
		QueueSize int    `json:"queue_size"`
		Device    string `json:"device"`
	}
	if err := c.GetJSON(context.Background(), "/health", &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Status != "ok" || out.QueueSize != 2 || out.Device != "cuda" {
		t.Errorf("out = %+v", out)
	}
}

func TestDoStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("streamed-payload"))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	stream, err := c.DoStream(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("DoStream failed: %v", err)
	}
	defer stream.Close()

	if stream.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d", stream.StatusCode)
	}
	body, _ := io.ReadAll(stream.Body)
	if string(body) != "streamed-payload" {
		t.Errorf("body = %q", body)
	}
}
