package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/transcription"
)

func newSidecar(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newEngine(t *testing.T, url string) *Engine {
	t.Helper()
	e, err := New(Config{URL: url, Model: "large-v3", Timeout: 5 * time.Second}, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestTranscribe(t *testing.T) {
	srv := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if got := r.FormValue("model"); got != "large-v3" {
			t.Errorf("model = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     "привет мир",
			"language": "ru",
			"segments": []map[string]any{
				{"start": 0.0, "end": 1.5, "text": "привет"},
				{"start": 1.5, "end": 3.0, "text": "мир"},
			},
		})
	})

	e := newEngine(t, srv.URL)
	resp, err := e.Transcribe(context.Background(), transcription.Request{
		FileName: "chunk_000.flac",
		Data:     []byte("fake-audio"),
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if resp.Text != "привет мир" {
		t.Errorf("text = %q", resp.Text)
	}
	if len(resp.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(resp.Segments))
	}
	if resp.Duration != 3.0 {
		t.Errorf("duration = %v, want 3.0", resp.Duration)
	}
}

func TestTranscribeSidecarError(t *testing.T) {
	srv := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	})

	e := newEngine(t, srv.URL)
	_, err := e.Transcribe(context.Background(), transcription.Request{
		FileName: "chunk_000.flac",
		Data:     []byte("fake-audio"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadWaitsForSidecar(t *testing.T) {
	var healthy atomic.Bool
	srv := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		if !healthy.Load() {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "device": "cuda"})
	})

	e := newEngine(t, srv.URL)
	if e.Ready() {
		t.Fatal("engine should not be ready before Load")
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		healthy.Store(true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !e.Ready() {
		t.Error("engine should be ready after Load")
	}
	if e.Device() != "cuda" {
		t.Errorf("device = %q, want cuda", e.Device())
	}
}

func TestLoadCancelled(t *testing.T) {
	srv := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
	})

	e := newEngine(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := e.Load(ctx); err == nil {
		t.Fatal("expected error when sidecar never becomes ready")
	}
}
