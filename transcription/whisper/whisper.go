// Package whisper implements transcription.Engine against a faster-whisper
// HTTP sidecar running in the same container.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mihmosh/whisper-flash/httpclient"
	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/transcription"
)

const (
	// EngineName is the name reported by this engine.
	EngineName = "whisper"

	defaultSidecarURL = "http://localhost:8387"
	defaultModel      = "large-v3"
	defaultTimeout    = 120 * time.Second
	loadPollInterval  = 2 * time.Second
)

// Config holds configuration for the whisper sidecar engine.
type Config struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Language string        `yaml:"language,omitempty" mapstructure:"language"`
	Device   string        `yaml:"device,omitempty" mapstructure:"device"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Engine implements transcription.Engine using a faster-whisper HTTP sidecar.
type Engine struct {
	cfg    Config
	client *httpclient.Client
	log    *logger.Logger

	ready  atomic.Bool
	device atomic.Value // string, reported by the sidecar once loaded
}

var _ transcription.Engine = (*Engine)(nil)

// New creates a whisper sidecar engine.
func New(cfg Config, log *logger.Logger) (*Engine, error) {
	if cfg.URL == "" {
		cfg.URL = defaultSidecarURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.URL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: create client: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		client: client,
		log:    log.WithComponent("whisper"),
	}
	e.device.Store(cfg.Device)
	return e, nil
}

// Name returns the engine name.
func (e *Engine) Name() string { return EngineName }

// Ready reports whether the sidecar has finished loading the model.
func (e *Engine) Ready() bool { return e.ready.Load() }

// Device returns the compute device reported by the sidecar, or the
// configured fallback while loading.
func (e *Engine) Device() string {
	if d, ok := e.device.Load().(string); ok && d != "" {
		return d
	}
	return "unknown"
}

// Load polls the sidecar health endpoint until the model is loaded or ctx
// is cancelled. Model download on a cold GPU instance can take minutes.
func (e *Engine) Load(ctx context.Context) error {
	e.log.Info("Waiting for whisper sidecar", map[string]interface{}{
		"url":   e.cfg.URL,
		"model": e.cfg.Model,
	})

	ticker := time.NewTicker(loadPollInterval)
	defer ticker.Stop()

	for {
		status, device, err := e.sidecarHealth(ctx)
		if err == nil && status == "ok" {
			if device != "" {
				e.device.Store(device)
			}
			e.ready.Store(true)
			e.log.Info("Whisper sidecar ready", map[string]interface{}{
				"device": e.Device(),
			})
			return nil
		}
		if err != nil {
			e.log.Debug("Sidecar not reachable yet", map[string]interface{}{
				"error": err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("whisper: sidecar did not become ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Transcribe sends audio to the sidecar and returns the transcription.
func (e *Engine) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	model := e.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := e.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	fields := map[string]string{"model": model}
	if lang != "" {
		fields["language"] = lang
	}

	resp, err := e.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files:  []httpclient.FileField{httpclient.AudioFile(req.FileName, req.Data)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: transcribe: %w", err)
	}

	var result sidecarResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("whisper: decode response: %w", err)
	}

	return result.toResponse(), nil
}

func (e *Engine) sidecarHealth(ctx context.Context) (status, device string, err error) {
	var out struct {
		Status string `json:"status"`
		Device string `json:"device"`
	}
	if err := e.client.GetJSON(ctx, "/health", &out); err != nil {
		return "", "", err
	}
	return out.Status, out.Device, nil
}

// --- sidecar API response types ---

type sidecarResponse struct {
	Text     string           `json:"text"`
	Segments []sidecarSegment `json:"segments"`
	Language string           `json:"language"`
}

type sidecarSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r *sidecarResponse) toResponse() *transcription.Response {
	segments := make([]transcription.Segment, len(r.Segments))
	for i, seg := range r.Segments {
		segments[i] = transcription.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	var duration float64
	if len(r.Segments) > 0 {
		duration = r.Segments[len(r.Segments)-1].End
	}

	return &transcription.Response{
		Text:     r.Text,
		Segments: segments,
		Duration: duration,
		Language: r.Language,
	}
}
