package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mihmosh/whisper-flash/httpclient"
	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/resilience"
)

// SegmentResult is the terminal outcome for one chunk.
type SegmentResult struct {
	Index  int     `json:"index"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Status string  `json:"status"`
	Text   string  `json:"text"`
	// Err holds the failure message for chunks that could not be
	// transcribed; empty on success.
	Err string `json:"error,omitempty"`
	// Worker is the index of the worker that handled the chunk.
	Worker int `json:"worker"`
}

// Dispatcher submits chunks through the proxy round-robin, polls for
// results, and reports per-chunk outcomes.
type Dispatcher struct {
	cfg    Config
	client *httpclient.Client
	pollRL *resilience.RateLimiter
	log    *logger.Logger
	// lanes serialize submissions per worker so a slow upload to one
	// worker never has a second upload queued behind it on the wire.
	lanes []sync.Mutex
}

// NewDispatcher creates a dispatcher talking to the proxy.
func NewDispatcher(cfg Config, log *logger.Logger) (*Dispatcher, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.ProxyURL,
		Timeout: cfg.RequestTimeout,
		Auth:    httpclient.APIKeyAuth(cfg.APIKey),
	})
	if err != nil {
		return nil, fmt.Errorf("client: create proxy client: %w", err)
	}

	return &Dispatcher{
		cfg:    cfg,
		client: client,
		pollRL: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name: "poll",
			Rate: cfg.PollRate,
		}),
		log:   log.WithComponent("dispatcher"),
		lanes: make([]sync.Mutex, cfg.Workers),
	}, nil
}

// workerHealth mirrors the worker /health payload.
type workerHealth struct {
	Status    string `json:"status"`
	QueueSize int    `json:"queue_size"`
	Device    string `json:"device"`
}

// WarmUp pings every worker's health endpoint until it reports "ok". Cold
// instances are woken by the first ping and load the model while we wait.
func (d *Dispatcher) WarmUp(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.WarmupTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, d.cfg.Workers)
	for w := 0; w < d.cfg.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			errs[w] = d.warmUpWorker(ctx, w)
		}(w)
	}
	wg.Wait()

	for w, err := range errs {
		if err != nil {
			return fmt.Errorf("worker %d not ready: %w", w, err)
		}
	}
	return nil
}

func (d *Dispatcher) warmUpWorker(ctx context.Context, worker int) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		var h workerHealth
		err := d.client.GetJSON(ctx, fmt.Sprintf("/%d/health", worker), &h)
		if err == nil && h.Status == "ok" {
			d.log.Info("Worker ready", map[string]interface{}{
				"worker": worker,
				"device": h.Device,
			})
			return nil
		}
		if err != nil {
			d.log.Debug("Worker not reachable yet", map[string]interface{}{
				"worker": worker,
				"error":  err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Run submits all chunks and polls until every one reaches a terminal
// state. Results are returned in the same order as chunks; failed chunks
// carry their error message instead of text. Chunk.Index is carried into
// each result but never used as a slice position, so callers may pass any
// subset or ordering of chunks.
func (d *Dispatcher) Run(ctx context.Context, chunks []Chunk) []SegmentResult {
	results := make([]SegmentResult, len(chunks))

	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.runChunk(ctx, chunks[i])
		}(i)
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) runChunk(ctx context.Context, chunk Chunk) SegmentResult {
	result := SegmentResult{
		Index: chunk.Index,
		Start: chunk.Start,
		End:   chunk.End,
	}

	worker, taskID, err := d.submit(ctx, chunk)
	if err != nil {
		result.Status = "error"
		result.Err = fmt.Sprintf("submit failed: %v", err)
		d.log.Error("Chunk submit failed", map[string]interface{}{
			"chunk": chunk.Index,
			"error": err.Error(),
		})
		return result
	}
	result.Worker = worker

	text, err := d.pollResult(ctx, worker, taskID)
	if err != nil {
		result.Status = "error"
		result.Err = err.Error()
		d.log.Error("Chunk failed", map[string]interface{}{
			"chunk":  chunk.Index,
			"worker": worker,
			"error":  err.Error(),
		})
		return result
	}

	result.Status = "completed"
	result.Text = text
	return result
}

// enqueueResponse mirrors the worker /enqueue_chunk payload.
type enqueueResponse struct {
	Status  string `json:"status"`
	ChunkID string `json:"chunk_id"`
}

// submit enqueues a chunk, starting at its round-robin worker and moving
// to the next worker on every retryable failure (queue full, transport
// errors). Returns the worker that accepted the chunk and the task ID.
func (d *Dispatcher) submit(ctx context.Context, chunk Chunk) (int, string, error) {
	worker := chunk.Index % d.cfg.Workers

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    d.cfg.SubmitMaxAttempts,
		InitialBackoff: d.cfg.SubmitBackoff,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  1.5,
		Jitter:         0.2,
		RetryIf:        httpclient.IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			d.log.Warn("Chunk rerouted", map[string]interface{}{
				"chunk":   chunk.Index,
				"worker":  worker,
				"attempt": attempt,
				"backoff": backoff.String(),
				"error":   err.Error(),
			})
			worker = (worker + 1) % d.cfg.Workers
		},
	}

	taskID, err := resilience.Retry(ctx, retryCfg, func() (string, error) {
		return d.enqueue(ctx, worker, chunk)
	})
	if err != nil {
		return 0, "", err
	}
	return worker, taskID, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, worker int, chunk Chunk) (string, error) {
	d.lanes[worker].Lock()
	defer d.lanes[worker].Unlock()

	resp, err := d.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/%d/enqueue_chunk", worker),
		Body: &httpclient.MultipartBody{
			Files: []httpclient.FileField{httpclient.AudioFile(chunk.FileName(), chunk.Data)},
		},
	})
	if err != nil {
		return "", err
	}

	var enq enqueueResponse
	if err := json.Unmarshal(resp.Body, &enq); err != nil {
		return "", fmt.Errorf("decode enqueue response: %w", err)
	}
	if enq.ChunkID == "" {
		return "", fmt.Errorf("enqueue response missing chunk_id")
	}
	return enq.ChunkID, nil
}

// resultResponse mirrors the worker /get_result payload.
type resultResponse struct {
	Status  string `json:"status"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// pollResult polls until the task reaches a terminal state. A 404 for a
// task we know was accepted means the worker restarted and lost it;
// that is a permanent failure, not something to wait out.
func (d *Dispatcher) pollResult(ctx context.Context, worker int, taskID string) (string, error) {
	path := fmt.Sprintf("/%d/get_result/%s", worker, taskID)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d.cfg.PollInterval):
		}

		// Global rate cap across all concurrent pollers.
		if err := d.pollRL.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := d.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: path})
		if err != nil {
			if httpclient.IsNotFound(err) {
				return "", fmt.Errorf("task %s lost (worker %d restarted)", taskID, worker)
			}
			// Transient transport trouble: keep polling.
			d.log.Debug("Poll failed, retrying", map[string]interface{}{
				"worker": worker,
				"task":   taskID,
				"error":  err.Error(),
			})
			continue
		}

		var r resultResponse
		if err := json.Unmarshal(resp.Body, &r); err != nil {
			return "", fmt.Errorf("decode result: %w", err)
		}

		switch r.Status {
		case "completed":
			return r.Text, nil
		case "error":
			return "", fmt.Errorf("transcription failed: %s", r.Message)
		default:
			// still queued
		}
	}
}
