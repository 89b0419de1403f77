package transcription

import "context"

// Engine is the interface speech-to-text backends implement.
type Engine interface {
	// Name returns the backend name.
	Name() string

	// Load prepares the engine (model download, sidecar warm-up). It blocks
	// until the engine is usable or ctx is cancelled. Safe to call from a
	// background goroutine while the service is already serving /health.
	Load(ctx context.Context) error

	// Ready reports whether the engine can accept transcription requests.
	Ready() bool

	// Device returns the compute device the model runs on (e.g. "cuda", "cpu").
	Device() string

	// Transcribe converts audio to text.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
