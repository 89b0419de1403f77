// Package transcription defines the speech-to-text engine interface and
// common types shared by the worker service and its backends.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//
// Engines load their model asynchronously; callers check Ready before
// reporting themselves healthy.
package transcription
