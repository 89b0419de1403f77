// Package component defines the lifecycle interface shared by the
// long-running pieces of a whisper-flash service (HTTP server,
// transcription engine) and a registry that starts them in order and
// stops them in reverse order.
package component
