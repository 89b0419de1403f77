// Package worker implements the transcription worker service: an HTTP API
// that accepts audio chunk uploads into a bounded in-memory queue, a single
// background processor that feeds them to a transcription engine, and a
// result store polled by clients.
//
// Endpoints:
//
//	GET  /health           readiness, queue depth, and compute device
//	POST /enqueue_chunk    multipart upload, returns a chunk ID or 503
//	GET  /get_result/:id   task status and transcript once completed
package worker
