package client

import "fmt"

// Chunk is one speech-bearing audio segment. Index defines the final
// transcript ordering regardless of completion order.
type Chunk struct {
	// Index is the 0-based sequence index.
	Index int
	// Start is the segment start in the source recording, seconds.
	Start float64
	// End is the segment end in the source recording, seconds.
	End float64
	// Data is the extracted audio, FLAC-encoded.
	Data []byte
}

// FileName returns the upload name for this chunk.
func (c Chunk) FileName() string {
	return fmt.Sprintf("chunk_%03d.flac", c.Index)
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// Span is a half-open time interval in seconds, used during silence
// detection.
type Span struct {
	Start float64
	End   float64
}
