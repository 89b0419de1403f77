package transcription

// Request holds the audio payload and parameters for a transcription call.
type Request struct {
	// FileName is the original upload name, used for MIME type detection.
	FileName string `json:"file_name"`
	// Data is the raw audio content.
	Data []byte `json:"-"`
	// Language is the expected language of the audio (e.g. "ru").
	Language string `json:"language,omitempty"`
	// Model overrides the engine's configured model.
	Model string `json:"model,omitempty"`
}

// Response holds the result of a transcription call.
type Response struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Segments contains time-aligned transcript segments.
	Segments []Segment `json:"segments,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
}
