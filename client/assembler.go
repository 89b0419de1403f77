package client

import (
	"fmt"
	"sort"
	"strings"
)

// Transcript is the ordered final output. Label distinguishes audio
// tracks when a recording carries more than one.
type Transcript struct {
	Label    string          `json:"label,omitempty"`
	Segments []SegmentResult `json:"segments"`
}

// Assemble orders segment results by sequence index. Failed chunks stay in
// place as inline error markers so surrounding timestamps keep their
// meaning.
func Assemble(results []SegmentResult) Transcript {
	segments := make([]SegmentResult, len(results))
	copy(segments, results)
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Index < segments[j].Index
	})
	return Transcript{Segments: segments}
}

// Text renders the transcript as plain text, one segment per line.
func (t Transcript) Text() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		if seg.Err != "" {
			b.WriteString(fmt.Sprintf("[transcription error: %s]", seg.Err))
		} else {
			b.WriteString(strings.TrimSpace(seg.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Failed returns the segments that ended in error.
func (t Transcript) Failed() []SegmentResult {
	var failed []SegmentResult
	for _, seg := range t.Segments {
		if seg.Err != "" {
			failed = append(failed, seg)
		}
	}
	return failed
}
