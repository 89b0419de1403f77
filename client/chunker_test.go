package client

import (
	"math"
	"testing"
)

func spansEqual(a, b []Span) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].Start-b[i].Start) > 1e-9 || math.Abs(a[i].End-b[i].End) > 1e-9 {
			return false
		}
	}
	return true
}

func TestParseSilences(t *testing.T) {
	out := `
[silencedetect @ 0x5618] silence_start: 3.5
[silencedetect @ 0x5618] silence_end: 5.25 | silence_duration: 1.75
frame=  100 fps=0.0 q=-0.0 size=N/A
[silencedetect @ 0x5618] silence_start: 10.0
[silencedetect @ 0x5618] silence_end: 12.5 | silence_duration: 2.5
`
	got := parseSilences(out)
	want := []Span{{3.5, 5.25}, {10.0, 12.5}}
	if !spansEqual(got, want) {
		t.Errorf("silences = %v, want %v", got, want)
	}
}

func TestParseSilencesTrailingOpenSilence(t *testing.T) {
	out := "[silencedetect @ 0x1] silence_start: 58.2\n"
	got := parseSilences(out)
	if len(got) != 1 || got[0].Start != 58.2 || got[0].End != -1 {
		t.Errorf("silences = %v, want open interval from 58.2", got)
	}
}

func TestParseSilencesEmpty(t *testing.T) {
	if got := parseSilences("no silence lines here\n"); len(got) != 0 {
		t.Errorf("silences = %v, want none", got)
	}
}

func TestSpeechSpansInversion(t *testing.T) {
	cfg := ChunkerConfig{NoiseDB: -35, MinSilence: 0.6, Padding: 0, MaxChunkSeconds: 100, MinChunkSeconds: 0.1}

	silences := []Span{{3, 5}, {8, 9}}
	got := speechSpans(silences, 12, cfg)
	want := []Span{{0, 3}, {5, 8}, {9, 12}}
	if !spansEqual(got, want) {
		t.Errorf("spans = %v, want %v", got, want)
	}
}

func TestSpeechSpansPaddingClamped(t *testing.T) {
	cfg := ChunkerConfig{Padding: 0.5, MaxChunkSeconds: 100, MinChunkSeconds: 0.1}

	got := speechSpans([]Span{{3, 5}}, 6, cfg)
	want := []Span{{0, 3.5}, {4.5, 6}}
	if !spansEqual(got, want) {
		t.Errorf("spans = %v, want %v", got, want)
	}
}

func TestSpeechSpansDropsShort(t *testing.T) {
	cfg := ChunkerConfig{MaxChunkSeconds: 100, MinChunkSeconds: 1.0}

	// Speech span 5.0-5.2 is a click, not speech.
	got := speechSpans([]Span{{0, 5}, {5.2, 10}}, 10, cfg)
	if len(got) != 0 {
		t.Errorf("spans = %v, want none", got)
	}
}

func TestSpeechSpansSplitsLong(t *testing.T) {
	cfg := ChunkerConfig{MaxChunkSeconds: 10, MinChunkSeconds: 0.1}

	got := speechSpans(nil, 25, cfg)
	want := []Span{{0, 10}, {10, 20}, {20, 25}}
	if !spansEqual(got, want) {
		t.Errorf("spans = %v, want %v", got, want)
	}
}

func TestSpeechSpansOpenSilenceRunsToEnd(t *testing.T) {
	cfg := ChunkerConfig{MaxChunkSeconds: 100, MinChunkSeconds: 0.1}

	got := speechSpans([]Span{{40, -1}}, 60, cfg)
	want := []Span{{0, 40}}
	if !spansEqual(got, want) {
		t.Errorf("spans = %v, want %v", got, want)
	}
}

func TestChunkFileName(t *testing.T) {
	c := Chunk{Index: 7}
	if got := c.FileName(); got != "chunk_007.flac" {
		t.Errorf("FileName = %q", got)
	}
}
