package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/process"
)

// ChunkerConfig controls silence detection and chunk extraction.
type ChunkerConfig struct {
	// NoiseDB is the silencedetect noise floor in dBFS (e.g. -35).
	NoiseDB float64 `yaml:"noise_db" mapstructure:"noise_db"`
	// MinSilence is the minimum silence duration in seconds that splits
	// two speech spans.
	MinSilence float64 `yaml:"min_silence" mapstructure:"min_silence"`
	// Padding is added around each speech span so word edges survive.
	Padding float64 `yaml:"padding" mapstructure:"padding"`
	// MaxChunkSeconds splits speech spans longer than this, keeping chunk
	// transcription times roughly uniform across the fleet.
	MaxChunkSeconds float64 `yaml:"max_chunk_seconds" mapstructure:"max_chunk_seconds"`
	// MinChunkSeconds drops spans shorter than this (clicks, breaths).
	MinChunkSeconds float64 `yaml:"min_chunk_seconds" mapstructure:"min_chunk_seconds"`
	// AudioTrack selects the source audio stream (0-based); recordings
	// from screen capture tools often carry mic and system audio as
	// separate tracks.
	AudioTrack int `yaml:"audio_track" mapstructure:"audio_track"`
	// AllTracks transcribes every audio stream in the container instead
	// of just AudioTrack, producing one labeled transcript per stream.
	AllTracks bool `yaml:"all_tracks" mapstructure:"all_tracks"`
}

// ApplyDefaults fills in zero-value fields.
func (c *ChunkerConfig) ApplyDefaults() {
	if c.NoiseDB == 0 {
		c.NoiseDB = -35
	}
	if c.MinSilence == 0 {
		c.MinSilence = 0.6
	}
	if c.Padding == 0 {
		c.Padding = 0.2
	}
	if c.MaxChunkSeconds == 0 {
		c.MaxChunkSeconds = 55
	}
	if c.MinChunkSeconds == 0 {
		c.MinChunkSeconds = 0.5
	}
}

// Chunker splits a recording into speech-bearing FLAC chunks using ffmpeg
// silencedetect as the voice activity detector.
type Chunker struct {
	cfg ChunkerConfig
	log *logger.Logger
}

// NewChunker creates a chunker.
func NewChunker(cfg ChunkerConfig, log *logger.Logger) *Chunker {
	cfg.ApplyDefaults()
	return &Chunker{cfg: cfg, log: log.WithComponent("chunker")}
}

// AudioTracks counts the audio streams in the container.
func (ch *Chunker) AudioTracks(ctx context.Context, inputPath string) (int, error) {
	result, err := process.Run(ctx, process.Command{
		Binary: "ffprobe",
		Args: []string{
			"-v", "error",
			"-select_streams", "a",
			"-show_entries", "stream=index",
			"-of", "csv=p=0",
			inputPath,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe streams: %w", err)
	}

	count := 0
	for _, line := range strings.Split(string(result.Stdout), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}

// Chunks detects speech spans in the given audio track and extracts each
// as a mono 16kHz FLAC chunk.
func (ch *Chunker) Chunks(ctx context.Context, inputPath string, track int) ([]Chunk, error) {
	duration, err := ch.probeDuration(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	silences, err := ch.detectSilence(ctx, inputPath, track)
	if err != nil {
		return nil, err
	}

	spans := speechSpans(silences, duration, ch.cfg)
	ch.log.Info("Speech detected", map[string]interface{}{
		"track":    track,
		"duration": duration,
		"silences": len(silences),
		"chunks":   len(spans),
	})

	chunks := make([]Chunk, 0, len(spans))
	for i, span := range spans {
		data, err := ch.extract(ctx, inputPath, track, span)
		if err != nil {
			return nil, fmt.Errorf("extract chunk %d [%.2f-%.2f]: %w", i, span.Start, span.End, err)
		}
		chunks = append(chunks, Chunk{
			Index: i,
			Start: span.Start,
			End:   span.End,
			Data:  data,
		})
	}
	return chunks, nil
}

// probeDuration asks ffprobe for the container duration in seconds.
func (ch *Chunker) probeDuration(ctx context.Context, inputPath string) (float64, error) {
	result, err := process.Run(ctx, process.Command{
		Binary: "ffprobe",
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			inputPath,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(result.Stdout)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration %q: %w", result.Stdout, err)
	}
	return duration, nil
}

// detectSilence runs ffmpeg silencedetect and parses its stderr log.
func (ch *Chunker) detectSilence(ctx context.Context, inputPath string, track int) ([]Span, error) {
	filter := fmt.Sprintf("silencedetect=noise=%gdB:d=%g", ch.cfg.NoiseDB, ch.cfg.MinSilence)
	result, err := process.Run(ctx, process.Command{
		Binary: "ffmpeg",
		Args: []string{
			"-hide_banner", "-nostats",
			"-i", inputPath,
			"-map", fmt.Sprintf("0:a:%d", track),
			"-af", filter,
			"-f", "null", "-",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ffmpeg silencedetect: %w", err)
	}
	return parseSilences(string(result.Stderr)), nil
}

// extract cuts one span out of the input as mono 16kHz FLAC and returns
// its bytes. A temp file is used because ffmpeg cannot seek on pipes for
// all containers.
func (ch *Chunker) extract(ctx context.Context, inputPath string, track int, span Span) ([]byte, error) {
	tmp, err := os.CreateTemp("", "chunk-*.flac")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	_, err = process.Run(ctx, process.Command{
		Binary: "ffmpeg",
		Args: []string{
			"-hide_banner", "-nostats", "-y",
			"-ss", formatSeconds(span.Start),
			"-to", formatSeconds(span.End),
			"-i", inputPath,
			"-map", fmt.Sprintf("0:a:%d", track),
			"-ac", "1",
			"-ar", "16000",
			"-c:a", "flac",
			tmpPath,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ffmpeg extract: %w", err)
	}

	return os.ReadFile(filepath.Clean(tmpPath))
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// parseSilences extracts silence intervals from ffmpeg silencedetect
// output. A trailing silence_start without a matching end runs to the end
// of the recording and is closed by speechSpans.
func parseSilences(out string) []Span {
	var silences []Span
	var current *Span

	for _, line := range strings.Split(out, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				current = &Span{Start: v, End: -1}
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && current != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				current.End = v
				silences = append(silences, *current)
			}
			current = nil
		}
	}
	if current != nil {
		silences = append(silences, *current)
	}
	return silences
}

// speechSpans inverts silence intervals over [0, duration] into padded
// speech spans, drops spans below the minimum length, and splits spans
// above the maximum.
func speechSpans(silences []Span, duration float64, cfg ChunkerConfig) []Span {
	var speech []Span
	cursor := 0.0

	for _, s := range silences {
		end := s.End
		if end < 0 {
			end = duration
		}
		if s.Start > cursor {
			speech = append(speech, Span{Start: cursor, End: s.Start})
		}
		cursor = end
	}
	if cursor < duration {
		speech = append(speech, Span{Start: cursor, End: duration})
	}

	var out []Span
	for _, s := range speech {
		s.Start -= cfg.Padding
		s.End += cfg.Padding
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > duration {
			s.End = duration
		}
		if s.End-s.Start < cfg.MinChunkSeconds {
			continue
		}
		// Split long spans into MaxChunkSeconds pieces.
		for s.End-s.Start > cfg.MaxChunkSeconds {
			out = append(out, Span{Start: s.Start, End: s.Start + cfg.MaxChunkSeconds})
			s.Start += cfg.MaxChunkSeconds
		}
		if s.End-s.Start >= cfg.MinChunkSeconds {
			out = append(out, s)
		}
	}
	return out
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
