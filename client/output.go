package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteOutputs persists the transcript next to the input file: a plain
// text rendering and a structured JSON record set with per-segment timing.
// A labeled transcript (multi-track) gets the label in the file names.
func WriteOutputs(inputPath string, t Transcript) (txtPath, jsonPath string, err error) {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	if t.Label != "" {
		base = base + "_" + t.Label
	}
	txtPath = base + "_transcription.txt"
	jsonPath = base + "_transcription.json"

	if err := os.WriteFile(txtPath, []byte(t.Text()), 0o644); err != nil {
		return "", "", fmt.Errorf("write transcript text: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode transcript: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write transcript json: %w", err)
	}

	return txtPath, jsonPath, nil
}
