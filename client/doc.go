// Package client implements the transcription client: it splits an input
// recording into speech-bearing chunks using ffmpeg silence detection,
// distributes the chunks round-robin across the worker fleet through the
// proxy, polls for completion, and assembles the ordered transcript.
package client
