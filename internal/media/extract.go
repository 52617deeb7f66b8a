// Package media adapts containers to the processing pipeline: it extracts
// audio into working-format buffers and muxes processed audio back without
// touching the video stream.
package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/revoice-audio/revoice/internal/audio"
)

// ErrUnsupportedMedia is returned for containers revoice cannot process:
// unknown extensions, unreadable files, or files without an audio stream.
var ErrUnsupportedMedia = errors.New("unsupported media")

// ErrRemuxFailed is returned when writing the output container fails.
var ErrRemuxFailed = errors.New("remux failed")

// knownExtensions lists the container and audio formats accepted as input.
var knownExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".mkv": true,
	".avi": true, ".webm": true, ".flv": true, ".wmv": true,
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true,
	".flac": true, ".ogg": true, ".opus": true,
}

// SupportedExtension reports whether the file's extension is one revoice
// accepts. The check runs before any decoding so obviously wrong inputs
// fail fast.
func SupportedExtension(path string) bool {
	return knownExtensions[strings.ToLower(filepath.Ext(path))]
}

// Extract decodes the first audio stream of a media file into a mono
// working-rate buffer.
func Extract(path string) (*audio.Buffer, *audio.Metadata, error) {
	if !SupportedExtension(path) {
		return nil, nil, fmt.Errorf("%w: extension %s", ErrUnsupportedMedia, filepath.Ext(path))
	}

	// Probe first so stream errors surface before the full decode
	reader, meta, err := audio.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	reader.Close()

	buf, err := audio.FilterFile(path, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract audio: %w", err)
	}

	if buf.Duration() < audio.MinDuration {
		return nil, nil, fmt.Errorf("%w: %.2fs of audio", audio.ErrInputTooShort, buf.Duration())
	}

	return buf, meta, nil
}
