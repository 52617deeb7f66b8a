// Package loudness measures integrated loudness with FFmpeg's ebur128
// filter and applies single-gain normalisation to reach a target.
package loudness

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/revoice-audio/revoice/internal/audio"
)

// ErrSilence is returned when audio has no measurable loudness.
var ErrSilence = errors.New("audio is silent, loudness undefined")

// metaKeyIntegrated is the frame metadata key ebur128 writes its running
// integrated loudness under. GlobalCStr caches the C string, so the key
// is allocated once.
var metaKeyIntegrated = ffmpeg.GlobalCStr("lavfi.r128.I")

// silenceFloorLUFS is what ebur128 reports while no block has passed its
// gates. A measurement at or below the floor means nothing measurable.
const silenceFloorLUFS = -70.0

// Measure returns the gated integrated loudness of the buffer in LUFS.
// The buffer runs through an ebur128 analysis graph and the measurement
// is read from frame metadata; the audio itself is never altered.
// Audio with no measurable loudness returns negative infinity.
func Measure(buf *audio.Buffer) (float64, error) {
	if len(buf.Samples) == 0 {
		return math.Inf(-1), nil
	}

	tmp, err := os.CreateTemp("", "revoice-meter-*.wav")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := audio.WriteWAV(tmpPath, buf); err != nil {
		return 0, err
	}
	return measureFile(tmpPath)
}

// measureFile feeds every frame of the file through ebur128=metadata=1
// and keeps the last integrated-loudness value seen. The value is
// cumulative, so the last frame carries the whole-file measurement.
func measureFile(path string) (float64, error) {
	reader, _, err := audio.Open(path)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	graph, srcCtx, sinkCtx, err := audio.NewFilterGraph(reader.DecoderContext(), "ebur128=metadata=1")
	if err != nil {
		return 0, err
	}
	defer ffmpeg.AVFilterGraphFree(&graph)

	filtered := ffmpeg.AVFrameAlloc()
	defer ffmpeg.AVFrameFree(&filtered)

	integrated := math.Inf(-1)
	found := false

	drain := func() error {
		for {
			if _, err := ffmpeg.AVBuffersinkGetFrame(sinkCtx, filtered); err != nil {
				if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
					return nil
				}
				return fmt.Errorf("failed to get metered frame: %w", err)
			}
			if entry := ffmpeg.AVDictGet(filtered.Metadata(), metaKeyIntegrated, nil, 0); entry != nil {
				if value, err := strconv.ParseFloat(entry.Value().String(), 64); err == nil {
					integrated = value
					found = true
				}
			}
			ffmpeg.AVFrameUnref(filtered)
		}
	}

	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			return 0, fmt.Errorf("failed to read frame: %w", err)
		}
		if frame == nil {
			break // EOF
		}
		if _, err := ffmpeg.AVBuffersrcAddFrameFlags(srcCtx, frame, 0); err != nil {
			return 0, fmt.Errorf("failed to add frame to meter: %w", err)
		}
		if err := drain(); err != nil {
			return 0, err
		}
	}

	// Flush the filter graph
	if _, err := ffmpeg.AVBuffersrcAddFrameFlags(srcCtx, nil, 0); err != nil {
		return 0, fmt.Errorf("failed to flush meter: %w", err)
	}
	if err := drain(); err != nil {
		return 0, err
	}

	if !found {
		return 0, fmt.Errorf("ebur128 produced no loudness measurement")
	}
	if integrated <= silenceFloorLUFS {
		return math.Inf(-1), nil
	}
	return integrated, nil
}
