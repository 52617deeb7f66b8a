// Package audio provides in-memory audio buffers and file I/O over the
// FFmpeg bindings. All processing happens on mono float64 samples at the
// working rate.
package audio

import (
	"errors"
	"math"
)

// WorkingRate is the internal sample rate all audio is resampled to
// before processing.
const WorkingRate = 48000

// MinDuration is the shortest input, in seconds, that processing accepts.
// Shorter clips cannot yield a usable noise profile.
const MinDuration = 0.5

// ErrInputTooShort is returned when an audio clip is shorter than MinDuration.
var ErrInputTooShort = errors.New("audio shorter than minimum duration")

// Buffer holds decoded mono audio samples.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// NewBuffer wraps samples at the given rate.
func NewBuffer(samples []float64, sampleRate int) *Buffer {
	return &Buffer{Samples: samples, SampleRate: sampleRate}
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := make([]float64, len(b.Samples))
	copy(out, b.Samples)
	return &Buffer{Samples: out, SampleRate: b.SampleRate}
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for _, s := range b.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root mean square level of the buffer (linear).
func (b *Buffer) RMS() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range b.Samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

// MatchLength trims or zero-pads the buffer to exactly n samples.
// Resample round-trips inside filter graphs can drift by a few samples;
// callers use this to keep stage outputs sample-exact with their inputs.
func (b *Buffer) MatchLength(n int) {
	if len(b.Samples) == n {
		return
	}
	if len(b.Samples) > n {
		b.Samples = b.Samples[:n]
		return
	}
	b.Samples = append(b.Samples, make([]float64, n-len(b.Samples))...)
}

// DbToLinear converts a decibel value to linear amplitude.
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// LinearToDb converts linear amplitude to decibels.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return -120.0 // Practical floor for audio
	}
	return 20.0 * math.Log10(linear)
}
