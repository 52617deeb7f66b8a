package restore

import (
	"math"
	"testing"

	"github.com/revoice-audio/revoice/internal/audio"
)

// testBufferOptions configures the synthetic audio to generate
type testBufferOptions struct {
	DurationSecs float64 // Total duration in seconds
	ToneFreq     float64 // Sine wave frequency in Hz (0 = no tone)
	ToneLevel    float64 // Tone level in dBFS (e.g., -23.0)
	NoiseLevel   float64 // White noise level in dBFS (0 = no noise)
	ToneStart    float64 // Tone begins at this offset in seconds
}

// generateTestBuffer creates a synthetic mono buffer at the working rate.
// Noise spans the whole clip; the tone starts at ToneStart, which leaves
// a noise-only lead for profile estimation.
func generateTestBuffer(t *testing.T, opts testBufferOptions) *audio.Buffer {
	t.Helper()

	if opts.DurationSecs == 0 {
		opts.DurationSecs = 3.0
	}
	totalSamples := int(opts.DurationSecs * audio.WorkingRate)
	samples := make([]float64, totalSamples)

	toneAmp := 0.0
	if opts.ToneFreq > 0 && opts.ToneLevel < 0 {
		toneAmp = math.Pow(10.0, opts.ToneLevel/20.0)
	}
	noiseAmp := 0.0
	if opts.NoiseLevel < 0 {
		noiseAmp = math.Pow(10.0, opts.NoiseLevel/20.0)
	}

	toneStart := int(opts.ToneStart * audio.WorkingRate)

	// Simple LCG random number generator for deterministic noise
	rngState := uint32(12345)
	nextRandom := func() float64 {
		rngState = rngState*1664525 + 1013904223
		return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
	}

	for i := 0; i < totalSamples; i++ {
		var sample float64
		if toneAmp > 0 && i >= toneStart {
			tm := float64(i) / audio.WorkingRate
			sample += toneAmp * math.Sin(2.0*math.Pi*opts.ToneFreq*tm)
		}
		if noiseAmp > 0 {
			sample += noiseAmp * nextRandom()
		}
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}
		samples[i] = sample
	}

	return audio.NewBuffer(samples, audio.WorkingRate)
}

// segmentRMS returns the RMS of the samples between two time offsets.
func segmentRMS(t *testing.T, buf *audio.Buffer, fromSec, toSec float64) float64 {
	t.Helper()
	from := int(fromSec * float64(buf.SampleRate))
	to := int(toSec * float64(buf.SampleRate))
	if to > len(buf.Samples) {
		to = len(buf.Samples)
	}
	sum := 0.0
	for _, s := range buf.Samples[from:to] {
		sum += s * s
	}
	return math.Sqrt(sum / float64(to-from))
}
