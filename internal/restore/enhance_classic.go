package restore

import (
	"context"
	"math"

	"github.com/revoice-audio/revoice/internal/audio"
)

// VoiceParams controls the classical enhancement chain. A stage with zero
// strength is bypassed entirely; all-zero params make Enhance a no-op.
type VoiceParams struct {
	ClarityDB   float64 // presence boost at 2.5 kHz
	WarmthDB    float64 // low-shelf boost around 180 Hz
	Bandwidth   float64 // high-band excitement intensity
	Harmonic    float64 // saturation-based harmonic restoration intensity
	Ratio       float64 // compression ratio, 1 disables
	ThresholdDB float64 // compression threshold
}

// DefaultVoiceParams returns the tuning used when no overrides are set.
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{
		ClarityDB:   3.0,
		WarmthDB:    2.5,
		Bandwidth:   1.5,
		Harmonic:    1.0,
		Ratio:       2.0,
		ThresholdDB: -18.0,
	}
}

// ClassicEnhancer is the signal-processing voice enhancement backend:
// presence EQ, low-shelf warmth, high-band excitement, mild saturation
// and RMS compression, in that order. Pure Go, always available.
type ClassicEnhancer struct {
	Params VoiceParams
}

func NewClassicEnhancer(params VoiceParams) *ClassicEnhancer {
	return &ClassicEnhancer{Params: params}
}

func (e *ClassicEnhancer) Name() string { return "classic-voice" }

func (e *ClassicEnhancer) Available() error { return nil }

func (e *ClassicEnhancer) Enhance(ctx context.Context, in *audio.Buffer) (*audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkLength(in); err != nil {
		return nil, err
	}

	out := in.Clone()
	fs := float64(in.SampleRate)
	p := e.Params

	if p.ClarityDB > 0 {
		applyClarity(out.Samples, fs, p.ClarityDB)
	}
	if p.WarmthDB > 0 {
		applyWarmth(out.Samples, fs, p.WarmthDB)
	}
	if p.Bandwidth > 0 {
		applyBandwidth(out.Samples, fs, p.Bandwidth)
	}
	if p.Harmonic > 0 {
		applyHarmonics(out.Samples, p.Harmonic)
	}
	if p.Ratio > 1 {
		applyCompression(out.Samples, fs, p.Ratio, p.ThresholdDB)
	}

	clipGuard(out.Samples)
	return out, nil
}

// applyClarity boosts the speech presence region with a peaking EQ at
// 2.5 kHz, Q 1.0.
func applyClarity(samples []float64, fs, gainDB float64) {
	bq := newPeakingEQ(fs, 2500.0, 1.0, gainDB)
	for i, s := range samples {
		samples[i] = bq.process(s)
	}
}

// applyWarmth adds body below 180 Hz. The shelf is built from a lowpass
// branch blended back onto the signal, which keeps the passband exactly
// unity.
func applyWarmth(samples []float64, fs, gainDB float64) {
	bq := newLowpass(fs, 180.0, math.Sqrt2/2)
	gain := audio.DbToLinear(gainDB)
	for i, s := range samples {
		low := bq.process(s)
		samples[i] = s + low*(gain-1.0)
	}
}

// applyBandwidth excites the 6-12 kHz band to restore the sense of air
// that recordings lose to band-limited capture. The band branch is mixed
// in at 30% so the effect stays subtle.
func applyBandwidth(samples []float64, fs, intensity float64) {
	center := math.Sqrt(6000.0 * 12000.0)
	q := center / (12000.0 - 6000.0)
	// Two cascaded sections steepen the skirts
	bq1 := newBandpass(fs, center, q)
	bq2 := newBandpass(fs, center, q)
	gain := audio.DbToLinear(intensity * 0.8)
	for i, s := range samples {
		band := bq2.process(bq1.process(s))
		samples[i] = s + band*gain*0.3
	}
}

// applyHarmonics blends in a lightly saturated copy of the signal,
// restoring harmonics flattened by noise reduction.
func applyHarmonics(samples []float64, intensity float64) {
	drive := intensity * 0.02
	if drive > 0.1 {
		drive = 0.1
	}
	for i, s := range samples {
		saturated := math.Tanh(s * (1.0 + drive*10.0))
		samples[i] = s*0.95 + saturated*0.05
	}
}

// applyCompression evens dynamics with an RMS-tracking compressor using
// 5 ms attack, 50 ms release and a fixed 1.1x makeup gain.
func applyCompression(samples []float64, fs, ratio, thresholdDB float64) {
	attackAlpha := math.Exp(-1.0 / (0.005 * fs))
	releaseAlpha := math.Exp(-1.0 / (0.050 * fs))

	env := 0.0
	for i, s := range samples {
		sq := s * s
		if sq > env {
			env = attackAlpha*env + (1.0-attackAlpha)*sq
		} else {
			env = releaseAlpha*env + (1.0-releaseAlpha)*sq
		}

		levelDB := audio.LinearToDb(math.Sqrt(env))
		gain := 1.0
		if levelDB > thresholdDB {
			reductionDB := (levelDB - thresholdDB) * (1.0/ratio - 1.0)
			gain = audio.DbToLinear(reductionDB)
		}
		samples[i] = s * gain * 1.1
	}
}

// clipGuard clamps samples to +-0.95, leaving headroom for the
// normalisation stage.
func clipGuard(samples []float64) {
	for i, s := range samples {
		if s > 0.95 {
			samples[i] = 0.95
		} else if s < -0.95 {
			samples[i] = -0.95
		}
	}
}

// biquadFilter is a direct form I second-order section with RBJ cookbook
// coefficient constructors.
type biquadFilter struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

func (f *biquadFilter) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

func newPeakingEQ(fs, f0, q, gainDB float64) *biquadFilter {
	a := math.Pow(10, gainDB/40.0)
	w0 := 2.0 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2.0 * q)
	cosw := math.Cos(w0)

	a0 := 1.0 + alpha/a
	return &biquadFilter{
		b0: (1.0 + alpha*a) / a0,
		b1: (-2.0 * cosw) / a0,
		b2: (1.0 - alpha*a) / a0,
		a1: (-2.0 * cosw) / a0,
		a2: (1.0 - alpha/a) / a0,
	}
}

func newLowpass(fs, f0, q float64) *biquadFilter {
	w0 := 2.0 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2.0 * q)
	cosw := math.Cos(w0)

	a0 := 1.0 + alpha
	return &biquadFilter{
		b0: ((1.0 - cosw) / 2.0) / a0,
		b1: (1.0 - cosw) / a0,
		b2: ((1.0 - cosw) / 2.0) / a0,
		a1: (-2.0 * cosw) / a0,
		a2: (1.0 - alpha) / a0,
	}
}

func newBandpass(fs, f0, q float64) *biquadFilter {
	w0 := 2.0 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2.0 * q)
	cosw := math.Cos(w0)

	a0 := 1.0 + alpha
	return &biquadFilter{
		b0: alpha / a0,
		b1: 0,
		b2: -alpha / a0,
		a1: (-2.0 * cosw) / a0,
		a2: (1.0 - alpha) / a0,
	}
}
