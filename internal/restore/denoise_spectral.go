package restore

import (
	"context"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/revoice-audio/revoice/internal/audio"
)

// STFT geometry for the spectral gate.
const (
	gateWindow = 2048
	gateHop    = gateWindow / 4
)

// profileSeconds bounds the leading region used to learn the noise
// profile: at most one second, at most 30% of the clip.
const profileSeconds = 1.0

// SpectralGate is the classical denoise backend: a short-time spectral
// noise gate in the style of Audacity's noise reduction. The noise
// profile is estimated from the leading portion of the clip, then bins
// below the profile-scaled threshold are attenuated, with smoothing
// across frequency and time to avoid musical-noise artifacts.
type SpectralGate struct {
	GainDB          float64 // attenuation applied to gated bins, in dB
	SensitivityDB   float64 // threshold above the noise profile, power dB
	FreqSmoothBands int     // half-width of the frequency smoothing window
	ReleaseMS       float64 // gain release time constant
}

// NewSpectralGate creates the classical backend.
func NewSpectralGate(gainDB, sensitivityDB float64, freqSmoothBands int, releaseMS float64) *SpectralGate {
	return &SpectralGate{
		GainDB:          gainDB,
		SensitivityDB:   sensitivityDB,
		FreqSmoothBands: freqSmoothBands,
		ReleaseMS:       releaseMS,
	}
}

func (g *SpectralGate) Name() string { return "spectral-gate" }

func (g *SpectralGate) Available() error { return nil }

func (g *SpectralGate) Denoise(ctx context.Context, in *audio.Buffer) (*audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkLength(in); err != nil {
		return nil, err
	}

	n := len(in.Samples)

	// Pad so every sample is covered by at least one analysis frame
	nFrames := (n-1)/gateHop + 1
	padded := make([]float64, (nFrames-1)*gateHop+gateWindow)
	copy(padded, in.Samples)

	window := hannWindow(gateWindow)
	fft := fourier.NewFFT(gateWindow)
	nBins := gateWindow/2 + 1

	// Forward STFT
	spectra := make([][]complex128, nFrames)
	frame := make([]float64, gateWindow)
	for t := 0; t < nFrames; t++ {
		start := t * gateHop
		for j := 0; j < gateWindow; j++ {
			frame[j] = padded[start+j] * window[j]
		}
		spectra[t] = fft.Coefficients(nil, frame)
	}

	// Noise profile: mean power per bin over the leading frames
	profileDur := math.Min(profileSeconds, in.Duration()*0.3)
	profileFrames := int(profileDur * float64(in.SampleRate) / gateHop)
	if profileFrames < 1 {
		profileFrames = 1
	}
	if profileFrames > nFrames {
		profileFrames = nFrames
	}

	profile := make([]float64, nBins)
	for t := 0; t < profileFrames; t++ {
		for k, c := range spectra[t] {
			profile[k] += real(c)*real(c) + imag(c)*imag(c)
		}
	}
	threshold := make([]float64, nBins)
	sensitivity := math.Pow(10, g.SensitivityDB/10.0)
	for k := range profile {
		profile[k] /= float64(profileFrames)
		threshold[k] = profile[k] * sensitivity
	}

	// Binary gain mask: pass or attenuate
	atten := audio.DbToLinear(-g.GainDB)
	gains := make([][]float64, nFrames)
	for t, spec := range spectra {
		gains[t] = make([]float64, nBins)
		for k, c := range spec {
			power := real(c)*real(c) + imag(c)*imag(c)
			if power > threshold[k] {
				gains[t][k] = 1.0
			} else {
				gains[t][k] = atten
			}
		}
	}

	if g.FreqSmoothBands > 0 {
		smoothFrequency(gains, g.FreqSmoothBands)
	}
	if g.ReleaseMS > 0 {
		smoothTime(gains, g.ReleaseMS, float64(in.SampleRate))
	}

	// Apply gains and reconstruct by weighted overlap-add
	acc := make([]float64, len(padded))
	norm := make([]float64, len(padded))
	filtered := make([]complex128, nBins)
	for t := 0; t < nFrames; t++ {
		for k, c := range spectra[t] {
			filtered[k] = c * complex(gains[t][k], 0)
		}
		seq := fft.Sequence(nil, filtered)
		start := t * gateHop
		for j := 0; j < gateWindow; j++ {
			// gonum's inverse transform is unnormalised
			acc[start+j] += (seq[j] / gateWindow) * window[j]
			norm[start+j] += window[j] * window[j]
		}
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if norm[i] > 1e-12 {
			out[i] = acc[i] / norm[i]
		}
		// Clip guard
		if out[i] > 0.95 {
			out[i] = 0.95
		} else if out[i] < -0.95 {
			out[i] = -0.95
		}
	}

	return audio.NewBuffer(out, in.SampleRate), nil
}

// smoothFrequency replaces each bin gain with the log-domain mean over
// its neighbours, softening hard mask edges across the spectrum.
func smoothFrequency(gains [][]float64, bands int) {
	nBins := len(gains[0])
	logGain := make([]float64, nBins)
	for _, row := range gains {
		for k, g := range row {
			logGain[k] = math.Log(g)
		}
		for k := 0; k < nBins; k++ {
			lo := k - bands
			if lo < 0 {
				lo = 0
			}
			hi := k + bands
			if hi >= nBins {
				hi = nBins - 1
			}
			sum := 0.0
			for j := lo; j <= hi; j++ {
				sum += logGain[j]
			}
			row[k] = math.Exp(sum / float64(hi-lo+1))
		}
	}
}

// smoothTime applies instant attack and exponential release to each bin's
// gain track: gains rise immediately when signal appears but decay with
// the release time constant, preventing fluttering tails.
func smoothTime(gains [][]float64, releaseMS, sampleRate float64) {
	hopSeconds := gateHop / sampleRate
	alpha := math.Exp(-hopSeconds / (releaseMS / 1000.0))
	nBins := len(gains[0])
	for k := 0; k < nBins; k++ {
		prev := gains[0][k]
		for t := 1; t < len(gains); t++ {
			g := gains[t][k]
			if g < prev {
				g = alpha*prev + (1.0-alpha)*g
			}
			gains[t][k] = g
			prev = g
		}
	}
}

// hannWindow returns a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n)))
	}
	return w
}
