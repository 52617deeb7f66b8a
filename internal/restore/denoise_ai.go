package restore

import (
	"context"
	"fmt"
	"sync"

	"github.com/revoice-audio/revoice/internal/audio"
)

// RNNoiseDenoiser runs the recurrent neural denoiser through FFmpeg's
// arnndn filter with a loadable model file. Once the model fails to
// resolve or load, the backend stays unavailable for the rest of the
// batch rather than re-probing per file.
type RNNoiseDenoiser struct {
	modelPath    string  // explicit path from config, may be empty
	attenLimitDB float64 // maximum noise attenuation in dB

	mu       sync.Mutex
	resolved string
	failed   error
	probed   bool
}

// NewRNNoiseDenoiser creates the AI denoise backend. attenLimitDB bounds
// how strongly denoised signal replaces the original, expressed as an
// attenuation ceiling in dB.
func NewRNNoiseDenoiser(modelPath string, attenLimitDB float64) *RNNoiseDenoiser {
	return &RNNoiseDenoiser{modelPath: modelPath, attenLimitDB: attenLimitDB}
}

func (d *RNNoiseDenoiser) Name() string { return "rnnoise" }

// Available resolves the model file once and caches the outcome.
func (d *RNNoiseDenoiser) Available() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.probed {
		d.probed = true
		path, err := findModel(d.modelPath, DenoiseModelName)
		if err != nil {
			d.failed = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		} else {
			d.resolved = path
		}
	}
	return d.failed
}

// markFailed latches a model-load failure so later jobs in the batch skip
// this backend instead of repeating the failing graph setup.
func (d *RNNoiseDenoiser) markFailed(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed = fmt.Errorf("%w: model load failed: %v", ErrBackendUnavailable, err)
}

func (d *RNNoiseDenoiser) Denoise(ctx context.Context, in *audio.Buffer) (*audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.Available(); err != nil {
		return nil, err
	}
	if err := checkLength(in); err != nil {
		return nil, err
	}

	// The attenuation ceiling maps to arnndn's wet/dry mix: a 20 dB
	// ceiling keeps 10% of the original signal under the denoised one,
	// an 80 dB ceiling is effectively fully wet.
	mix := 1.0 - audio.DbToLinear(-d.attenLimitDB)
	spec := fmt.Sprintf("arnndn=m=%s:mix=%.4f", escapeFilterPath(d.resolved), mix)

	out, err := audio.Filter(in, spec)
	if err != nil {
		d.markFailed(err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	out.MatchLength(len(in.Samples))
	return out, nil
}
