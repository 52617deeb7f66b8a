package restore

import (
	"context"
	"fmt"
	"sync"

	"github.com/revoice-audio/revoice/internal/audio"
)

// enhanceModelRate is the rate the speech enhancement model operates at.
// The filter chain resamples down for the model and the graph sink brings
// the result back to the working rate.
const enhanceModelRate = 16000

// RNNoiseEnhancer runs a speech-tuned RNNoise model at 16 kHz and blends
// the enhanced signal with the original. Mix above 1.0 over-weights the
// enhanced path for heavily degraded recordings. Model failures are
// latched for the remainder of the batch, like the denoise counterpart.
type RNNoiseEnhancer struct {
	modelPath   string
	mix         float64 // blend weight of the enhanced signal, 0.5-2.0
	renormalize bool    // restore the input's RMS after blending

	mu       sync.Mutex
	resolved string
	failed   error
	probed   bool
}

func NewRNNoiseEnhancer(modelPath string, mix float64, renormalize bool) *RNNoiseEnhancer {
	if mix < 0.5 {
		mix = 0.5
	} else if mix > 2.0 {
		mix = 2.0
	}
	return &RNNoiseEnhancer{modelPath: modelPath, mix: mix, renormalize: renormalize}
}

func (e *RNNoiseEnhancer) Name() string { return "rnnoise-voice" }

func (e *RNNoiseEnhancer) Available() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.probed {
		e.probed = true
		path, err := findModel(e.modelPath, VoiceModelName)
		if err != nil {
			e.failed = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		} else {
			e.resolved = path
		}
	}
	return e.failed
}

func (e *RNNoiseEnhancer) markFailed(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = fmt.Errorf("%w: model load failed: %v", ErrBackendUnavailable, err)
}

func (e *RNNoiseEnhancer) Enhance(ctx context.Context, in *audio.Buffer) (*audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.Available(); err != nil {
		return nil, err
	}
	if err := checkLength(in); err != nil {
		return nil, err
	}

	spec := fmt.Sprintf(
		"aformat=sample_rates=%d:channel_layouts=mono:sample_fmts=flt,arnndn=m=%s",
		enhanceModelRate, escapeFilterPath(e.resolved),
	)
	enhanced, err := audio.Filter(in, spec)
	if err != nil {
		e.markFailed(err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// The 16 kHz round-trip can drift by a few samples
	enhanced.MatchLength(len(in.Samples))

	out := make([]float64, len(in.Samples))
	for i := range out {
		out[i] = e.mix*enhanced.Samples[i] + (1.0-e.mix)*in.Samples[i]
	}
	result := audio.NewBuffer(out, in.SampleRate)

	if e.renormalize {
		if outRMS := result.RMS(); outRMS > 0 {
			scale := in.RMS() / outRMS
			for i := range result.Samples {
				result.Samples[i] *= scale
			}
		}
	}

	clipGuard(result.Samples)
	return result, nil
}
