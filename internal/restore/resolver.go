package restore

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/revoice-audio/revoice/internal/audio"
)

// DenoiseChain tries denoisers in priority order. Unavailable backends
// are skipped; failing backends are recorded and the next one is tried.
type DenoiseChain struct {
	Backends []Denoiser
	Log      *logrus.Entry
}

// Run returns the first successful backend's output along with its name.
// When every backend is skipped or fails the error is an *ExhaustedError
// listing each attempt. Context cancellation aborts immediately.
func (c *DenoiseChain) Run(ctx context.Context, in *audio.Buffer) (*audio.Buffer, string, error) {
	var attempts []Attempt
	for _, b := range c.Backends {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if err := b.Available(); err != nil {
			c.logf("denoise backend %s unavailable: %v", b.Name(), err)
			attempts = append(attempts, Attempt{Backend: b.Name(), Err: err})
			continue
		}
		out, err := b.Denoise(ctx, in)
		if err == nil {
			return out, b.Name(), nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		c.logf("denoise backend %s failed: %v", b.Name(), err)
		attempts = append(attempts, Attempt{Backend: b.Name(), Err: err})
		if errors.Is(err, audio.ErrInputTooShort) {
			// Every backend shares the minimum-duration contract, so
			// the rest would fail the same way
			break
		}
	}
	return nil, "", &ExhaustedError{Stage: "denoise", Attempts: attempts}
}

func (c *DenoiseChain) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Warnf(format, args...)
	}
}

// EnhanceChain is the enhancement counterpart of DenoiseChain.
type EnhanceChain struct {
	Backends []Enhancer
	Log      *logrus.Entry
}

func (c *EnhanceChain) Run(ctx context.Context, in *audio.Buffer) (*audio.Buffer, string, error) {
	var attempts []Attempt
	for _, b := range c.Backends {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if err := b.Available(); err != nil {
			c.logf("enhance backend %s unavailable: %v", b.Name(), err)
			attempts = append(attempts, Attempt{Backend: b.Name(), Err: err})
			continue
		}
		out, err := b.Enhance(ctx, in)
		if err == nil {
			return out, b.Name(), nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		c.logf("enhance backend %s failed: %v", b.Name(), err)
		attempts = append(attempts, Attempt{Backend: b.Name(), Err: err})
		if errors.Is(err, audio.ErrInputTooShort) {
			break
		}
	}
	return nil, "", &ExhaustedError{Stage: "enhance", Attempts: attempts}
}

func (c *EnhanceChain) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Warnf(format, args...)
	}
}
