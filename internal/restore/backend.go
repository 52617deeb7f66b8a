// Package restore provides the noise reduction and voice enhancement
// backends plus the fallback chain that selects between them.
package restore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/revoice-audio/revoice/internal/audio"
)

// ErrBackendUnavailable marks a backend that cannot run in this
// environment, typically because its model weights are missing. The
// fallback chain skips these silently.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Denoiser reduces steady background noise in a buffer. Implementations
// must preserve the sample count and rate of the input.
type Denoiser interface {
	Name() string
	Available() error
	Denoise(ctx context.Context, in *audio.Buffer) (*audio.Buffer, error)
}

// Enhancer improves voice intelligibility in a buffer. Same contract as
// Denoiser: output length equals input length.
type Enhancer interface {
	Name() string
	Available() error
	Enhance(ctx context.Context, in *audio.Buffer) (*audio.Buffer, error)
}

// Attempt records one backend try within a fallback chain.
type Attempt struct {
	Backend string
	Err     error
}

// ExhaustedError reports that every backend in a chain was skipped or
// failed.
type ExhaustedError struct {
	Stage    string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var parts []string
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Backend, a.Err))
	}
	return fmt.Sprintf("all %s backends failed: %s", e.Stage, strings.Join(parts, "; "))
}

// checkLength validates the minimum-duration contract shared by all
// backends.
func checkLength(in *audio.Buffer) error {
	if in.Duration() < audio.MinDuration {
		return fmt.Errorf("%w: %.2fs", audio.ErrInputTooShort, in.Duration())
	}
	return nil
}
