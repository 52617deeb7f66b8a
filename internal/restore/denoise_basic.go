package restore

import (
	"context"
	"fmt"
	"strings"

	"github.com/revoice-audio/revoice/internal/audio"
)

// BasicFilter is the last-resort denoise backend: a band-limit pass that
// strips rumble below the voice range and hiss above it, plus narrow
// notches at the local mains hum frequency and its harmonics. It has no
// external dependencies and is always available.
type BasicFilter struct {
	HighpassHz float64
	LowpassHz  float64
	HumHz      int // 0 disables the hum notches
}

// NewBasicFilter creates the basic backend with the standard voice band
// and the given mains frequency (50 or 60, usually from mains.Frequency).
func NewBasicFilter(humHz int) *BasicFilter {
	return &BasicFilter{
		HighpassHz: 80.0,
		LowpassHz:  8000.0,
		HumHz:      humHz,
	}
}

func (f *BasicFilter) Name() string { return "basic-filter" }

func (f *BasicFilter) Available() error { return nil }

func (f *BasicFilter) Denoise(ctx context.Context, in *audio.Buffer) (*audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkLength(in); err != nil {
		return nil, err
	}

	parts := []string{
		fmt.Sprintf("highpass=f=%.0f", f.HighpassHz),
		fmt.Sprintf("lowpass=f=%.0f", f.LowpassHz),
	}
	// Notch the hum fundamental and first two harmonics. High Q keeps the
	// notches narrow enough to leave voice untouched.
	if f.HumHz > 0 {
		for _, freq := range humHarmonics(f.HumHz, 3, f.LowpassHz) {
			parts = append(parts, fmt.Sprintf("bandreject=f=%d:width_type=q:width=30", freq))
		}
	}

	out, err := audio.Filter(in, strings.Join(parts, ","))
	if err != nil {
		return nil, fmt.Errorf("basic filter: %w", err)
	}

	out.MatchLength(len(in.Samples))
	return out, nil
}

// humHarmonics returns up to count multiples of the mains frequency that
// sit above the highpass and below the given ceiling.
func humHarmonics(humHz, count int, ceiling float64) []int {
	var freqs []int
	for i := 1; i <= count; i++ {
		f := humHz * i
		if float64(f) >= ceiling {
			break
		}
		freqs = append(freqs, f)
	}
	return freqs
}
