package loudness

import (
	"fmt"
	"math"

	"github.com/revoice-audio/revoice/internal/audio"
)

// Valid range for normalisation targets.
const (
	MinTargetLUFS = -23.0
	MaxTargetLUFS = -10.0
)

// peakCeiling bounds the post-gain sample peak. When the ceiling binds,
// the delivered loudness falls short of target rather than clipping.
const peakCeiling = 0.999

// Result describes a normalisation run.
type Result struct {
	InputLUFS  float64
	OutputLUFS float64 // target, or less when the peak ceiling bound
	GainDB     float64
	Capped     bool
}

// Normalize applies a single broadband gain in place so the buffer's
// integrated loudness reaches targetLUFS, capped so no sample exceeds the
// peak ceiling. Silent audio is an error.
func Normalize(buf *audio.Buffer, targetLUFS float64) (*Result, error) {
	if targetLUFS < MinTargetLUFS || targetLUFS > MaxTargetLUFS {
		return nil, fmt.Errorf("target %.1f LUFS outside [%.0f, %.0f]", targetLUFS, MinTargetLUFS, MaxTargetLUFS)
	}

	input, err := Measure(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to measure loudness: %w", err)
	}
	if math.IsInf(input, -1) {
		return nil, ErrSilence
	}

	gainDB := targetLUFS - input
	gain := audio.DbToLinear(gainDB)

	capped := false
	if peak := buf.Peak(); peak*gain > peakCeiling {
		gain = peakCeiling / peak
		gainDB = audio.LinearToDb(gain)
		capped = true
	}

	for i := range buf.Samples {
		buf.Samples[i] *= gain
	}

	return &Result{
		InputLUFS:  input,
		OutputLUFS: input + gainDB,
		GainDB:     gainDB,
		Capped:     capped,
	}, nil
}
