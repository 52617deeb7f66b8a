package batch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/revoice-audio/revoice/internal/config"
	"github.com/revoice-audio/revoice/internal/loudness"
	"github.com/revoice-audio/revoice/internal/mains"
	"github.com/revoice-audio/revoice/internal/media"
	"github.com/revoice-audio/revoice/internal/naming"
	"github.com/revoice-audio/revoice/internal/restore"
)

// Pipeline is the per-file restoration sequence: extract, denoise,
// optionally enhance, normalize, remux.
type Pipeline struct {
	cfg config.Config
	log *logrus.Entry

	denoise *restore.DenoiseChain
	enhance *restore.EnhanceChain
}

// NewPipeline assembles the backend chains for the given configuration.
func NewPipeline(cfg config.Config, log *logrus.Entry) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg, log: log}

	humHz := cfg.HumHz
	if humHz == 0 {
		humHz = mains.Frequency()
	}

	ai := restore.NewRNNoiseDenoiser(cfg.DenoiseModel, cfg.AttenLimitDB)
	gate := restore.NewSpectralGate(
		cfg.NoiseGainDB, cfg.SensitivityDB, cfg.FreqSmoothBands, cfg.ReleaseMS,
	)
	basic := restore.NewBasicFilter(humHz)

	// The chosen backend goes first; the spectral gate and basic
	// filter stay behind it as fallbacks
	var denoisers []restore.Denoiser
	switch cfg.DenoiseBackend {
	case "auto", "ai":
		denoisers = []restore.Denoiser{ai, gate, basic}
	case "spectral":
		denoisers = []restore.Denoiser{gate, basic}
	case "basic":
		denoisers = []restore.Denoiser{basic, gate}
	default:
		return nil, fmt.Errorf("unknown denoise backend %q", cfg.DenoiseBackend)
	}
	p.denoise = &restore.DenoiseChain{Backends: denoisers, Log: log}

	if cfg.Enhance {
		params := restore.VoiceParams{
			ClarityDB:   cfg.ClarityDB,
			WarmthDB:    cfg.WarmthDB,
			Bandwidth:   cfg.Bandwidth,
			Harmonic:    cfg.Harmonic,
			Ratio:       cfg.CompressRatio,
			ThresholdDB: cfg.CompressThresholdDB,
		}
		classic := restore.NewClassicEnhancer(params)

		var enhancers []restore.Enhancer
		switch cfg.EnhanceBackend {
		case "classic":
			enhancers = []restore.Enhancer{classic}
		case "ai":
			enhancers = []restore.Enhancer{
				restore.NewRNNoiseEnhancer(cfg.VoiceModel, cfg.VoiceMix, cfg.VoiceNormalize),
				classic,
			}
		default:
			return nil, fmt.Errorf("unknown enhance backend %q", cfg.EnhanceBackend)
		}
		p.enhance = &restore.EnhanceChain{Backends: enhancers, Log: log}
	}

	return p, nil
}

// Process restores a single file and returns the output path. Progress
// is reported through note; enhancement failure degrades to a warning
// rather than failing the file.
func (p *Pipeline) Process(ctx context.Context, path string, note func(Note)) (string, error) {
	if !media.SupportedExtension(path) {
		return "", fmt.Errorf("%w: %s", media.ErrUnsupportedMedia, path)
	}

	outPath, err := naming.ResolveOutput(path, naming.Options{
		OutputDir: p.cfg.OutputDir,
		Suffix:    p.cfg.Suffix,
		KeepName:  p.cfg.KeepName,
	})
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "revoice-job-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	note(Note{Stage: StageExtract, Progress: 0.0})
	buf, _, err := media.Extract(path)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	note(Note{Stage: StageDenoise, Progress: 0.2})
	buf, backend, err := p.denoise.Run(ctx, buf)
	if err != nil {
		return "", err
	}
	note(Note{Stage: StageDenoise, Progress: 0.5, Backend: backend})
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if p.enhance != nil {
		note(Note{Stage: StageEnhance, Progress: 0.5})
		enhanced, backend, err := p.enhance.Run(ctx, buf)
		switch {
		case err == nil:
			buf = enhanced
			note(Note{Stage: StageEnhance, Progress: 0.7, Backend: backend})
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return "", err
		default:
			// Enhancement is best-effort; carry the denoised audio on
			warning := fmt.Sprintf("voice enhancement skipped: %v", err)
			if p.log != nil {
				p.log.WithField("file", path).Warn(warning)
			}
			note(Note{Stage: StageEnhance, Progress: 0.7, Warning: warning})
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	note(Note{Stage: StageNormalize, Progress: 0.7})
	result, err := loudness.Normalize(buf, p.cfg.TargetLUFS)
	if err != nil {
		return "", err
	}
	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"file":   path,
			"input":  fmt.Sprintf("%.1f LUFS", result.InputLUFS),
			"output": fmt.Sprintf("%.1f LUFS", result.OutputLUFS),
			"gain":   fmt.Sprintf("%+.1f dB", result.GainDB),
			"capped": result.Capped,
		}).Info("normalized loudness")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	note(Note{Stage: StageRemux, Progress: 0.9})
	if err := media.Remux(path, buf, outPath, tmpDir); err != nil {
		os.Remove(outPath)
		return "", err
	}

	note(Note{Stage: StageRemux, Progress: 1.0})
	return outPath, nil
}
