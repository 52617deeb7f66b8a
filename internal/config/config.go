// Package config holds the processing parameters and loads optional
// overrides from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config carries every tunable the pipeline consumes. Zero values are
// not meaningful; start from Default and apply overrides on top.
type Config struct {
	// Denoise
	DenoiseBackend  string  // auto, ai, spectral, basic
	NoiseGainDB     float64 // spectral gate attenuation
	SensitivityDB   float64 // spectral gate threshold above the noise floor
	FreqSmoothBands int     // spectral gate mask smoothing width
	ReleaseMS       float64 // spectral gate release time
	AttenLimitDB    float64 // AI denoiser attenuation ceiling
	DenoiseModel    string  // explicit .rnnn model path

	// Enhance
	Enhance        bool
	EnhanceBackend string  // classic, ai
	VoiceMix       float64 // AI enhancer wet/dry blend
	VoiceModel     string  // explicit .rnnn model path
	VoiceNormalize bool    // restore the input's RMS after AI enhancement
	ClarityDB      float64
	WarmthDB       float64
	Bandwidth      float64
	Harmonic       float64
	CompressRatio  float64

	// CompressThresholdDB is the classical chain's compression knee.
	CompressThresholdDB float64

	// Output
	TargetLUFS float64
	OutputDir  string
	Suffix     string
	KeepName   bool

	// HumHz overrides the mains frequency used by the basic filter.
	// Zero means detect from the local timezone.
	HumHz int

	// Logging
	LogLevel string
	LogFile  string
}

// Default returns the configuration used when no file or flags override
// anything.
func Default() Config {
	return Config{
		DenoiseBackend:  "auto",
		NoiseGainDB:     12,
		SensitivityDB:   6,
		FreqSmoothBands: 3,
		ReleaseMS:       20,
		AttenLimitDB:    80,
		Enhance:         false,
		EnhanceBackend:  "classic",
		VoiceMix:        1.0,
		VoiceNormalize:  true,
		ClarityDB:       3.0,
		WarmthDB:        2.5,
		Bandwidth:       1.5,
		Harmonic:        1.0,
		CompressRatio:   2.0,

		CompressThresholdDB: -18,
		TargetLUFS:      -16,
		LogLevel:        "info",
	}
}

// Clamp pulls every numeric parameter back into its working range.
// Out-of-range values come from hand-edited config files; silently
// clamping beats refusing to run.
func (c *Config) Clamp() {
	c.NoiseGainDB = clampFloat(c.NoiseGainDB, 6, 30)
	c.SensitivityDB = clampFloat(c.SensitivityDB, 0, 20)
	c.FreqSmoothBands = clampInt(c.FreqSmoothBands, 0, 10)
	c.ReleaseMS = clampFloat(c.ReleaseMS, 0, 1000)
	c.AttenLimitDB = clampFloat(c.AttenLimitDB, 20, 100)
	c.VoiceMix = clampFloat(c.VoiceMix, 0.5, 2.0)
	c.ClarityDB = clampFloat(c.ClarityDB, 0, 5)
	c.WarmthDB = clampFloat(c.WarmthDB, 0, 5)
	c.Bandwidth = clampFloat(c.Bandwidth, 0, 5)
	c.Harmonic = clampFloat(c.Harmonic, 0, 5)
	c.CompressRatio = clampFloat(c.CompressRatio, 1, 5)
	c.CompressThresholdDB = clampFloat(c.CompressThresholdDB, -30, -10)
	c.TargetLUFS = clampFloat(c.TargetLUFS, -23, -10)
}

// Load reads a TOML config file over the defaults. An empty path looks
// in the standard locations; a missing file there is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("revoice")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "revoice"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			cfg.Clamp()
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	applyString(v, "denoise.backend", &cfg.DenoiseBackend)
	applyFloat(v, "denoise.noise_gain_db", &cfg.NoiseGainDB)
	applyFloat(v, "denoise.sensitivity_db", &cfg.SensitivityDB)
	applyInt(v, "denoise.freq_smooth_bands", &cfg.FreqSmoothBands)
	applyFloat(v, "denoise.release_ms", &cfg.ReleaseMS)
	applyFloat(v, "denoise.atten_limit_db", &cfg.AttenLimitDB)
	applyString(v, "denoise.model", &cfg.DenoiseModel)

	applyBool(v, "enhance.enabled", &cfg.Enhance)
	applyString(v, "enhance.backend", &cfg.EnhanceBackend)
	applyFloat(v, "enhance.voice_mix", &cfg.VoiceMix)
	applyString(v, "enhance.model", &cfg.VoiceModel)
	applyFloat(v, "enhance.clarity_db", &cfg.ClarityDB)
	applyFloat(v, "enhance.warmth_db", &cfg.WarmthDB)
	applyFloat(v, "enhance.bandwidth", &cfg.Bandwidth)
	applyFloat(v, "enhance.harmonic", &cfg.Harmonic)
	applyFloat(v, "enhance.compress_ratio", &cfg.CompressRatio)
	applyFloat(v, "enhance.compress_threshold_db", &cfg.CompressThresholdDB)
	applyBool(v, "enhance.normalize", &cfg.VoiceNormalize)

	applyFloat(v, "output.target_lufs", &cfg.TargetLUFS)
	applyString(v, "output.dir", &cfg.OutputDir)
	applyString(v, "output.suffix", &cfg.Suffix)
	applyBool(v, "output.keep_name", &cfg.KeepName)

	applyInt(v, "hum_hz", &cfg.HumHz)
	applyString(v, "log.level", &cfg.LogLevel)
	applyString(v, "log.file", &cfg.LogFile)

	if err := validateChoices(&cfg); err != nil {
		return cfg, err
	}

	cfg.Clamp()
	return cfg, nil
}

func validateChoices(cfg *Config) error {
	switch cfg.DenoiseBackend {
	case "auto", "ai", "spectral", "basic":
	default:
		return fmt.Errorf("unknown denoise backend %q", cfg.DenoiseBackend)
	}
	switch cfg.EnhanceBackend {
	case "classic", "ai":
	default:
		return fmt.Errorf("unknown enhance backend %q", cfg.EnhanceBackend)
	}
	switch cfg.HumHz {
	case 0, 50, 60:
	default:
		return fmt.Errorf("hum_hz must be 50 or 60, got %d", cfg.HumHz)
	}
	return nil
}

func applyString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func applyFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}

func applyInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func applyBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
