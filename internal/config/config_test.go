package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "revoice.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.DenoiseBackend != "auto" {
		t.Errorf("DenoiseBackend = %q, want auto", cfg.DenoiseBackend)
	}
	if cfg.TargetLUFS != -16 {
		t.Errorf("TargetLUFS = %v, want -16", cfg.TargetLUFS)
	}
	if cfg.Enhance {
		t.Error("Enhance should default to off")
	}
	if cfg.NoiseGainDB != 12 || cfg.SensitivityDB != 6 {
		t.Errorf("gate defaults = %v/%v, want 12/6", cfg.NoiseGainDB, cfg.SensitivityDB)
	}
	if cfg.CompressThresholdDB != -18 {
		t.Errorf("CompressThresholdDB = %v, want -18", cfg.CompressThresholdDB)
	}
	if !cfg.VoiceNormalize {
		t.Error("VoiceNormalize should default to on")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[denoise]
backend = "spectral"
noise_gain_db = 18.0

[enhance]
enabled = true
backend = "ai"
voice_mix = 1.5
compress_threshold_db = -24.0
normalize = false

[output]
target_lufs = -14.0
keep_name = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DenoiseBackend != "spectral" {
		t.Errorf("DenoiseBackend = %q, want spectral", cfg.DenoiseBackend)
	}
	if cfg.NoiseGainDB != 18 {
		t.Errorf("NoiseGainDB = %v, want 18", cfg.NoiseGainDB)
	}
	if !cfg.Enhance || cfg.EnhanceBackend != "ai" || cfg.VoiceMix != 1.5 {
		t.Errorf("enhance section not applied: %+v", cfg)
	}
	if cfg.CompressThresholdDB != -24 || cfg.VoiceNormalize {
		t.Errorf("enhance threshold/normalize not applied: %+v", cfg)
	}
	if cfg.TargetLUFS != -14 || !cfg.KeepName {
		t.Errorf("output section not applied: %+v", cfg)
	}

	// Untouched keys keep their defaults
	if cfg.SensitivityDB != 6 {
		t.Errorf("SensitivityDB = %v, want default 6", cfg.SensitivityDB)
	}
}

func TestLoadClampsRanges(t *testing.T) {
	path := writeConfig(t, `
[denoise]
noise_gain_db = 200.0
atten_limit_db = 1.0

[enhance]
voice_mix = 9.0
compress_threshold_db = -60.0

[output]
target_lufs = -5.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.NoiseGainDB != 30 {
		t.Errorf("NoiseGainDB = %v, want clamped to 30", cfg.NoiseGainDB)
	}
	if cfg.AttenLimitDB != 20 {
		t.Errorf("AttenLimitDB = %v, want clamped to 20", cfg.AttenLimitDB)
	}
	if cfg.CompressThresholdDB != -30 {
		t.Errorf("CompressThresholdDB = %v, want clamped to -30", cfg.CompressThresholdDB)
	}
	if cfg.VoiceMix != 2.0 {
		t.Errorf("VoiceMix = %v, want clamped to 2.0", cfg.VoiceMix)
	}
	if cfg.TargetLUFS != -10 {
		t.Errorf("TargetLUFS = %v, want clamped to -10", cfg.TargetLUFS)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
[denoise]
backend = "magic"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadRejectsBadHum(t *testing.T) {
	path := writeConfig(t, `hum_hz = 55`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for bad hum frequency")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
