package media

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/revoice-audio/revoice/internal/audio"
)

func TestSupportedExtension(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"clip.mp4", true},
		{"clip.MKV", true},
		{"episode.mp3", true},
		{"voice.wav", true},
		{"music.opus", true},
		{"stream.flv", true},
		{"legacy.WMV", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		if got := SupportedExtension(tt.path); got != tt.want {
			t.Errorf("SupportedExtension(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestExtractRejectsUnknownExtension(t *testing.T) {
	_, _, err := Extract("document.pdf")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

// testTone writes a short WAV file suitable for round-trip tests.
func testTone(t *testing.T, dir string, seconds float64) (string, *audio.Buffer) {
	t.Helper()

	samples := make([]float64, int(seconds*float64(audio.WorkingRate)))
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(audio.WorkingRate))
	}
	buf := audio.NewBuffer(samples, audio.WorkingRate)

	path := filepath.Join(dir, "tone.wav")
	if err := audio.WriteWAV(path, buf); err != nil {
		t.Fatalf("failed to write test WAV: %v", err)
	}
	return path, buf
}

func TestExtractRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FFmpeg integration test in short mode")
	}

	dir := t.TempDir()
	path, want := testTone(t, dir, 2.0)

	got, _, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if got.SampleRate != audio.WorkingRate {
		t.Errorf("sample rate = %d, want %d", got.SampleRate, audio.WorkingRate)
	}

	// Decoded length should match within a frame of slack
	diff := len(got.Samples) - len(want.Samples)
	if diff < -2048 || diff > 2048 {
		t.Errorf("decoded %d samples, want about %d", len(got.Samples), len(want.Samples))
	}

	// Spot-check the waveform survived: RMS of a 440 Hz tone at 0.5
	// amplitude is about 0.354
	rms := got.RMS()
	if rms < 0.3 || rms > 0.4 {
		t.Errorf("decoded RMS = %.3f, want about 0.354", rms)
	}
}

func TestExtractRejectsShortInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FFmpeg integration test in short mode")
	}

	dir := t.TempDir()
	path, _ := testTone(t, dir, 0.2)

	_, _, err := Extract(path)
	if !errors.Is(err, audio.ErrInputTooShort) {
		t.Fatalf("expected ErrInputTooShort, got %v", err)
	}
}

func TestRemuxAudioOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FFmpeg integration test in short mode")
	}

	dir := t.TempDir()
	srcPath, buf := testTone(t, dir, 2.0)
	outPath := filepath.Join(dir, "out.m4a")

	if err := Remux(srcPath, buf, outPath, dir); err != nil {
		t.Fatalf("Remux failed: %v", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("output is empty")
	}

	// The output should decode back to roughly the same audio
	got, _, err := Extract(outPath)
	if err != nil {
		t.Fatalf("failed to extract remuxed audio: %v", err)
	}
	if math.Abs(got.Duration()-buf.Duration()) > 0.2 {
		t.Errorf("remuxed duration = %.2fs, want about %.2fs", got.Duration(), buf.Duration())
	}
}

func TestRemuxVideo(t *testing.T) {
	testFile := filepath.Join("testdata", "sample.mp4")
	if _, err := os.Stat(testFile); os.IsNotExist(err) {
		t.Skipf("test file %s not found", testFile)
	}

	dir := t.TempDir()

	buf, _, err := Extract(testFile)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	outPath := filepath.Join(dir, "restored.mp4")
	if err := Remux(testFile, buf, outPath, dir); err != nil {
		t.Fatalf("Remux failed: %v", err)
	}

	got, _, err := Extract(outPath)
	if err != nil {
		t.Fatalf("failed to extract remuxed audio: %v", err)
	}
	if math.Abs(got.Duration()-buf.Duration()) > 0.5 {
		t.Errorf("remuxed duration = %.2fs, want about %.2fs", got.Duration(), buf.Duration())
	}
}
