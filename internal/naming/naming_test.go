package naming

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

func TestResolveOutputDefaultSuffix(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "interview.mp4")

	got, err := ResolveOutput(src, Options{})
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(dir, "interview-restored.mp4")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveOutputCustomSuffixAndDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	src := filepath.Join(dir, "talk.mkv")

	got, err := ResolveOutput(src, Options{OutputDir: outDir, Suffix: "-clean"})
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(outDir, "talk-clean.mkv")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveOutputKeepName(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	src := filepath.Join(dir, "talk.mp4")

	got, err := ResolveOutput(src, Options{OutputDir: outDir, KeepName: true})
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(outDir, "talk.mp4")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveOutputKeepNameSameDirCollides(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "talk.mp4")
	touch(t, src)

	got, err := ResolveOutput(src, Options{KeepName: true})
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(dir, "talk(1).mp4")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveOutputCollisionCounter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "video.mp4")
	touch(t, filepath.Join(dir, "video-restored.mp4"))
	touch(t, filepath.Join(dir, "video-restored(1).mp4"))

	got, err := ResolveOutput(src, Options{})
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	want := filepath.Join(dir, "video-restored(2).mp4")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveOutputContainerSwap(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		src  string
		want string
	}{
		{"voice.wav", "voice-restored.m4a"},
		{"episode.mp3", "episode-restored.m4a"},
		{"track.FLAC", "track-restored.m4a"},
		{"clip.webm", "clip-restored.mkv"},
		{"old.wmv", "old-restored.mkv"},
		{"movie.mp4", "movie-restored.mp4"},
	}

	for _, tt := range tests {
		got, err := ResolveOutput(filepath.Join(dir, tt.src), Options{})
		if err != nil {
			t.Fatalf("ResolveOutput(%s) failed: %v", tt.src, err)
		}
		if want := filepath.Join(dir, tt.want); got != want {
			t.Errorf("ResolveOutput(%s) = %q, want %q", tt.src, got, want)
		}
	}
}
