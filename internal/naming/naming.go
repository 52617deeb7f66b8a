// Package naming resolves output paths for restored files without ever
// overwriting existing files.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSuffix is appended to the source base name unless the caller
// asks to keep the original name.
const DefaultSuffix = "-restored"

// Options control how an output path is derived from a source path.
type Options struct {
	// OutputDir receives the output file. Empty means the source's
	// directory.
	OutputDir string

	// Suffix is inserted before the extension. Ignored when KeepName
	// is set.
	Suffix string

	// KeepName writes the output under the source's base name. The
	// collision check still applies, so a source in the same directory
	// is never clobbered.
	KeepName bool
}

// outputExtensions maps source extensions whose container cannot carry
// AAC audio to one that can. Everything else keeps its extension.
var outputExtensions = map[string]string{
	".wav":  ".m4a",
	".mp3":  ".m4a",
	".flac": ".m4a",
	".ogg":  ".m4a",
	".opus": ".m4a",
	".aac":  ".m4a",
	".webm": ".mkv",
	".wmv":  ".mkv",
}

// ResolveOutput returns a path that does not exist yet for the restored
// version of srcPath. The output always carries AAC audio, so sources in
// containers that cannot hold AAC move to .m4a (or .mkv for WebM).
func ResolveOutput(srcPath string, opts Options) (string, error) {
	dir := opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(srcPath)
	}

	ext := filepath.Ext(srcPath)
	base := strings.TrimSuffix(filepath.Base(srcPath), ext)
	if mapped, ok := outputExtensions[strings.ToLower(ext)]; ok {
		ext = mapped
	}

	if !opts.KeepName {
		suffix := opts.Suffix
		if suffix == "" {
			suffix = DefaultSuffix
		}
		base += suffix
	}

	candidate := filepath.Join(dir, base+ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to check output path: %w", err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, n, ext))
	}
}
