package restore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default RNNoise model file names searched when no explicit path is set.
const (
	DenoiseModelName = "general.rnnn"
	VoiceModelName   = "speech.rnnn"
)

// modelSearchDirs returns the directories probed for model weights, in
// priority order.
func modelSearchDirs() []string {
	var dirs []string
	if env := os.Getenv("REVOICE_MODEL_DIR"); env != "" {
		dirs = append(dirs, env)
	}
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		dirs = append(dirs, filepath.Join(data, "revoice", "models"))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "revoice", "models"))
	}
	dirs = append(dirs,
		"/usr/local/share/revoice/models",
		"/usr/share/revoice/models",
	)
	return dirs
}

// findModel resolves a model file. An explicit path wins; otherwise the
// search directories are probed for the default name.
func findModel(explicit, defaultName string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("model file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, dir := range modelSearchDirs() {
		path := filepath.Join(dir, defaultName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("model %s not found in search path", defaultName)
}

// escapeFilterPath escapes a file path for use inside an FFmpeg filter
// argument, where backslash, colon and quote are delimiters.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return r.Replace(path)
}
