package global

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	ConfigDirEnv = "PROMPTWATCH_CONFIG_DIR"
	appDirName   = "promptwatch"
)

// DefaultConfigDir honours PROMPTWATCH_CONFIG_DIR, then XDG_CONFIG_HOME, and
// falls back to ~/.config/promptwatch.
func DefaultConfigDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(ConfigDirEnv)); override != "" {
		return filepath.Clean(override), nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appDirName), nil
}
