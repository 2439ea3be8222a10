package paths

import (
	"os"
	"path/filepath"
)

// CacheDir returns the pilothouse cache directory, following XDG conventions:
// $XDG_CACHE_HOME/pilothouse or ~/.cache/pilothouse as fallback.
func CacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "pilothouse"), nil
}

// ConfigDir returns the pilothouse config directory, following XDG
// conventions: $XDG_CONFIG_HOME/pilothouse or ~/.config/pilothouse.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "pilothouse"), nil
}
