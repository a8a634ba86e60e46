package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaolacci/murmur3"
)

// ExpandPath expands a leading ~ and returns a cleaned absolute path. Empty
// input stays empty.
func ExpandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// GetDefaultConfigPath returns the default location of the configuration file
func GetDefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/snappurge/config.toml")
}

// LockPath returns the lock file guarding scans of root. The name is a hash of
// the absolute root, so every spelling of the same directory maps to one lock.
func LockPath(root string) (string, error) {
	abs, err := ExpandPath(root)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("snappurge-%016x.lock", murmur3.Sum64([]byte(abs)))
	return filepath.Join(os.TempDir(), name), nil
}
