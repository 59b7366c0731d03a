package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.searchbridge/logs, or a directory under the
// system temp dir when the home directory cannot be resolved.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".searchbridge", "logs")
	}
	return filepath.Join(home, ".searchbridge", "logs")
}

// DefaultLogPath returns the log file used when none is configured.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "searchbridge.log")
}

// FindLogFile resolves the file the logs command should read: explicit if
// given, otherwise the default path. The file must exist.
func FindLogFile(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		if explicit != "" {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return "", fmt.Errorf("no log file found at %s; run a command with logging.file set or use serve", path)
	}
	return path, nil
}
