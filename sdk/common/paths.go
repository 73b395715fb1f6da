package common

import (
	"os"
	"path/filepath"
)

// Defines the well known file names used by the client
const (
	PathDotEnv            = ".env"
	PathVisualization     = "visualization.svg"
	FileNameConfig        = "config.yml"
	FileNameHistoryDB     = "history.db"
	DirNameUserConfigRoot = "rnative"
)

// UserConfigDir returns the per-user directory holding the client's config
// and history. If it fails to resolve the home directory, it uses the current
// directory.
func UserConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, DirNameUserConfigRoot)
	}

	return "."
}

// DefaultConfigPath returns the path of the YAML config file looked up when
// no explicit path is given.
func DefaultConfigPath() string {
	return filepath.Join(UserConfigDir(), FileNameConfig)
}

// DefaultHistoryPath returns the path of the local sqlite history database.
func DefaultHistoryPath() string {
	return filepath.Join(UserConfigDir(), FileNameHistoryDB)
}
