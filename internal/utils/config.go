package utils

import (
	"os"
	"path/filepath"
)

// GetProjectRoot returns the nearest directory above the working directory that holds a go.mod.
func GetProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "."
}

// GetDataDir returns the default record store directory under the project root.
func GetDataDir() string {
	return filepath.Join(GetProjectRoot(), "data")
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
