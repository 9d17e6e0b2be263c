package config

import (
	"errors"
	"os"
	"path/filepath"
)

const DotenvFile = ".env"

// FindDotenv walks up from startDir looking for a .env file and returns its
// path, or "" if there is none up to the filesystem root.
func FindDotenv(startDir string) (string, error) {
	dir := startDir
	for {
		path := filepath.Join(dir, DotenvFile)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
