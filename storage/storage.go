// Package storage owns the two on-disk roots slidepack works in: a scratch
// area for per-request downloads and the directory finished artifacts are
// served from.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"slidepack/logger"
	"slidepack/models"
)

const requestDirPrefix = "req-"

// Dirs is the storage context handed to handlers at startup.
type Dirs struct {
	Temp      string
	Downloads string
}

// New creates both roots if needed.
func New(temp, downloads string) (*Dirs, error) {
	for _, dir := range []string{temp, downloads} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return &Dirs{Temp: temp, Downloads: downloads}, nil
}

// NewRequestDir creates a unique scratch directory for one request.
// The caller removes it with os.RemoveAll when the request ends.
func (d *Dirs) NewRequestDir() (string, error) {
	dir := filepath.Join(d.Temp, requestDirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create request dir: %w", err)
	}
	return dir, nil
}

// ValidName reports whether name is a plain file name with no path parts.
// Dot files are reserved for in-progress writes and never valid.
func ValidName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "\x00") {
		return false
	}
	return filepath.Base(name) == name
}

// DownloadPath resolves an artifact name inside the downloads root.
func (d *Dirs) DownloadPath(name string) (string, error) {
	if !ValidName(name) {
		return "", models.NotFoundf("File not found")
	}
	return filepath.Join(d.Downloads, name), nil
}

// Remove deletes an artifact. A file that is already gone counts as removed.
func (d *Dirs) Remove(name string) error {
	path, err := d.DownloadPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Exists reports whether an artifact is present in the downloads root.
func (d *Dirs) Exists(name string) bool {
	path, err := d.DownloadPath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SweepTemp removes request directories left behind by a previous process.
// It returns how many were removed.
func (d *Dirs) SweepTemp() (int, error) {
	entries, err := os.ReadDir(d.Temp)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), requestDirPrefix) {
			continue
		}
		dirPath := filepath.Join(d.Temp, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			logger.Errorf("Failed to remove stale request dir %s: %v", dirPath, err)
			continue
		}
		removed++
	}
	return removed, nil
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".zip":  "application/zip",
}

// ContentType maps an artifact name to the media type it is served with.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
