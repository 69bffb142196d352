// Package storage writes run artifacts to the output directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSaver writes artifacts into a directory, creating it on first use.
type FileSaver struct {
	dir string
}

// NewFileSaver returns a saver rooted at dir.
func NewFileSaver(dir string) *FileSaver { return &FileSaver{dir: dir} }

// Dir returns the output directory.
func (s *FileSaver) Dir() string { return s.dir }

// Save writes data to dir/name, replacing any previous file of that name.
// The file is written under a temporary name and renamed so that readers
// never see a partial artifact.
func (s *FileSaver) Save(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
