package watermark

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives exported files, the local equivalent of a browser download.
type Sink interface {
	Save(name string, data []byte) (string, error)
}

// DirSink writes downloads into Dir, creating it when needed.
type DirSink struct {
	Dir string
}

// Save writes data to Dir/name and returns the full path.
func (s DirSink) Save(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid download name %q", name)
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return path, nil
}
