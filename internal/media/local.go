package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader stores files below a directory on the local filesystem.
type LocalUploader struct {
	BaseDir string
}

// NewLocalUploader constructs an uploader that writes below baseDir.
// If baseDir is empty, os.TempDir() is used.
func NewLocalUploader(baseDir string) (*LocalUploader, error) {
	dir := baseDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local media dir: %w", err)
	}
	return &LocalUploader{BaseDir: dir}, nil
}

// Upload writes the content to BaseDir/Key. Existing files with the same key
// are left alone since keys are content addressed.
func (l *LocalUploader) Upload(_ context.Context, input UploadInput) (UploadResult, error) {
	if input.Body == nil {
		return UploadResult{}, errors.New("upload body is required")
	}
	key := filepath.Clean(filepath.FromSlash(input.Key))
	if key == "." || filepath.IsAbs(key) || strings.HasPrefix(key, "..") {
		return UploadResult{}, fmt.Errorf("invalid upload key %q", input.Key)
	}

	target := filepath.Join(l.BaseDir, key)
	if _, err := os.Stat(target); err == nil {
		return UploadResult{Key: target}, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("create media dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return UploadResult{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmpFile, input.Body); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return UploadResult{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return UploadResult{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), target); err != nil {
		os.Remove(tmpFile.Name())
		return UploadResult{}, fmt.Errorf("move media file: %w", err)
	}

	return UploadResult{Key: target}, nil
}
