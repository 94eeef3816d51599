// Package media archives reference images to object storage or a local
// directory so analyses can be traced back to their inputs.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrUploaderDisabled indicates that archiving is not configured.
var ErrUploaderDisabled = errors.New("media uploader disabled")

// UploadInput wraps the payload required for persisting a file.
type UploadInput struct {
	// Key is the object key relative to the uploader's prefix.
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
	Metadata    map[string]string
}

// UploadResult captures the canonical object key and its accessible URL, if any.
type UploadResult struct {
	Key string
	URL string
}

// Uploader hides the backing implementation for storing files.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (UploadResult, error)
}

type disabledUploader struct{}

func (disabledUploader) Upload(_ context.Context, _ UploadInput) (UploadResult, error) {
	return UploadResult{}, ErrUploaderDisabled
}

// Disabled returns an uploader that always signals disabled uploads.
func Disabled() Uploader {
	return disabledUploader{}
}

// ObjectKey derives a content-addressed key: day partition, fingerprint and
// the lower-cased file extension.
func ObjectKey(now time.Time, fingerprint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ext[:10]
	}
	return path.Join(now.UTC().Format("2006/01/02"), fingerprint+ext)
}
