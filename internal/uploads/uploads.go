// Package uploads validates reference images and keeps per-session image
// lists free of duplicates.
package uploads

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// MaxFiles is the number of reference images accepted per request or session.
	MaxFiles = 6
	// MaxFileBytes caps each image at 8 MiB.
	MaxFileBytes = 8 << 20
	// FormField is the multipart field carrying images.
	FormField = "images"
)

var (
	ErrNoFiles      = errors.New("uploads: at least one image is required")
	ErrTooManyFiles = fmt.Errorf("uploads: at most %d images per upload", MaxFiles)
	ErrTooLarge     = fmt.Errorf("uploads: image exceeds %d MB", MaxFileBytes>>20)
	ErrNotImage     = errors.New("uploads: not a valid image type")
	ErrEmptyFile    = errors.New("uploads: empty file")
)

// Image is one validated reference image held in memory.
type Image struct {
	Name        string `json:"name"`
	MIMEType    string `json:"mimeType"`
	Size        int    `json:"size"`
	Fingerprint string `json:"fingerprint"`
	Data        []byte `json:"-"`
}

// New builds an Image from raw bytes, sniffing the type when none is declared.
func New(name, mimeType string, data []byte) Image {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return Image{
		Name:        name,
		MIMEType:    mimeType,
		Size:        len(data),
		Fingerprint: Fingerprint(data),
		Data:        data,
	}
}

// Fingerprint returns the hex BLAKE2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Validate checks a single image against the size and type limits.
func Validate(img Image) error {
	switch {
	case img.Size == 0:
		return fmt.Errorf("%w: %s", ErrEmptyFile, img.Name)
	case img.Size > MaxFileBytes:
		return fmt.Errorf("%w: %s", ErrTooLarge, img.Name)
	case !strings.HasPrefix(img.MIMEType, "image/"):
		return fmt.Errorf("%w: %s", ErrNotImage, img.Name)
	}
	return nil
}

// ValidateAll checks the batch count and every image.
func ValidateAll(images []Image) error {
	if len(images) == 0 {
		return ErrNoFiles
	}
	if len(images) > MaxFiles {
		return ErrTooManyFiles
	}
	for _, img := range images {
		if err := Validate(img); err != nil {
			return err
		}
	}
	return nil
}

// FromMultipart reads and validates every file under field. The whole batch
// is rejected when any file is invalid.
func FromMultipart(form *multipart.Form, field string) ([]Image, error) {
	if form == nil {
		return nil, ErrNoFiles
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, ErrNoFiles
	}
	if len(headers) > MaxFiles {
		return nil, ErrTooManyFiles
	}

	images := make([]Image, 0, len(headers))
	for _, header := range headers {
		if header.Size > MaxFileBytes {
			return nil, fmt.Errorf("%w: %s", ErrTooLarge, header.Filename)
		}
		img, err := readFile(header)
		if err != nil {
			return nil, err
		}
		if err := Validate(img); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func readFile(header *multipart.FileHeader) (Image, error) {
	file, err := header.Open()
	if err != nil {
		return Image{}, fmt.Errorf("uploads: open %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxFileBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("uploads: read %s: %w", header.Filename, err)
	}
	return New(header.Filename, header.Header.Get("Content-Type"), data), nil
}

// MergeReport counts what Merge left out.
type MergeReport struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
	Overflow   int `json:"overflow"`
}

// Merge appends incoming images to existing, skipping invalid ones and
// fingerprints already present, and stops at MaxFiles. existing is not modified.
func Merge(existing, incoming []Image) ([]Image, MergeReport) {
	var report MergeReport
	merged := append(make([]Image, 0, MaxFiles), existing...)
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, img := range existing {
		seen[img.Fingerprint] = struct{}{}
	}

	for _, img := range incoming {
		if Validate(img) != nil {
			report.Invalid++
			continue
		}
		if _, dup := seen[img.Fingerprint]; dup {
			report.Duplicates++
			continue
		}
		if len(merged) >= MaxFiles {
			report.Overflow++
			continue
		}
		seen[img.Fingerprint] = struct{}{}
		merged = append(merged, img)
		report.Added++
	}
	return merged, report
}

// DataURL encodes img as a base64 data URL, defaulting to image/png.
func DataURL(img Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
