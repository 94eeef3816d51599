package media

import (
	"bytes"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"reverseDesignAi/internal/uploads"
)

// Archiver copies reference images to an Uploader. Failures are logged and
// skipped; archiving never blocks an analysis.
type Archiver struct {
	Uploader Uploader
	Logger   *zap.Logger
	Now      func() time.Time
}

// Archive uploads every image and returns the keys that were stored.
func (a Archiver) Archive(ctx context.Context, sessionID string, images []uploads.Image) []string {
	if a.Uploader == nil || len(images) == 0 {
		return nil
	}
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	keys := make([]string, 0, len(images))
	for _, img := range images {
		metadata := map[string]string{"filename": img.Name}
		if sessionID != "" {
			metadata["session"] = sessionID
		}
		res, err := a.Uploader.Upload(ctx, UploadInput{
			Key:         ObjectKey(now(), img.Fingerprint, img.Name),
			ContentType: img.MIMEType,
			Body:        bytes.NewReader(img.Data),
			Size:        int64(len(img.Data)),
			Metadata:    metadata,
		})
		if errors.Is(err, ErrUploaderDisabled) {
			return nil
		}
		if err != nil {
			logger.Warn("archive reference image failed",
				zap.String("file", img.Name),
				zap.String("fingerprint", img.Fingerprint),
				zap.Error(err))
			continue
		}
		keys = append(keys, res.Key)
	}
	return keys
}
