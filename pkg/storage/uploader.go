package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/phygital-app/arpipeline/internal/retry"
	"github.com/phygital-app/arpipeline/internal/utils"
)

// AssetType selects the key prefix and upload behavior for one asset class.
type AssetType string

const (
	AssetDesign    AssetType = "design"
	AssetComposite AssetType = "composite"
	AssetVideo     AssetType = "video"
	AssetTargets   AssetType = "targets"
	AssetQRDesigns AssetType = "qr-designs"
	AssetDocuments AssetType = "documents"
)

// assetClass drives timeout and transform policy.
type assetClass int

const (
	classImage assetClass = iota
	classVideo
	classRaw
)

// UploaderConfig holds configuration for the asset uploader.
type UploaderConfig struct {
	// Namespace is the leading key segment, e.g. "phygital".
	Namespace string
	// MaxAttempts bounds retries for timeout-class failures.
	MaxAttempts int
	// BackoffStep yields attempt*BackoffStep delays between retries.
	BackoffStep time.Duration
	// Per-class upload timeouts.
	ImageTimeout time.Duration
	VideoTimeout time.Duration
	RawTimeout   time.Duration
	// MaxImageDimension caps the long side of image-class uploads, 0 = off.
	// Raw and video payloads are never transformed, and neither are
	// composites, whose bytes must match the compiled tracking target.
	MaxImageDimension int
}

// DefaultUploaderConfig matches production behavior: 3 attempts, 2s backoff
// step, 2/10/5 minute timeouts for image/video/raw.
func DefaultUploaderConfig(namespace string) UploaderConfig {
	return UploaderConfig{
		Namespace:    namespace,
		MaxAttempts:  3,
		BackoffStep:  2 * time.Second,
		ImageTimeout: 2 * time.Minute,
		VideoTimeout: 10 * time.Minute,
		RawTimeout:   5 * time.Minute,
		// Designs straight off a phone camera can exceed what the AR
		// compiler handles comfortably.
		MaxImageDimension: 4096,
	}
}

// Uploader pushes buffers to an ObjectStore under the deterministic key
// convention {namespace}/users/{userId}/{assetType}/{filename}.
//
// Uploads are not idempotent: each call with a fresh filename creates a new
// object. Callers wanting overwrite semantics supply deterministic filenames.
type Uploader struct {
	store  ObjectStore
	config UploaderConfig
	logger zerolog.Logger
}

// NewUploader creates an Uploader over the given store.
func NewUploader(store ObjectStore, config UploaderConfig, logger zerolog.Logger) *Uploader {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Uploader{store: store, config: config, logger: logger}
}

// Upload pushes one buffer and returns its Record. Timeout-class failures are
// retried with linear backoff up to the configured budget; deterministic
// failures (auth, validation) surface immediately.
func (u *Uploader) Upload(ctx context.Context, data []byte, userID string, assetType AssetType, filename, contentType string) (Record, error) {
	if len(data) == 0 {
		return Record{}, &UploadError{Key: filename, Attempts: 0, Err: fmt.Errorf("empty buffer")}
	}
	if userID == "" {
		return Record{}, &UploadError{Key: filename, Attempts: 0, Err: fmt.Errorf("user id is required")}
	}

	class := classify(assetType, contentType, filename)
	// Composites are exempt from capping: the stored bytes must stay
	// identical to the bytes the tracking target was compiled from, and the
	// caller persists the composite's dimensions and placement alongside it.
	if class == classImage && assetType != AssetComposite {
		data = u.capImage(data, contentType)
	}

	folder := fmt.Sprintf("%s/users/%s/%s", u.config.Namespace, userID, assetType)
	key := folder + "/" + utils.SanitizeFilename(filename)

	var url string
	attempts := 0
	err := retry.Do(ctx, func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, u.timeoutFor(class))
		defer cancel()

		var putErr error
		url, putErr = u.store.Put(attemptCtx, key, data, contentType)
		if putErr != nil && attempts < u.config.MaxAttempts && IsTimeout(putErr) {
			u.logger.Warn().Str("key", key).Int("attempt", attempts).Err(putErr).
				Msg("upload timed out, retrying")
		}
		return putErr
	}, retry.Policy{
		MaxAttempts: u.config.MaxAttempts,
		IsRetryable: IsTimeout,
		Backoff:     retry.LinearBackoff(u.config.BackoffStep),
	})
	if err != nil {
		return Record{}, &UploadError{Key: key, Attempts: attempts, Err: err}
	}

	return Record{
		URL:         url,
		ObjectKey:   key,
		ByteSize:    len(data),
		ContentType: contentType,
		Folder:      folder,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Delete removes a superseded asset. Failures are logged, not fatal.
func (u *Uploader) Delete(ctx context.Context, objectKey string) {
	if err := u.store.Remove(ctx, objectKey); err != nil {
		u.logger.Warn().Str("key", objectKey).Err(err).Msg("failed to delete superseded asset")
	}
}

func (u *Uploader) timeoutFor(class assetClass) time.Duration {
	switch class {
	case classVideo:
		return u.config.VideoTimeout
	case classRaw:
		return u.config.RawTimeout
	default:
		return u.config.ImageTimeout
	}
}

// classify picks the upload behavior. Tracking targets and other opaque
// binaries must never go through image transforms, which would corrupt them.
func classify(assetType AssetType, contentType, filename string) assetClass {
	if assetType == AssetVideo || strings.HasPrefix(contentType, "video/") {
		return classVideo
	}
	if assetType == AssetTargets || strings.HasSuffix(strings.ToLower(filename), ".mind") {
		return classRaw
	}
	if strings.HasPrefix(contentType, "image/") {
		return classImage
	}
	return classRaw
}

// capImage downscales oversized image payloads to MaxImageDimension on the
// long side, preserving the container format. Undecodable data is uploaded
// as-is rather than blocking the pipeline.
func (u *Uploader) capImage(data []byte, contentType string) []byte {
	max := u.config.MaxImageDimension
	if max <= 0 {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	b := img.Bounds()
	if b.Dx() <= max && b.Dy() <= max {
		return data
	}
	resized := imaging.Fit(img, max, max, imaging.Lanczos)

	format := imaging.PNG
	if strings.Contains(contentType, "jpeg") || strings.Contains(contentType, "jpg") {
		format = imaging.JPEG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return data
	}
	u.logger.Debug().Int("width", b.Dx()).Int("height", b.Dy()).Int("cap", max).
		Msg("capped oversized image upload")
	return buf.Bytes()
}
