// Package storage publishes pipeline artifacts to an object store under the
// {namespace}/users/{userId}/{assetType}/{filename} convention, with
// class-aware timeouts and retry on transient timeout failures.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectStore is the port to a remote (or local) object storage service.
// One Put call writes exactly one object and returns its durable public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Record is the persisted result of one upload. The store owns the bytes;
// the pipeline only keeps this reference.
type Record struct {
	URL         string    `json:"url"`
	ObjectKey   string    `json:"objectKey"`
	ByteSize    int       `json:"byteSize"`
	ContentType string    `json:"contentType"`
	Folder      string    `json:"folder"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// UploadError is the terminal failure of an upload after the retry budget is
// exhausted (or immediately, for non-retryable causes).
type UploadError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("storage: upload %s failed after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// IsTimeout classifies an error as timeout-class, the only class worth
// retrying. Auth and validation failures are deterministic and retrying them
// just burns the timeout budget.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var respErr minio.ErrorResponse
	if errors.As(err, &respErr) {
		switch respErr.Code {
		case "RequestTimeout", "SlowDown":
			return true
		}
	}
	return false
}
