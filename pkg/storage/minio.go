package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the S3-compatible object store. Credentials are passed
// explicitly; nothing is read from the process environment here.
type S3Config struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"use_ssl"`
	// PublicBaseURL overrides the URL prefix returned for uploaded objects
	// (e.g. a CDN origin). Defaults to the endpoint itself.
	PublicBaseURL string `json:"public_base_url"`
	// VideoPartSize enables multipart transfer for the video class, bytes.
	VideoPartSize uint64 `json:"video_part_size"`
}

// S3Store is an ObjectStore backed by any S3-compatible service.
type S3Store struct {
	client *minio.Client
	config S3Config
}

// NewS3Store connects a client for the given config.
func NewS3Store(config S3Config) (*S3Store, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("storage: endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}
	return &S3Store{client: client, config: config}, nil
}

// Put uploads one object and returns its public URL. Video payloads go
// through multipart transfer when VideoPartSize is configured.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if strings.HasPrefix(contentType, "video/") && s.config.VideoPartSize > 0 {
		opts.PartSize = s.config.VideoPartSize
	}

	_, err := s.client.PutObject(ctx, s.config.Bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", err
	}
	return s.publicURL(key), nil
}

// Remove deletes one object. Callers treat failures as best-effort.
func (s *S3Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.config.Bucket, key, minio.RemoveObjectOptions{})
}

func (s *S3Store) publicURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return strings.TrimRight(s.config.PublicBaseURL, "/") + "/" + key
	}
	scheme := "http"
	if s.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.config.Endpoint, s.config.Bucket, key)
}
