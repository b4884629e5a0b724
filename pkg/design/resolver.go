// Package design resolves a design reference (https URL, data URI, or local
// path) into raw image bytes.
package design

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Resolver fetches design references.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
}

// NewResolver creates a Resolver with the given download timeout. A zero
// timeout falls back to 30 seconds.
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// DownloadError reports a failed remote design fetch. It is not retried
// within the pipeline; the caller may retry the whole request.
type DownloadError struct {
	Ref string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("design: fetch %s: %v", e.Ref, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Resolve returns the raw bytes of a design reference. http/https URLs are
// downloaded with a bounded timeout, data URIs are decoded in place, and
// anything else is treated as a local file path.
func (r *Resolver) Resolve(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.download(ctx, ref)
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	default:
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, &DownloadError{Ref: ref, Err: err}
		}
		return data, nil
	}
}

func (r *Resolver) download(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &DownloadError{Ref: rawURL, Err: fmt.Errorf("invalid URL: %w", err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &DownloadError{Ref: rawURL, Err: fmt.Errorf("unsupported URL scheme: %s", parsed.Scheme)}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &DownloadError{Ref: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "Phygital-Pipeline/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &DownloadError{Ref: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{Ref: rawURL, Err: fmt.Errorf("HTTP %d %s", resp.StatusCode, resp.Status)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "application/octet-stream") {
		return nil, &DownloadError{Ref: rawURL, Err: fmt.Errorf("not an image (Content-Type: %s)", contentType)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{Ref: rawURL, Err: err}
	}
	return data, nil
}

// decodeDataURI handles data:image/png;base64,... style references the web
// frontend sends for designs edited in the browser.
func decodeDataURI(ref string) ([]byte, error) {
	idx := strings.Index(ref, ",")
	if idx < 0 {
		return nil, &DownloadError{Ref: "data URI", Err: fmt.Errorf("malformed data URI")}
	}
	meta, payload := ref[:idx], ref[idx+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, &DownloadError{Ref: "data URI", Err: fmt.Errorf("only base64 data URIs are supported")}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DownloadError{Ref: "data URI", Err: err}
	}
	return data, nil
}
