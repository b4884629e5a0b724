package design

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveHTTP(t *testing.T) {
	payload := []byte("fake-png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	r := NewResolver(5 * time.Second)
	data, err := r.Resolve(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("got %q, want %q", data, payload)
	}
}

func TestResolveHTTPNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewResolver(5 * time.Second)
	_, err := r.Resolve(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Errorf("expected DownloadError, got %T: %v", err, err)
	}
}

func TestResolveHTTPRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	r := NewResolver(5 * time.Second)
	if _, err := r.Resolve(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-image content type")
	}
}

func TestResolveTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	r := NewResolver(50 * time.Millisecond)
	if _, err := r.Resolve(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestResolveDataURI(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	r := NewResolver(0)
	data, err := r.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("got %v, want %v", data, payload)
	}

	if _, err := r.Resolve(context.Background(), "data:image/png;base64"); err == nil {
		t.Error("expected error for malformed data URI")
	}
}

func TestResolveLocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "design.png")
	if err := os.WriteFile(path, []byte("local-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(0)
	data, err := r.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if string(data) != "local-bytes" {
		t.Errorf("got %q", data)
	}

	if _, err := r.Resolve(context.Background(), filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
