// Package config holds the explicit configuration structs injected into the
// pipeline components at startup. Business logic never reads the process
// environment; cmd loads env/files here once and passes structs down.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full pipeline configuration.
type Config struct {
	Storage  StorageConfig  `json:"storage"`
	Compiler CompilerConfig `json:"compiler"`
	Uploader UploaderConfig `json:"uploader"`
	QR       QRConfig       `json:"qr"`
	TempRoot string         `json:"temp_root"`
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	// Backend is "s3" or "filesystem".
	Backend       string `json:"backend"`
	Endpoint      string `json:"endpoint"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	Bucket        string `json:"bucket"`
	UseSSL        bool   `json:"use_ssl"`
	PublicBaseURL string `json:"public_base_url"`
	// BasePath is the root directory for the filesystem backend.
	BasePath string `json:"base_path"`
}

// CompilerConfig configures the external AR target compiler.
type CompilerConfig struct {
	BinaryPath string `json:"binary_path"`
	TimeoutSec int    `json:"timeout_sec"`
}

// Timeout returns the compiler timeout as a duration.
func (c CompilerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// UploaderConfig configures upload namespacing and retry behavior.
type UploaderConfig struct {
	Namespace      string `json:"namespace"`
	MaxAttempts    int    `json:"max_attempts"`
	BackoffStepSec int    `json:"backoff_step_sec"`
}

// QRConfig configures QR raster rendering.
type QRConfig struct {
	Size int `json:"size"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:  "filesystem",
			BasePath: "./storage",
		},
		Compiler: CompilerConfig{
			BinaryPath: "mind-compiler",
			TimeoutSec: 300,
		},
		Uploader: UploaderConfig{
			Namespace:      "phygital",
			MaxAttempts:    3,
			BackoffStepSec: 2,
		},
		QR: QRConfig{
			Size: 512,
		},
	}
}

// LoadFromFile loads configuration from a JSON file over the defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overlays environment variables onto the config. Call godotenv
// first if a .env file should be honored.
func (c *Config) ApplyEnv() {
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&c.Storage.Bucket, "STORAGE_BUCKET")
	setString(&c.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL")
	setString(&c.Storage.BasePath, "STORAGE_BASE_PATH")
	setBool(&c.Storage.UseSSL, "STORAGE_USE_SSL")
	setString(&c.Compiler.BinaryPath, "COMPILER_BINARY")
	setInt(&c.Compiler.TimeoutSec, "COMPILER_TIMEOUT_SEC")
	setString(&c.Uploader.Namespace, "UPLOAD_NAMESPACE")
	setInt(&c.Uploader.MaxAttempts, "UPLOAD_MAX_ATTEMPTS")
	setString(&c.TempRoot, "PIPELINE_TEMP_ROOT")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("storage.endpoint is required for the s3 backend")
		}
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case "filesystem":
		if c.Storage.BasePath == "" {
			return fmt.Errorf("storage.base_path is required for the filesystem backend")
		}
	default:
		return fmt.Errorf("storage.backend must be s3 or filesystem")
	}

	if c.Compiler.BinaryPath == "" {
		return fmt.Errorf("compiler.binary_path cannot be empty")
	}
	if c.Compiler.TimeoutSec < 1 {
		return fmt.Errorf("compiler.timeout_sec must be positive")
	}
	if c.Uploader.Namespace == "" {
		return fmt.Errorf("uploader.namespace cannot be empty")
	}
	if c.Uploader.MaxAttempts < 1 {
		return fmt.Errorf("uploader.max_attempts must be positive")
	}
	if c.QR.Size < 0 {
		return fmt.Errorf("qr.size cannot be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
