package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/phygital-app/arpipeline"
	"github.com/phygital-app/arpipeline/internal/config"
	"github.com/phygital-app/arpipeline/internal/utils"
	"github.com/phygital-app/arpipeline/pkg/compositor"
	"github.com/phygital-app/arpipeline/pkg/design"
	"github.com/phygital-app/arpipeline/pkg/geometry"
	"github.com/phygital-app/arpipeline/pkg/qrgen"
	"github.com/phygital-app/arpipeline/pkg/storage"
	"github.com/phygital-app/arpipeline/pkg/target"
)

func main() {
	var in, payload, user, configPath string
	var x, y, w, h int
	var previewW, previewH int

	flag.StringVar(&in, "in", "", "design image path, URL, or data URI")
	flag.StringVar(&payload, "payload", "", "QR payload (redirect URL)")
	flag.StringVar(&user, "user", "", "user id for the storage key")
	flag.StringVar(&configPath, "config", "", "JSON config file (optional)")

	flag.IntVar(&x, "x", 0, "placement x in preview pixels")
	flag.IntVar(&y, "y", 0, "placement y in preview pixels")
	flag.IntVar(&w, "w", 100, "placement width in preview pixels")
	flag.IntVar(&h, "h", 100, "placement height in preview pixels")
	flag.IntVar(&previewW, "preview-w", 0, "preview viewport width (required)")
	flag.IntVar(&previewH, "preview-h", 0, "preview viewport height (required)")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if in == "" || payload == "" || user == "" || previewW <= 0 || previewH <= 0 {
		logger.Fatal().Msgf("usage: %s -in design.png|URL -payload URL -user ID -x N -y N -w N -h N -preview-w N -preview-h N",
			filepath.Base(os.Args[0]))
	}

	// Env and config are read once here; components only see explicit structs.
	_ = godotenv.Load()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	store, err := buildStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	compiler, err := target.NewExecCompiler(target.CompilerConfig{
		BinaryPath: cfg.Compiler.BinaryPath,
		Timeout:    cfg.Compiler.Timeout(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize compiler")
	}

	uploaderCfg := storage.DefaultUploaderConfig(cfg.Uploader.Namespace)
	uploaderCfg.MaxAttempts = cfg.Uploader.MaxAttempts
	uploaderCfg.BackoffStep = time.Duration(cfg.Uploader.BackoffStepSec) * time.Second

	pipeline := arpipeline.NewWithComponents(arpipeline.Components{
		Resolver:   design.NewResolver(0),
		QR:         qrgen.NewWithSize(cfg.QR.Size),
		Compositor: compositor.New(),
		Generator:  target.NewGenerator(compiler, cfg.TempRoot, logger),
		Uploader:   storage.NewUploader(store, uploaderCfg, logger),
	}, logger)

	if utils.FileExists(in) && !utils.IsImageFile(in) {
		logger.Fatal().Str("in", in).Msg("input does not look like an image file")
	}

	result, err := pipeline.ComposeAndPublish(context.Background(), arpipeline.PublishRequest{
		UserID:    user,
		DesignRef: in,
		QRPayload: payload,
		Placement: geometry.Placement{X: x, Y: y, Width: w, Height: h},
		Preview:   geometry.Viewport{Width: previewW, Height: previewH},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline failed")
	}

	logger.Info().
		Str("composite", result.Composite.URL).
		Str("size", utils.FormatFileSize(int64(result.Composite.ByteSize))).
		Msg("composite published")
	if result.Target != nil {
		logger.Info().
			Str("target", result.Target.URL).
			Str("size", utils.FormatFileSize(int64(result.Target.ByteSize))).
			Msg("AR target published")
	} else {
		logger.Warn().Msg("AR target unavailable, composite-only result")
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to encode result")
	}
	fmt.Println(string(out))
}

func buildStore(cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
			VideoPartSize: 16 << 20,
		})
	case "filesystem":
		return storage.NewFileStore(cfg.BasePath)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
