// Package arpipeline composes QR overlays onto design images and publishes
// the composite plus its AR tracking target to object storage.
//
// The pipeline takes a design reference and a QR placement authored against
// a preview canvas, remaps the placement into the design's full-resolution
// pixel space, composites the QR raster at that position, derives a binary
// .mind tracking target from the composite via an external feature compiler,
// and uploads both artifacts.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		"github.com/rs/zerolog"
//
//		"github.com/phygital-app/arpipeline"
//		"github.com/phygital-app/arpipeline/pkg/geometry"
//		"github.com/phygital-app/arpipeline/pkg/storage"
//		"github.com/phygital-app/arpipeline/pkg/target"
//	)
//
//	func main() {
//		logger := zerolog.New(os.Stderr)
//
//		store, err := storage.NewFileStore("./storage")
//		if err != nil {
//			log.Fatal(err)
//		}
//		compiler, err := target.NewExecCompiler(target.DefaultCompilerConfig("mind-compiler"))
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		pipeline := arpipeline.New(compiler, store, logger)
//		result, err := pipeline.ComposeAndPublish(context.Background(), arpipeline.PublishRequest{
//			UserID:    "user-42",
//			DesignRef: "https://cdn.example/designs/poster.png",
//			QRPayload: "https://phygital.example/u/user-42",
//			Placement: geometry.Placement{X: 100, Y: 100, Width: 100, Height: 100},
//			Preview:   geometry.Viewport{Width: 800, Height: 600},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("composite at %s", result.Composite.URL)
//	}
//
// Target generation is best-effort: when the compiler fails, the result still
// carries the composite record and Target is nil, so the product can fall
// back to image-only tracking.
package arpipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phygital-app/arpipeline/pkg/compositor"
	"github.com/phygital-app/arpipeline/pkg/design"
	"github.com/phygital-app/arpipeline/pkg/geometry"
	"github.com/phygital-app/arpipeline/pkg/qrgen"
	"github.com/phygital-app/arpipeline/pkg/storage"
	"github.com/phygital-app/arpipeline/pkg/target"
)

// Version of the pipeline library
const Version = "1.0.0"

// Pipeline coordinates the compose-and-publish flow. Calls are independent
// and safe to run concurrently; no mutable state is shared between them.
type Pipeline struct {
	resolver   *design.Resolver
	qr         *qrgen.Generator
	compositor *compositor.Compositor
	generator  *target.Generator
	uploader   *storage.Uploader
	logger     zerolog.Logger
}

// New creates a Pipeline with default component configuration.
func New(compiler target.Compiler, store storage.ObjectStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		resolver:   design.NewResolver(0),
		qr:         qrgen.New(),
		compositor: compositor.New(),
		generator:  target.NewGenerator(compiler, "", logger),
		uploader:   storage.NewUploader(store, storage.DefaultUploaderConfig("phygital"), logger),
		logger:     logger,
	}
}

// Components allows overriding individual pipeline components. Nil fields
// keep their defaults.
type Components struct {
	Resolver   *design.Resolver
	QR         *qrgen.Generator
	Compositor *compositor.Compositor
	Generator  *target.Generator
	Uploader   *storage.Uploader
}

// NewWithComponents creates a Pipeline from explicitly constructed components.
func NewWithComponents(c Components, logger zerolog.Logger) *Pipeline {
	p := &Pipeline{
		resolver:   c.Resolver,
		qr:         c.QR,
		compositor: c.Compositor,
		generator:  c.Generator,
		uploader:   c.Uploader,
		logger:     logger,
	}
	if p.resolver == nil {
		p.resolver = design.NewResolver(0)
	}
	if p.qr == nil {
		p.qr = qrgen.New()
	}
	if p.compositor == nil {
		p.compositor = compositor.New()
	}
	return p
}

// PublishRequest is one compose-and-publish invocation. Placement is in
// preview space; Preview must be the exact viewport the user authored the
// placement against.
type PublishRequest struct {
	UserID    string
	DesignRef string
	// QRPayload is rendered to a raster when QROverlayPNG is not supplied.
	QRPayload    string
	QROverlayPNG []byte
	Placement    geometry.Placement
	Preview      geometry.Viewport
}

// PublishResult carries the upload records and resolved placement for the
// caller's persistence layer. Target is nil when AR target generation or its
// upload failed; the composite is always present on success.
type PublishResult struct {
	Composite   storage.Record     `json:"composite"`
	Target      *storage.Record    `json:"target,omitempty"`
	Placement   geometry.Placement `json:"placement"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// ComposeAndPublish runs the full pipeline: resolve the design, render the
// QR, map the placement to full resolution, compose, upload the composite,
// generate and upload the tracking target. The composite path is mandatory;
// the target path degrades to a nil Target on failure.
func (p *Pipeline) ComposeAndPublish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("arpipeline: user id is required")
	}
	if req.DesignRef == "" {
		return nil, fmt.Errorf("arpipeline: design reference is required")
	}
	if req.QRPayload == "" && len(req.QROverlayPNG) == 0 {
		return nil, fmt.Errorf("arpipeline: a QR payload or pre-rendered overlay is required")
	}
	if p.uploader == nil {
		return nil, fmt.Errorf("arpipeline: no uploader configured")
	}

	designData, err := p.resolver.Resolve(ctx, req.DesignRef)
	if err != nil {
		return nil, fmt.Errorf("arpipeline: resolve design: %w", err)
	}

	overlay := req.QROverlayPNG
	if len(overlay) == 0 {
		overlay, err = p.qr.EncodePNG(req.QRPayload)
		if err != nil {
			return nil, fmt.Errorf("arpipeline: render qr: %w", err)
		}
	}

	naturalW, naturalH, err := compositor.Dimensions(designData)
	if err != nil {
		return nil, fmt.Errorf("arpipeline: read design dimensions: %w", err)
	}

	mapped, err := geometry.MapToFullResolution(req.Placement, req.Preview, naturalW, naturalH)
	if err != nil {
		return nil, fmt.Errorf("arpipeline: map placement: %w", err)
	}

	artifact, err := p.compositor.ComposeBytes(designData, overlay, mapped)
	if err != nil {
		return nil, fmt.Errorf("arpipeline: compose: %w", err)
	}

	token := uuid.NewString()[:8]
	compositeRec, err := p.uploader.Upload(ctx, artifact.Data, req.UserID, storage.AssetComposite,
		fmt.Sprintf("composite-%s.png", token), artifact.MimeType)
	if err != nil {
		return nil, fmt.Errorf("arpipeline: upload composite: %w", err)
	}

	result := &PublishResult{
		Composite:   compositeRec,
		Placement:   mapped,
		Width:       artifact.Width,
		Height:      artifact.Height,
		GeneratedAt: time.Now().UTC(),
	}

	result.Target = p.publishTarget(ctx, req.UserID, token, artifact.Data)
	return result, nil
}

// publishTarget generates and uploads the tracking target. Failures are
// logged and swallowed: the product falls back to image-only tracking.
func (p *Pipeline) publishTarget(ctx context.Context, userID, token string, composite []byte) *storage.Record {
	if p.generator == nil || p.uploader == nil {
		return nil
	}

	tgt, err := p.generator.Generate(ctx, composite)
	if err != nil {
		p.logger.Warn().Str("user", userID).Err(err).
			Msg("AR target generation failed, continuing with composite only")
		return nil
	}

	rec, err := p.uploader.Upload(ctx, tgt.Data, userID, storage.AssetTargets,
		fmt.Sprintf("targets-%s.mind", token), "application/octet-stream")
	if err != nil {
		p.logger.Warn().Str("user", userID).Err(err).
			Msg("AR target upload failed, continuing with composite only")
		return nil
	}
	return &rec
}

// GetVersion returns the library version.
func GetVersion() string {
	return Version
}
