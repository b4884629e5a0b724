// Package compositor overlays a QR raster onto a design image and encodes
// the result as a lossless PNG suitable for AR feature compilation.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/phygital-app/arpipeline/pkg/geometry"
)

// Config holds configuration for the compositor.
type Config struct {
	// MinImageSize rejects designs too small to produce a usable AR target.
	MinImageSize int
}

// Compositor composes QR overlays onto design images.
type Compositor struct {
	config Config
}

// New creates a Compositor with default configuration.
func New() *Compositor {
	return &Compositor{
		config: Config{
			MinImageSize: 100,
		},
	}
}

// NewWithConfig creates a Compositor with custom configuration.
func NewWithConfig(config Config) *Compositor {
	return &Compositor{config: config}
}

// Artifact is the encoded result of one compose call plus derived metadata.
// It is immutable once produced and never cached: the composite depends on
// three independently mutable inputs (design, QR payload, placement).
type Artifact struct {
	Data     []byte
	Width    int
	Height   int
	ByteSize int
	MimeType string
}

// DecodeError reports a base or overlay image that could not be decoded.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("compositor: decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CompositionError wraps any lower-level compose failure.
type CompositionError struct {
	Stage string
	Err   error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compositor: %s: %v", e.Stage, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

// Decode decodes an encoded image, falling back to an explicit WebP decode
// when the registered decoders cannot identify the container.
func Decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unknown or unsupported image format")
}

// Compose draws the overlay onto the base image at the given full-resolution
// placement and encodes the result as PNG. The overlay is resized to exactly
// placement.Width x placement.Height with a bilinear filter so the QR stays
// scannable. Placements that extend past the base canvas are clipped, not
// rejected.
func (c *Compositor) Compose(base image.Image, overlay image.Image, p geometry.Placement) (Artifact, error) {
	if err := p.Validate(); err != nil {
		return Artifact{}, &CompositionError{Stage: "validate placement", Err: err}
	}

	bounds := base.Bounds()
	if bounds.Dx() < c.config.MinImageSize || bounds.Dy() < c.config.MinImageSize {
		return Artifact{}, &CompositionError{
			Stage: "validate design",
			Err:   fmt.Errorf("design too small: %dx%d (minimum: %d)", bounds.Dx(), bounds.Dy(), c.config.MinImageSize),
		}
	}

	resized := imaging.Resize(overlay, p.Width, p.Height, imaging.Linear)

	// Overlay clips to the canvas bounds; a partially visible QR is an
	// accepted outcome, not an error.
	composed := imaging.Overlay(base, resized, image.Pt(p.X, p.Y), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, composed); err != nil {
		return Artifact{}, &CompositionError{Stage: "encode png", Err: err}
	}

	return Artifact{
		Data:     buf.Bytes(),
		Width:    composed.Bounds().Dx(),
		Height:   composed.Bounds().Dy(),
		ByteSize: buf.Len(),
		MimeType: "image/png",
	}, nil
}

// ComposeBytes decodes the base design and overlay rasters and composes them.
func (c *Compositor) ComposeBytes(baseData, overlayData []byte, p geometry.Placement) (Artifact, error) {
	base, err := Decode(baseData)
	if err != nil {
		return Artifact{}, &DecodeError{What: "design image", Err: err}
	}
	overlay, err := Decode(overlayData)
	if err != nil {
		return Artifact{}, &DecodeError{What: "overlay image", Err: err}
	}
	return c.Compose(base, overlay, p)
}

// Dimensions decodes only enough of the data to report natural width/height.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// WebP designs may not be registered for DecodeConfig on all
		// platforms; fall back to a full decode.
		img, derr := Decode(data)
		if derr != nil {
			return 0, 0, &DecodeError{What: "design image", Err: err}
		}
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	}
	return cfg.Width, cfg.Height, nil
}
