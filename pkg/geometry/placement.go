// Package geometry converts QR placements between the preview canvas the
// user authored against and the design image's full-resolution pixel space.
package geometry

import (
	"fmt"
	"math"
)

// Placement is a QR rectangle in pixels. Coordinates are non-negative and
// width/height are strictly positive.
type Placement struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Viewport is the preview canvas the placement was authored against. It must
// always be supplied by the caller; there is no default canvas size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// InvalidDimensionError reports a zero or negative dimension. The caller must
// fix the input; retrying cannot help.
type InvalidDimensionError struct {
	Field string
	Value int
}

func (e *InvalidDimensionError) Error() string {
	return fmt.Sprintf("geometry: invalid %s: %d (must be positive)", e.Field, e.Value)
}

// Validate checks the placement fields.
func (p Placement) Validate() error {
	if p.X < 0 {
		return &InvalidDimensionError{Field: "placement.x", Value: p.X}
	}
	if p.Y < 0 {
		return &InvalidDimensionError{Field: "placement.y", Value: p.Y}
	}
	if p.Width <= 0 {
		return &InvalidDimensionError{Field: "placement.width", Value: p.Width}
	}
	if p.Height <= 0 {
		return &InvalidDimensionError{Field: "placement.height", Value: p.Height}
	}
	return nil
}

// MapToFullResolution converts a placement authored in preview space into the
// design image's natural pixel space. Each axis scales independently by
// natural/preview; results round half-up so sub-pixel drift never exceeds one
// pixel per axis. When preview and natural dimensions match, the placement is
// returned unchanged.
func MapToFullResolution(p Placement, preview Viewport, naturalWidth, naturalHeight int) (Placement, error) {
	if preview.Width <= 0 {
		return Placement{}, &InvalidDimensionError{Field: "preview.width", Value: preview.Width}
	}
	if preview.Height <= 0 {
		return Placement{}, &InvalidDimensionError{Field: "preview.height", Value: preview.Height}
	}
	if naturalWidth <= 0 {
		return Placement{}, &InvalidDimensionError{Field: "naturalWidth", Value: naturalWidth}
	}
	if naturalHeight <= 0 {
		return Placement{}, &InvalidDimensionError{Field: "naturalHeight", Value: naturalHeight}
	}
	if err := p.Validate(); err != nil {
		return Placement{}, err
	}

	scaleX := float64(naturalWidth) / float64(preview.Width)
	scaleY := float64(naturalHeight) / float64(preview.Height)

	return Placement{
		X:      roundHalfUp(float64(p.X) * scaleX),
		Y:      roundHalfUp(float64(p.Y) * scaleY),
		Width:  roundHalfUp(float64(p.Width) * scaleX),
		Height: roundHalfUp(float64(p.Height) * scaleY),
	}, nil
}

// roundHalfUp rounds to the nearest integer with .5 going up. Inputs here are
// always non-negative, so math.Floor(v+0.5) matches half-up semantics.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
