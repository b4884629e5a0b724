// Package qrgen renders QR payloads (redirect URLs) to PNG rasters for the
// compositor. The pipeline treats the output as opaque pixel data.
package qrgen

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	minSize     = 100
	maxSize     = 1000
	defaultSize = 512
)

// Generator renders QR codes.
type Generator struct {
	size     int
	recovery qrcode.RecoveryLevel
}

// New creates a Generator with default size and medium error correction.
func New() *Generator {
	return &Generator{size: defaultSize, recovery: qrcode.Medium}
}

// NewWithSize creates a Generator rendering at the given pixel size, clamped
// to a sane range. Larger rasters survive downscaling to small placements
// better.
func NewWithSize(size int) *Generator {
	if size < minSize {
		size = minSize
	}
	if size > maxSize {
		size = maxSize
	}
	return &Generator{size: size, recovery: qrcode.Medium}
}

// EncodePNG renders the payload as a PNG raster.
func (g *Generator) EncodePNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qrgen: empty payload")
	}
	data, err := qrcode.Encode(payload, g.recovery, g.size)
	if err != nil {
		return nil, fmt.Errorf("qrgen: encode: %w", err)
	}
	return data, nil
}
