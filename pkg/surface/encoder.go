package surface

import (
	"bytes"
	"fmt"
	"image/png"
)

// Encoder converts a surface into an image payload.
type Encoder interface {
	Encode(s Surface) ([]byte, error)
}

// PNGEncoder encodes surfaces as PNG.
type PNGEncoder struct {
	CompressionLevel png.CompressionLevel
}

var _ Encoder = PNGEncoder{}

// Encode returns [ErrEmpty] for a nil or blank surface.
func (e PNGEncoder) Encode(s Surface) ([]byte, error) {
	if s == nil || s.IsEmpty() {
		return nil, ErrEmpty
	}
	img := s.Image()
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmpty
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: e.CompressionLevel}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
