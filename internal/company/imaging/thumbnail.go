// Package imaging decodes uploaded logos and scales them to thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // registered so non-PNG images are recognised as such
	_ "image/jpeg" // registered so non-PNG images are recognised as such
	"image/png"

	"golang.org/x/image/draw"
)

const (
	ThumbnailWidth  = 100
	ThumbnailHeight = 100

	// MaxPixels bounds the decoded size of an upload.
	MaxPixels = 25_000_000
)

var (
	ErrNotImage = errors.New("not a decodable image")
	ErrNotPNG   = errors.New("image is not a PNG")
	ErrTooLarge = errors.New("image dimensions too large")
)

// DecodePNG decodes data, accepting only PNG-encoded images.
func DecodePNG(data []byte) (image.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if format != "png" {
		return nil, fmt.Errorf("%w: got %s", ErrNotPNG, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return img, nil
}

// Resizer scales images to a fixed size and encodes them as PNG. The aspect
// ratio is not preserved.
type Resizer struct {
	Width  int
	Height int
	Scaler draw.Scaler
}

// NewResizer returns a Resizer using Catmull-Rom interpolation.
func NewResizer(width, height int) *Resizer {
	return &Resizer{
		Width:  width,
		Height: height,
		Scaler: draw.CatmullRom,
	}
}

// NewThumbnailResizer returns a Resizer producing 100x100 logos.
func NewThumbnailResizer() *Resizer {
	return NewResizer(ThumbnailWidth, ThumbnailHeight)
}

func (r *Resizer) Resize(src image.Image) ([]byte, error) {
	if src == nil {
		return nil, errors.New("nil source image")
	}

	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	r.Scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
