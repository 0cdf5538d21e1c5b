package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		img, err := DecodePNG(encodePNG(t, 40, 20))
		require.NoError(t, err)
		assert.Equal(t, 40, img.Bounds().Dx())
		assert.Equal(t, 20, img.Bounds().Dy())
	})

	t.Run("jpeg", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
		_, err := DecodePNG(buf.Bytes())
		assert.ErrorIs(t, err, ErrNotPNG)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodePNG([]byte("definitely not an image"))
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodePNG(nil)
		assert.ErrorIs(t, err, ErrNotImage)
	})
}

func TestResizer_Resize(t *testing.T) {
	src, err := DecodePNG(encodePNG(t, 640, 320))
	require.NoError(t, err)

	out, err := NewThumbnailResizer().Resize(src)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, ThumbnailWidth, cfg.Width)
	assert.Equal(t, ThumbnailHeight, cfg.Height, "aspect ratio is not preserved")
}

func TestResizer_Upscale(t *testing.T) {
	src, err := DecodePNG(encodePNG(t, 10, 10))
	require.NoError(t, err)

	out, err := NewResizer(64, 32).Resize(src)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}
