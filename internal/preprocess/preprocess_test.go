package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEnhanceProducesGrayscalePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 30), G: 120, B: 200, A: 255})
		}
	}

	out, err := Enhance(encodePNG(t, src))
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 8, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())

	// grayscale output has equal channels everywhere
	r, g, b, _ := decoded.At(3, 3).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestEnhanceRejectsGarbage(t *testing.T) {
	_, err := Enhance([]byte("definitely not an image"))
	assert.Error(t, err)
}
