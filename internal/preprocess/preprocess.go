package preprocess

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
)

// Enhance prepares a scanned image for extraction: grayscale, contrast and
// brightness lift, and a mild sharpen. Output is always PNG so the caller
// can send one consistent format to the extraction service.
func Enhance(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("image has zero dimensions")
	}

	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 30)
	out = imaging.AdjustBrightness(out, 10)
	out = imaging.Sharpen(out, 1.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
