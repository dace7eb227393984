package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// EncodePNG serializes a pixel buffer into lossless PNG bytes, the portable
// format every capture is persisted in.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("compositor: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
