// Package overlay loads and describes the user-picked overlay image.
package overlay

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"overcam/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

// Image is an immutable reference to a decoded overlay picture. Picking a
// new image replaces the previous one wholesale; there is no overlay stack.
type Image struct {
	Path   string      // Original file path
	Source image.Image // Decoded pixels, never mutated after load
}

// Load decodes the image at path and returns an overlay Image.
func Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overlay image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode overlay image: %w", err)
	}

	return &Image{Path: path, Source: img}, nil
}

// Width returns the source width in pixels.
func (o *Image) Width() int {
	if o == nil || o.Source == nil {
		return 0
	}
	return o.Source.Bounds().Dx()
}

// Height returns the source height in pixels.
func (o *Image) Height() int {
	if o == nil || o.Source == nil {
		return 0
	}
	return o.Source.Bounds().Dy()
}

// Size returns the source dimensions.
func (o *Image) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(o.Width()),
		Height: float64(o.Height()),
	}
}

// AspectRatio returns width/height of the source, or 0 if degenerate.
func (o *Image) AspectRatio() float64 {
	return o.Size().AspectRatio()
}

// SupportedFormats returns the list of supported overlay image formats.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
