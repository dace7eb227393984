package compositor

import (
	"fmt"
	"image"
	"math"

	"overcam/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// Rasterize converts the composed scene into a pixel buffer of exactly
// round(pixelRatio*Width) x round(pixelRatio*Height) pixels. pixelRatio <= 0
// selects DefaultPixelRatio. The output is independent of whatever screen
// density the scene is previewed at.
func Rasterize(scene Scene, pixelRatio float64) (*image.RGBA, error) {
	if pixelRatio <= 0 {
		pixelRatio = DefaultPixelRatio
	}
	if scene.Viewport.Width <= 0 || scene.Viewport.Height <= 0 {
		return nil, fmt.Errorf("compositor: invalid viewport %vx%v", scene.Viewport.Width, scene.Viewport.Height)
	}
	if scene.Background == nil {
		return nil, ErrNotReady
	}

	w := int(math.Round(pixelRatio * scene.Viewport.Width))
	h := int(math.Round(pixelRatio * scene.Viewport.Height))
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	drawCover(out, scene.Background)

	if placement, ok := scene.OverlayPlacement(); ok {
		device := geometry.Scaling(pixelRatio, pixelRatio).Compose(placement)
		drawWarped(out, scene.Overlay.Source, device)
	}

	return out, nil
}

// drawCover fills dst with src using cover semantics: the source is scaled
// preserving its aspect ratio so it fills the destination completely, and
// overflow is cropped symmetrically. The destination is never letterboxed.
func drawCover(dst *image.RGBA, src image.Image) {
	db := dst.Bounds()
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}

	scale := math.Max(
		float64(db.Dx())/float64(sb.Dx()),
		float64(db.Dy())/float64(sb.Dy()),
	)

	// Source crop window that maps exactly onto the destination.
	cropW := float64(db.Dx()) / scale
	cropH := float64(db.Dy()) / scale
	x0 := float64(sb.Min.X) + (float64(sb.Dx())-cropW)/2
	y0 := float64(sb.Min.Y) + (float64(sb.Dy())-cropH)/2

	srcRect := image.Rect(
		int(math.Round(x0)),
		int(math.Round(y0)),
		int(math.Round(x0+cropW)),
		int(math.Round(y0+cropH)),
	)
	srcRect = srcRect.Intersect(sb)

	xdraw.CatmullRom.Scale(dst, db, src, srcRect, xdraw.Src, nil)
}

// drawWarped composites src over dst with the given source-pixel-to-device
// transform, using inverse mapping with bilinear sampling. Pure Go warp so
// the pipeline stays deterministic without a native OpenCV dependency.
func drawWarped(dst *image.RGBA, src image.Image, device geometry.AffineTransform) {
	inv, ok := device.Inverse()
	if !ok {
		// Degenerate transform (zero scale) draws nothing.
		return
	}

	srcRGBA := toRGBA(src)
	sw := float64(srcRGBA.Bounds().Dx())
	sh := float64(srcRGBA.Bounds().Dy())

	// Restrict the scan to the transformed overlay's bounding box.
	srcRect := geometry.NewRect(0, 0, sw, sh)
	corners := srcRect.Corners()
	mapped := make([]geometry.Point2D, 4)
	for i, c := range corners {
		mapped[i] = device.Apply(c)
	}
	box := geometry.BoundingBox(mapped)

	db := dst.Bounds()
	x1 := clampInt(int(math.Floor(box.X)), db.Min.X, db.Max.X)
	y1 := clampInt(int(math.Floor(box.Y)), db.Min.Y, db.Max.Y)
	x2 := clampInt(int(math.Ceil(box.X+box.Width))+1, db.Min.X, db.Max.X)
	y2 := clampInt(int(math.Ceil(box.Y+box.Height))+1, db.Min.Y, db.Max.Y)

	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			// Sample at the pixel center.
			sp := inv.Apply(geometry.NewPoint2D(float64(x)+0.5, float64(y)+0.5))
			sx := sp.X - 0.5
			sy := sp.Y - 0.5
			if sx < -1 || sy < -1 || sx > sw || sy > sh {
				continue
			}

			sr, sg, sb, sa := sampleBilinear(srcRGBA, sx, sy)
			if sa == 0 {
				continue
			}
			compositeOver(dst, x, y, sr, sg, sb, sa)
		}
	}
}

// sampleBilinear samples premultiplied RGBA at a fractional source position.
// Positions outside the source contribute transparent pixels, producing a
// soft edge on the warped overlay.
func sampleBilinear(src *image.RGBA, x, y float64) (r, g, b, a float64) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	accumulate := func(px, py int, w float64) {
		if w == 0 {
			return
		}
		cr, cg, cb, ca := texel(src, px, py)
		r += w * cr
		g += w * cg
		b += w * cb
		a += w * ca
	}

	accumulate(x0, y0, w00)
	accumulate(x0+1, y0, w10)
	accumulate(x0, y0+1, w01)
	accumulate(x0+1, y0+1, w11)
	return r, g, b, a
}

// texel returns the premultiplied channels of a source pixel, or transparent
// outside the source bounds.
func texel(src *image.RGBA, x, y int) (r, g, b, a float64) {
	bounds := src.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return 0, 0, 0, 0
	}
	i := src.PixOffset(x, y)
	return float64(src.Pix[i]), float64(src.Pix[i+1]), float64(src.Pix[i+2]), float64(src.Pix[i+3])
}

// compositeOver applies source-over blending of a premultiplied sample onto
// a destination pixel.
func compositeOver(dst *image.RGBA, x, y int, sr, sg, sb, sa float64) {
	i := dst.PixOffset(x, y)
	inv := 1 - sa/255.0

	dst.Pix[i] = clampByte(sr + float64(dst.Pix[i])*inv)
	dst.Pix[i+1] = clampByte(sg + float64(dst.Pix[i+1])*inv)
	dst.Pix[i+2] = clampByte(sb + float64(dst.Pix[i+2])*inv)
	dst.Pix[i+3] = clampByte(sa + float64(dst.Pix[i+3])*inv)
}

// toRGBA returns src as *image.RGBA, copying only when necessary.
func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(src.Bounds())
	xdraw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, xdraw.Src)
	return rgba
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
