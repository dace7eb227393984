// Command composetest rasterizes an overlay composite offline and writes the
// result as PNG. Useful for checking placement and pixel-ratio output sizes
// without a camera.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"overcam/internal/compositor"
	"overcam/internal/overlay"
	"overcam/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

func main() {
	bgPath := flag.String("bg", "", "Path to background image (stands in for the camera frame)")
	overlayPath := flag.String("overlay", "", "Path to overlay image")
	dx := flag.Float64("dx", 0, "Overlay translation X in logical units")
	dy := flag.Float64("dy", 0, "Overlay translation Y in logical units")
	rotate := flag.Float64("rotate", 0, "Overlay rotation in degrees about the viewport center")
	scale := flag.Float64("scale", 1, "Overlay scale factor about the viewport center")
	ratio := flag.Float64("ratio", compositor.DefaultPixelRatio, "Output pixel ratio")
	anchor := flag.Float64("anchor", compositor.DefaultAnchorWidth, "Overlay anchor width in logical units")
	outPath := flag.String("out", "composite.png", "Output PNG path")
	flag.Parse()

	if *bgPath == "" {
		fmt.Println("Usage: composetest -bg <path> [-overlay <path>] [-dx N] [-dy N] [-rotate DEG] [-scale F] [-ratio F] [-out composite.png]")
		os.Exit(1)
	}

	bg, err := loadImage(*bgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load background: %v\n", err)
		os.Exit(1)
	}
	bounds := bg.Bounds()
	fmt.Printf("Background: %dx%d pixels\n", bounds.Dx(), bounds.Dy())

	scene := compositor.Scene{
		Background:  bg,
		Viewport:    compositor.NewViewport(compositor.DefaultViewportWidth),
		AnchorWidth: *anchor,
		Transform:   geometry.Identity(),
	}

	if *overlayPath != "" {
		ov, err := overlay.Load(*overlayPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load overlay: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Overlay: %dx%d pixels\n", ov.Width(), ov.Height())
		scene.Overlay = ov

		center := scene.Viewport.Center()
		tr := geometry.Identity()
		if *scale != 1 {
			tr = geometry.ScalingAbout(*scale, center).Compose(tr)
		}
		if *rotate != 0 {
			tr = geometry.RotationAbout(*rotate*math.Pi/180, center).Compose(tr)
		}
		if *dx != 0 || *dy != 0 {
			tr = geometry.Translation(*dx, *dy).Compose(tr)
		}
		scene.Transform = tr
	}

	out, err := compositor.Rasterize(scene, *ratio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rasterize failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Composite: %dx%d pixels at ratio %.2f\n", out.Bounds().Dx(), out.Bounds().Dy(), *ratio)

	data, err := compositor.EncodePNG(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", *outPath, len(data))
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
