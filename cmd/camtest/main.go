// Command camtest probes a webcam, grabs one still frame, and writes it as
// PNG. Useful for checking device availability and capture resolution.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"overcam/internal/camera"
	"overcam/internal/compositor"
)

func main() {
	deviceID := flag.Int("device", 0, "Camera device index (/dev/video<N>)")
	outPath := flag.String("out", "still.png", "Output PNG path")
	timeout := flag.Duration("timeout", 10*time.Second, "Capture timeout")
	flag.Parse()

	fmt.Printf("Opening camera %d...\n", *deviceID)
	cam, err := camera.OpenWebcam(*deviceID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open camera: %v\n", err)
		os.Exit(1)
	}
	defer cam.Close()

	if !cam.IsReady() {
		fmt.Fprintln(os.Stderr, "Camera opened but not ready")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Println("Capturing still...")
	still, err := cam.CaptureStill(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Capture failed: %v\n", err)
		os.Exit(1)
	}

	bounds := still.Bounds()
	fmt.Printf("Captured %dx%d pixels\n", bounds.Dx(), bounds.Dy())

	data, err := compositor.EncodePNG(still)
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
