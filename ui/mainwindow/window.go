// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"time"

	"overcam/internal/app"
	"overcam/internal/camera"
	"overcam/internal/capture"
	"overcam/internal/library"
	"overcam/internal/overlay"
	"overcam/internal/version"
	"overcam/ui/prefs"
	"overcam/ui/viewfinder"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const previewInterval = 33 * time.Millisecond

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	device camera.Device
	orch   *capture.Orchestrator
	prefs  *prefs.Prefs

	finder     *viewfinder.Viewfinder
	statusBar  *widget.Label
	busy       *widget.ProgressBarInfinite
	captureBtn *widget.Button

	stopPreview chan struct{}
}

// New creates the main window and wires the capture pipeline. device may be
// nil when camera permission was denied; the window then shows a blocked
// state and capture stays disabled.
func New(fyneApp fyne.App, state *app.State, device camera.Device, writer library.Writer, appPrefs *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Overcam")

	mw := &MainWindow{
		Window:      win,
		app:         fyneApp,
		state:       state,
		device:      device,
		prefs:       appPrefs,
		stopPreview: make(chan struct{}),
	}

	mw.setupUI()

	mw.orch = capture.New(state, device, mw.finder, writer, mw, capture.Options{
		PixelRatio: appPrefs.Float(prefs.KeyPixelRatio, 3.0),
		Album:      appPrefs.String(prefs.KeyAlbum, library.DefaultAlbum),
	})

	mw.setupMenus()
	mw.setupEventHandlers()
	mw.startPreviewLoop()

	win.SetOnClosed(func() {
		close(mw.stopPreview)
		if mw.device != nil {
			mw.device.Close()
		}
	})

	win.Resize(fyne.NewSize(480, 720))
	return mw
}

// setupUI creates the main layout: viewfinder center, controls below.
func (mw *MainWindow) setupUI() {
	mw.finder = viewfinder.New(mw.state)

	mw.statusBar = widget.NewLabel("Ready")
	if mw.device == nil {
		mw.statusBar.SetText("Camera unavailable - check permissions")
	}

	mw.busy = widget.NewProgressBarInfinite()
	mw.busy.Hide()

	pickBtn := widget.NewButton("Pick Overlay...", mw.onPickOverlay)
	mw.captureBtn = widget.NewButton("Capture", mw.onCapture)
	if mw.device == nil {
		mw.captureBtn.Disable()
	}
	resetBtn := widget.NewButton("Reset", mw.onResetTransform)
	rotLeft := widget.NewButton("⟲", func() { mw.finder.RotateBy(-math.Pi / 36) })
	rotRight := widget.NewButton("⟳", func() { mw.finder.RotateBy(math.Pi / 36) })

	controls := container.NewHBox(pickBtn, mw.captureBtn, resetBtn, rotLeft, rotRight)

	bottom := container.NewVBox(
		mw.busy,
		container.NewCenter(controls),
		container.NewPadded(mw.statusBar),
	)

	mw.SetContent(container.NewBorder(
		nil,       // top
		bottom,    // bottom
		nil,       // left
		nil,       // right
		mw.finder, // center
	))
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Pick Overlay...", mw.onPickOverlay),
		fyne.NewMenuItem("Capture Photo", mw.onCapture),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	overlayMenu := fyne.NewMenu("Overlay",
		fyne.NewMenuItem("Reset Placement", mw.onResetTransform),
		fyne.NewMenuItem("Rotate Left", func() { mw.finder.RotateBy(-math.Pi / 36) }),
		fyne.NewMenuItem("Rotate Right", func() { mw.finder.RotateBy(math.Pi / 36) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Remove Overlay", func() { mw.state.SetOverlay(nil) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, overlayMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventCaptureStarted, func(interface{}) {
		mw.busy.Show()
		mw.busy.Start()
		mw.captureBtn.Disable()
		mw.updateStatus("Capturing...")
	})

	mw.state.On(app.EventCaptureFinished, func(interface{}) {
		mw.busy.Stop()
		mw.busy.Hide()
		if mw.device != nil {
			mw.captureBtn.Enable()
		}
	})

	mw.state.On(app.EventOverlayChanged, func(data interface{}) {
		if img, ok := data.(*overlay.Image); ok && img != nil {
			mw.updateStatus("Overlay: " + filepath.Base(img.Path))
		} else {
			mw.updateStatus("Overlay removed")
		}
	})
}

// startPreviewLoop streams camera frames into the viewfinder while the live
// background is active.
func (mw *MainWindow) startPreviewLoop() {
	if mw.device == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(previewInterval)
		defer ticker.Stop()

		ctx := context.Background()
		for {
			select {
			case <-mw.stopPreview:
				return
			case <-ticker.C:
				if mw.state.Background().Kind != app.BackgroundLive {
					continue
				}
				frame, err := mw.device.Frame(ctx)
				if err != nil {
					continue
				}
				mw.finder.SetLiveFrame(frame)
			}
		}
	}()
}

// onPickOverlay opens a file dialog to select the overlay image.
func (mw *MainWindow) onPickOverlay() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		img, err := overlay.Load(path)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}

		mw.state.SetOverlay(img)
		mw.prefs.SetString(prefs.KeyLastOverlay, path)
		mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(path))
		if err := mw.prefs.Save(); err != nil {
			log.Printf("Failed to save preferences: %v", err)
		}
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(overlay.SupportedFormats()))
	if dir := mw.prefs.String(prefs.KeyLastDir, ""); dir != "" {
		if uri, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			fd.SetLocation(uri)
		}
	}
	fd.Show()
}

// onCapture runs one capture sequence off the UI goroutine.
func (mw *MainWindow) onCapture() {
	go func() {
		_, err := mw.orch.Capture(context.Background())
		switch {
		case err == nil:
			// Outcome surfaced through the notifier callbacks.
		case errors.Is(err, capture.ErrBusy):
			// Rejected re-entrant request; the running capture reports.
		case errors.Is(err, capture.ErrDeviceNotReady):
			mw.updateStatus("Camera not ready")
		}
	}()
}

// onResetTransform returns the overlay to its anchored centered placement.
func (mw *MainWindow) onResetTransform() {
	mw.state.Engine.Reset()
	mw.updateStatus("Overlay placement reset")
}

// onAbout shows version information.
func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Overcam",
		fmt.Sprintf("Overcam %s\nCamera overlay capture\ncommit %s", version.Version, version.GitCommit),
		mw.Window)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// CaptureSaved implements capture.Notifier.
func (mw *MainWindow) CaptureSaved(path string) {
	mw.updateStatus("Saved " + filepath.Base(path))
	mw.app.SendNotification(fyne.NewNotification("Capture saved", path))
}

// CaptureFailed implements capture.Notifier.
func (mw *MainWindow) CaptureFailed(err error) {
	mw.updateStatus("Capture failed")
	dialog.ShowError(err, mw.Window)
}
