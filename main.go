// Package main provides the entry point for the Overcam application.
package main

import (
	"context"
	"log"

	fyneapp "fyne.io/fyne/v2/app"

	"overcam/internal/app"
	"overcam/internal/camera"
	"overcam/internal/library"
	"overcam/internal/permission"
	"overcam/internal/version"
	"overcam/ui/mainwindow"
	"overcam/ui/prefs"
)

const appTitle = "Overcam"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s (commit %s)", appTitle, version.Version, version.GitCommit)

	appPrefs := prefs.Load()
	picturesRoot := appPrefs.String(prefs.KeyPicturesRoot, "")
	cameraIndex := appPrefs.Int(prefs.KeyCameraIndex, 0)

	perms := &permission.HostService{
		CameraIndex: cameraIndex,
		StorageRoot: picturesRoot,
	}
	grant, err := perms.RequestCameraAndStorage(context.Background())
	if err != nil {
		log.Fatalf("Permission check: %v", err)
	}
	log.Printf("Permissions: camera=%s storage=%s", grant.Camera, grant.Storage)

	var device camera.Device
	if grant.Camera == permission.Granted {
		webcam, err := camera.OpenWebcam(cameraIndex)
		if err != nil {
			log.Printf("Failed to open camera %d: %v", cameraIndex, err)
		} else {
			device = webcam
		}
	} else {
		log.Printf("Camera permission denied; capture disabled")
	}

	writer := library.NewDirWriter(picturesRoot)

	fyneApp := fyneapp.NewWithID("io.overcam.app")
	fyneApp.Settings().SetTheme(&app.OvercamTheme{})

	appState := app.NewState()

	win := mainwindow.New(fyneApp, appState, device, writer, appPrefs)
	win.SetTitle(appTitle)
	win.ShowAndRun()
}
