// Package permission negotiates camera and storage access with the host.
package permission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Status is the outcome of a single capability request.
type Status int

const (
	Denied Status = iota
	Granted
)

func (s Status) String() string {
	if s == Granted {
		return "granted"
	}
	return "denied"
}

// Grant holds the per-capability outcome. Camera denial blocks capture
// device initialization; storage denial is tolerated and surfaces later
// through the media-library writer.
type Grant struct {
	Camera  Status
	Storage Status
}

// Service requests the capabilities the application needs before wiring the
// capture pipeline.
type Service interface {
	RequestCameraAndStorage(ctx context.Context) (Grant, error)
}

// HostService probes the host directly: a readable video device node stands
// in for camera permission, a writable pictures root for storage permission.
type HostService struct {
	// CameraIndex selects /dev/video<N>.
	CameraIndex int
	// StorageRoot is the pictures root the library writer will use.
	StorageRoot string
}

// RequestCameraAndStorage probes both capabilities. It never returns an
// error for a plain denial; err is reserved for context cancellation.
func (h *HostService) RequestCameraAndStorage(ctx context.Context) (Grant, error) {
	if err := ctx.Err(); err != nil {
		return Grant{}, err
	}

	grant := Grant{}
	if h.probeCamera() {
		grant.Camera = Granted
	}
	if h.probeStorage() {
		grant.Storage = Granted
	}
	return grant, nil
}

func (h *HostService) probeCamera() bool {
	node := fmt.Sprintf("/dev/video%d", h.CameraIndex)
	f, err := os.Open(node)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (h *HostService) probeStorage() bool {
	root := h.StorageRoot
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		root = filepath.Join(home, "Pictures")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return false
	}

	probe := filepath.Join(root, ".overcam-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}
