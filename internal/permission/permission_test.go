package permission

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageProbeGrantsWritableRoot(t *testing.T) {
	svc := &HostService{CameraIndex: 9999, StorageRoot: t.TempDir()}

	grant, err := svc.RequestCameraAndStorage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Granted, grant.Storage)
}

func TestStorageProbeDeniesUnusableRoot(t *testing.T) {
	// A root nested under a regular file can never become a directory.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	svc := &HostService{CameraIndex: 9999, StorageRoot: filepath.Join(blocker, "pictures")}

	grant, err := svc.RequestCameraAndStorage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Denied, grant.Storage)
}

func TestRequestHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &HostService{StorageRoot: t.TempDir()}
	_, err := svc.RequestCameraAndStorage(ctx)
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "granted", Granted.String())
	assert.Equal(t, "denied", Denied.String())
}
