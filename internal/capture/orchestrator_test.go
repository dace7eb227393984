package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"regexp"
	"sync"
	"testing"
	"time"

	"overcam/internal/app"
	"overcam/internal/compositor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	ready    bool
	still    image.Image
	err      error
	unblock  chan struct{} // when non-nil, CaptureStill waits on it
	captures int
}

func (d *stubDevice) IsReady() bool { return d.ready }

func (d *stubDevice) Frame(ctx context.Context) (image.Image, error) {
	return d.still, d.err
}

func (d *stubDevice) CaptureStill(ctx context.Context) (image.Image, error) {
	d.captures++
	if d.unblock != nil {
		<-d.unblock
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.still, nil
}

func (d *stubDevice) Close() error { return nil }

type stubRenderer struct {
	mu          sync.Mutex
	settleCalls int
	settleErr   error
	snapshots   int
	notReady    int // number of leading Snapshot calls that fail transiently
	img         *image.RGBA
}

func (r *stubRenderer) Settle(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settleCalls++
	return r.settleErr
}

func (r *stubRenderer) Snapshot(pixelRatio float64) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots++
	if r.snapshots <= r.notReady {
		return nil, compositor.ErrNotReady
	}
	return r.img, nil
}

type savedFile struct {
	name  string
	album string
	size  int
}

type stubWriter struct {
	err   error
	saves []savedFile
}

func (w *stubWriter) Save(ctx context.Context, data []byte, name, album string) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.saves = append(w.saves, savedFile{name: name, album: album, size: len(data)})
	return "/library/" + album + "/" + name, nil
}

type stubNotifier struct {
	mu     sync.Mutex
	saved  []string
	failed []error
}

func (n *stubNotifier) CaptureSaved(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.saved = append(n.saved, path)
}

func (n *stubNotifier) CaptureFailed(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, err)
}

func testStill() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	return img
}

type fixture struct {
	state    *app.State
	device   *stubDevice
	renderer *stubRenderer
	writer   *stubWriter
	notifier *stubNotifier
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:    app.NewState(),
		device:   &stubDevice{ready: true, still: testStill()},
		renderer: &stubRenderer{img: image.NewRGBA(image.Rect(0, 0, 90, 120))},
		writer:   &stubWriter{},
		notifier: &stubNotifier{},
	}
	f.orch = New(f.state, f.device, f.renderer, f.writer, f.notifier, Options{
		RetryDelay: time.Millisecond,
		Album:      "Test Album",
		Now:        func() time.Time { return time.UnixMilli(1700000000000) },
	})
	return f
}

func (f *fixture) assertClean(t *testing.T) {
	t.Helper()
	assert.False(t, f.state.Capturing(), "capture state must return to Idle")
	assert.Equal(t, app.BackgroundLive, f.state.Background().Kind,
		"background must revert to the live preview")
}

func TestCaptureSuccess(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.Capture(context.Background())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^overlay_capture_\d+\.png$`), res.Name)
	assert.Equal(t, "overlay_capture_1700000000000.png", res.Name)
	assert.NotEmpty(t, res.Data)
	assert.Equal(t, "/library/Test Album/"+res.Name, res.Path)

	require.Len(t, f.writer.saves, 1)
	assert.Equal(t, "Test Album", f.writer.saves[0].album)

	assert.Equal(t, 1, f.renderer.settleCalls)
	assert.Equal(t, 1, f.renderer.snapshots)

	assert.Len(t, f.notifier.saved, 1)
	assert.Empty(t, f.notifier.failed)
	f.assertClean(t)
}

func TestCaptureRejectedWhileCapturing(t *testing.T) {
	f := newFixture(t)
	f.device.unblock = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Capture(context.Background())
		done <- err
	}()

	// Wait until the first sequence is inside CaptureStill.
	require.Eventually(t, f.state.Capturing, time.Second, time.Millisecond)

	_, err := f.orch.Capture(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(f.device.unblock)
	require.NoError(t, <-done)

	// Exactly one sequence ran and one notification was surfaced.
	assert.Equal(t, 1, f.device.captures)
	assert.Len(t, f.notifier.saved, 1)
	assert.Empty(t, f.notifier.failed)
	f.assertClean(t)
}

func TestCaptureRejectedWithoutDevice(t *testing.T) {
	f := newFixture(t)
	orch := New(f.state, nil, f.renderer, f.writer, f.notifier, Options{})

	_, err := orch.Capture(context.Background())
	assert.ErrorIs(t, err, ErrDeviceNotReady)

	// A rejected start is not a capture attempt: no notification either way.
	assert.Empty(t, f.notifier.saved)
	assert.Empty(t, f.notifier.failed)
}

func TestCaptureRejectedWhenDeviceNotReady(t *testing.T) {
	f := newFixture(t)
	f.device.ready = false

	_, err := f.orch.Capture(context.Background())
	assert.ErrorIs(t, err, ErrDeviceNotReady)
	assert.Equal(t, 0, f.device.captures)
}

func TestDeviceErrorSurfacesOnceAndCleansUp(t *testing.T) {
	f := newFixture(t)
	f.device.err = errors.New("sensor fault")

	_, err := f.orch.Capture(context.Background())
	require.Error(t, err)

	assert.Empty(t, f.writer.saves, "no partial artifacts persisted")
	assert.Empty(t, f.notifier.saved)
	assert.Len(t, f.notifier.failed, 1)
	f.assertClean(t)
}

func TestSnapshotRetriesOnceThenSucceeds(t *testing.T) {
	f := newFixture(t)
	f.renderer.notReady = 1

	_, err := f.orch.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, f.renderer.snapshots, "exactly one retry")
	assert.Len(t, f.notifier.saved, 1)
	assert.Empty(t, f.notifier.failed, "a recovered retry is not user-visible")
	f.assertClean(t)
}

func TestSnapshotRetryExhaustedEscalates(t *testing.T) {
	f := newFixture(t)
	f.renderer.notReady = 2

	_, err := f.orch.Capture(context.Background())
	require.Error(t, err)

	assert.Equal(t, 2, f.renderer.snapshots, "retry is bounded to one")
	assert.Empty(t, f.writer.saves)
	assert.Len(t, f.notifier.failed, 1)
	f.assertClean(t)
}

type hardFailRenderer struct {
	snapshots int
}

func (r *hardFailRenderer) Settle(ctx context.Context) error { return nil }

func (r *hardFailRenderer) Snapshot(pixelRatio float64) (*image.RGBA, error) {
	r.snapshots++
	return nil, errors.New("surface lost")
}

func TestSnapshotHardFailureDoesNotRetry(t *testing.T) {
	f := newFixture(t)
	renderer := &hardFailRenderer{}
	orch := New(f.state, f.device, renderer, f.writer, f.notifier, Options{RetryDelay: time.Millisecond})

	_, err := orch.Capture(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, renderer.snapshots, "only transient not-ready is retried")
	assert.Len(t, f.notifier.failed, 1)
	f.assertClean(t)
}

func TestWriteErrorSurfacesAndCleansUp(t *testing.T) {
	f := newFixture(t)
	f.writer.err = errors.New("disk full")

	_, err := f.orch.Capture(context.Background())
	require.Error(t, err)

	assert.Empty(t, f.notifier.saved)
	assert.Len(t, f.notifier.failed, 1)
	f.assertClean(t)
}

func TestSettleErrorSurfacesAndCleansUp(t *testing.T) {
	f := newFixture(t)
	f.renderer.settleErr = errors.New("surface detached")

	_, err := f.orch.Capture(context.Background())
	require.Error(t, err)

	assert.Equal(t, 0, f.renderer.snapshots)
	assert.Len(t, f.notifier.failed, 1)
	f.assertClean(t)
}

func TestBackgroundFreezesDuringSequence(t *testing.T) {
	f := newFixture(t)

	var kindAtSnapshot app.BackgroundKind
	f.state.On(app.EventBackgroundChanged, func(data interface{}) {
		if bg, ok := data.(app.Background); ok && bg.Kind == app.BackgroundStill {
			kindAtSnapshot = bg.Kind
		}
	})

	_, err := f.orch.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, app.BackgroundStill, kindAtSnapshot,
		"the preview freezes on the captured still during the sequence")
	f.assertClean(t)
}

func TestCapturesAreSequentialNeverConcurrent(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.orch.Capture(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.device.captures)
	assert.Len(t, f.notifier.saved, 3)
	f.assertClean(t)
}
