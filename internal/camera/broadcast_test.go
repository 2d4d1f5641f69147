package camera

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingListener struct {
	mu     sync.Mutex
	frames int
	last   image.Image
}

func (l *countingListener) FrameReceived(img image.Image) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames++
	l.last = img
}

func (l *countingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

type panickingListener struct{}

func (l *panickingListener) FrameReceived(image.Image) { panic("listener is broken") }

func newBroadcastCamera(t *testing.T, fps float64) *ReferenceCamera {
	t.Helper()
	cfg := testCameraConfig()
	cfg.FPS = fps
	return newTestCamera(t, cfg)
}

func TestBroadcasterDeliversToAllListeners(t *testing.T) {
	b := NewBroadcaster(newBroadcastCamera(t, 100), nil)
	l1 := &countingListener{}
	l2 := &countingListener{}

	b.StartContinuousCapture(l1)
	b.StartContinuousCapture(l2)
	defer b.StopContinuousCapture(l1)
	defer b.StopContinuousCapture(l2)

	require.Eventually(t, func() bool {
		return l1.count() >= 3 && l2.count() >= 3
	}, 5*time.Second, 5*time.Millisecond)

	l1.mu.Lock()
	img := l1.last
	l1.mu.Unlock()
	require.NotNil(t, img)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestStoppedListenerReceivesNothingFurther(t *testing.T) {
	b := NewBroadcaster(newBroadcastCamera(t, 100), nil)
	l1 := &countingListener{}
	l2 := &countingListener{}

	b.StartContinuousCapture(l1)
	b.StartContinuousCapture(l2)

	require.Eventually(t, func() bool { return l1.count() >= 2 }, 5*time.Second, 5*time.Millisecond)

	b.StopContinuousCapture(l1)
	seen := l1.count()
	before2 := l2.count()

	// The other listener keeps receiving while the stopped one stays frozen.
	require.Eventually(t, func() bool { return l2.count() > before2+2 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, seen, l1.count())

	b.StopContinuousCapture(l2)
}

func TestAcquisitionStopsWithLastListener(t *testing.T) {
	b := NewBroadcaster(newBroadcastCamera(t, 100), nil)
	l := &countingListener{}

	b.StartContinuousCapture(l)
	require.Eventually(t, func() bool { return l.count() >= 1 }, 5*time.Second, 5*time.Millisecond)
	b.StopContinuousCapture(l)

	assert.Equal(t, 0, b.ListenerCount())

	// Registering again restarts the loop from scratch.
	l2 := &countingListener{}
	b.StartContinuousCapture(l2)
	require.Eventually(t, func() bool { return l2.count() >= 1 }, 5*time.Second, 5*time.Millisecond)
	b.StopContinuousCapture(l2)
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	b := NewBroadcaster(newBroadcastCamera(t, 100), nil)
	bad := &panickingListener{}
	good := &countingListener{}

	b.StartContinuousCapture(bad)
	b.StartContinuousCapture(good)
	defer b.StopContinuousCapture(bad)
	defer b.StopContinuousCapture(good)

	require.Eventually(t, func() bool { return good.count() >= 3 }, 5*time.Second, 5*time.Millisecond)
}

func TestStartIsIdempotentPerListener(t *testing.T) {
	b := NewBroadcaster(newBroadcastCamera(t, 100), nil)
	l := &countingListener{}

	b.StartContinuousCapture(l)
	b.StartContinuousCapture(l)
	assert.Equal(t, 1, b.ListenerCount())
	b.StopContinuousCapture(l)
}

func TestHasNewFrameTracksPerListener(t *testing.T) {
	b := NewBroadcaster(newBroadcastCamera(t, 2), nil) // slow: 500ms between frames
	l1 := &countingListener{}
	l2 := &countingListener{}

	b.StartContinuousCapture(l1)
	b.StartContinuousCapture(l2)
	defer b.StopContinuousCapture(l1)
	defer b.StopContinuousCapture(l2)

	require.Eventually(t, func() bool { return b.HasNewFrame(l1) }, 5*time.Second, 10*time.Millisecond)

	// Consuming l1's flag does not touch l2's, and l1 sees no new frame
	// until the next delivery.
	assert.False(t, b.HasNewFrame(l1))
	require.Eventually(t, func() bool { return b.HasNewFrame(l2) }, 5*time.Second, 10*time.Millisecond)
	assert.False(t, b.HasNewFrame(l2))

	require.Eventually(t, func() bool { return b.HasNewFrame(l1) }, 5*time.Second, 10*time.Millisecond)
}

func TestHasNewFrameForUnknownListener(t *testing.T) {
	b := NewBroadcaster(newBroadcastCamera(t, 100), nil)
	assert.False(t, b.HasNewFrame(&countingListener{}))
}
