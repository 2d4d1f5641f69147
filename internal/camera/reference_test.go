package camera

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placerworks/pnpvision/internal/units"
)

type testTool struct {
	name string
}

func (t *testTool) Name() string { return t.name }

// countingLight records actuations so tests can observe dedup behavior.
type countingLight struct {
	mu       sync.Mutex
	actuates int
	offs     int
	last     interface{}
}

func (l *countingLight) Actuate(setting interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actuates++
	l.last = setting
	return nil
}

func (l *countingLight) Off() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offs++
	return nil
}

func (l *countingLight) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.actuates, l.offs
}

func TestLocationWithoutToolIsBase(t *testing.T) {
	cam := newTestCamera(t, testCameraConfig())
	base := units.NewLocation(units.Millimeters, 100, 50, 0, 0)
	cam.SetBaseLocation(base)

	assert.Equal(t, base, cam.Location(nil))

	// A tool with no configured offset also sees the base location.
	assert.Equal(t, base, cam.Location(&testTool{name: "n1"}))
}

func TestLocationAppliesToolOffsets(t *testing.T) {
	cam := newTestCamera(t, testCameraConfig())
	base := units.NewLocation(units.Millimeters, 100, 50, 0, 0)
	cam.SetBaseLocation(base)
	cam.SetToolOffset("n1", units.NewLocation(units.Millimeters, 1, -2, 0, 0))
	cam.SetToolOffset("n2", units.NewLocation(units.Millimeters, -3, 4, 0, 0))

	loc1 := cam.Location(&testTool{name: "n1"})
	loc2 := cam.Location(&testTool{name: "n2"})

	assert.InDelta(t, 101, loc1.X, 1e-9)
	assert.InDelta(t, 48, loc1.Y, 1e-9)

	// Two tools differ by exactly the difference of their offsets.
	assert.InDelta(t, 4, loc1.X-loc2.X, 1e-9)
	assert.InDelta(t, -6, loc1.Y-loc2.Y, 1e-9)
}

func TestSettleAndCaptureHonorsContext(t *testing.T) {
	cfg := testCameraConfig()
	cfg.SettleTime = time.Hour
	cam := newTestCamera(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cam.SettleAndCapture(ctx)
	var settleErr *SettleTimeoutError
	require.ErrorAs(t, err, &settleErr)
	assert.Equal(t, "test-cam", settleErr.Camera)

	// The camera stays usable after an abandoned settle.
	cam.cfg.SettleTime = 0
	img, err := cam.SettleAndCapture(context.Background())
	require.NoError(t, err)
	require.NotNil(t, img)
}

func TestTransformChainDimensions(t *testing.T) {
	cfg := testCameraConfig()
	cfg.CropWidth = 40
	cfg.CropHeight = 30
	cfg.ScaleWidth = 20
	cfg.ScaleHeight = 15
	cam := newTestCamera(t, cfg) // driver is 64x48

	assert.Equal(t, 20, cam.Width())
	assert.Equal(t, 15, cam.Height())

	img, err := cam.CaptureTransformed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 15, img.Bounds().Dy())
}

func TestCropOnlyDimensions(t *testing.T) {
	cfg := testCameraConfig()
	cfg.CropWidth = 32
	cfg.CropHeight = 32
	cam := newTestCamera(t, cfg)

	img, err := cam.CaptureTransformed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestLightActuationDedupedWithinOffDelay(t *testing.T) {
	cfg := testCameraConfig()
	cfg.LightOffDelay = time.Minute
	cam := newTestCamera(t, cfg)
	light := &countingLight{}
	cam.SetLightActuator(light)

	for i := 0; i < 5; i++ {
		_, err := cam.Capture(context.Background())
		require.NoError(t, err)
	}

	actuates, offs := light.counts()
	// Rapid captures share one actuation; the deferred off never fires
	// within the test.
	assert.Equal(t, 1, actuates)
	assert.Equal(t, 0, offs)
}

func TestLightSwitchesOffWithoutDelayWindow(t *testing.T) {
	cam := newTestCamera(t, testCameraConfig()) // LightOffDelay zero
	light := &countingLight{}
	cam.SetLightActuator(light)

	for i := 0; i < 3; i++ {
		_, err := cam.Capture(context.Background())
		require.NoError(t, err)
	}

	actuates, offs := light.counts()
	assert.Equal(t, 3, actuates)
	assert.Equal(t, 3, offs)
}

func TestLightReactuatesOnSettingChange(t *testing.T) {
	cfg := testCameraConfig()
	cfg.LightOffDelay = time.Minute
	cam := newTestCamera(t, cfg)
	light := &countingLight{}
	cam.SetLightActuator(light)

	require.NoError(t, cam.ActuateLightBeforeCapture(map[string]interface{}{"intensity": 80}))
	require.NoError(t, cam.ActuateLightBeforeCapture(map[string]interface{}{"intensity": 80}))
	require.NoError(t, cam.ActuateLightBeforeCapture(map[string]interface{}{"intensity": 40}))

	actuates, _ := light.counts()
	assert.Equal(t, 2, actuates)

	light.mu.Lock()
	last := light.last
	light.mu.Unlock()
	assert.Equal(t, map[string]interface{}{"intensity": 40}, last)
}

func TestCaptureWithoutLightActuator(t *testing.T) {
	cam := newTestCamera(t, testCameraConfig())
	img, err := cam.Capture(context.Background())
	require.NoError(t, err)
	require.NotNil(t, img)
}

func TestCaptureRawReportsDriverFailure(t *testing.T) {
	cam := newTestCamera(t, testCameraConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cam.CaptureRaw(ctx)
	var capErr *CaptureError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "test-cam", capErr.Camera)
}

func TestSimulatedFramesDiffer(t *testing.T) {
	cam := newTestCamera(t, testCameraConfig())

	a, err := cam.CaptureRaw(context.Background())
	require.NoError(t, err)
	b, err := cam.CaptureRaw(context.Background())
	require.NoError(t, err)

	assert.False(t, imagesEqual(a, b))
}

func imagesEqual(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	bounds := a.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			ar, ag, ab, aa := a.At(x, y).RGBA()
			br, bg, bb, ba := b.At(x, y).RGBA()
			if ar != br || ag != bg || ab != bb || aa != ba {
				return false
			}
		}
	}
	return true
}
