package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/placerworks/pnpvision/internal/units"
)

// Config holds the persisted settings of one camera.
type Config struct {
	Name       string
	Looking    Looking
	SettleTime time.Duration
	FPS        float64

	// Transform chain, applied raw -> rotate -> flip -> crop -> scale.
	Rotation               float64 // degrees, counter-clockwise
	FlipX, FlipY           bool
	CropWidth, CropHeight  int // 0 disables the crop step
	ScaleWidth, ScaleHeight int // 0 disables the scale step

	// Calibration.
	UnitsPerPixel units.Location // flat value; its Z is the measured height
	DefaultZ      units.Length
	SafeZ         units.Length
	Calibration   []CalibrationSample

	// Anti-flicker window for light actuation batching.
	LightOffDelay time.Duration
}

// ReferenceCamera is the standard Camera implementation: a Driver supplies
// raw frames, the camera applies its transform chain and owns calibration,
// tool offsets, and light actuation around captures.
type ReferenceCamera struct {
	cfg    Config
	driver Driver
	log    *slog.Logger

	calib    atomic.Pointer[calibrationCurve]
	offsets  atomic.Pointer[map[string]units.Location]
	baseLoc  atomic.Pointer[units.Location]
	position atomic.Pointer[units.Location] // current head position, nil until motion reports one

	lightMu     sync.Mutex
	light       LightActuator
	lightOn     bool
	lastSetting interface{}
	offTimer    *time.Timer
}

// New builds a camera over a driver. The logger may be nil.
func New(cfg Config, driver Driver, logger *slog.Logger) (*ReferenceCamera, error) {
	if driver == nil {
		return nil, fmt.Errorf("camera %q: driver is required", cfg.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &ReferenceCamera{cfg: cfg, driver: driver, log: logger}
	curve, err := newCalibrationCurve(cfg.UnitsPerPixel, cfg.DefaultZ, cfg.SafeZ, cfg.Calibration)
	if err != nil {
		return nil, fmt.Errorf("camera %q: %w", cfg.Name, err)
	}
	c.calib.Store(curve)
	empty := map[string]units.Location{}
	c.offsets.Store(&empty)
	base := units.Location{Unit: cfg.UnitsPerPixel.Unit}
	c.baseLoc.Store(&base)
	return c, nil
}

func (c *ReferenceCamera) Name() string     { return c.cfg.Name }
func (c *ReferenceCamera) Looking() Looking { return c.cfg.Looking }

// Width returns the width of images this camera produces, after the
// transform chain.
func (c *ReferenceCamera) Width() int {
	w, _ := c.transformedDimensions()
	return w
}

// Height returns the height of images this camera produces.
func (c *ReferenceCamera) Height() int {
	_, h := c.transformedDimensions()
	return h
}

func (c *ReferenceCamera) transformedDimensions() (int, int) {
	w, h := c.driver.Dimensions()
	if c.cfg.CropWidth > 0 && c.cfg.CropWidth < w {
		w = c.cfg.CropWidth
	}
	if c.cfg.CropHeight > 0 && c.cfg.CropHeight < h {
		h = c.cfg.CropHeight
	}
	if c.cfg.ScaleWidth > 0 && c.cfg.ScaleHeight > 0 {
		w, h = c.cfg.ScaleWidth, c.cfg.ScaleHeight
	}
	return w, h
}

// SetLightActuator attaches the lighting collaborator.
func (c *ReferenceCamera) SetLightActuator(a LightActuator) {
	c.lightMu.Lock()
	defer c.lightMu.Unlock()
	c.light = a
}

// SetBaseLocation updates the camera's base machine location.
func (c *ReferenceCamera) SetBaseLocation(loc units.Location) {
	c.baseLoc.Store(&loc)
}

// SetPosition records the camera's current machine position; the motion
// collaborator calls this as the head moves.
func (c *ReferenceCamera) SetPosition(loc units.Location) {
	c.position.Store(&loc)
}

// SetToolOffset configures the offset applied for one tool. Readers see
// either the old or the new offset table, never a mix.
func (c *ReferenceCamera) SetToolOffset(tool string, offset units.Location) {
	for {
		old := c.offsets.Load()
		next := make(map[string]units.Location, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[tool] = offset
		if c.offsets.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Location returns the camera location including the calibrated offset
// for tool. A nil tool yields the unmodified base location.
func (c *ReferenceCamera) Location(tool Tool) units.Location {
	base := *c.baseLoc.Load()
	if tool == nil {
		return base
	}
	offsets := *c.offsets.Load()
	offset, ok := offsets[tool.Name()]
	if !ok {
		return base
	}
	return base.Add(offset)
}

// SetUnitsPerPixel replaces the flat calibration value, preserving any
// configured Z curve.
func (c *ReferenceCamera) SetUnitsPerPixel(upp units.Location) error {
	c.cfg.UnitsPerPixel = upp
	return c.SetCalibration(c.cfg.Calibration)
}

// SetCalibration replaces the Z-dependent calibration samples. The new
// curve becomes visible to readers atomically.
func (c *ReferenceCamera) SetCalibration(samples []CalibrationSample) error {
	curve, err := newCalibrationCurve(c.cfg.UnitsPerPixel, c.cfg.DefaultZ, c.cfg.SafeZ, samples)
	if err != nil {
		return fmt.Errorf("camera %q: %w", c.cfg.Name, err)
	}
	c.cfg.Calibration = samples
	c.calib.Store(curve)
	return nil
}

// UnitsPerPixel returns the flat per-pixel scale.
func (c *ReferenceCamera) UnitsPerPixel() units.Location {
	return c.calib.Load().flat
}

// UnitsPerPixelAt returns the per-pixel scale at height z (nil selects
// the default working plane). Never fails; without a configured curve the
// flat value is returned for every z.
func (c *ReferenceCamera) UnitsPerPixelAt(z *units.Length) units.Location {
	return c.calib.Load().unitsPerPixelAt(z)
}

// UnitsPerPixelAtZ evaluates the curve at the camera's current Z when
// that Z is meaningfully set (below safe Z). A parked or unset Z is not a
// real measurement height, so it falls back to the default lookup.
func (c *ReferenceCamera) UnitsPerPixelAtZ() units.Location {
	curve := c.calib.Load()
	pos := c.position.Load()
	if pos == nil {
		return curve.unitsPerPixelAt(nil)
	}
	z := pos.LengthZ()
	if z.Compare(curve.safeZ) >= 0 {
		return curve.unitsPerPixelAt(nil)
	}
	return curve.unitsPerPixelAt(&z)
}

// IsUnitsPerPixelAtZCalibrated reports whether Z-dependent units per pixel
// are configured.
func (c *ReferenceCamera) IsUnitsPerPixelAtZCalibrated() bool {
	return c.calib.Load().calibrated
}

// DefaultZ returns the Z height of the camera's default working plane.
func (c *ReferenceCamera) DefaultZ() units.Length { return c.cfg.DefaultZ }

// CaptureRaw returns the unmodified sensor frame.
func (c *ReferenceCamera) CaptureRaw(ctx context.Context) (image.Image, error) {
	img, err := c.driver.Capture(ctx)
	if err != nil {
		return nil, &CaptureError{Camera: c.cfg.Name, Err: err}
	}
	return img, nil
}

// CaptureTransformed captures a raw frame and applies the transform
// chain. Deterministic for a given raw frame and settings.
func (c *ReferenceCamera) CaptureTransformed(ctx context.Context) (image.Image, error) {
	raw, err := c.CaptureRaw(ctx)
	if err != nil {
		return nil, err
	}
	return c.transform(raw), nil
}

func (c *ReferenceCamera) transform(img image.Image) image.Image {
	if c.cfg.Rotation != 0 {
		img = imaging.Rotate(img, c.cfg.Rotation, image.Black)
	}
	if c.cfg.FlipX {
		img = imaging.FlipH(img)
	}
	if c.cfg.FlipY {
		img = imaging.FlipV(img)
	}
	if c.cfg.CropWidth > 0 && c.cfg.CropHeight > 0 {
		img = imaging.CropCenter(img, c.cfg.CropWidth, c.cfg.CropHeight)
	}
	if c.cfg.ScaleWidth > 0 && c.cfg.ScaleHeight > 0 {
		dst := image.NewNRGBA(image.Rect(0, 0, c.cfg.ScaleWidth, c.cfg.ScaleHeight))
		xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}
	return img
}

// Capture is CaptureTransformed plus before/after light actuation.
func (c *ReferenceCamera) Capture(ctx context.Context) (image.Image, error) {
	if err := c.ActuateLightBeforeCapture(nil); err != nil {
		return nil, err
	}
	img, err := c.CaptureTransformed(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.ActuateLightAfterCapture(); err != nil {
		return nil, err
	}
	return img, nil
}

// SettleAndCapture waits the configured settle interval before capturing.
// Abandoning the wait through ctx yields a SettleTimeoutError and leaves
// the camera ready for the next call.
func (c *ReferenceCamera) SettleAndCapture(ctx context.Context) (image.Image, error) {
	if err := c.settle(ctx); err != nil {
		return nil, err
	}
	return c.Capture(ctx)
}

// LightSettleAndCapture applies default lighting, settles, and captures.
func (c *ReferenceCamera) LightSettleAndCapture(ctx context.Context) (image.Image, error) {
	if err := c.ActuateLightBeforeCapture(nil); err != nil {
		return nil, err
	}
	return c.SettleAndCapture(ctx)
}

func (c *ReferenceCamera) settle(ctx context.Context) error {
	if c.cfg.SettleTime <= 0 {
		return nil
	}
	timer := time.NewTimer(c.cfg.SettleTime)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &SettleTimeoutError{Camera: c.cfg.Name, Settle: c.cfg.SettleTime}
	}
}

// ActuateLightBeforeCapture switches the light to setting (nil for the
// default capture lighting). Actuation is deduplicated across rapid
// successive captures so the light does not flicker.
func (c *ReferenceCamera) ActuateLightBeforeCapture(setting interface{}) error {
	c.lightMu.Lock()
	defer c.lightMu.Unlock()
	if c.light == nil {
		return nil
	}
	if c.offTimer != nil {
		c.offTimer.Stop()
		c.offTimer = nil
	}
	if c.lightOn && reflect.DeepEqual(c.lastSetting, setting) {
		return nil
	}
	if err := c.light.Actuate(setting); err != nil {
		return &CaptureError{Camera: c.cfg.Name, Err: fmt.Errorf("light actuation: %w", err)}
	}
	c.lightOn = true
	c.lastSetting = setting
	return nil
}

// ActuateLightAfterCapture schedules the light's return to its off
// setting. The switch-off is delayed by the configured anti-flicker
// window; a capture arriving within the window keeps the light on.
func (c *ReferenceCamera) ActuateLightAfterCapture() error {
	c.lightMu.Lock()
	defer c.lightMu.Unlock()
	if c.light == nil || !c.lightOn {
		return nil
	}
	if c.cfg.LightOffDelay <= 0 {
		return c.lightOffLocked()
	}
	if c.offTimer != nil {
		c.offTimer.Stop()
	}
	c.offTimer = time.AfterFunc(c.cfg.LightOffDelay, func() {
		c.lightMu.Lock()
		defer c.lightMu.Unlock()
		if err := c.lightOffLocked(); err != nil {
			c.log.Warn("deferred light off failed", "camera", c.cfg.Name, "error", err)
		}
	})
	return nil
}

func (c *ReferenceCamera) lightOffLocked() error {
	if !c.lightOn {
		return nil
	}
	if err := c.light.Off(); err != nil {
		return &CaptureError{Camera: c.cfg.Name, Err: fmt.Errorf("light off: %w", err)}
	}
	c.lightOn = false
	c.lastSetting = nil
	return nil
}

// HasNewFrame reports whether the device has a frame newer than the last
// captured one.
func (c *ReferenceCamera) HasNewFrame() bool { return c.driver.HasNewFrame() }

// FPS returns the configured continuous-capture frame rate.
func (c *ReferenceCamera) FPS() float64 { return c.cfg.FPS }

var _ Camera = (*ReferenceCamera)(nil)
