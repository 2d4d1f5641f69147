// Package camera models physical cameras attached to the machine: frame
// acquisition (one-shot and continuous), the image transform chain, and
// the calibration model that converts pixel measurements to physical
// units as a function of imaging height.
package camera

import (
	"context"
	"image"

	"github.com/placerworks/pnpvision/internal/units"
)

// Looking is the direction a camera faces.
type Looking int

const (
	// LookingDown cameras are head-mounted and look at the board.
	LookingDown Looking = iota
	// LookingUp cameras are fixed and look at the bottom of picked parts.
	LookingUp
)

func (l Looking) String() string {
	if l == LookingUp {
		return "up"
	}
	return "down"
}

// Tool identifies a head-mounted tool (nozzle) whose Z axis may not be
// perfectly parallel to the camera's, introducing a per-tool offset.
type Tool interface {
	Name() string
}

// Driver is the raw frame source behind a camera: the device-specific
// acquisition layer. Implementations must be safe for use from the
// acquisition goroutine concurrently with one-shot captures.
type Driver interface {
	// Capture returns the next raw sensor frame.
	Capture(ctx context.Context) (image.Image, error)
	// Dimensions returns the raw sensor frame size in pixels.
	Dimensions() (width, height int)
	// HasNewFrame reports whether the device has produced a frame since
	// the last Capture call.
	HasNewFrame() bool
}

// LightActuator is the external lighting collaborator actuated around
// captures. Failures propagate as capture-path errors.
type LightActuator interface {
	// Actuate switches the light to the given setting; nil selects the
	// default capture lighting.
	Actuate(setting interface{}) error
	// Off returns the light to its default off setting.
	Off() error
}

// Camera is one physical camera attached to the machine.
//
// Calibration lookups never fail: an uncalibrated camera silently degrades
// to its flat units-per-pixel value. Callers that need to know whether
// Z-dependent scaling is active must ask IsUnitsPerPixelAtZCalibrated
// rather than infer it from results.
type Camera interface {
	Name() string
	Looking() Looking
	Width() int
	Height() int

	// Location returns the camera location including the calibrated
	// offset for the given tool; a nil tool yields the base location.
	Location(tool Tool) units.Location

	// UnitsPerPixel returns the flat per-pixel scale, measured at the Z
	// carried in the returned location.
	UnitsPerPixel() units.Location
	// UnitsPerPixelAt returns the per-pixel scale for an object at z.
	// A nil z uses the camera's default working-plane height.
	UnitsPerPixelAt(z *units.Length) units.Location
	// UnitsPerPixelAtZ uses the camera's current Z position when it is
	// meaningfully set (below safe Z), else the flat scale.
	UnitsPerPixelAtZ() units.Location
	IsUnitsPerPixelAtZCalibrated() bool
	DefaultZ() units.Length

	CaptureRaw(ctx context.Context) (image.Image, error)
	CaptureTransformed(ctx context.Context) (image.Image, error)
	// Capture is CaptureTransformed plus before/after light actuation.
	Capture(ctx context.Context) (image.Image, error)
	// SettleAndCapture waits the configured settle interval, then
	// captures. Context cancellation during the wait returns a
	// SettleTimeoutError and leaves the camera usable.
	SettleAndCapture(ctx context.Context) (image.Image, error)
	// LightSettleAndCapture applies default lighting, settles, captures.
	LightSettleAndCapture(ctx context.Context) (image.Image, error)

	HasNewFrame() bool
}
