package camera

import (
	"fmt"
	"time"
)

// CaptureError reports that a frame could not be acquired from a camera
// device (unreachable, timed out, or a light actuation failure on the
// capture path).
type CaptureError struct {
	Camera string
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("camera %q: capture failed: %v", e.Camera, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// SettleTimeoutError reports that the caller abandoned the settle wait
// before capture. Distinct from CaptureError: the device was never asked
// for a frame and its state is unaffected.
type SettleTimeoutError struct {
	Camera string
	Settle time.Duration
}

func (e *SettleTimeoutError) Error() string {
	return fmt.Sprintf("camera %q: settle wait (%s) abandoned", e.Camera, e.Settle)
}
