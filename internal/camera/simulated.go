package camera

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"
)

// SimulatedDriver is a deterministic software frame source used by tests
// and by the CLI when no hardware is attached. Frames show a dark board
// with bright circular fiducials plus a frame counter strip so successive
// frames differ.
type SimulatedDriver struct {
	width, height int
	fiducials     []image.Point
	radius        int
	frames        atomic.Uint64
	captured      atomic.Uint64
}

// NewSimulatedDriver creates a driver producing width x height frames
// with fiducials at the given points.
func NewSimulatedDriver(width, height int, fiducials []image.Point) *SimulatedDriver {
	return &SimulatedDriver{
		width:     width,
		height:    height,
		fiducials: fiducials,
		radius:    maxDim(width, height) / 40,
	}
}

// Capture renders the next synthetic frame.
func (d *SimulatedDriver) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := d.frames.Add(1)
	d.captured.Store(n)

	img := image.NewNRGBA(image.Rect(0, 0, d.width, d.height))
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 24, G: 26, B: 30, A: 255})
		}
	}
	for _, f := range d.fiducials {
		d.drawDisc(img, f, d.radius)
	}
	// Frame counter strip: one bright pixel column per frame, wrapping.
	x := int(n) % d.width
	for y := 0; y < 3 && y < d.height; y++ {
		img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	}
	return img, nil
}

func (d *SimulatedDriver) drawDisc(img *image.NRGBA, center image.Point, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(center.X+dx, center.Y+dy, color.NRGBA{R: 235, G: 235, B: 235, A: 255})
			}
		}
	}
}

// Dimensions returns the raw frame size.
func (d *SimulatedDriver) Dimensions() (int, int) { return d.width, d.height }

// HasNewFrame reports whether a frame was produced since the last Capture.
// The simulator always has a fresh frame to offer.
func (d *SimulatedDriver) HasNewFrame() bool { return true }

func maxDim(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var _ Driver = (*SimulatedDriver)(nil)
