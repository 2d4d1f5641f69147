package camera

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/placerworks/pnpvision/internal/units"
)

// CalibrationSample is one measured units-per-pixel scale at a known Z
// height. Two or more samples at distinct heights enable Z-dependent
// scaling.
type CalibrationSample struct {
	Z             units.Length   `yaml:"z" json:"z"`
	UnitsPerPixel units.Location `yaml:"units_per_pixel" json:"units_per_pixel"`
}

// calibrationCurve is an immutable snapshot of a camera's calibration:
// the flat units-per-pixel value plus, when configured, a Z-interpolated
// scale. Reconfiguration builds a new snapshot and swaps it atomically,
// so readers never observe a half-updated curve.
type calibrationCurve struct {
	flat       units.Location
	defaultZ   units.Length
	safeZ      units.Length
	calibrated bool

	unit       units.Unit
	zMin, zMax float64 // millimeters
	predX      interp.PiecewiseLinear
	predY      interp.PiecewiseLinear
}

// newCalibrationCurve builds a snapshot. With fewer than two samples the
// curve stays uncalibrated and every lookup returns the flat value.
func newCalibrationCurve(flat units.Location, defaultZ, safeZ units.Length,
	samples []CalibrationSample,
) (*calibrationCurve, error) {
	c := &calibrationCurve{
		flat:     flat,
		defaultZ: defaultZ,
		safeZ:    safeZ,
		unit:     flat.Unit,
	}
	if len(samples) < 2 {
		return c, nil
	}

	sorted := make([]CalibrationSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Z.Millimeters() < sorted[j].Z.Millimeters()
	})

	zs := make([]float64, len(sorted))
	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, s := range sorted {
		zs[i] = s.Z.Millimeters()
		if i > 0 && zs[i] <= zs[i-1] {
			return nil, fmt.Errorf("calibration samples must have distinct Z heights (duplicate at %s)", s.Z)
		}
		upp := s.UnitsPerPixel.ConvertTo(c.unit)
		xs[i] = upp.X
		ys[i] = upp.Y
	}
	if err := c.predX.Fit(zs, xs); err != nil {
		return nil, fmt.Errorf("fit X calibration curve: %w", err)
	}
	if err := c.predY.Fit(zs, ys); err != nil {
		return nil, fmt.Errorf("fit Y calibration curve: %w", err)
	}
	c.zMin, c.zMax = zs[0], zs[len(zs)-1]
	c.calibrated = true
	return c, nil
}

// unitsPerPixelAt evaluates the curve at z (nil means default Z). An
// uncalibrated curve returns the flat value regardless of z. Heights
// outside the sampled range clamp to the nearest endpoint.
func (c *calibrationCurve) unitsPerPixelAt(z *units.Length) units.Location {
	if !c.calibrated {
		return c.flat
	}
	height := c.defaultZ
	if z != nil {
		height = *z
	}
	zmm := height.Millimeters()
	if zmm < c.zMin {
		zmm = c.zMin
	}
	if zmm > c.zMax {
		zmm = c.zMax
	}
	return units.Location{
		Unit: c.unit,
		X:    c.predX.Predict(zmm),
		Y:    c.predY.Predict(zmm),
		Z:    height.ConvertTo(c.unit).Value,
	}
}
