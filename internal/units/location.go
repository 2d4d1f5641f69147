package units

import "fmt"

// Location is a point in machine coordinates: X, Y, Z lengths in a common
// unit plus a rotation in degrees. It doubles as a units-per-pixel value,
// where X and Y carry the physical size of one pixel and Z carries the
// height at which that scale was measured.
type Location struct {
	Unit     Unit    `yaml:"unit" json:"unit"`
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	Z        float64 `yaml:"z" json:"z"`
	Rotation float64 `yaml:"rotation" json:"rotation"`
}

// NewLocation creates a Location in the given unit.
func NewLocation(unit Unit, x, y, z, rotation float64) Location {
	return Location{Unit: unit, X: x, Y: y, Z: z, Rotation: rotation}
}

// ConvertTo returns the same location expressed in unit.
func (l Location) ConvertTo(unit Unit) Location {
	from, ok := millimetersPer[l.Unit]
	if !ok {
		return l
	}
	to, ok := millimetersPer[unit]
	if !ok {
		return l
	}
	f := from / to
	return Location{Unit: unit, X: l.X * f, Y: l.Y * f, Z: l.Z * f, Rotation: l.Rotation}
}

// Add returns l + other component-wise, expressed in l's unit.
// Rotations add as plain degrees.
func (l Location) Add(other Location) Location {
	o := other.ConvertTo(l.Unit)
	return Location{Unit: l.Unit, X: l.X + o.X, Y: l.Y + o.Y, Z: l.Z + o.Z, Rotation: l.Rotation + o.Rotation}
}

// Subtract returns l - other component-wise, expressed in l's unit.
func (l Location) Subtract(other Location) Location {
	o := other.ConvertTo(l.Unit)
	return Location{Unit: l.Unit, X: l.X - o.X, Y: l.Y - o.Y, Z: l.Z - o.Z, Rotation: l.Rotation - o.Rotation}
}

// LengthX returns the X component as a Length.
func (l Location) LengthX() Length { return Length{Value: l.X, Unit: l.Unit} }

// LengthY returns the Y component as a Length.
func (l Location) LengthY() Length { return Length{Value: l.Y, Unit: l.Unit} }

// LengthZ returns the Z component as a Length.
func (l Location) LengthZ() Length { return Length{Value: l.Z, Unit: l.Unit} }

// IsZero reports whether every component is zero.
func (l Location) IsZero() bool {
	return l.X == 0 && l.Y == 0 && l.Z == 0 && l.Rotation == 0
}

func (l Location) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g°)%s", l.X, l.Y, l.Z, l.Rotation, string(l.Unit))
}
