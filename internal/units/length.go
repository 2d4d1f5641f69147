// Package units provides physical length and location value types used by
// camera calibration and pipeline parameter coercion. All conversions go
// through millimeters internally.
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit identifies a physical length unit.
type Unit string

const (
	Millimeters Unit = "mm"
	Centimeters Unit = "cm"
	Meters      Unit = "m"
	Inches      Unit = "in"
	Mils        Unit = "mil"
	Microns     Unit = "um"
)

// millimetersPer maps each unit to its size in millimeters.
var millimetersPer = map[Unit]float64{
	Millimeters: 1.0,
	Centimeters: 10.0,
	Meters:      1000.0,
	Inches:      25.4,
	Mils:        0.0254,
	Microns:     0.001,
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	_, ok := millimetersPer[u]
	return ok
}

// Length is a scalar physical length tagged with its unit.
type Length struct {
	Value float64
	Unit  Unit
}

// NewLength creates a Length with the given value and unit.
func NewLength(value float64, unit Unit) Length {
	return Length{Value: value, Unit: unit}
}

// ConvertTo returns the same physical length expressed in unit.
// Converting to or from an unknown unit returns the receiver unchanged.
func (l Length) ConvertTo(unit Unit) Length {
	from, ok := millimetersPer[l.Unit]
	if !ok {
		return l
	}
	to, ok := millimetersPer[unit]
	if !ok {
		return l
	}
	return Length{Value: l.Value * from / to, Unit: unit}
}

// Millimeters returns the length value expressed in millimeters.
func (l Length) Millimeters() float64 {
	return l.ConvertTo(Millimeters).Value
}

// Add returns l + other, expressed in l's unit.
func (l Length) Add(other Length) Length {
	return Length{Value: l.Value + other.ConvertTo(l.Unit).Value, Unit: l.Unit}
}

// Subtract returns l - other, expressed in l's unit.
func (l Length) Subtract(other Length) Length {
	return Length{Value: l.Value - other.ConvertTo(l.Unit).Value, Unit: l.Unit}
}

// Multiply returns l scaled by factor.
func (l Length) Multiply(factor float64) Length {
	return Length{Value: l.Value * factor, Unit: l.Unit}
}

// DivideBy returns the dimensionless ratio l / other.
func (l Length) DivideBy(other Length) float64 {
	return l.Millimeters() / other.Millimeters()
}

// Compare returns -1, 0, or 1 as l is less than, equal to, or greater
// than other, comparing physical magnitudes.
func (l Length) Compare(other Length) int {
	a, b := l.Millimeters(), other.Millimeters()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + string(l.Unit)
}

// ParseLength parses strings of the form "<number><unit>", e.g. "3.5mm",
// "0.1in". Whitespace between number and unit is tolerated.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' {
			break
		}
		i--
	}
	if i == 0 || i == len(s) {
		return Length{}, fmt.Errorf("parse length %q: expected <number><unit>", s)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
	if err != nil {
		return Length{}, fmt.Errorf("parse length %q: %w", s, err)
	}
	unit := Unit(strings.TrimSpace(s[i:]))
	if !unit.Valid() {
		return Length{}, fmt.Errorf("parse length %q: unknown unit %q", s, string(unit))
	}
	return Length{Value: value, Unit: unit}, nil
}
