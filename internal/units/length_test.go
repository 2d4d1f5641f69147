package units

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthConvertTo(t *testing.T) {
	tests := []struct {
		name string
		in   Length
		to   Unit
		want float64
	}{
		{"mm to mm", NewLength(12.5, Millimeters), Millimeters, 12.5},
		{"inches to mm", NewLength(1, Inches), Millimeters, 25.4},
		{"mm to inches", NewLength(25.4, Millimeters), Inches, 1},
		{"meters to cm", NewLength(0.5, Meters), Centimeters, 50},
		{"mils to microns", NewLength(1, Mils), Microns, 25.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.ConvertTo(tt.to)
			assert.Equal(t, tt.to, got.Unit)
			assert.InDelta(t, tt.want, got.Value, 1e-9)
		})
	}
}

func TestLengthArithmetic(t *testing.T) {
	a := NewLength(10, Millimeters)
	b := NewLength(1, Centimeters)

	sum := a.Add(b)
	assert.Equal(t, Millimeters, sum.Unit)
	assert.InDelta(t, 20, sum.Value, 1e-9)

	diff := a.Subtract(b)
	assert.InDelta(t, 0, diff.Value, 1e-9)

	assert.InDelta(t, 1.0, a.DivideBy(b), 1e-9)
	assert.Equal(t, 0, a.Compare(b))
	assert.Equal(t, -1, a.Compare(NewLength(11, Millimeters)))
	assert.Equal(t, 1, a.Compare(NewLength(9, Millimeters)))
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in      string
		want    Length
		wantErr bool
	}{
		{"3.5mm", NewLength(3.5, Millimeters), false},
		{"0.1in", NewLength(0.1, Inches), false},
		{"-2 mm", NewLength(-2, Millimeters), false},
		{"10um", NewLength(10, Microns), false},
		{"mm", Length{}, true},
		{"3.5", Length{}, true},
		{"3.5furlong", Length{}, true},
		{"", Length{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLength(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLengthConversionRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("converting there and back preserves the value", prop.ForAll(
		func(v float64) bool {
			l := NewLength(v, Millimeters)
			back := l.ConvertTo(Inches).ConvertTo(Millimeters)
			return math.Abs(back.Value-v) < 1e-9*math.Max(1, math.Abs(v))
		},
		gen.Float64Range(-1000, 1000),
	))

	properties.Property("conversion preserves physical magnitude", prop.ForAll(
		func(v float64) bool {
			l := NewLength(v, Inches)
			return math.Abs(l.Millimeters()-l.ConvertTo(Microns).Millimeters()) < 1e-6
		},
		gen.Float64Range(-100, 100),
	))

	properties.TestingRun(t)
}

func TestLocationAddSubtract(t *testing.T) {
	base := NewLocation(Millimeters, 10, 20, 30, 45)
	offset := NewLocation(Millimeters, 1, -2, 0, 0)

	moved := base.Add(offset)
	assert.Equal(t, NewLocation(Millimeters, 11, 18, 30, 45), moved)

	back := moved.Subtract(offset)
	assert.Equal(t, base, back)

	// Mixed units convert into the receiver's unit.
	inch := NewLocation(Inches, 1, 0, 0, 0)
	sum := base.Add(inch)
	assert.InDelta(t, 35.4, sum.X, 1e-9)
	assert.Equal(t, Millimeters, sum.Unit)
}

func TestLocationZeroOffsetIsIdentity(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("adding a zero location changes nothing", prop.ForAll(
		func(x, y, z float64) bool {
			loc := NewLocation(Millimeters, x, y, z, 0)
			return loc.Add(Location{Unit: Millimeters}) == loc
		},
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
	))

	properties.TestingRun(t)
}
