package pipeline

import (
	"math"
	"strconv"

	"github.com/placerworks/pnpvision/internal/units"
)

// ValueKind is one of the closed set of types a property override may be
// coerced to. Kinds are tried in the order a stage declares them.
type ValueKind int

const (
	KindFloat ValueKind = iota
	KindLength
	KindString
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindLength:
		return "length"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Resolver resolves a stage parameter's effective value: a run-scoped
// override wins over the stage's persisted base value. Overrides are keyed
// by dotted property names ("<stagePropertyName>.<parameter>"), so callers
// can retarget a named stage's parameter without touching persisted
// configuration. An empty property name disables the mechanism for that
// parameter.
type Resolver struct {
	overrides     map[string]interface{}
	unitsPerPixel *units.Location
}

// NewResolver builds a standalone resolver. The engine builds one per run;
// this constructor exists for callers that resolve outside a run.
func NewResolver(overrides map[string]interface{}, unitsPerPixel *units.Location) *Resolver {
	return &Resolver{overrides: overrides, unitsPerPixel: unitsPerPixel}
}

// Float resolves a float64 parameter. The override value is converted to
// the first of want that accepts it; KindLength converts a physical length
// to pixels using the run's units-per-pixel context.
func (r *Resolver) Float(property string, base float64, want ...ValueKind) (float64, error) {
	if r == nil || property == "" {
		return base, nil
	}
	raw, ok := r.overrides[property]
	if !ok {
		return base, nil
	}
	if len(want) == 0 {
		want = []ValueKind{KindFloat}
	}
	for _, kind := range want {
		switch kind {
		case KindFloat:
			if f, ok := asFloat(raw); ok {
				return f, nil
			}
		case KindLength:
			if l, ok := asLength(raw); ok && r.unitsPerPixel != nil {
				return lengthToPixels(l, *r.unitsPerPixel), nil
			}
		case KindString, KindBool:
			// Not meaningful for a numeric parameter.
		}
	}
	return 0, &TypeMismatchError{Property: property, Value: raw, Want: want}
}

// Int resolves an integer parameter via Float and rounds.
func (r *Resolver) Int(property string, base int, want ...ValueKind) (int, error) {
	f, err := r.Float(property, float64(base), want...)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// String resolves a string parameter.
func (r *Resolver) String(property, base string) (string, error) {
	if r == nil || property == "" {
		return base, nil
	}
	raw, ok := r.overrides[property]
	if !ok {
		return base, nil
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return "", &TypeMismatchError{Property: property, Value: raw, Want: []ValueKind{KindString}}
}

// Bool resolves a boolean parameter.
func (r *Resolver) Bool(property string, base bool) (bool, error) {
	if r == nil || property == "" {
		return base, nil
	}
	raw, ok := r.overrides[property]
	if !ok {
		return base, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b, nil
		}
	}
	return false, &TypeMismatchError{Property: property, Value: raw, Want: []ValueKind{KindBool}}
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func asLength(raw interface{}) (units.Length, bool) {
	switch v := raw.(type) {
	case units.Length:
		return v, true
	case string:
		l, err := units.ParseLength(v)
		if err == nil {
			return l, true
		}
	}
	return units.Length{}, false
}

// lengthToPixels converts a physical length to pixels using the X axis of
// the units-per-pixel scale. Stages stay calibration-agnostic; conversion
// happens only here.
func lengthToPixels(l units.Length, upp units.Location) float64 {
	perPixel := upp.LengthX()
	if perPixel.Value == 0 {
		return 0
	}
	return l.DivideBy(perPixel)
}
