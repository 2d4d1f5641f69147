package pipeline

import (
	"image"
	"time"
)

// ResultKind identifies the payload carried by a stage result.
type ResultKind int

const (
	KindEmpty ResultKind = iota
	KindImage
	KindFeatures
	KindScalar
)

func (k ResultKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindFeatures:
		return "features"
	case KindScalar:
		return "scalar"
	default:
		return "empty"
	}
}

// Feature is one detected region of interest in the working image.
type Feature struct {
	Center image.Point
	Bounds image.Rectangle
	Area   int
}

// Control is an optional flow signal a stage may attach to its result.
type Control int

const (
	// ControlNone continues with the next stage.
	ControlNone Control = iota
	// ControlSkipRest ends the run successfully without executing the
	// remaining stages.
	ControlSkipRest
	// ControlRepeatFrom resumes execution at the stage named in
	// Result.RepeatFrom.
	ControlRepeatFrom
)

// Result is the value a stage publishes under its own name. A nil Result
// from Process is valid and means the stage only had side effects on the
// working image.
type Result struct {
	Kind     ResultKind
	Image    image.Image
	Features []Feature
	Scalar   float64

	// Flow signal, honored by the engine after the result is recorded.
	Control    Control
	RepeatFrom string
}

// ImageResult builds an image-kind result.
func ImageResult(img image.Image) *Result {
	return &Result{Kind: KindImage, Image: img}
}

// FeaturesResult builds a feature-list result.
func FeaturesResult(features []Feature) *Result {
	return &Result{Kind: KindFeatures, Features: features}
}

// ScalarResult builds a scalar result.
func ScalarResult(v float64) *Result {
	return &Result{Kind: KindScalar, Scalar: v}
}

// NamedResult is one recorded stage result, kept in insertion order for
// the lifetime of a single run.
type NamedResult struct {
	Stage  string
	Result Result
	At     time.Time
}

// StageTiming records how long one stage execution took. Profiling data,
// not correctness data.
type StageTiming struct {
	Stage   string
	Elapsed time.Duration
}

// RunResult is everything a completed (or aborted) run exposes: the final
// working image, the ordered result history, and per-stage timings.
// On an aborted run Image and Results reflect the state at the failing
// stage, for diagnostics.
type RunResult struct {
	Image   image.Image
	Results []NamedResult
	Timings []StageTiming
}

// Result returns the recorded result for a stage name, or a
// ResultNotFoundError.
func (r *RunResult) Result(name string) (*Result, error) {
	for i := range r.Results {
		if r.Results[i].Stage == name {
			return &r.Results[i].Result, nil
		}
	}
	return nil, &ResultNotFoundError{Name: name}
}
