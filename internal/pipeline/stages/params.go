// Package stages provides the built-in stage set for vision pipelines:
// image filters, geometric measurement stages, capture, and control flow.
// Stage parameters come from persisted StageDefinitions; parameters with
// physical meaning can be overridden per run through the pipeline's
// property resolver, either as raw pixels or as physical lengths.
package stages

import (
	"fmt"
	"image"

	"github.com/placerworks/pnpvision/internal/pipeline"
)

// paramInt reads an integer parameter, tolerating the numeric types YAML
// and JSON decoders produce.
func paramInt(params map[string]interface{}, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected integer, got %T", key, raw)
	}
}

func paramFloat(params map[string]interface{}, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T", key, raw)
	}
}

func paramString(params map[string]interface{}, key, def string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("parameter %q: expected string, got %T", key, raw)
}

// oddKernel normalizes a convolution kernel size to the nearest odd value
// greater than or equal to 3. Inputs 0 and negatives land on 3; even
// inputs round up (4 becomes 5).
func oddKernel(k int) int {
	k = 2*(k/2) + 1
	if k < 3 {
		k = 3
	}
	return k
}

// requireImage fetches the working image or fails the stage when no
// earlier stage has supplied one.
func requireImage(ctx *pipeline.Context) (image.Image, error) {
	if ctx.WorkingImage() == nil {
		return nil, fmt.Errorf("no working image; add a capture stage or pass an initial image")
	}
	return ctx.WorkingImage(), nil
}
