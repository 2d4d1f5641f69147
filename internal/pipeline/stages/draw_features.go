package stages

import (
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/placerworks/pnpvision/internal/pipeline"
)

var markerColors = map[string]color.NRGBA{
	"red":    {R: 255, A: 255},
	"green":  {G: 255, A: 255},
	"blue":   {B: 255, A: 255},
	"yellow": {R: 255, G: 255, A: 255},
	"white":  {R: 255, G: 255, B: 255, A: 255},
}

// DrawFeatures draws markers for a prior stage's feature list over the
// working image: a bounding box outline and a center cross per feature.
// The source stage is referenced by name; running before that stage has
// produced a result is an error.
type DrawFeatures struct {
	name       string
	resultName string
	color      string
}

// NewDrawFeatures builds the stage. Parameters: resultName (required,
// the stage whose features to draw), color (red/green/blue/yellow/white,
// default "red").
func NewDrawFeatures(def pipeline.StageDefinition) (pipeline.Stage, error) {
	resultName, err := paramString(def.Params, "resultName", "")
	if err != nil {
		return nil, err
	}
	if resultName == "" {
		return nil, fmt.Errorf("parameter %q is required", "resultName")
	}
	col, err := paramString(def.Params, "color", "red")
	if err != nil {
		return nil, err
	}
	if _, ok := markerColors[col]; !ok {
		return nil, fmt.Errorf("parameter %q: unknown color %q", "color", col)
	}
	return &DrawFeatures{name: def.Name, resultName: resultName, color: col}, nil
}

func (s *DrawFeatures) Name() string { return s.name }

// ResultName returns the name of the stage whose features are drawn.
func (s *DrawFeatures) ResultName() string { return s.resultName }

func (s *DrawFeatures) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	img, err := requireImage(ctx)
	if err != nil {
		return nil, err
	}
	prior, err := ctx.Result(s.resultName)
	if err != nil {
		return nil, err
	}
	if prior.Kind != pipeline.KindFeatures {
		return nil, fmt.Errorf("result %q is %s, want %s", s.resultName, prior.Kind, pipeline.KindFeatures)
	}

	out := imaging.Clone(img)
	c := markerColors[s.color]
	for _, f := range prior.Features {
		b := f.Bounds
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetNRGBA(x, b.Min.Y, c)
			out.SetNRGBA(x, b.Max.Y-1, c)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			out.SetNRGBA(b.Min.X, y, c)
			out.SetNRGBA(b.Max.X-1, y, c)
		}
		for d := -3; d <= 3; d++ {
			out.SetNRGBA(f.Center.X+d, f.Center.Y, c)
			out.SetNRGBA(f.Center.X, f.Center.Y+d, c)
		}
	}
	ctx.SetWorkingImage(out)
	return pipeline.ImageResult(out), nil
}
