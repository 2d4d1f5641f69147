package stages

import (
	"github.com/placerworks/pnpvision/internal/pipeline"
)

// ScoreRange measures the mean luminance of the working image and
// publishes it as a scalar result, for use by control-flow stages or by
// the calling machine logic (e.g. exposure or focus scoring).
type ScoreRange struct {
	name string
}

// NewScoreRange builds the stage. It has no parameters.
func NewScoreRange(def pipeline.StageDefinition) (pipeline.Stage, error) {
	return &ScoreRange{name: def.Name}, nil
}

func (s *ScoreRange) Name() string { return s.name }

func (s *ScoreRange) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	img, err := requireImage(ctx)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return pipeline.ScalarResult(0), nil
	}
	var sum uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += uint64(luminance(img.At(x, y)))
		}
	}
	return pipeline.ScalarResult(float64(sum) / float64(n)), nil
}
