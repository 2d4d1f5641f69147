package stages

import (
	"fmt"

	"github.com/placerworks/pnpvision/internal/pipeline"
)

// ImageCapture settles the run's camera and captures a frame, replacing
// the working image. Typically the first stage of a pipeline whose run
// starts without an initial image.
type ImageCapture struct {
	name string
}

// NewImageCapture builds the stage. It has no parameters; the camera is
// bound to the run, not to the stage.
func NewImageCapture(def pipeline.StageDefinition) (pipeline.Stage, error) {
	return &ImageCapture{name: def.Name}, nil
}

func (s *ImageCapture) Name() string { return s.name }

func (s *ImageCapture) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	src := ctx.FrameSource()
	if src == nil {
		return nil, fmt.Errorf("no camera bound to this run")
	}
	img, err := src.SettleAndCapture(ctx.Ctx())
	if err != nil {
		return nil, err
	}
	ctx.SetWorkingImage(img)
	return pipeline.ImageResult(img), nil
}
