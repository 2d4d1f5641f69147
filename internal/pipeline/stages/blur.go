package stages

import (
	"github.com/disintegration/imaging"
	"github.com/placerworks/pnpvision/internal/pipeline"
)

// BlurGaussian performs gaussian blurring on the working image. The kernel
// size is always an odd number >= 3; the setter normalizes anything else.
type BlurGaussian struct {
	name         string
	kernelSize   int
	propertyName string
}

// NewBlurGaussian builds the stage from its persisted definition.
// Parameters: kernelSize (int, default 3), propertyName (string, default
// "BlurGaussian"; empty disables overrides).
func NewBlurGaussian(def pipeline.StageDefinition) (pipeline.Stage, error) {
	k, err := paramInt(def.Params, "kernelSize", 3)
	if err != nil {
		return nil, err
	}
	prop, err := paramString(def.Params, "propertyName", "BlurGaussian")
	if err != nil {
		return nil, err
	}
	s := &BlurGaussian{name: def.Name, propertyName: prop}
	s.SetKernelSize(k)
	return s, nil
}

func (s *BlurGaussian) Name() string { return s.name }

// KernelSize returns the persisted kernel size.
func (s *BlurGaussian) KernelSize() int { return s.kernelSize }

// SetKernelSize coerces the kernel size to the nearest odd value >= 3.
func (s *BlurGaussian) SetKernelSize(k int) { s.kernelSize = oddKernel(k) }

// PropertyName returns the name through which callers override this stage.
func (s *BlurGaussian) PropertyName() string { return s.propertyName }

// SetPropertyName changes the override property name.
func (s *BlurGaussian) SetPropertyName(name string) { s.propertyName = name }

func (s *BlurGaussian) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	img, err := requireImage(ctx)
	if err != nil {
		return nil, err
	}
	k, err := ctx.Resolver().Int(overrideKey(s.propertyName, "kernelSize"), s.kernelSize,
		pipeline.KindFloat, pipeline.KindLength)
	if err != nil {
		return nil, err
	}
	k = oddKernel(k)
	ctx.SetWorkingImage(imaging.Blur(img, sigmaForKernel(k)))
	return nil, nil
}

// sigmaForKernel derives a gaussian sigma from an odd kernel size the same
// way OpenCV does when sigma is left at zero.
func sigmaForKernel(k int) float64 {
	return 0.3*(float64(k-1)*0.5-1) + 0.8
}

// overrideKey joins a stage property name and a parameter into the dotted
// key callers use in override maps. Empty property names opt out.
func overrideKey(property, parameter string) string {
	if property == "" {
		return ""
	}
	return property + "." + parameter
}
