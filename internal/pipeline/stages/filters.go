package stages

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/placerworks/pnpvision/internal/pipeline"
)

// ConvertGray converts the working image to grayscale.
type ConvertGray struct {
	name string
}

// NewConvertGray builds the stage. It has no parameters.
func NewConvertGray(def pipeline.StageDefinition) (pipeline.Stage, error) {
	return &ConvertGray{name: def.Name}, nil
}

func (s *ConvertGray) Name() string { return s.name }

func (s *ConvertGray) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	img, err := requireImage(ctx)
	if err != nil {
		return nil, err
	}
	ctx.SetWorkingImage(imaging.Grayscale(img))
	return nil, nil
}

// Threshold binarizes the working image: luminance at or above the cutoff
// becomes white, everything else black.
type Threshold struct {
	name         string
	cutoff       int
	propertyName string
}

// NewThreshold builds the stage. Parameters: cutoff (0-255, default 128),
// propertyName (default "Threshold").
func NewThreshold(def pipeline.StageDefinition) (pipeline.Stage, error) {
	cutoff, err := paramInt(def.Params, "cutoff", 128)
	if err != nil {
		return nil, err
	}
	prop, err := paramString(def.Params, "propertyName", "Threshold")
	if err != nil {
		return nil, err
	}
	s := &Threshold{name: def.Name, propertyName: prop}
	s.SetCutoff(cutoff)
	return s, nil
}

func (s *Threshold) Name() string { return s.name }

// Cutoff returns the persisted luminance cutoff.
func (s *Threshold) Cutoff() int { return s.cutoff }

// SetCutoff clamps the cutoff into [0, 255].
func (s *Threshold) SetCutoff(v int) {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	s.cutoff = v
}

func (s *Threshold) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	img, err := requireImage(ctx)
	if err != nil {
		return nil, err
	}
	cutoff, err := ctx.Resolver().Int(overrideKey(s.propertyName, "cutoff"), s.cutoff, pipeline.KindFloat)
	if err != nil {
		return nil, err
	}
	ctx.SetWorkingImage(binarize(img, uint8(clampInt(cutoff, 0, 255))))
	return nil, nil
}

// CropRegion crops the working image to a centered region. Width and
// height may be overridden per run as pixels or physical lengths.
type CropRegion struct {
	name          string
	width, height int
	propertyName  string
}

// NewCropRegion builds the stage. Parameters: width, height (pixels,
// required), propertyName (default "CropRegion").
func NewCropRegion(def pipeline.StageDefinition) (pipeline.Stage, error) {
	w, err := paramInt(def.Params, "width", 0)
	if err != nil {
		return nil, err
	}
	h, err := paramInt(def.Params, "height", 0)
	if err != nil {
		return nil, err
	}
	prop, err := paramString(def.Params, "propertyName", "CropRegion")
	if err != nil {
		return nil, err
	}
	s := &CropRegion{name: def.Name, propertyName: prop}
	s.SetWidth(w)
	s.SetHeight(h)
	return s, nil
}

func (s *CropRegion) Name() string { return s.name }

// Width returns the persisted crop width in pixels.
func (s *CropRegion) Width() int { return s.width }

// SetWidth floors the crop width at 1 pixel.
func (s *CropRegion) SetWidth(w int) { s.width = maxInt(w, 1) }

// Height returns the persisted crop height in pixels.
func (s *CropRegion) Height() int { return s.height }

// SetHeight floors the crop height at 1 pixel.
func (s *CropRegion) SetHeight(h int) { s.height = maxInt(h, 1) }

func (s *CropRegion) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	img, err := requireImage(ctx)
	if err != nil {
		return nil, err
	}
	w, err := ctx.Resolver().Int(overrideKey(s.propertyName, "width"), s.width,
		pipeline.KindFloat, pipeline.KindLength)
	if err != nil {
		return nil, err
	}
	h, err := ctx.Resolver().Int(overrideKey(s.propertyName, "height"), s.height,
		pipeline.KindFloat, pipeline.KindLength)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	w = clampInt(maxInt(w, 1), 1, bounds.Dx())
	h = clampInt(maxInt(h, 1), 1, bounds.Dy())
	ctx.SetWorkingImage(imaging.CropCenter(img, w, h))
	return nil, nil
}

// binarize renders img into a black/white grayscale buffer.
func binarize(img image.Image, cutoff uint8) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if luminance(img.At(x, y)) >= cutoff {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// luminance computes the 8-bit BT.601 luma of a color.
func luminance(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	y := (299*r + 587*g + 114*b) / 1000
	return uint8(y >> 8)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
