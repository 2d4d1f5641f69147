package stages

import (
	"image"
	"sort"

	"github.com/placerworks/pnpvision/internal/pipeline"
)

// DetectBlobs finds connected bright regions in the working image and
// publishes them as a feature list: one Feature per blob with its center,
// bounding box, and pixel area. Intended to run after thresholding, but
// works on any image via its own luminance cutoff.
type DetectBlobs struct {
	name         string
	cutoff       int
	minArea      int
	propertyName string
}

// NewDetectBlobs builds the stage. Parameters: cutoff (luminance 0-255,
// default 128), minArea (pixels, default 4), propertyName (default
// "DetectBlobs").
func NewDetectBlobs(def pipeline.StageDefinition) (pipeline.Stage, error) {
	cutoff, err := paramInt(def.Params, "cutoff", 128)
	if err != nil {
		return nil, err
	}
	minArea, err := paramInt(def.Params, "minArea", 4)
	if err != nil {
		return nil, err
	}
	prop, err := paramString(def.Params, "propertyName", "DetectBlobs")
	if err != nil {
		return nil, err
	}
	s := &DetectBlobs{name: def.Name, cutoff: clampInt(cutoff, 0, 255), propertyName: prop}
	s.SetMinArea(minArea)
	return s, nil
}

func (s *DetectBlobs) Name() string { return s.name }

// MinArea returns the persisted minimum blob area in pixels.
func (s *DetectBlobs) MinArea() int { return s.minArea }

// SetMinArea floors the minimum area at 1.
func (s *DetectBlobs) SetMinArea(a int) { s.minArea = maxInt(a, 1) }

func (s *DetectBlobs) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	img, err := requireImage(ctx)
	if err != nil {
		return nil, err
	}
	minArea, err := ctx.Resolver().Int(overrideKey(s.propertyName, "minArea"), s.minArea,
		pipeline.KindFloat, pipeline.KindLength)
	if err != nil {
		return nil, err
	}
	features := findBlobs(img, uint8(s.cutoff), maxInt(minArea, 1))
	return pipeline.FeaturesResult(features), nil
}

// findBlobs labels 4-connected components of pixels at or above cutoff.
func findBlobs(img image.Image, cutoff uint8, minArea int) []pipeline.Feature {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask[y*w+x] = luminance(img.At(bounds.Min.X+x, bounds.Min.Y+y)) >= cutoff
		}
	}

	visited := make([]bool, w*h)
	var features []pipeline.Feature
	queue := make([]int, 0, 256)

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		// Flood fill one component, accumulating its extent and centroid.
		queue = append(queue[:0], start)
		visited[start] = true
		minX, minY := w, h
		maxX, maxY := -1, -1
		sumX, sumY, area := 0, 0, 0

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%w, idx/w

			area++
			sumX += x
			sumY += y
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for _, n := range [4]int{idx - 1, idx + 1, idx - w, idx + w} {
				if n < 0 || n >= w*h || visited[n] || !mask[n] {
					continue
				}
				// Row wrap guard for horizontal neighbors.
				if (n == idx-1 || n == idx+1) && n/w != y {
					continue
				}
				visited[n] = true
				queue = append(queue, n)
			}
		}

		if area < minArea {
			continue
		}
		features = append(features, pipeline.Feature{
			Center: image.Pt(bounds.Min.X+sumX/area, bounds.Min.Y+sumY/area),
			Bounds: image.Rect(bounds.Min.X+minX, bounds.Min.Y+minY,
				bounds.Min.X+maxX+1, bounds.Min.Y+maxY+1),
			Area: area,
		})
	}

	sort.Slice(features, func(i, j int) bool { return features[i].Area > features[j].Area })
	return features
}
