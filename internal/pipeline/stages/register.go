package stages

import "github.com/placerworks/pnpvision/internal/pipeline"

// Type tags under which the built-in stages are persisted.
const (
	TagImageCapture = "capture"
	TagBlurGaussian = "blur-gaussian"
	TagConvertGray  = "convert-gray"
	TagThreshold    = "threshold"
	TagCropRegion   = "crop"
	TagDetectBlobs  = "detect-blobs"
	TagDrawFeatures = "draw-features"
	TagScoreRange   = "score-range"
	TagSkipIf       = "skip-if"
	TagRepeatFrom   = "repeat-from"
)

// RegisterDefaults registers the built-in stage set on a registry.
func RegisterDefaults(r *pipeline.Registry) {
	r.Register(TagImageCapture, NewImageCapture)
	r.Register(TagBlurGaussian, NewBlurGaussian)
	r.Register(TagConvertGray, NewConvertGray)
	r.Register(TagThreshold, NewThreshold)
	r.Register(TagCropRegion, NewCropRegion)
	r.Register(TagDetectBlobs, NewDetectBlobs)
	r.Register(TagDrawFeatures, NewDrawFeatures)
	r.Register(TagScoreRange, NewScoreRange)
	r.Register(TagSkipIf, NewSkipIf)
	r.Register(TagRepeatFrom, NewRepeatFrom)
}

// DefaultRegistry returns a registry preloaded with the built-in stages.
func DefaultRegistry() *pipeline.Registry {
	r := pipeline.NewRegistry()
	RegisterDefaults(r)
	return r
}
