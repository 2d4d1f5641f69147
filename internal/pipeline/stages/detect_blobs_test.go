package stages

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placerworks/pnpvision/internal/pipeline"
)

func TestDetectBlobsFindsFiducials(t *testing.T) {
	img := fiducialImage(128, 96, image.Pt(30, 30), 5)
	drawDisc(img, image.Pt(100, 70), 8)

	stage, err := NewDetectBlobs(pipeline.StageDefinition{
		Type:   TagDetectBlobs,
		Name:   "fiducials",
		Params: map[string]interface{}{"minArea": 4},
	})
	require.NoError(t, err)

	result, err := runSingle(t, stage, img, nil)
	require.NoError(t, err)

	r, err := result.Result("fiducials")
	require.NoError(t, err)
	require.Equal(t, pipeline.KindFeatures, r.Kind)
	require.Len(t, r.Features, 2)

	// Sorted by area, largest first.
	assert.Greater(t, r.Features[0].Area, r.Features[1].Area)
	assert.Equal(t, image.Pt(100, 70), r.Features[0].Center)
	assert.Equal(t, image.Pt(30, 30), r.Features[1].Center)
	assert.True(t, image.Pt(100, 70).In(r.Features[0].Bounds))
}

func TestDetectBlobsMinAreaFilters(t *testing.T) {
	img := fiducialImage(64, 64, image.Pt(16, 16), 2) // area ~13 px
	drawDisc(img, image.Pt(48, 48), 7)                // area ~150 px

	stage, err := NewDetectBlobs(pipeline.StageDefinition{
		Type:   TagDetectBlobs,
		Name:   "big",
		Params: map[string]interface{}{"minArea": 50},
	})
	require.NoError(t, err)

	result, err := runSingle(t, stage, img, nil)
	require.NoError(t, err)
	r, err := result.Result("big")
	require.NoError(t, err)
	require.Len(t, r.Features, 1)
	assert.Equal(t, image.Pt(48, 48), r.Features[0].Center)
}

func TestDetectBlobsMinAreaOverride(t *testing.T) {
	img := fiducialImage(64, 64, image.Pt(16, 16), 2)
	drawDisc(img, image.Pt(48, 48), 7)

	stage, err := NewDetectBlobs(pipeline.StageDefinition{
		Type:   TagDetectBlobs,
		Name:   "blobs",
		Params: map[string]interface{}{"minArea": 50},
	})
	require.NoError(t, err)

	// Overriding minArea down lets the small fiducial through.
	result, err := runSingle(t, stage, img,
		map[string]interface{}{"DetectBlobs.minArea": 4})
	require.NoError(t, err)
	r, err := result.Result("blobs")
	require.NoError(t, err)
	assert.Len(t, r.Features, 2)
}

func TestDetectBlobsEmptyImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32)) // all black

	stage, err := NewDetectBlobs(pipeline.StageDefinition{Type: TagDetectBlobs, Name: "none"})
	require.NoError(t, err)

	result, err := runSingle(t, stage, img, nil)
	require.NoError(t, err)
	r, err := result.Result("none")
	require.NoError(t, err)
	assert.Empty(t, r.Features)
}

func TestDetectBlobsSetMinAreaNormalizes(t *testing.T) {
	s := &DetectBlobs{}
	s.SetMinArea(-5)
	assert.Equal(t, 1, s.MinArea())
	s.SetMinArea(40)
	assert.Equal(t, 40, s.MinArea())
}
