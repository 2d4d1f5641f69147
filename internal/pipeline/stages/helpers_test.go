package stages

import (
	"image"
	"image/color"
)

// fiducialImage renders a dark frame with one bright disc, the shape the
// measurement stages are pointed at in production.
func fiducialImage(w, h int, center image.Point, radius int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}
	drawDisc(img, center, radius)
	return img
}

func drawDisc(img *image.NRGBA, center image.Point, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(center.X+dx, center.Y+dy, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
			}
		}
	}
}
