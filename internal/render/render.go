// Package render draws synthetic marker frames. The map tools use it to
// validate catalogs; the tests use it to produce ground-truth images.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/internal/pose"
)

// Frame renders every catalog marker point as a bright disc into a fresh
// grayscale image, as seen by the camera at the given pose. Points
// projecting outside the image are simply not drawn.
func Frame(m *marker.Map, position [3]float64, orientation [4]float64, cam *pose.Camera, width, height int, radius float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	intrinsics := cam.Intrinsics()

	for _, lm := range m.Landmarks {
		for _, pt := range lm.Points {
			px := pose.Project(pt, position[:], orientation[:], intrinsics)
			drawDisc(img, px.X, px.Y, radius)
		}
	}
	return img
}

// drawDisc fills the pixels within radius of (cx, cy) with full brightness.
func drawDisc(img *image.Gray, cx, cy, radius float64) {
	bounds := img.Bounds()
	x0 := int(math.Floor(cx - radius))
	x1 := int(math.Ceil(cx + radius))
	y0 := int(math.Floor(cy - radius))
	y1 := int(math.Ceil(cy + radius))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy <= radius*radius {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
}
