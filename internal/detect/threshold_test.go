package detect

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

func drawTestDisc(img *image.Gray, cx, cy, radius float64) {
	x0, x1 := int(math.Floor(cx-radius)), int(math.Ceil(cx+radius))
	y0, y1 := int(math.Floor(cy-radius)), int(math.Ceil(cy+radius))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= radius*radius {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
}

func TestThresholdDetectorCentroids(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	brightSquare(img, geometry.Point2D{X: 50, Y: 50})
	brightSquare(img, geometry.Point2D{X: 120, Y: 80})

	points, err := NewThresholdDetector().Detect(img)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.InDelta(t, 50, points[0].X, 1e-9)
	assert.InDelta(t, 50, points[0].Y, 1e-9)
	assert.InDelta(t, 120, points[1].X, 1e-9)
	assert.InDelta(t, 80, points[1].Y, 1e-9)
}

func TestThresholdDetectorKeepsDiscWhole(t *testing.T) {
	// A disc at a fractional center whose narrow top row sits diagonally
	// offset from the row below, with a second disc sharing the same scan
	// rows. The detector must still report one centroid per disc.
	img := image.NewGray(image.Rect(0, 0, 640, 480))
	drawTestDisc(img, 300.4, 170.2, 2.5)
	drawTestDisc(img, 357.1, 171.3, 2.5)

	points, err := NewThresholdDetector().Detect(img)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.InDelta(t, 300.4, points[0].X, 0.5)
	assert.InDelta(t, 170.2, points[0].Y, 0.5)
	assert.InDelta(t, 357.1, points[1].X, 0.5)
	assert.InDelta(t, 171.3, points[1].Y, 0.5)
}

func TestThresholdDetectorDarkFrame(t *testing.T) {
	points, err := NewThresholdDetector().Detect(image.NewGray(image.Rect(0, 0, 64, 64)))
	require.NoError(t, err)
	assert.Empty(t, points)
}
