package detect

import (
	"image"

	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// ThresholdDetector is a pure Go point detector: it thresholds the frame and
// returns the centroid of each 8-connected bright pixel component. It trades
// OpenCV's blob filtering for zero native dependencies.
type ThresholdDetector struct {
	// Threshold is the minimum brightness of a marker pixel.
	Threshold uint8
}

// NewThresholdDetector creates a ThresholdDetector with the default
// brightness threshold.
func NewThresholdDetector() *ThresholdDetector {
	return &ThresholdDetector{Threshold: 128}
}

// Detect returns one centroid per bright pixel component, in scan order of
// each component's first pixel.
func (d *ThresholdDetector) Detect(img *image.Gray) ([]geometry.Point2D, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	visited := make([]bool, width*bounds.Dy())
	index := func(p image.Point) int {
		return (p.Y-bounds.Min.Y)*width + (p.X - bounds.Min.X)
	}
	bright := func(p image.Point) bool {
		return img.GrayAt(p.X, p.Y).Y > d.Threshold
	}

	var points []geometry.Point2D
	var stack []image.Point
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			seed := image.Point{X: x, Y: y}
			if visited[index(seed)] || !bright(seed) {
				continue
			}

			// Flood-fill the component and accumulate its centroid.
			var sumX, sumY float64
			size := 0
			visited[index(seed)] = true
			stack = append(stack[:0], seed)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				sumX += float64(p.X)
				sumY += float64(p.Y)
				size++

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						n := image.Point{X: p.X + dx, Y: p.Y + dy}
						if !n.In(bounds) || visited[index(n)] || !bright(n) {
							continue
						}
						visited[index(n)] = true
						stack = append(stack, n)
					}
				}
			}

			points = append(points, geometry.Point2D{
				X: sumX / float64(size),
				Y: sumY / float64(size),
			})
		}
	}
	return points, nil
}
