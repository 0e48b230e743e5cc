package detect

import (
	"image"

	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// frameTransform returns the affine map from the marker's unit square into
// image coordinates, defined by the corners x0y0, x1y0, x1y1:
//
//	img = x0y0 + x*(x1y0-x0y0) + y*(x1y1-x1y0)
func frameTransform(x0y0, x1y0, x1y1 geometry.Point2D) geometry.AffineTransform {
	vX := x1y0.Sub(x0y0)
	vY := x1y1.Sub(x1y0)
	return geometry.AffineTransform{
		A: vX.X, B: vY.X, TX: x0y0.X,
		C: vX.Y, D: vY.Y, TY: x0y0.Y,
	}
}

// localFrame returns the inverse map, from image coordinates into the unit
// square. ok is false when the corners are collinear.
func localFrame(x0y0, x1y0, x1y1 geometry.Point2D) (geometry.AffineTransform, bool) {
	return frameTransform(x0y0, x1y0, x1y1).Inverse()
}

// idSet is the per-frame working set of catalog ids not yet assigned to an
// observation. It shrinks monotonically during one resolution pass.
type idSet map[uint16]struct{}

func newIDSet(ids []uint16) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// claim removes id from the set, reporting whether it was present.
func (s idSet) claim(id uint16) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

// decodeForward derives the hypothesis's id from its already-observed
// identity points: each point is mapped into the unit square, quantized into
// the grid and summed into the id. The id is accepted only if it is still
// unclaimed in valid. Points quantizing outside the grid are clamped and
// contribute whatever cell they land in; that is normal flow, not an error.
func decodeForward(h Hypothesis, grid marker.Grid, valid idSet) (uint16, bool) {
	local, ok := localFrame(h.Corners[0], h.Corners[1], h.Corners[2])
	if !ok {
		return 0, false
	}

	dim := grid.Dim()
	var id uint16
	for _, pt := range h.IdentityPoints {
		lp := local.Apply(pt)
		nX := clampCell(int(float64(dim-1)*lp.X+0.5), dim)
		nY := clampCell(int(float64(dim-1)*lp.Y+0.5), dim)
		id += grid.BitValue(nX, nY)
	}

	if !valid.claim(id) {
		return 0, false
	}
	return id, true
}

// decodeBackward derives the id by sampling the image at the grid locations
// predicted from the corner triple. Every non-corner cell is projected into
// pixel coordinates; a projection outside the image abandons the hypothesis.
// Cells brighter than threshold contribute their bit value. On success the
// hypothesis's identity points are replaced with the bright sample locations.
func decodeBackward(h *Hypothesis, img *image.Gray, grid marker.Grid, threshold uint8, valid idSet) (uint16, bool) {
	toImage := frameTransform(h.Corners[0], h.Corners[1], h.Corners[2])
	bounds := img.Bounds()

	dim := grid.Dim()
	var id uint16
	var bright []geometry.Point2D
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			if grid.IsCorner(x, y) {
				continue
			}
			pt := toImage.Apply(grid.CellCoord(x, y))
			px, py := int(pt.X), int(pt.Y)
			if px < bounds.Min.X || py < bounds.Min.Y || px >= bounds.Max.X || py >= bounds.Max.Y {
				// The corner triple predicts id points outside the visible
				// area; no safe decision is possible.
				return 0, false
			}
			if img.GrayAt(px, py).Y > threshold {
				id += grid.BitValue(x, y)
				bright = append(bright, pt)
			}
		}
	}

	if !valid.claim(id) {
		return 0, false
	}
	h.IdentityPoints = bright
	return id, true
}

func clampCell(n, dim int) int {
	if n < 0 {
		return 0
	}
	if n > dim-1 {
		return dim - 1
	}
	return n
}
