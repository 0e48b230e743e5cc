// Package marker models the landmark catalog: the id bit grid, the physical
// marker point layout and the map file that ties ids to world poses.
package marker

import (
	"fmt"

	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// DefaultDim is the grid dimension of the standard 4x4 marker layout.
const DefaultDim = 4

// Grid describes the square bit grid printed on a marker. Cell (x, y)
// encodes bit value (1<<x) << (dim*y). Three cells are reserved for the
// reference corners and carry no id bit: (0,0), (dim-1,0) and (dim-1,dim-1).
type Grid struct {
	dim int
}

// NewGrid creates a grid of the given dimension. Ids are 16-bit, so the
// dimension is limited to 4.
func NewGrid(dim int) (Grid, error) {
	if dim < 2 || dim > 4 {
		return Grid{}, fmt.Errorf("grid dimension must be in [2,4], got %d", dim)
	}
	return Grid{dim: dim}, nil
}

// DefaultGrid returns the standard 4x4 grid.
func DefaultGrid() Grid {
	return Grid{dim: DefaultDim}
}

// Dim returns the grid dimension.
func (g Grid) Dim() int {
	return g.dim
}

// IsCorner reports whether cell (x, y) is one of the three reference corners.
func (g Grid) IsCorner(x, y int) bool {
	return (x == 0 && y == 0) ||
		(x == g.dim-1 && y == 0) ||
		(x == g.dim-1 && y == g.dim-1)
}

// BitValue returns the id contribution of cell (x, y).
func (g Grid) BitValue(x, y int) uint16 {
	return uint16(1) << uint(x) << uint(g.dim*y)
}

// CellCoord returns the unit-square coordinates of cell (x, y).
func (g Grid) CellCoord(x, y int) geometry.Point2D {
	return geometry.Point2D{
		X: float64(x) / float64(g.dim-1),
		Y: float64(y) / float64(g.dim-1),
	}
}

// CornerCoords returns the unit-square coordinates of the three reference
// corners in canonical order: x0y0, x1y0, x1y1.
func (g Grid) CornerCoords() [3]geometry.Point2D {
	return [3]geometry.Point2D{
		g.CellCoord(0, 0),
		g.CellCoord(g.dim-1, 0),
		g.CellCoord(g.dim-1, g.dim-1),
	}
}

// ValidID reports whether id uses only non-corner cells of the grid.
func (g Grid) ValidID(id uint16) bool {
	if id == 0 {
		return false
	}
	// All set bits must fall inside the grid.
	if g.dim < 4 && id>>uint(g.dim*g.dim) != 0 {
		return false
	}
	for y := 0; y < g.dim; y++ {
		for x := 0; x < g.dim; x++ {
			if id&g.BitValue(x, y) != 0 && g.IsCorner(x, y) {
				return false
			}
		}
	}
	return true
}

// Encode returns the canonical unit-square positions of the interior id
// points of id, in row-major cell order. The three corner positions are not
// included.
func (g Grid) Encode(id uint16) ([]geometry.Point2D, error) {
	if !g.ValidID(id) {
		return nil, fmt.Errorf("id %#04x does not fit the %dx%d grid", id, g.dim, g.dim)
	}
	var points []geometry.Point2D
	for y := 0; y < g.dim; y++ {
		for x := 0; x < g.dim; x++ {
			if g.IsCorner(x, y) {
				continue
			}
			if id&g.BitValue(x, y) != 0 {
				points = append(points, g.CellCoord(x, y))
			}
		}
	}
	return points, nil
}
