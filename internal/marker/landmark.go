package marker

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// Pose is a rigid transform: a position and a unit-quaternion orientation
// stored as w, x, y, z.
type Pose struct {
	Position    [3]float64 `yaml:"position"`
	Orientation [4]float64 `yaml:"orientation"`
}

// IdentityPose returns a pose at the origin with identity orientation.
func IdentityPose() Pose {
	return Pose{Orientation: [4]float64{1, 0, 0, 0}}
}

// TransformPoint maps a point from the pose's local frame into the parent
// frame: p' = q * p * q^-1 + t.
func (p Pose) TransformPoint(pt geometry.Point3D) geometry.Point3D {
	q := quat.Number{Real: p.Orientation[0], Imag: p.Orientation[1], Jmag: p.Orientation[2], Kmag: p.Orientation[3]}
	v := quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}
	r := quat.Mul(quat.Mul(q, v), quat.Conj(q))
	return geometry.Point3D{
		X: r.Imag + p.Position[0],
		Y: r.Jmag + p.Position[1],
		Z: r.Kmag + p.Position[2],
	}
}

// Landmark is one catalog entry: a marker with known id, world pose and the
// world coordinates of its fixed point pattern. Points holds the three
// reference corners first (x0y0, x1y0, x1y1) followed by the interior id
// points in canonical order.
type Landmark struct {
	ID     uint16
	Pose   Pose
	Points []geometry.Point3D
}

// NewLandmark generates the world-frame point set for a marker of the given
// id, pose and physical edge length.
//
// The grid's x axis runs along the marker frame's y axis: a camera below the
// marker looking up sees the pattern in image coordinates (y down) with the
// same handedness the detector's corner canonicalization assumes.
func NewLandmark(id uint16, pose Pose, grid Grid, size float64) (Landmark, error) {
	if size <= 0 {
		return Landmark{}, fmt.Errorf("marker size must be positive, got %g", size)
	}
	interior, err := grid.Encode(id)
	if err != nil {
		return Landmark{}, err
	}

	corners := grid.CornerCoords()
	local := make([]geometry.Point2D, 0, 3+len(interior))
	local = append(local, corners[0], corners[1], corners[2])
	local = append(local, interior...)

	lm := Landmark{ID: id, Pose: pose, Points: make([]geometry.Point3D, len(local))}
	for i, c := range local {
		lm.Points[i] = pose.TransformPoint(geometry.Point3D{X: c.Y * size, Y: c.X * size})
	}
	return lm, nil
}

// Observation is an identified landmark observation in one frame: the
// resolved id, the three corner pixels in canonical order (x0y0, x1y0, x1y1)
// and the matched identity pixels.
type Observation struct {
	ID             uint16
	Corners        [3]geometry.Point2D
	IdentityPoints []geometry.Point2D
}
