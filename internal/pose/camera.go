// Package pose refines the sensor pose from identified landmark
// observations by nonlinear reprojection-error minimization.
package pose

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/num/quat"
	"gopkg.in/yaml.v3"

	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// Camera holds the pinhole intrinsics used to project world points into
// pixel coordinates. Constant per session.
type Camera struct {
	Fx float64 `yaml:"fx"`
	Fy float64 `yaml:"fy"`
	Cx float64 `yaml:"cx"`
	Cy float64 `yaml:"cy"`
}

// LoadCamera loads camera intrinsics from a YAML file.
func LoadCamera(path string) (*Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading camera file: %w", err)
	}
	var cam Camera
	if err := yaml.Unmarshal(data, &cam); err != nil {
		return nil, fmt.Errorf("parsing camera YAML: %w", err)
	}
	if cam.Fx <= 0 || cam.Fy <= 0 {
		return nil, fmt.Errorf("camera focal lengths must be positive, got fx=%g fy=%g", cam.Fx, cam.Fy)
	}
	return &cam, nil
}

// Intrinsics returns the intrinsics as a parameter block: fx, fy, cx, cy.
func (c *Camera) Intrinsics() []float64 {
	return []float64{c.Fx, c.Fy, c.Cx, c.Cy}
}

// Project projects a world point into pixel coordinates for a camera at
// position with the given unit-quaternion orientation (w, x, y, z) and
// intrinsics block (fx, fy, cx, cy). The camera looks along its +z axis.
func Project(world geometry.Point3D, position, orientation, intrinsics []float64) geometry.Point2D {
	q := quat.Number{Real: orientation[0], Imag: orientation[1], Jmag: orientation[2], Kmag: orientation[3]}
	rel := quat.Number{
		Imag: world.X - position[0],
		Jmag: world.Y - position[1],
		Kmag: world.Z - position[2],
	}
	cam := quat.Mul(quat.Mul(quat.Conj(q), rel), q)

	return geometry.Point2D{
		X: intrinsics[0]*cam.Imag/cam.Kmag + intrinsics[2],
		Y: intrinsics[1]*cam.Jmag/cam.Kmag + intrinsics[3],
	}
}
