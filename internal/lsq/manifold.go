package lsq

import (
	"math"
)

// Manifold describes how a parameter block moves under solver updates. Plus
// applies a tangent-space step to the ambient values in place.
type Manifold interface {
	AmbientDim() int
	TangentDim() int
	Plus(values, delta []float64)
}

// euclidean is the default flat parameterization.
type euclidean int

func (e euclidean) AmbientDim() int { return int(e) }
func (e euclidean) TangentDim() int { return int(e) }
func (e euclidean) Plus(values, delta []float64) {
	for i := range values {
		values[i] += delta[i]
	}
}

// Quaternion keeps a w-x-y-z quaternion on the unit sphere: four stored
// values, three true degrees of freedom. The step delta is an axis-angle
// increment applied on the left; the result is renormalized so no ad hoc
// normalization is needed outside the update.
type Quaternion struct{}

// AmbientDim implements Manifold.
func (Quaternion) AmbientDim() int { return 4 }

// TangentDim implements Manifold.
func (Quaternion) TangentDim() int { return 3 }

// Plus implements Manifold.
func (Quaternion) Plus(values, delta []float64) {
	norm := math.Sqrt(delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2])

	var dq [4]float64
	if norm > 0 {
		s := math.Sin(norm) / norm
		dq = [4]float64{math.Cos(norm), s * delta[0], s * delta[1], s * delta[2]}
	} else {
		dq = [4]float64{1, 0, 0, 0}
	}

	q := quatMul(dq, [4]float64{values[0], values[1], values[2], values[3]})
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	for i := range values {
		values[i] = q[i] / n
	}
}

// YawQuaternion is the planar orientation parameterization: one heading
// degree of freedom, rotation about the world z axis. The x and y quaternion
// components stay pinned at zero.
type YawQuaternion struct{}

// AmbientDim implements Manifold.
func (YawQuaternion) AmbientDim() int { return 4 }

// TangentDim implements Manifold.
func (YawQuaternion) TangentDim() int { return 1 }

// Plus implements Manifold.
func (YawQuaternion) Plus(values, delta []float64) {
	half := delta[0]
	dq := [4]float64{math.Cos(half), 0, 0, math.Sin(half)}
	q := quatMul(dq, [4]float64{values[0], 0, 0, values[3]})
	n := math.Sqrt(q[0]*q[0] + q[3]*q[3])
	values[0] = q[0] / n
	values[1] = 0
	values[2] = 0
	values[3] = q[3] / n
}

// Subset holds selected coordinates of a block fixed while the rest move as
// plain Euclidean parameters.
type Subset struct {
	n    int
	free []int
}

// NewSubset creates a subset parameterization of an n-dimensional block with
// the listed coordinates held constant.
func NewSubset(n int, fixed ...int) Subset {
	isFixed := make(map[int]bool, len(fixed))
	for _, i := range fixed {
		isFixed[i] = true
	}
	s := Subset{n: n}
	for i := 0; i < n; i++ {
		if !isFixed[i] {
			s.free = append(s.free, i)
		}
	}
	return s
}

// AmbientDim implements Manifold.
func (s Subset) AmbientDim() int { return s.n }

// TangentDim implements Manifold.
func (s Subset) TangentDim() int { return len(s.free) }

// Plus implements Manifold.
func (s Subset) Plus(values, delta []float64) {
	for j, i := range s.free {
		values[i] += delta[j]
	}
}

// quatMul returns the Hamilton product a*b of two w-x-y-z quaternions.
func quatMul(a, b [4]float64) [4]float64 {
	return [4]float64{
		a[0]*b[0] - a[1]*b[1] - a[2]*b[2] - a[3]*b[3],
		a[0]*b[1] + a[1]*b[0] + a[2]*b[3] - a[3]*b[2],
		a[0]*b[2] - a[1]*b[3] + a[2]*b[0] + a[3]*b[1],
		a[0]*b[3] + a[1]*b[2] - a[2]*b[1] + a[3]*b[0],
	}
}
