// Package lsq provides the nonlinear least-squares facility the pose
// estimator delegates to: residual blocks over shared parameter blocks,
// robust losses, manifold-constrained parameters, simple bounds and a
// Levenberg-Marquardt solver built on gonum.
package lsq

import (
	"fmt"
	"math"
)

// CostFunc evaluates the residuals of one block given the current parameter
// block values. params holds one slice per parameter block, in the order the
// blocks were passed to AddResidualBlock. It must not retain or modify the
// slices.
type CostFunc func(params [][]float64, residuals []float64)

type paramBlock struct {
	values   []float64
	manifold Manifold
	constant bool
	lower    []float64
	upper    []float64
}

type residualBlock struct {
	dim    int
	cost   CostFunc
	loss   Loss
	params []*paramBlock
}

// Problem is a set of residual blocks over parameter blocks. Parameter
// blocks are identified by the slices passed in; the solver updates them in
// place.
type Problem struct {
	blocks []*residualBlock
	params []*paramBlock
	index  map[*float64]*paramBlock
}

// NewProblem creates an empty problem.
func NewProblem() *Problem {
	return &Problem{index: make(map[*float64]*paramBlock)}
}

func (p *Problem) block(values []float64) *paramBlock {
	if len(values) == 0 {
		panic("lsq: empty parameter block")
	}
	if b, ok := p.index[&values[0]]; ok {
		return b
	}
	b := &paramBlock{
		values: values,
		lower:  filled(len(values), math.Inf(-1)),
		upper:  filled(len(values), math.Inf(1)),
	}
	p.index[&values[0]] = b
	p.params = append(p.params, b)
	return b
}

// AddResidualBlock registers a residual block of the given dimension over
// the listed parameter blocks. A nil loss means plain squared error.
func (p *Problem) AddResidualBlock(dim int, cost CostFunc, loss Loss, params ...[]float64) {
	if loss == nil {
		loss = TrivialLoss{}
	}
	rb := &residualBlock{dim: dim, cost: cost, loss: loss}
	for _, values := range params {
		rb.params = append(rb.params, p.block(values))
	}
	p.blocks = append(p.blocks, rb)
}

// SetManifold constrains a parameter block to move on the given manifold.
func (p *Problem) SetManifold(values []float64, m Manifold) error {
	if m.AmbientDim() != len(values) {
		return fmt.Errorf("manifold ambient dimension %d does not match block size %d",
			m.AmbientDim(), len(values))
	}
	p.block(values).manifold = m
	return nil
}

// SetConstant holds a parameter block fixed during solving.
func (p *Problem) SetConstant(values []float64) {
	p.block(values).constant = true
}

// SetUpperBound bounds coordinate i of the block from above.
func (p *Problem) SetUpperBound(values []float64, i int, bound float64) {
	p.block(values).upper[i] = bound
}

// SetLowerBound bounds coordinate i of the block from below.
func (p *Problem) SetLowerBound(values []float64, i int, bound float64) {
	p.block(values).lower[i] = bound
}

// NumResiduals returns the total residual dimension.
func (p *Problem) NumResiduals() int {
	n := 0
	for _, rb := range p.blocks {
		n += rb.dim
	}
	return n
}

func filled(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
