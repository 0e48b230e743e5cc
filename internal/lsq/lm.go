package lsq

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// jacobianStep is the tangent-space step for numeric differentiation.
const jacobianStep = 1e-6

// Options controls the Levenberg-Marquardt iteration.
type Options struct {
	MaxIterations     int
	FunctionTolerance float64
	GradientTolerance float64
	InitialDamping    float64
}

// DefaultOptions returns the standard solve settings.
func DefaultOptions() Options {
	return Options{
		MaxIterations:     100,
		FunctionTolerance: 1e-8,
		GradientTolerance: 1e-12,
		InitialDamping:    1e-4,
	}
}

// Summary reports the outcome of a solve. Costs are 0.5 * sum of robustified
// squared residual norms.
type Summary struct {
	InitialCost float64
	FinalCost   float64
	Iterations  int
	Converged   bool
	Message     string
}

// Solve runs Levenberg-Marquardt on the problem, updating all variable
// parameter blocks in place. Non-convergence is reported in the Summary, not
// as an error; errors indicate an unusable problem.
func (p *Problem) Solve(opts Options) (Summary, error) {
	m := p.NumResiduals()
	if m == 0 {
		return Summary{}, fmt.Errorf("problem has no residual blocks")
	}

	var vars []*paramBlock
	n := 0
	for _, b := range p.params {
		if b.constant {
			continue
		}
		if b.manifold == nil {
			b.manifold = euclidean(len(b.values))
		}
		vars = append(vars, b)
		n += b.manifold.TangentDim()
	}
	if n == 0 {
		return Summary{}, fmt.Errorf("problem has no variable parameters")
	}

	cost, residuals := p.evaluate(nil)
	summary := Summary{InitialCost: cost, FinalCost: cost, Message: "max iterations reached"}

	lambda := opts.InitialDamping
	for iter := 0; iter < opts.MaxIterations; iter++ {
		jac := p.jacobian(vars, n, residuals)

		var grad mat.VecDense
		grad.MulVec(jac.T(), residuals)
		if mat.Norm(&grad, math.Inf(1)) < opts.GradientTolerance {
			summary.Converged = true
			summary.Message = "gradient tolerance reached"
			break
		}

		var normal mat.Dense
		normal.Mul(jac.T(), jac)

		accepted := false
		for attempt := 0; attempt < 30; attempt++ {
			step, err := solveDamped(&normal, &grad, lambda)
			if err != nil {
				lambda *= 10
				continue
			}

			backup := saveValues(vars)
			applyStep(vars, step)
			newCost, newResiduals := p.evaluate(nil)

			if newCost < cost {
				accepted = true
				summary.Iterations++
				decrease := cost - newCost
				cost, residuals = newCost, newResiduals
				lambda = math.Max(lambda/3, 1e-12)
				if decrease <= opts.FunctionTolerance*cost {
					summary.Converged = true
					summary.Message = "function tolerance reached"
				}
				break
			}

			restoreValues(vars, backup)
			lambda *= 4
			if lambda > 1e14 {
				break
			}
		}

		if !accepted {
			summary.Message = "no further cost decrease found"
			break
		}
		if summary.Converged {
			break
		}
	}

	summary.FinalCost = cost
	return summary, nil
}

// evaluate computes the robustified cost and weighted residual vector. If
// override is non-nil, the listed parameter blocks are evaluated with the
// substituted values instead of their current ones.
func (p *Problem) evaluate(override map[*paramBlock][]float64) (float64, *mat.VecDense) {
	residuals := mat.NewVecDense(p.NumResiduals(), nil)

	cost := 0.0
	offset := 0
	for _, rb := range p.blocks {
		params := make([][]float64, len(rb.params))
		for i, b := range rb.params {
			if v, ok := override[b]; ok {
				params[i] = v
			} else {
				params[i] = b.values
			}
		}

		r := make([]float64, rb.dim)
		rb.cost(params, r)

		s := 0.0
		for _, ri := range r {
			s += ri * ri
		}
		rho, drho := rb.loss.Evaluate(s)
		cost += 0.5 * rho

		w := 0.0
		if drho > 0 {
			w = math.Sqrt(drho)
		}
		for i, ri := range r {
			residuals.SetVec(offset+i, w*ri)
		}
		offset += rb.dim
	}
	return cost, residuals
}

// jacobian builds the m x n weighted residual Jacobian by forward differences
// in the tangent space of every variable block.
func (p *Problem) jacobian(vars []*paramBlock, n int, center *mat.VecDense) *mat.Dense {
	m := p.NumResiduals()
	jac := mat.NewDense(m, n, nil)

	col := 0
	for _, b := range vars {
		tangent := b.manifold.TangentDim()
		delta := make([]float64, tangent)
		perturbed := make([]float64, len(b.values))
		for j := 0; j < tangent; j++ {
			copy(perturbed, b.values)
			delta[j] = jacobianStep
			b.manifold.Plus(perturbed, delta)
			delta[j] = 0

			_, shifted := p.evaluate(map[*paramBlock][]float64{b: perturbed})
			for i := 0; i < m; i++ {
				jac.Set(i, col, (shifted.AtVec(i)-center.AtVec(i))/jacobianStep)
			}
			col++
		}
	}
	return jac
}

// solveDamped solves (JtJ + lambda*diag(JtJ)) step = -grad.
func solveDamped(normal *mat.Dense, grad *mat.VecDense, lambda float64) (*mat.VecDense, error) {
	n, _ := normal.Dims()
	damped := mat.NewDense(n, n, nil)
	damped.Copy(normal)
	for i := 0; i < n; i++ {
		damped.Set(i, i, normal.At(i, i)*(1+lambda)+1e-12)
	}

	neg := mat.NewVecDense(n, nil)
	neg.ScaleVec(-1, grad)

	var step mat.VecDense
	if err := step.SolveVec(damped, neg); err != nil {
		return nil, err
	}
	return &step, nil
}

// applyStep moves every variable block along its tangent-space segment of
// step and projects the result onto the block's bounds.
func applyStep(vars []*paramBlock, step *mat.VecDense) {
	offset := 0
	for _, b := range vars {
		tangent := b.manifold.TangentDim()
		delta := make([]float64, tangent)
		for j := 0; j < tangent; j++ {
			delta[j] = step.AtVec(offset + j)
		}
		b.manifold.Plus(b.values, delta)
		for i := range b.values {
			if b.values[i] < b.lower[i] {
				b.values[i] = b.lower[i]
			}
			if b.values[i] > b.upper[i] {
				b.values[i] = b.upper[i]
			}
		}
		offset += tangent
	}
}

func saveValues(vars []*paramBlock) [][]float64 {
	saved := make([][]float64, len(vars))
	for i, b := range vars {
		saved[i] = append([]float64(nil), b.values...)
	}
	return saved
}

func restoreValues(vars []*paramBlock, saved [][]float64) {
	for i, b := range vars {
		copy(b.values, saved[i])
	}
}
