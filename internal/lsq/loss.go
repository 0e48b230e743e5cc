package lsq

import (
	"math"
)

// Loss rescales a residual block's squared norm s to curb the influence of
// outliers. Evaluate returns rho(s) and its derivative drho/ds.
type Loss interface {
	Evaluate(s float64) (rho, drho float64)
}

// TrivialLoss is the identity: plain squared error.
type TrivialLoss struct{}

// Evaluate implements Loss.
func (TrivialLoss) Evaluate(s float64) (float64, float64) {
	return s, 1
}

// CauchyLoss grows logarithmically for large residuals:
// rho(s) = b*log(1 + s/b) with b = scale².
type CauchyLoss struct {
	b float64
}

// NewCauchyLoss creates a Cauchy loss with the given scale.
func NewCauchyLoss(scale float64) CauchyLoss {
	return CauchyLoss{b: scale * scale}
}

// Evaluate implements Loss.
func (l CauchyLoss) Evaluate(s float64) (float64, float64) {
	c := 1 + s/l.b
	return l.b * math.Log(c), 1 / c
}
