package detect

import (
	"math"
	"sort"

	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// Hypothesis is a candidate landmark observation: three reference corners in
// canonical order (x0y0, x1y0, x1y1) plus the remaining cluster points as
// identity-point candidates.
type Hypothesis struct {
	Corners        [3]geometry.Point2D
	IdentityPoints []geometry.Point2D
	Score          float64
}

// FindCorners enumerates corner triples of a cluster and returns the ranked,
// capped list of landmark hypotheses.
//
// Corner numbering and local frame used here:
//
//	    ---> y
//	|   A   .   .   .
//	|   .   .   .   .
//	V   .   .   .   .
//	x   S   .   .   B
//
// Every ordered triple (S, H1, H2) with H1 before H2 is considered. The pair
// is canonicalized to a right-handed (A, S, B) via the 2D cross product, so
// the stored corners are x0y0=A, x1y0=S, x1y1=B.
func FindCorners(points []geometry.Point2D, p Params) []Hypothesis {
	var scored []Hypothesis
	bestScore := math.Inf(-1)

	for i := range points {
		pS := points[i]
		for j := range points {
			if j == i {
				continue
			}
			pH1 := points[j]
			for k := j + 1; k < len(points); k++ {
				if k == i {
					continue
				}
				pH2 := points[k]

				// Canonicalize to a right-handed corner pair around S.
				pA, pB := pH1, pH2
				if pH1.Sub(pS).Cross(pH2.Sub(pS)) < 0 {
					pA, pB = pH2, pH1
				}

				vSA := pA.Sub(pS)
				vSB := pB.Sub(pS)
				vBA := pB.Sub(pA)

				normSA := vSA.Norm()
				normSB := vSB.Norm()
				normBA := vBA.Norm()

				// Near-degenerate or far-from-right-angle triangles are
				// implausible markers.
				cosAngle := vSA.Dot(vSB) / (normSA * normSB)
				if math.Abs(cosAngle) > p.CornerAngleTolerance {
					continue
				}

				// A valid marker contains all its points within its own
				// frame: map the whole cluster into the unit square.
				local, ok := localFrame(pA, pS, pB)
				if !ok {
					continue
				}
				inside := true
				for _, pt := range points {
					lp := local.Apply(pt)
					if !isInside(lp.X, 0, 1, p.PointInsideTolerance) ||
						!isInside(lp.Y, 0, 1, p.PointInsideTolerance) {
						inside = false
						break
					}
				}
				if !inside {
					continue
				}

				// Score combines the triangle area (cross product) with the
				// squared circumference so the weights stay scale-invariant.
				crossProduct := math.Abs(vSA.Cross(vBA))
				lengthTriangle := normSA + normSB + normBA
				score := p.FwCrossProduct*crossProduct +
					p.FwLengthTriangle*lengthTriangle*lengthTriangle

				// Relative-quality gate against the running best.
				if score < p.CornerHypothesesCutoff*bestScore {
					continue
				}

				hyp := Hypothesis{
					Corners: [3]geometry.Point2D{pA, pS, pB},
					Score:   score,
				}
				for n, pt := range points {
					if n == i || n == j || n == k {
						continue
					}
					hyp.IdentityPoints = append(hyp.IdentityPoints, pt)
				}
				scored = append(scored, hyp)
				if score > bestScore {
					bestScore = score
				}
			}
		}
	}

	// Re-filter against the final best, rank and cap.
	kept := scored[:0]
	for _, h := range scored {
		if h.Score >= p.CornerHypothesesCutoff*bestScore {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(a, b int) bool { return kept[a].Score > kept[b].Score })
	if len(kept) > p.MaxCornerHypotheses {
		kept = kept[:p.MaxCornerHypotheses]
	}
	return kept
}

// isInside reports whether v lies in [low, high] extended by margin.
func isInside(v, low, high, margin float64) bool {
	return v >= low-margin && v <= high+margin
}
