// Package detect implements the landmark recognition pipeline: point
// clustering, corner hypothesis search and identity decoding.
package detect

import (
	"fmt"
)

// Params holds the numeric tuning knobs of the recognition pipeline.
// Defaults match the values the mapping tooling was calibrated with.
type Params struct {
	// MaxClusterRadius is the merge radius (pixels) for grouping marker
	// points into per-landmark clusters.
	MaxClusterRadius float64 `yaml:"maxClusterRadius"`
	// MinPointsPerLandmark and MaxPointsPerLandmark bound the cluster sizes
	// kept for hypothesis generation.
	MinPointsPerLandmark int `yaml:"minPointsPerLandmark"`
	MaxPointsPerLandmark int `yaml:"maxPointsPerLandmark"`

	// MaxCornerHypotheses caps the ranked hypothesis list per cluster.
	MaxCornerHypotheses int `yaml:"maxCornerHypotheses"`
	// CornerHypothesesCutoff keeps hypotheses scoring at least
	// cutoff * best score of the cluster.
	CornerHypothesesCutoff float64 `yaml:"cornerHypothesesCutoff"`
	// FwCrossProduct and FwLengthTriangle weight the triangle-area and
	// squared-perimeter score terms.
	FwCrossProduct   float64 `yaml:"fwCrossProduct"`
	FwLengthTriangle float64 `yaml:"fwLengthTriangle"`
	// CornerAngleTolerance rejects corner triples whose secant angle cosine
	// exceeds it in magnitude.
	CornerAngleTolerance float64 `yaml:"cornerAngleTolerance"`
	// PointInsideTolerance is the margin by which mapped cluster points may
	// leave the unit square before a corner triple is rejected.
	PointInsideTolerance float64 `yaml:"pointInsideTolerance"`

	// IntensityThreshold is the minimum brightness for a backward-decode grid
	// sample to count as a set bit.
	IntensityThreshold uint8 `yaml:"intensityThreshold"`
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		MaxClusterRadius:       40,
		MinPointsPerLandmark:   5,
		MaxPointsPerLandmark:   9,
		MaxCornerHypotheses:    10,
		CornerHypothesesCutoff: 1.0,
		FwCrossProduct:         1.0,
		FwLengthTriangle:       1.0,
		CornerAngleTolerance:   1.0,
		PointInsideTolerance:   1.0,
		IntensityThreshold:     128,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.MaxClusterRadius <= 0 {
		return fmt.Errorf("maxClusterRadius must be positive, got %g", p.MaxClusterRadius)
	}
	if p.MinPointsPerLandmark < 3 {
		return fmt.Errorf("minPointsPerLandmark must be at least 3, got %d", p.MinPointsPerLandmark)
	}
	if p.MaxPointsPerLandmark < p.MinPointsPerLandmark {
		return fmt.Errorf("maxPointsPerLandmark %d below minPointsPerLandmark %d",
			p.MaxPointsPerLandmark, p.MinPointsPerLandmark)
	}
	if p.MaxCornerHypotheses < 1 {
		return fmt.Errorf("maxCornerHypotheses must be at least 1, got %d", p.MaxCornerHypotheses)
	}
	if p.CornerHypothesesCutoff <= 0 || p.CornerHypothesesCutoff > 1 {
		return fmt.Errorf("cornerHypothesesCutoff must be in (0,1], got %g", p.CornerHypothesesCutoff)
	}
	if p.CornerAngleTolerance <= 0 {
		return fmt.Errorf("cornerAngleTolerance must be positive, got %g", p.CornerAngleTolerance)
	}
	if p.PointInsideTolerance < 0 {
		return fmt.Errorf("pointInsideTolerance must not be negative, got %g", p.PointInsideTolerance)
	}
	return nil
}
