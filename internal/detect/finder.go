package detect

import (
	"fmt"
	"image"

	"github.com/KITcar-Team/stargazer/internal/marker"
	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// PointDetector produces candidate bright-spot centroids from a grayscale
// frame. It is treated as a black box; no contract on its thresholding.
type PointDetector interface {
	Detect(img *image.Gray) ([]geometry.Point2D, error)
}

// Finder runs the landmark recognition pipeline on grayscale frames.
//
// A Finder is not safe for concurrent use: each Detect call exclusively owns
// the per-frame state it builds. The catalog it was created from is read-only
// and may be shared.
type Finder struct {
	params   Params
	grid     marker.Grid
	ids      []uint16
	detector PointDetector
}

// NewFinder creates a Finder for the given catalog.
func NewFinder(m *marker.Map, params Params, detector PointDetector) (*Finder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if detector == nil {
		return nil, fmt.Errorf("nil point detector")
	}
	return &Finder{
		params:   params,
		grid:     m.Grid,
		ids:      m.IDs(),
		detector: detector,
	}, nil
}

// Detect finds all identified landmarks in one frame. The returned
// observations carry pairwise distinct ids, each present in the catalog.
func (f *Finder) Detect(img *image.Gray) ([]marker.Observation, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("input image is invalid")
	}

	points, err := f.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("point detection: %w", err)
	}

	clusters := ClusterPoints(points, f.params.MaxClusterRadius,
		f.params.MinPointsPerLandmark, f.params.MaxPointsPerLandmark)

	// Hypotheses keep their production order: per cluster in detection
	// order, score-descending within each cluster. Id assignment below
	// consumes ids in this order, so an early cluster can claim an id a
	// later cluster would have scored higher for.
	var hypotheses []Hypothesis
	for _, cluster := range clusters {
		hypotheses = append(hypotheses, FindCorners(cluster, f.params)...)
	}

	return f.resolveIDs(hypotheses, img), nil
}

// resolveIDs runs the two-phase greedy id assignment over all hypotheses,
// consuming a fresh working copy of the catalog id set. Phase 1 decodes
// forward from observed identity points; hypotheses that fail are retried in
// phase 2 by backward image sampling against the reduced set. Hypotheses
// failing both phases are discarded.
func (f *Finder) resolveIDs(hypotheses []Hypothesis, img *image.Gray) []marker.Observation {
	valid := newIDSet(f.ids)

	var observations []marker.Observation
	var pending []Hypothesis
	for _, h := range hypotheses {
		if id, ok := decodeForward(h, f.grid, valid); ok {
			observations = append(observations, observation(id, h))
		} else {
			pending = append(pending, h)
		}
	}

	for _, h := range pending {
		if id, ok := decodeBackward(&h, img, f.grid, f.params.IntensityThreshold, valid); ok {
			observations = append(observations, observation(id, h))
		}
	}
	return observations
}

func observation(id uint16, h Hypothesis) marker.Observation {
	return marker.Observation{
		ID:             id,
		Corners:        h.Corners,
		IdentityPoints: h.IdentityPoints,
	}
}
