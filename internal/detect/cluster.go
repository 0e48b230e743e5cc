package detect

import (
	"github.com/KITcar-Team/stargazer/pkg/geometry"
)

// Cluster is an ordered group of spatially close points, presumed to belong
// to one landmark.
type Cluster []geometry.Point2D

// ClusterPoints groups points into clusters by greedy single-link chaining.
//
// The scan order is part of the contract: points are processed in input
// order, existing clusters are scanned newest first, and a point joins the
// first cluster that has any member within radius. A point never merges two
// clusters, even if it is close to both; the composition downstream
// hypothesis generation sees depends on this exact policy. Clusters whose
// final size falls outside [minSize, maxSize] are dropped.
func ClusterPoints(points []geometry.Point2D, radius float64, minSize, maxSize int) []Cluster {
	var clusters []Cluster

	for _, pt := range points {
		placed := false

		// The most recently created cluster is the most likely match.
	scan:
		for c := len(clusters) - 1; c >= 0; c-- {
			for _, member := range clusters[c] {
				if member.Distance(pt) <= radius {
					clusters[c] = append(clusters[c], pt)
					placed = true
					break scan
				}
			}
		}

		if !placed {
			clusters = append(clusters, Cluster{pt})
		}
	}

	kept := clusters[:0]
	for _, c := range clusters {
		if len(c) >= minSize && len(c) <= maxSize {
			kept = append(kept, c)
		}
	}
	return kept
}
