// Package pointcloud defines the timed point clouds produced by ranging sensors and the
// operations that split and transform them before they reach the trajectory builder.
package pointcloud

import (
	"github.com/golang/geo/r3"

	"github.com/timoonboru/cartographer-new/spatialmath"
)

// TimedPoint is a single range return. Time is in seconds relative to the start of its scan.
type TimedPoint struct {
	Position r3.Vector
	Time     float64
}

// TimedPointCloud is an ordered scan. Point times are expected to be non-decreasing.
type TimedPointCloud []TimedPoint

// PointCloudWithIntensities pairs a scan with the per-point intensities reported alongside it.
// Intensities is either empty or the same length as Points.
type PointCloudWithIntensities struct {
	Points      TimedPointCloud
	Intensities []float64
}

// TransformTimedPointCloud returns a copy of pc with every point moved by t. Point times are kept.
func TransformTimedPointCloud(pc TimedPointCloud, t spatialmath.RigidTransform) TimedPointCloud {
	out := make(TimedPointCloud, 0, len(pc))
	for _, p := range pc {
		out = append(out, TimedPoint{Position: t.Apply(p.Position), Time: p.Time})
	}
	return out
}
