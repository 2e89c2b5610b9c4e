package pointcloud

import (
	"math"
	"time"
)

// Subdivision is a contiguous slice [Start, End) of a scan along with the absolute time it is
// transformed at.
type Subdivision struct {
	Start  int
	End    int
	Time   time.Time
	Points TimedPointCloud
}

// Subdivide splits points into n contiguous groups so each can be transformed at its own time
// while the sensor moves during the scan. Empty groups, which happen when n exceeds the number
// of points, are skipped. Each group is stamped with start plus the relative time of its middle
// point. Points of the returned subdivisions alias the input.
func Subdivide(points TimedPointCloud, n int, start time.Time) []Subdivision {
	if n < 1 {
		return nil
	}
	// past one point per group the partition no longer changes
	n = min(n, len(points))
	subdivisions := make([]Subdivision, 0, n)
	for i := 0; i < n; i++ {
		startIndex := len(points) * i / n
		endIndex := len(points) * (i + 1) / n
		if startIndex == endIndex {
			continue
		}
		middle := points[(startIndex+endIndex)/2]
		subdivisions = append(subdivisions, Subdivision{
			Start:  startIndex,
			End:    endIndex,
			Time:   start.Add(secondsToDuration(middle.Time)),
			Points: points[startIndex:endIndex],
		})
	}
	return subdivisions
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
