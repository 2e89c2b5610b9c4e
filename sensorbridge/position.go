package sensorbridge

import (
	"math"
	"sync"

	"github.com/edaniels/golog"
	geo "github.com/kellydunn/golang-geo"

	"github.com/timoonboru/cartographer-new/geodetic"
	"github.com/timoonboru/cartographer-new/spatialmath"
	"github.com/timoonboru/cartographer-new/utils"
)

// RelativePose2D is a position offset in meters on the tangent plane at the origin fix, paired
// with an orientation.
type RelativePose2D struct {
	X           float64
	Y           float64
	Orientation spatialmath.Quaternion
}

// PositionDeltaTracker turns absolute geodetic fixes into offsets from the first usable fix.
type PositionDeltaTracker struct {
	mu       sync.Mutex
	logger   golog.Logger
	origin   *geo.Point
	captured bool
}

// NewPositionDeltaTracker returns a tracker with no origin.
func NewPositionDeltaTracker(logger golog.Logger) *PositionDeltaTracker {
	return &PositionDeltaTracker{logger: logger, origin: geo.NewPoint(0, 0)}
}

// Update captures fix as the origin if none was captured yet and fix is not exactly (0, 0), then
// returns the offset of fix from the origin carrying orientation unchanged.
//
// Until an origin is captured offsets are measured from (0, 0).
func (pt *PositionDeltaTracker) Update(fix *geo.Point, orientation spatialmath.Quaternion) RelativePose2D {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if !pt.captured && (fix.Lat() != 0 || fix.Lng() != 0) {
		pt.origin = geo.NewPoint(fix.Lat(), fix.Lng())
		pt.captured = true
		pt.logger.Infow("captured position origin", "lat", fix.Lat(), "lng", fix.Lng())
	}

	res := geodetic.BearingDistance(fix, pt.origin)
	angle := utils.DegToRad(res.BearingDeg) + math.Pi/2
	return RelativePose2D{
		X:           res.DistanceMeters * math.Sin(angle),
		Y:           res.DistanceMeters * math.Cos(angle),
		Orientation: orientation,
	}
}

// Origin returns the captured origin, if any.
func (pt *PositionDeltaTracker) Origin() (*geo.Point, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if !pt.captured {
		return nil, false
	}
	return geo.NewPoint(pt.origin.Lat(), pt.origin.Lng()), true
}
