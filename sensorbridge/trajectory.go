package sensorbridge

import (
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/timoonboru/cartographer-new/pointcloud"
	"github.com/timoonboru/cartographer-new/spatialmath"
)

// TrajectoryBuilder consumes normalized observations expressed in the tracking frame.
type TrajectoryBuilder interface {
	AddPositionObservation(sensorID string, t time.Time, pose RelativePose2D)
	AddOrientationObservation(
		sensorID string,
		t time.Time,
		linearAcceleration r3.Vector,
		angularVelocity r3.Vector,
		orientation spatialmath.Quaternion,
	)
	AddRangeObservation(sensorID string, t time.Time, origin r3.Vector, points pointcloud.TimedPointCloud)
}

// PositionObservation is a recorded call to AddPositionObservation.
type PositionObservation struct {
	SensorID string
	Time     time.Time
	Pose     RelativePose2D
}

// OrientationObservation is a recorded call to AddOrientationObservation.
type OrientationObservation struct {
	SensorID           string
	Time               time.Time
	LinearAcceleration r3.Vector
	AngularVelocity    r3.Vector
	Orientation        spatialmath.Quaternion
}

// RangeObservation is a recorded call to AddRangeObservation.
type RangeObservation struct {
	SensorID string
	Time     time.Time
	Origin   r3.Vector
	Points   pointcloud.TimedPointCloud
}

// RecordingTrajectoryBuilder is a TrajectoryBuilder that keeps every observation it is given.
type RecordingTrajectoryBuilder struct {
	mu           sync.Mutex
	positions    []PositionObservation
	orientations []OrientationObservation
	ranges       []RangeObservation
}

// AddPositionObservation records a position observation.
func (rb *RecordingTrajectoryBuilder) AddPositionObservation(sensorID string, t time.Time, pose RelativePose2D) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.positions = append(rb.positions, PositionObservation{SensorID: sensorID, Time: t, Pose: pose})
}

// AddOrientationObservation records an orientation observation.
func (rb *RecordingTrajectoryBuilder) AddOrientationObservation(
	sensorID string,
	t time.Time,
	linearAcceleration r3.Vector,
	angularVelocity r3.Vector,
	orientation spatialmath.Quaternion,
) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.orientations = append(rb.orientations, OrientationObservation{
		SensorID:           sensorID,
		Time:               t,
		LinearAcceleration: linearAcceleration,
		AngularVelocity:    angularVelocity,
		Orientation:        orientation,
	})
}

// AddRangeObservation records a range observation.
func (rb *RecordingTrajectoryBuilder) AddRangeObservation(
	sensorID string,
	t time.Time,
	origin r3.Vector,
	points pointcloud.TimedPointCloud,
) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.ranges = append(rb.ranges, RangeObservation{SensorID: sensorID, Time: t, Origin: origin, Points: points})
}

// Positions returns the recorded position observations.
func (rb *RecordingTrajectoryBuilder) Positions() []PositionObservation {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return append([]PositionObservation(nil), rb.positions...)
}

// Orientations returns the recorded orientation observations.
func (rb *RecordingTrajectoryBuilder) Orientations() []OrientationObservation {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return append([]OrientationObservation(nil), rb.orientations...)
}

// Ranges returns the recorded range observations.
func (rb *RecordingTrajectoryBuilder) Ranges() []RangeObservation {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return append([]RangeObservation(nil), rb.ranges...)
}
