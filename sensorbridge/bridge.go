// Package sensorbridge normalizes raw sensor messages into observations in a single tracking frame
// and forwards them to a trajectory builder.
package sensorbridge

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/timoonboru/cartographer-new/pointcloud"
	"github.com/timoonboru/cartographer-new/referenceframe"
	"github.com/timoonboru/cartographer-new/ros"
	"github.com/timoonboru/cartographer-new/spatialmath"
)

// ColocationTolerance is the largest distance in meters the IMU frame may sit from the tracking frame.
const ColocationTolerance = 1e-5

// Stats counts what a SensorBridge forwarded and dropped.
type Stats struct {
	PositionObservations    uint64
	OrientationObservations uint64
	RangeObservations       uint64
	DroppedObservations     uint64
}

// SensorBridge turns the messages of one trajectory into observations for a TrajectoryBuilder.
// Handlers return an error only for conditions IsFatal reports on; observations whose transform
// cannot be found are dropped and counted.
type SensorBridge struct {
	numSubdivisionsPerLaserScan int
	tfBridge                    *referenceframe.TrackingBridge
	builder                     TrajectoryBuilder
	logger                      golog.Logger

	position    *PositionDeltaTracker
	orientation *OrientationBaselineTracker

	positions    atomic.Uint64
	orientations atomic.Uint64
	ranges       atomic.Uint64
	dropped      atomic.Uint64
}

// NewSensorBridge returns a SensorBridge with fresh trackers.
func NewSensorBridge(
	conf Config,
	lookup referenceframe.TransformLookup,
	builder TrajectoryBuilder,
	logger golog.Logger,
	opts ...referenceframe.TrackingBridgeOption,
) (*SensorBridge, error) {
	if err := conf.Validate("sensor_bridge"); err != nil {
		return nil, err
	}
	if builder == nil {
		return nil, errors.New("trajectory builder is required")
	}
	tfBridge, err := referenceframe.NewTrackingBridge(
		conf.TrackingFrame, conf.LookupTransformTimeout(), lookup, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &SensorBridge{
		numSubdivisionsPerLaserScan: conf.NumSubdivisionsPerLaserScan,
		tfBridge:                    tfBridge,
		builder:                     builder,
		logger:                      logger,
		position:                    NewPositionDeltaTracker(logger),
		orientation:                 NewOrientationBaselineTracker(logger),
	}, nil
}

// HandleOdometryMessage forwards a position fix carried in odometry, x holding the latitude and z
// the longitude, as an offset from the first fix. The pose carries the latest IMU orientation.
func (sb *SensorBridge) HandleOdometryMessage(ctx context.Context, sensorID string, msg *ros.Odometry) error {
	if err := referenceframe.ValidateFrameID(msg.Header.FrameID); err != nil {
		return err
	}
	if err := referenceframe.ValidateFrameID(msg.ChildFrameID); err != nil {
		return err
	}
	position := msg.Pose.Pose.Position
	fix := geo.NewPoint(position.X, position.Z)
	pose := sb.position.Update(fix, sb.orientation.Latest())
	sb.builder.AddPositionObservation(sensorID, msg.Header.Stamp.Time(), pose)
	sb.positions.Inc()
	return nil
}

// HandleImuMessage forwards accelerations, angular velocities and orientation rotated into the
// tracking frame.
func (sb *SensorBridge) HandleImuMessage(ctx context.Context, sensorID string, msg *ros.Imu) error {
	if msg.LinearAccelerationCovariance[0] == -1 {
		return ErrMissingLinearAcceleration
	}
	if msg.AngularVelocityCovariance[0] == -1 {
		return ErrMissingAngularVelocity
	}
	if err := referenceframe.ValidateFrameID(msg.Header.FrameID); err != nil {
		return err
	}

	t := msg.Header.Stamp.Time()
	sensorToTracking, ok := sb.lookup(ctx, sensorID, t, msg.Header.FrameID)
	if !ok {
		return nil
	}
	if norm := sensorToTracking.Translation.Norm(); norm >= ColocationTolerance {
		return errors.Wrapf(ErrImuNotColocated, "frame %q is %vm from %q",
			msg.Header.FrameID, norm, sb.tfBridge.TrackingFrame())
	}

	orientation := msg.Orientation.Rotation()
	sb.orientation.Update(orientation)

	rotation := sensorToTracking.Rotation
	sb.builder.AddOrientationObservation(
		sensorID,
		t,
		rotation.Rotate(msg.LinearAcceleration.R3()),
		rotation.Rotate(msg.AngularVelocity.R3()),
		rotation.Mul(orientation),
	)
	sb.orientations.Inc()
	return nil
}

// HandleLaserScanMessage forwards a planar scan in subdivisions, each transformed at its own time.
func (sb *SensorBridge) HandleLaserScanMessage(ctx context.Context, sensorID string, msg *ros.LaserScan) error {
	pc, err := msg.ToPointCloudWithIntensities()
	if err != nil {
		return errors.Wrapf(err, "laser scan from %q", msg.Header.FrameID)
	}
	sb.handleLaserScan(ctx, sensorID, msg.Header.Stamp.Time(), msg.Header.FrameID, pc)
	return nil
}

// HandleMultiEchoLaserScanMessage is HandleLaserScanMessage for multi-echo scans.
func (sb *SensorBridge) HandleMultiEchoLaserScanMessage(
	ctx context.Context,
	sensorID string,
	msg *ros.MultiEchoLaserScan,
) error {
	pc, err := msg.ToPointCloudWithIntensities()
	if err != nil {
		return errors.Wrapf(err, "multi-echo laser scan from %q", msg.Header.FrameID)
	}
	sb.handleLaserScan(ctx, sensorID, msg.Header.Stamp.Time(), msg.Header.FrameID, pc)
	return nil
}

// HandlePointCloud2Message forwards a 3D point cloud as a single range observation.
func (sb *SensorBridge) HandlePointCloud2Message(ctx context.Context, sensorID string, msg *ros.PointCloud2) error {
	points, err := msg.ToTimedPointCloud()
	if err != nil {
		return errors.Wrapf(err, "point cloud from %q", msg.Header.FrameID)
	}
	sb.handleRangefinder(ctx, sensorID, msg.Header.Stamp.Time(), msg.Header.FrameID, points)
	return nil
}

// TfBridge returns the bridge used to resolve sensor frames.
func (sb *SensorBridge) TfBridge() *referenceframe.TrackingBridge {
	return sb.tfBridge
}

// PositionTracker returns the tracker holding the position origin of this trajectory.
func (sb *SensorBridge) PositionTracker() *PositionDeltaTracker {
	return sb.position
}

// OrientationTracker returns the tracker holding the orientation baseline of this trajectory.
func (sb *SensorBridge) OrientationTracker() *OrientationBaselineTracker {
	return sb.orientation
}

// Stats returns a snapshot of the counters.
func (sb *SensorBridge) Stats() Stats {
	return Stats{
		PositionObservations:    sb.positions.Load(),
		OrientationObservations: sb.orientations.Load(),
		RangeObservations:       sb.ranges.Load(),
		DroppedObservations:     sb.dropped.Load(),
	}
}

func (sb *SensorBridge) handleLaserScan(
	ctx context.Context,
	sensorID string,
	start time.Time,
	frameID string,
	pc pointcloud.PointCloudWithIntensities,
) {
	for _, sub := range pointcloud.Subdivide(pc.Points, sb.numSubdivisionsPerLaserScan, start) {
		sb.handleRangefinder(ctx, sensorID, sub.Time, frameID, sub.Points)
	}
}

func (sb *SensorBridge) handleRangefinder(
	ctx context.Context,
	sensorID string,
	t time.Time,
	frameID string,
	points pointcloud.TimedPointCloud,
) {
	sensorToTracking, ok := sb.lookup(ctx, sensorID, t, frameID)
	if !ok {
		return
	}
	sb.builder.AddRangeObservation(
		sensorID,
		t,
		sensorToTracking.Translation,
		pointcloud.TransformTimedPointCloud(points, sensorToTracking),
	)
	sb.ranges.Inc()
}

func (sb *SensorBridge) lookup(
	ctx context.Context,
	sensorID string,
	t time.Time,
	frameID string,
) (spatialmath.RigidTransform, bool) {
	l := sb.tfBridge.LookupToTracking(ctx, t, frameID)
	sensorToTracking, ok := l.Get()
	if !ok {
		sb.dropped.Inc()
		sb.logger.Debugw("dropping observation",
			"sensor_id", sensorID, "frame_id", frameID, "time", t, "reason", l.Reason())
	}
	return sensorToTracking, ok
}
