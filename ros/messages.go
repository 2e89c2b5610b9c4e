package ros

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/timoonboru/cartographer-new/spatialmath"
)

// Time is a ROS timestamp.
type Time struct {
	Secs  int64
	Nsecs int64
}

// Time converts t to a time.Time. The zero ROS time maps to the zero time.Time.
func (t Time) Time() time.Time {
	if t.Secs == 0 && t.Nsecs == 0 {
		return time.Time{}
	}
	return time.Unix(t.Secs, t.Nsecs)
}

// Header is std_msgs/Header.
type Header struct {
	Seq     uint32
	Stamp   Time
	FrameID string `json:"frame_id"`
}

// Vector3 is geometry_msgs/Vector3 and geometry_msgs/Point.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// R3 returns v as an r3.Vector.
func (v Vector3) R3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Quaternion is geometry_msgs/Quaternion.
type Quaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

// Rotation returns q as a spatialmath.Quaternion.
func (q Quaternion) Rotation() spatialmath.Quaternion {
	return spatialmath.NewQuaternion(q.W, q.X, q.Y, q.Z)
}

// Pose is geometry_msgs/Pose.
type Pose struct {
	Position    Vector3
	Orientation Quaternion
}

// PoseWithCovariance is geometry_msgs/PoseWithCovariance.
type PoseWithCovariance struct {
	Pose       Pose
	Covariance [36]float64
}

// Odometry is nav_msgs/Odometry. Position fixes arrive as odometry whose position x carries the
// latitude and z the longitude, both in degrees.
type Odometry struct {
	Header       Header
	ChildFrameID string `json:"child_frame_id"`
	Pose         PoseWithCovariance
}

// Imu is sensor_msgs/Imu. A first covariance element of -1 means the measurement is absent.
type Imu struct {
	Header                       Header
	Orientation                  Quaternion
	OrientationCovariance        [9]float64 `json:"orientation_covariance"`
	AngularVelocity              Vector3    `json:"angular_velocity"`
	AngularVelocityCovariance    [9]float64 `json:"angular_velocity_covariance"`
	LinearAcceleration           Vector3    `json:"linear_acceleration"`
	LinearAccelerationCovariance [9]float64 `json:"linear_acceleration_covariance"`
}

// LaserScan is sensor_msgs/LaserScan.
type LaserScan struct {
	Header         Header
	AngleMin       float64   `json:"angle_min"`
	AngleMax       float64   `json:"angle_max"`
	AngleIncrement float64   `json:"angle_increment"`
	TimeIncrement  float64   `json:"time_increment"`
	ScanTime       float64   `json:"scan_time"`
	RangeMin       float64   `json:"range_min"`
	RangeMax       float64   `json:"range_max"`
	Ranges         []float64 `json:"ranges"`
	Intensities    []float64 `json:"intensities"`
}

// LaserEcho is sensor_msgs/LaserEcho, all returns of one beam.
type LaserEcho struct {
	Echoes []float64
}

// MultiEchoLaserScan is sensor_msgs/MultiEchoLaserScan.
type MultiEchoLaserScan struct {
	Header         Header
	AngleMin       float64     `json:"angle_min"`
	AngleMax       float64     `json:"angle_max"`
	AngleIncrement float64     `json:"angle_increment"`
	TimeIncrement  float64     `json:"time_increment"`
	ScanTime       float64     `json:"scan_time"`
	RangeMin       float64     `json:"range_min"`
	RangeMax       float64     `json:"range_max"`
	Ranges         []LaserEcho `json:"ranges"`
	Intensities    []LaserEcho `json:"intensities"`
}

// PointField datatypes.
const (
	PointFieldInt8    = 1
	PointFieldUint8   = 2
	PointFieldInt16   = 3
	PointFieldUint16  = 4
	PointFieldInt32   = 5
	PointFieldUint32  = 6
	PointFieldFloat32 = 7
	PointFieldFloat64 = 8
)

// PointField is sensor_msgs/PointField.
type PointField struct {
	Name     string
	Offset   uint32
	Datatype uint8
	Count    uint32
}

// PointCloud2 is sensor_msgs/PointCloud2.
type PointCloud2 struct {
	Header      Header
	Height      uint32
	Width       uint32
	Fields      []PointField
	IsBigEndian bool   `json:"is_bigendian"`
	PointStep   uint32 `json:"point_step"`
	RowStep     uint32 `json:"row_step"`
	Data        []byte
	IsDense     bool `json:"is_dense"`
}

// Transform is geometry_msgs/Transform.
type Transform struct {
	Translation Vector3
	Rotation    Quaternion
}

// RigidTransform returns t as a spatialmath.RigidTransform.
func (t Transform) RigidTransform() spatialmath.RigidTransform {
	return spatialmath.NewRigidTransform(t.Translation.R3(), t.Rotation.Rotation())
}

// TransformStamped is geometry_msgs/TransformStamped, the transform from ChildFrameID into
// Header.FrameID.
type TransformStamped struct {
	Header       Header
	ChildFrameID string `json:"child_frame_id"`
	Transform    Transform
}

// TFMessage is tf2_msgs/TFMessage as published on /tf and /tf_static.
type TFMessage struct {
	Transforms []TransformStamped
}
