package sensorbridge

import (
	"github.com/pkg/errors"

	"github.com/timoonboru/cartographer-new/referenceframe"
	"github.com/timoonboru/cartographer-new/ros"
)

var (
	// ErrMissingLinearAcceleration is returned for IMU messages claiming to carry no linear acceleration.
	ErrMissingLinearAcceleration = errors.New(
		"IMU data claims to not contain linear acceleration measurements by setting " +
			"linear_acceleration_covariance[0] to -1, they are required")
	// ErrMissingAngularVelocity is returned for IMU messages claiming to carry no angular velocity.
	ErrMissingAngularVelocity = errors.New(
		"IMU data claims to not contain angular velocity measurements by setting " +
			"angular_velocity_covariance[0] to -1, they are required")
	// ErrImuNotColocated is returned when the IMU frame sits away from the tracking frame, which would
	// make accelerations transformed into the tracking frame imprecise.
	ErrImuNotColocated = errors.New("the IMU frame must be colocated with the tracking frame")
)

// IsFatal reports whether err signals a misconfigured sensor or a malformed message that the host
// should stop on, as opposed to an observation that was merely dropped.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var invalid *referenceframe.InvalidFrameIDError
	return errors.Is(err, ErrMissingLinearAcceleration) ||
		errors.Is(err, ErrMissingAngularVelocity) ||
		errors.Is(err, ErrImuNotColocated) ||
		errors.Is(err, ros.ErrMalformedMessage) ||
		errors.As(err, &invalid)
}
