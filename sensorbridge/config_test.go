package sensorbridge

import (
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/test"
)

func TestConfigDefaults(t *testing.T) {
	conf, err := NewConfigFromAttributes(map[string]interface{}{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *conf, test.ShouldResemble, DefaultConfig())
	test.That(t, conf.Validate("bridge"), test.ShouldBeNil)
	test.That(t, conf.LookupTransformTimeout(), test.ShouldEqual, 200*time.Millisecond)

	conf, err = NewConfigFromAttributes(map[string]interface{}{
		"tracking_frame":                  "imu_link",
		"num_subdivisions_per_laser_scan": 1.0,
		"lookup_transform_timeout_sec":    0,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.TrackingFrame, test.ShouldEqual, "imu_link")
	test.That(t, conf.NumSubdivisionsPerLaserScan, test.ShouldEqual, 1)
	test.That(t, conf.LookupTransformTimeout(), test.ShouldEqual, time.Duration(0))

	_, err = NewConfigFromAttributes(map[string]interface{}{"tracking_frame": []int{1}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidate(t *testing.T) {
	conf := Config{TrackingFrame: "", NumSubdivisionsPerLaserScan: 0, LookupTransformTimeoutSec: -1}
	err := conf.Validate("bridge")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 3)
	test.That(t, err.Error(), test.ShouldContainSubstring, "tracking_frame")
	test.That(t, err.Error(), test.ShouldContainSubstring, "num_subdivisions_per_laser_scan")
	test.That(t, err.Error(), test.ShouldContainSubstring, "lookup_transform_timeout_sec")

	conf = DefaultConfig()
	conf.TrackingFrame = "/base_link"
	err = conf.Validate("bridge")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "/base_link")
}
