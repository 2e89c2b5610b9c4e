package sensorbridge

import (
	"math"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/timoonboru/cartographer-new/referenceframe"
)

const (
	defaultTrackingFrame               = "base_link"
	defaultNumSubdivisionsPerLaserScan = 10
	defaultLookupTransformTimeoutSec   = 0.2
)

// Config describes how a SensorBridge normalizes observations.
type Config struct {
	TrackingFrame               string  `json:"tracking_frame"`
	NumSubdivisionsPerLaserScan int     `json:"num_subdivisions_per_laser_scan"`
	LookupTransformTimeoutSec   float64 `json:"lookup_transform_timeout_sec"`
}

// DefaultConfig returns the configuration used for attributes that are not set.
func DefaultConfig() Config {
	return Config{
		TrackingFrame:               defaultTrackingFrame,
		NumSubdivisionsPerLaserScan: defaultNumSubdivisionsPerLaserScan,
		LookupTransformTimeoutSec:   defaultLookupTransformTimeoutSec,
	}
}

// NewConfigFromAttributes decodes attributes over the defaults.
func NewConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &conf})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "invalid sensor bridge attributes")
	}
	return &conf, nil
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	var err error
	if config.TrackingFrame == "" {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "tracking_frame"))
	} else if frameErr := referenceframe.ValidateFrameID(config.TrackingFrame); frameErr != nil {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, frameErr))
	}
	if config.NumSubdivisionsPerLaserScan < 1 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("num_subdivisions_per_laser_scan must be at least 1, got %d", config.NumSubdivisionsPerLaserScan)))
	}
	timeout := config.LookupTransformTimeoutSec
	if timeout < 0 || math.IsNaN(timeout) || math.IsInf(timeout, 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("lookup_transform_timeout_sec must be a non-negative number of seconds, got %v", timeout)))
	}
	return err
}

// LookupTransformTimeout returns the lookup timeout as a duration.
func (config *Config) LookupTransformTimeout() time.Duration {
	return time.Duration(config.LookupTransformTimeoutSec * float64(time.Second))
}
