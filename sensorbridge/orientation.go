package sensorbridge

import (
	"sync"

	"github.com/edaniels/golog"

	"github.com/timoonboru/cartographer-new/spatialmath"
)

// OrientationBaselineTracker expresses orientation samples relative to the first sample with a
// non-zero vector part.
type OrientationBaselineTracker struct {
	mu       sync.Mutex
	logger   golog.Logger
	baseline spatialmath.Quaternion
	captured bool
	latest   spatialmath.Quaternion
	relative spatialmath.Quaternion
}

// NewOrientationBaselineTracker returns a tracker with no baseline.
func NewOrientationBaselineTracker(logger golog.Logger) *OrientationBaselineTracker {
	return &OrientationBaselineTracker{
		logger:   logger,
		baseline: spatialmath.IdentityQuaternion(),
		latest:   spatialmath.IdentityQuaternion(),
		relative: spatialmath.IdentityQuaternion(),
	}
}

// Update records q as the latest raw sample. Samples with a zero vector part are kept as the
// latest sample only; otherwise the first one becomes the baseline and the rotation of q relative
// to the baseline is returned.
func (ot *OrientationBaselineTracker) Update(q spatialmath.Quaternion) (spatialmath.Quaternion, bool) {
	ot.mu.Lock()
	defer ot.mu.Unlock()

	ot.latest = q
	if q.VectorIsZero() {
		return spatialmath.Quaternion{}, false
	}
	if !ot.captured {
		ot.baseline = q
		ot.captured = true
		ot.logger.Infow("captured orientation baseline", "yaw", q.Yaw())
	}
	ot.relative = ot.baseline.Inverse().Mul(q)
	return ot.relative, true
}

// Latest returns the latest raw sample, or the identity before any sample.
func (ot *OrientationBaselineTracker) Latest() spatialmath.Quaternion {
	ot.mu.Lock()
	defer ot.mu.Unlock()
	return ot.latest
}

// Relative returns the last rotation computed relative to the baseline.
func (ot *OrientationBaselineTracker) Relative() spatialmath.Quaternion {
	ot.mu.Lock()
	defer ot.mu.Unlock()
	return ot.relative
}

// Baseline returns the baseline, if captured.
func (ot *OrientationBaselineTracker) Baseline() (spatialmath.Quaternion, bool) {
	ot.mu.Lock()
	defer ot.mu.Unlock()
	return ot.baseline, ot.captured
}
