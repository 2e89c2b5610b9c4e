package referenceframe

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/timoonboru/cartographer-new/spatialmath"
)

// defaultPollInterval is how often a TrackingBridge re-asks the lookup while waiting.
const defaultPollInterval = 10 * time.Millisecond

// Lookup is the result of resolving a frame into the tracking frame. It is either available and
// carries a transform, or unavailable and carries the reason.
type Lookup struct {
	transform spatialmath.RigidTransform
	reason    error
}

// Available returns a Lookup holding t.
func Available(t spatialmath.RigidTransform) Lookup {
	return Lookup{transform: t}
}

// Unavailable returns a Lookup that failed because of reason.
func Unavailable(reason error) Lookup {
	if reason == nil {
		reason = ErrTransformUnavailable
	}
	return Lookup{reason: reason}
}

// Get returns the transform and whether it is available.
func (l Lookup) Get() (spatialmath.RigidTransform, bool) {
	return l.transform, l.reason == nil
}

// Reason is nil for available lookups.
func (l Lookup) Reason() error {
	return l.reason
}

// TrackingBridgeOption configures a TrackingBridge.
type TrackingBridgeOption func(*TrackingBridge)

// WithClock replaces the wall clock used for the lookup timeout.
func WithClock(c clock.Clock) TrackingBridgeOption {
	return func(tb *TrackingBridge) {
		tb.clock = c
	}
}

// WithPollInterval sets how often the lookup is retried while waiting for data.
func WithPollInterval(d time.Duration) TrackingBridgeOption {
	return func(tb *TrackingBridge) {
		if d > 0 {
			tb.pollInterval = d
		}
	}
}

// TrackingBridge resolves sensor frames into a single tracking frame, waiting a bounded amount of
// time for transforms that have not arrived yet.
type TrackingBridge struct {
	trackingFrame string
	timeout       time.Duration
	lookup        TransformLookup
	logger        golog.Logger
	clock         clock.Clock
	pollInterval  time.Duration
}

// NewTrackingBridge returns a TrackingBridge into trackingFrame.
func NewTrackingBridge(
	trackingFrame string,
	timeout time.Duration,
	lookup TransformLookup,
	logger golog.Logger,
	opts ...TrackingBridgeOption,
) (*TrackingBridge, error) {
	if trackingFrame == "" {
		return nil, errors.New("tracking frame cannot be empty")
	}
	if err := ValidateFrameID(trackingFrame); err != nil {
		return nil, err
	}
	if timeout < 0 {
		return nil, errors.Errorf("lookup timeout must be non-negative, got %v", timeout)
	}
	if lookup == nil {
		return nil, errors.New("transform lookup is required")
	}
	tb := &TrackingBridge{
		trackingFrame: trackingFrame,
		timeout:       timeout,
		lookup:        lookup,
		logger:        logger,
		clock:         clock.New(),
		pollInterval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(tb)
	}
	return tb, nil
}

// TrackingFrame returns the frame every lookup resolves into.
func (tb *TrackingBridge) TrackingFrame() string {
	return tb.trackingFrame
}

// LookupToTracking returns the transform taking points in frameID into the tracking frame at t.
// If the newest common data already covers t the call does not wait; otherwise it waits up to the
// configured timeout for the data to arrive.
func (tb *TrackingBridge) LookupToTracking(ctx context.Context, t time.Time, frameID string) Lookup {
	if err := ValidateFrameID(frameID); err != nil {
		return Unavailable(err)
	}
	if frameID == "" {
		return Unavailable(errors.Wrap(ErrTransformUnavailable, "frame id cannot be empty"))
	}

	timeout := tb.timeout
	if latest, err := tb.lookup.LookupTransform(tb.trackingFrame, frameID, time.Time{}); err == nil &&
		!latest.Time.Before(t) {
		timeout = 0
	}

	st, err := tb.lookup.LookupTransform(tb.trackingFrame, frameID, t)
	if err != nil && timeout > 0 {
		deadline := tb.clock.After(timeout)
	wait:
		for {
			select {
			case <-ctx.Done():
				err = errors.Wrap(err, ctx.Err().Error())
				break wait
			case <-deadline:
				break wait
			case <-tb.clock.After(tb.pollInterval):
			}
			if st, err = tb.lookup.LookupTransform(tb.trackingFrame, frameID, t); err == nil {
				break wait
			}
		}
	}
	if err != nil {
		tb.logger.Warnw("transform lookup failed",
			"tracking_frame", tb.trackingFrame, "frame_id", frameID, "time", t, "reason", err)
		return Unavailable(err)
	}
	return Available(st.Transform)
}
