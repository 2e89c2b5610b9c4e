package referenceframe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/timoonboru/cartographer-new/spatialmath"
)

type fakeLookup struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, target, source string, t time.Time) (StampedTransform, error)
}

func (f *fakeLookup) LookupTransform(target, source string, t time.Time) (StampedTransform, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call, target, source, t)
}

func (f *fakeLookup) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func advanceUntilDone(mockClock *clock.Mock, done <-chan Lookup) Lookup {
	for {
		select {
		case l := <-done:
			return l
		default:
			mockClock.Add(5 * time.Millisecond)
		}
	}
}

func TestNewTrackingBridge(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lookup := NewBuffer(0)

	_, err := NewTrackingBridge("", time.Second, lookup, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewTrackingBridge("/base_link", time.Second, lookup, logger)
	var invalid *InvalidFrameIDError
	test.That(t, errors.As(err, &invalid), test.ShouldBeTrue)

	_, err = NewTrackingBridge("base_link", -time.Second, lookup, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewTrackingBridge("base_link", time.Second, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	tb, err := NewTrackingBridge("base_link", time.Second, lookup, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tb.TrackingFrame(), test.ShouldEqual, "base_link")
}

func TestLookupToTrackingAvailable(t *testing.T) {
	logger := golog.NewTestLogger(t)
	b := newTestBuffer(t)
	tb, err := NewTrackingBridge("odom", 0, b, logger)
	test.That(t, err, test.ShouldBeNil)

	l := tb.LookupToTracking(context.Background(), t0.Add(500*time.Millisecond), "laser")
	tf, ok := l.Get()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, l.Reason(), test.ShouldBeNil)
	test.That(t, tf.Translation.X, test.ShouldAlmostEqual, 2)
}

func TestLookupToTrackingInvalidFrame(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lookup := &fakeLookup{fn: func(int, string, string, time.Time) (StampedTransform, error) {
		return StampedTransform{Transform: spatialmath.IdentityTransform()}, nil
	}}
	tb, err := NewTrackingBridge("base_link", time.Second, lookup, logger)
	test.That(t, err, test.ShouldBeNil)

	l := tb.LookupToTracking(context.Background(), t0, "/laser")
	_, ok := l.Get()
	test.That(t, ok, test.ShouldBeFalse)
	var invalid *InvalidFrameIDError
	test.That(t, errors.As(l.Reason(), &invalid), test.ShouldBeTrue)
	test.That(t, lookup.Calls(), test.ShouldEqual, 0)

	l = tb.LookupToTracking(context.Background(), t0, "")
	_, ok = l.Get()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestLookupToTrackingSkipsWaitWhenDataIsNewer(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	mockClock := clock.NewMock()
	lookup := &fakeLookup{fn: func(_ int, _, _ string, at time.Time) (StampedTransform, error) {
		if at.IsZero() {
			return StampedTransform{Time: t0.Add(time.Second)}, nil
		}
		return StampedTransform{}, &ExtrapolationError{Frame: "laser", Requested: at, Earliest: t0.Add(time.Second), Latest: t0.Add(time.Second)}
	}}
	tb, err := NewTrackingBridge("base_link", time.Hour, lookup, logger, WithClock(mockClock))
	test.That(t, err, test.ShouldBeNil)

	// the mock clock never advances, so any wait would hang
	l := tb.LookupToTracking(context.Background(), t0, "laser")
	_, ok := l.Get()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, errors.Is(l.Reason(), ErrTransformUnavailable), test.ShouldBeTrue)
	test.That(t, lookup.Calls(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("transform lookup failed").Len(), test.ShouldEqual, 1)
}

func TestLookupToTrackingWaitsForData(t *testing.T) {
	logger := golog.NewTestLogger(t)
	mockClock := clock.NewMock()
	lookup := &fakeLookup{fn: func(call int, _, _ string, _ time.Time) (StampedTransform, error) {
		if call < 4 {
			return StampedTransform{}, NewFrameNotFoundError("laser")
		}
		return StampedTransform{Transform: translation(0, 0, 1)}, nil
	}}
	tb, err := NewTrackingBridge("base_link", time.Second, lookup, logger,
		WithClock(mockClock), WithPollInterval(5*time.Millisecond))
	test.That(t, err, test.ShouldBeNil)

	done := make(chan Lookup, 1)
	go func() {
		done <- tb.LookupToTracking(context.Background(), t0, "laser")
	}()
	l := advanceUntilDone(mockClock, done)
	tf, ok := l.Get()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, tf.Translation.Z, test.ShouldAlmostEqual, 1)
	test.That(t, lookup.Calls(), test.ShouldEqual, 4)
}

func TestLookupToTrackingTimesOut(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	mockClock := clock.NewMock()
	lookup := &fakeLookup{fn: func(int, string, string, time.Time) (StampedTransform, error) {
		return StampedTransform{}, NewFrameNotFoundError("laser")
	}}
	tb, err := NewTrackingBridge("base_link", 200*time.Millisecond, lookup, logger,
		WithClock(mockClock), WithPollInterval(50*time.Millisecond))
	test.That(t, err, test.ShouldBeNil)

	start := mockClock.Now()
	done := make(chan Lookup, 1)
	go func() {
		done <- tb.LookupToTracking(context.Background(), t0, "laser")
	}()
	l := advanceUntilDone(mockClock, done)
	_, ok := l.Get()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, errors.Is(l.Reason(), ErrTransformUnavailable), test.ShouldBeTrue)
	test.That(t, mockClock.Now().Sub(start), test.ShouldBeGreaterThanOrEqualTo, 200*time.Millisecond)
	test.That(t, logs.FilterMessage("transform lookup failed").Len(), test.ShouldEqual, 1)
}

func TestLookupToTrackingCanceled(t *testing.T) {
	logger := golog.NewTestLogger(t)
	lookup := &fakeLookup{fn: func(int, string, string, time.Time) (StampedTransform, error) {
		return StampedTransform{}, NewFrameNotFoundError("laser")
	}}
	tb, err := NewTrackingBridge("base_link", time.Hour, lookup, logger, WithClock(clock.NewMock()))
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := tb.LookupToTracking(ctx, t0, "laser")
	_, ok := l.Get()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, errors.Is(l.Reason(), ErrTransformUnavailable), test.ShouldBeTrue)
	test.That(t, l.Reason().Error(), test.ShouldContainSubstring, "context canceled")
}

func TestUnavailableDefaultsReason(t *testing.T) {
	l := Unavailable(nil)
	_, ok := l.Get()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, errors.Is(l.Reason(), ErrTransformUnavailable), test.ShouldBeTrue)
}
