package reflux

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// TimingSink receives the elapsed time measured by a TimeLogger.
type TimingSink interface {
	Timing(ctx context.Context, msg any, elapsed time.Duration)
}

// TimingSinkFunc adapts a function to the TimingSink interface.
type TimingSinkFunc func(ctx context.Context, msg any, elapsed time.Duration)

// Timing implements TimingSink.
func (f TimingSinkFunc) Timing(ctx context.Context, msg any, elapsed time.Duration) {
	f(ctx, msg, elapsed)
}

// signalSink emits MiddlewareTiming.
type signalSink struct{}

func (signalSink) Timing(ctx context.Context, msg any, elapsed time.Duration) {
	capitan.Emit(ctx, MiddlewareTiming,
		KeyMessage.Field(fmt.Sprintf("%T", msg)),
		KeyElapsed.Field(elapsed),
	)
}

// TimeLogger is a middleware that measures the wall-clock time spent in the
// rest of the chain and reports it to a sink. The transition passes through
// exactly as returned by next.
//
// A disabled TimeLogger stays in the chain and forwards without measuring.
type TimeLogger[S, M, C any] struct {
	clock   clockz.Clock
	sink    TimingSink
	enabled atomic.Bool
}

// NewTimeLogger creates an enabled TimeLogger reporting to the
// MiddlewareTiming signal.
func NewTimeLogger[S, M, C any]() *TimeLogger[S, M, C] {
	l := &TimeLogger[S, M, C]{
		clock: clockz.RealClock,
		sink:  signalSink{},
	}
	l.enabled.Store(true)
	return l
}

// Clock sets the clock used for measurement.
// Use this with clockz.FakeClock for deterministic tests.
func (l *TimeLogger[S, M, C]) Clock(clock clockz.Clock) *TimeLogger[S, M, C] {
	l.clock = clock
	return l
}

// Sink sets where measurements are reported.
func (l *TimeLogger[S, M, C]) Sink(sink TimingSink) *TimeLogger[S, M, C] {
	l.sink = sink
	return l
}

// Enable toggles measurement. It is safe to call while dispatching.
func (l *TimeLogger[S, M, C]) Enable(on bool) {
	l.enabled.Store(on)
}

// Enabled reports whether measurement is on.
func (l *TimeLogger[S, M, C]) Enabled() bool {
	return l.enabled.Load()
}

// Call implements Middleware.
func (l *TimeLogger[S, M, C]) Call(ctx context.Context, state S, msg M, pending Maybe[C], next Handler[S, M, C]) (Transition[S, C], bool) {
	if !l.enabled.Load() {
		return next(ctx, state, msg, pending)
	}
	start := l.clock.Now()
	t, ok := next(ctx, state, msg, pending)
	l.sink.Timing(ctx, msg, l.clock.Since(start))
	return t, ok
}

// ElapsedMillis converts an elapsed duration to fractional milliseconds.
func ElapsedMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
