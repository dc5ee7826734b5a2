package reflux

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"golang.org/x/time/rate"
)

// RateLimit is a middleware that vetoes messages arriving faster than a
// sustained rate. Vetoed messages never reach the rest of the chain and are
// reported through the MessageThrottled signal.
//
// Example:
//
//	// At most 30 scroll messages per second, bursts of 5.
//	limit := reflux.NewRateLimit[S, M, C](30, 5).
//	    Only(func(m M) bool { return isScroll(m) })
type RateLimit[S, M, C any] struct {
	limiter *rate.Limiter
	clock   clockz.Clock
	only    func(M) bool
}

// NewRateLimit creates a RateLimit allowing rps messages per second with
// the given burst capacity.
func NewRateLimit[S, M, C any](rps float64, burst int) *RateLimit[S, M, C] {
	return &RateLimit[S, M, C]{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		clock:   clockz.RealClock,
	}
}

// Clock sets the clock the limiter reads.
func (l *RateLimit[S, M, C]) Clock(clock clockz.Clock) *RateLimit[S, M, C] {
	l.clock = clock
	return l
}

// Only restricts limiting to messages for which match returns true. Other
// messages pass through without consuming capacity.
func (l *RateLimit[S, M, C]) Only(match func(M) bool) *RateLimit[S, M, C] {
	l.only = match
	return l
}

// Call implements Middleware.
func (l *RateLimit[S, M, C]) Call(ctx context.Context, state S, msg M, pending Maybe[C], next Handler[S, M, C]) (Transition[S, C], bool) {
	if l.only != nil && !l.only(msg) {
		return next(ctx, state, msg, pending)
	}
	if !l.limiter.AllowN(l.clock.Now(), 1) {
		capitan.Emit(ctx, MessageThrottled,
			KeyMessage.Field(fmt.Sprintf("%T", msg)),
		)
		var zero Transition[S, C]
		return zero, false
	}
	return next(ctx, state, msg, pending)
}
