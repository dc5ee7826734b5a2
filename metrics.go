package reflux

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key runtime events.
type MetricsProvider interface {
	// OnStatusChange is called when the runtime moves between statuses.
	OnStatusChange(from, to Status)

	// OnActionReceived is called when an action is taken off the dispatch queue.
	OnActionReceived()

	// OnTransition is called when a message is accepted and committed.
	// Duration covers the middleware chain, commit and render.
	OnTransition(duration time.Duration)

	// OnRejected is called when a message produces no transition.
	OnRejected()

	// OnRenderFailure is called when rendering fails.
	// Stage is "render" for the initial tree or "apply" for a patch.
	OnRenderFailure(stage string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStatusChange(_, _ Status)   {}
func (NoOpMetricsProvider) OnActionReceived()            {}
func (NoOpMetricsProvider) OnTransition(_ time.Duration) {}
func (NoOpMetricsProvider) OnRejected()                  {}
func (NoOpMetricsProvider) OnRenderFailure(_ string)     {}
