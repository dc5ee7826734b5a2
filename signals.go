package reflux

import "github.com/zoobzio/capitan"

// Runtime lifecycle signals.
var (
	// RuntimeStarted is emitted when a Runtime starts.
	RuntimeStarted = capitan.NewSignal(
		"reflux.runtime.started",
		"Runtime started",
	)

	// RuntimeStopped is emitted when a Runtime is closed.
	RuntimeStopped = capitan.NewSignal(
		"reflux.runtime.stopped",
		"Runtime stopped",
	)
)

// Dispatch signals.
var (
	// ActionDispatched is emitted when the Runtime begins handling an action.
	ActionDispatched = capitan.NewSignal(
		"reflux.action.dispatched",
		"Action dispatched",
	)

	// TransitionCommitted is emitted when an accepted transition replaces the state.
	TransitionCommitted = capitan.NewSignal(
		"reflux.transition.committed",
		"Transition committed",
	)

	// TransitionRejected is emitted when a message produces no transition.
	// It is informational; a rejection is not a failure.
	TransitionRejected = capitan.NewSignal(
		"reflux.transition.rejected",
		"Transition rejected",
	)

	// NavigationFailed is emitted when the navigation collaborator reports an error.
	NavigationFailed = capitan.NewSignal(
		"reflux.navigation.failed",
		"Navigation failed",
	)
)

// Rendering signals.
var (
	// RenderFailed is emitted when the render collaborator fails to render
	// or to apply a patch. Rendering is not retried.
	RenderFailed = capitan.NewSignal(
		"reflux.render.failed",
		"Render failed",
	)

	// PatchApplied is emitted when a non-empty patch is handed to the renderer.
	PatchApplied = capitan.NewSignal(
		"reflux.render.patch.applied",
		"Patch applied",
	)
)

// Middleware signals.
var (
	// MiddlewareTiming is emitted by the default TimeLogger sink.
	MiddlewareTiming = capitan.NewSignal(
		"reflux.middleware.timing",
		"Elapsed time of the wrapped chain",
	)

	// MessageThrottled is emitted when RateLimit vetoes a message.
	MessageThrottled = capitan.NewSignal(
		"reflux.middleware.throttled",
		"Message throttled",
	)
)

// Subscription signals.
var (
	// TimerStarted is emitted when a timer subscription becomes active.
	TimerStarted = capitan.NewSignal(
		"reflux.timer.started",
		"Timer subscription started",
	)

	// TimerFired is emitted each time a timer subscription dispatches.
	TimerFired = capitan.NewSignal(
		"reflux.timer.fired",
		"Timer subscription fired",
	)

	// TimerExhausted is emitted when a timer reaches its repeat budget.
	TimerExhausted = capitan.NewSignal(
		"reflux.timer.exhausted",
		"Timer subscription exhausted",
	)

	// TimerRemoved is emitted when a timer subscription is removed.
	TimerRemoved = capitan.NewSignal(
		"reflux.timer.removed",
		"Timer subscription removed",
	)

	// SourceFailed is emitted when a watcher cannot be started.
	SourceFailed = capitan.NewSignal(
		"reflux.source.failed",
		"Message source failed",
	)
)
