package reflux

import "github.com/zoobzio/capitan"

// Field keys for runtime events.
var (
	// KeyStatus is the lifecycle status of the Runtime.
	KeyStatus = capitan.NewStringKey("status")

	// KeyAction is the kind of action being handled.
	KeyAction = capitan.NewStringKey("action")

	// KeyMessage is the Go type of the message being handled.
	KeyMessage = capitan.NewStringKey("message")

	// KeyRoute is the name of a navigation route.
	KeyRoute = capitan.NewStringKey("route")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyElapsed is the time spent in the wrapped middleware chain.
	KeyElapsed = capitan.NewDurationKey("elapsed")

	// KeyEdits is the number of edits in an applied patch.
	KeyEdits = capitan.NewIntKey("edits")

	// KeyTag is the tag of a timer subscription.
	KeyTag = capitan.NewStringKey("tag")

	// KeyInterval is the firing interval of a timer subscription.
	KeyInterval = capitan.NewDurationKey("interval")

	// KeyFired is the number of times a timer subscription has fired.
	KeyFired = capitan.NewIntKey("fired")

	// KeyWatcherType is the type name of the watcher implementation.
	KeyWatcherType = capitan.NewStringKey("watcher_type")
)
