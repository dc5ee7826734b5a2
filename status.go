package reflux

// Status represents the lifecycle status of a Runtime.
type Status int32

const (
	// StatusIdle indicates the Runtime has been built but not started.
	StatusIdle Status = iota

	// StatusRunning indicates the Runtime has rendered its initial tree and
	// is accepting actions.
	StatusRunning

	// StatusClosed indicates the Runtime has released its bindings,
	// subscriptions and cache. Actions dispatched after Close are dropped.
	StatusClosed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}
