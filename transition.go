package reflux

// Maybe holds an optional value.
type Maybe[T any] struct {
	Value T
	Ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Maybe[T] {
	return Maybe[T]{Value: v, Ok: true}
}

// None returns an absent value.
func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

// Get returns the value and whether it is present.
func (m Maybe[T]) Get() (T, bool) {
	return m.Value, m.Ok
}

// Transition is the result of processing a message: the state that replaces
// the current one and an optional command to execute once it is committed.
//
// Handlers return a Transition together with a bool. A false bool means
// "no transition": the message was rejected and nothing observable happens.
type Transition[S, C any] struct {
	// State replaces the current state when the transition is accepted.
	State S

	// Command is the side effect requested by the update step, at most one
	// per transition.
	Command Maybe[C]
}

// Next accepts a message, moving to state without a command.
func Next[S, C any](state S) (Transition[S, C], bool) {
	return Transition[S, C]{State: state}, true
}

// NextWith accepts a message, moving to state and requesting cmd.
func NextWith[S, C any](state S, cmd C) (Transition[S, C], bool) {
	return Transition[S, C]{State: state, Command: Some(cmd)}, true
}

// Reject yields no transition.
func Reject[S, C any]() (Transition[S, C], bool) {
	return Transition[S, C]{}, false
}
