package reflux

import "context"

// Filter returns a middleware that vetoes messages the predicate rejects.
//
// Rejected messages never reach the inner links or the update function and
// produce no transition. Accepted messages pass through untouched.
//
// Example:
//
//	// Ignore input while a modal is open
//	reflux.Filter[State, Msg, Cmd](func(s State, _ Msg) bool {
//	    return !s.ModalOpen
//	})
func Filter[S, M, C any](predicate func(state S, msg M) bool) Middleware[S, M, C] {
	return MiddlewareFunc[S, M, C](func(ctx context.Context, state S, msg M, pending Maybe[C], next Handler[S, M, C]) (Transition[S, C], bool) {
		if !predicate(state, msg) {
			return Reject[S, C]()
		}
		return next(ctx, state, msg, pending)
	})
}
