package reflux

import "context"

// Update is the core update function. It computes the transition for a
// message applied to a state, or reports false to reject the message.
type Update[S, M, C any] func(state S, msg M) (Transition[S, C], bool)

// Handler is a link in the middleware chain. The pending command is the
// command accumulated by outer links, None when the Runtime invokes the
// chain.
type Handler[S, M, C any] func(ctx context.Context, state S, msg M, pending Maybe[C]) (Transition[S, C], bool)

// Middleware intercepts messages on their way to the update function.
//
// Call receives next, the remainder of the chain terminating in the update
// function. A middleware may call next and return its result unchanged,
// transform the result, return false to veto the message, or act around the
// call without altering the result. Middleware must not depend on the
// presence or position of other middleware.
type Middleware[S, M, C any] interface {
	Call(ctx context.Context, state S, msg M, pending Maybe[C], next Handler[S, M, C]) (Transition[S, C], bool)
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc[S, M, C any] func(ctx context.Context, state S, msg M, pending Maybe[C], next Handler[S, M, C]) (Transition[S, C], bool)

// Call implements Middleware.
func (f MiddlewareFunc[S, M, C]) Call(ctx context.Context, state S, msg M, pending Maybe[C], next Handler[S, M, C]) (Transition[S, C], bool) {
	return f(ctx, state, msg, pending, next)
}

// Chain composes middleware around update. mws[0] is the outermost link:
// it observes the raw input first and the final result last.
//
// When update accepts a message without a command and a pending command
// reached the terminal link, the pending command is carried into the
// transition.
func Chain[S, M, C any](update Update[S, M, C], mws ...Middleware[S, M, C]) Handler[S, M, C] {
	terminal := func(_ context.Context, state S, msg M, pending Maybe[C]) (Transition[S, C], bool) {
		t, ok := update(state, msg)
		if ok && !t.Command.Ok && pending.Ok {
			t.Command = pending
		}
		return t, ok
	}

	handler := Handler[S, M, C](terminal)
	for i := len(mws) - 1; i >= 0; i-- {
		handler = wrap(mws[i], handler)
	}
	return handler
}

// wrap binds a middleware to the handler it delegates to.
func wrap[S, M, C any](mw Middleware[S, M, C], next Handler[S, M, C]) Handler[S, M, C] {
	return func(ctx context.Context, state S, msg M, pending Maybe[C]) (Transition[S, C], bool) {
		return mw.Call(ctx, state, msg, pending, next)
	}
}
