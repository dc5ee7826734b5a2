/*
Package reflux provides a unidirectional-data-flow application runtime for
declarative user interfaces.

A Runtime owns the current state of an application. Actions flow in, an
update function computes the next state and an optional command through a
chain of middleware, and the view produced from the new state is reconciled
against the previous one so that the rendering collaborator only applies
what changed.

reflux is designed to be embedded within a host that draws pixels, lays out
views and performs side effects. It does none of those things itself; it
defines the contracts those collaborators implement.

# Basic Usage

Define a state, a message type and an update function:

	type Counter struct{ Value int }

	type Msg int

	func update(s Counter, m Msg) (reflux.Transition[Counter, Cmd], bool) {
	    if m == 0 {
	        return reflux.Reject[Counter, Cmd]()
	    }
	    return reflux.Next[Counter, Cmd](Counter{Value: s.Value + int(m)})
	}

Build a runtime, attach collaborators, and start it:

	rt := reflux.New[Counter, Msg, Cmd](Counter{}, update, render,
	    reflux.NewTimeLogger[Counter, Msg, Cmd](),
	    persistor,
	).Renderer(host).Executor(effects)

	if err := rt.Start(ctx); err != nil {
	    return err
	}
	rt.Dispatch(reflux.SendMessage(Msg(1)))

# Middleware

Middleware wraps the update function. The first middleware passed to New is
the outermost: it observes the raw input first and the final result last.
A middleware may pass through, transform the transition, veto it by
returning false, or perform a side effect around the call.

	reflux.Filter[Counter, Msg, Cmd](func(_ Counter, m Msg) bool { return m < 100 })

# Subscriptions

Time-based message sources are declared as values and deduplicated
structurally:

	rt.Subscriptions(func(s Counter) []reflux.Subscription[Msg] {
	    return []reflux.Subscription[Msg]{
	        reflux.Every(1, reflux.Seconds, func(time.Time) reflux.Action[Msg] {
	            return reflux.SendMessage(Msg(1))
	        }),
	    }
	})

# Observability

Lifecycle and failure events are emitted as capitan signals (see
signals.go). Hook them to log, alert or collect metrics:

	capitan.Hook(reflux.RenderFailed, func(_ context.Context, e *capitan.Event) {
	    msg, _ := reflux.KeyError.From(e)
	    log.Printf("render failed: %s", msg)
	})

Durable state persistence lives in the persist sub-package, and the view
change-set contract in the view sub-package.
*/
package reflux
