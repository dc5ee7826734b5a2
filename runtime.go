package reflux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"

	"github.com/zoobzio/reflux/view"
)

// ErrNoNavigator is reported when a navigation action arrives and no
// Navigator is configured.
var ErrNoNavigator = errors.New("no navigator configured")

// Handle identifies a rendered visual tree.
type Handle interface {
	// ID returns a stable identity for the visual tree. It keys the
	// binding between the tree's mailbox and the Runtime.
	ID() string
}

// Renderer is the rendering collaborator. It draws component trees onto
// a visual surface and reports the actions views emit through a Mailbox.
type Renderer[M any] interface {
	// Render draws a new visual tree from mount, the view.Mount patch of
	// the first view. Every edit in mount is a Create carrying a Full
	// ChangeSet.
	Render(ctx context.Context, mount view.Patch) (Handle, *Mailbox[Action[M]], error)

	// Apply applies patch to the visual tree behind h. It returns a new
	// mailbox when the tree's emitted actions now flow through a
	// different one, or nil to keep the current binding.
	Apply(ctx context.Context, patch view.Patch, h Handle) (*Mailbox[Action[M]], error)
}

// Executor runs commands after their transition is committed. Messages the
// command produces are dispatched back into the Runtime through dispatch.
type Executor[M, C any] interface {
	Execute(ctx context.Context, cmd C, dispatch func(Action[M]))
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc[M, C any] func(ctx context.Context, cmd C, dispatch func(Action[M]))

// Execute implements Executor.
func (f ExecutorFunc[M, C]) Execute(ctx context.Context, cmd C, dispatch func(Action[M])) {
	f(ctx, cmd, dispatch)
}

// Navigator is the navigation and root-presentation collaborator.
type Navigator interface {
	Push(ctx context.Context, to Route) error
	Present(ctx context.Context, to Route) error
	Pop(ctx context.Context) error
	Dismiss(ctx context.Context) error
}

// Runtime owns the current state of an application and is its single
// dispatch sequence point. Actions may be dispatched from any goroutine;
// they are handled one at a time in arrival order.
type Runtime[S, M, C any] struct {
	handler   Handler[S, M, C]
	view      func(S) *view.Node
	renderer  Renderer[M]
	executor  Executor[M, C]
	navigator Navigator
	subs      func(S) []Subscription[M]
	clock     clockz.Clock
	metrics   MetricsProvider
	cache     *view.Cache[any]
	timers    *Manager[M]

	state  atomic.Pointer[S]
	status atomic.Int32

	// Dispatch queue. The goroutine that finds the queue idle drains it.
	qmu      sync.Mutex
	queue    []Action[M]
	draining bool

	// Owned by the draining goroutine.
	ctx    context.Context
	tree   *view.Node
	handle Handle

	bmu      sync.Mutex
	bindings map[string]*Listener
	watchers []context.CancelFunc

	mu sync.Mutex
}

// New creates a Runtime holding initial, driven by update wrapped in mws,
// rendering the tree produced by render. mws[0] is the outermost
// middleware.
//
// Collaborators and options use chainable methods before calling Start():
//
//	rt := reflux.New[State, Msg, Cmd](State{}, update, render).
//	    Renderer(host).
//	    Navigator(nav).
//	    Executor(effects)
func New[S, M, C any](initial S, update Update[S, M, C], render func(S) *view.Node, mws ...Middleware[S, M, C]) *Runtime[S, M, C] {
	r := &Runtime[S, M, C]{
		handler:  Chain(update, mws...),
		view:     render,
		clock:    clockz.RealClock,
		cache:    view.NewCache[any](),
		bindings: make(map[string]*Listener),
		ctx:      context.Background(),
	}
	r.state.Store(&initial)
	r.status.Store(int32(StatusIdle))
	return r
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Renderer sets the rendering collaborator. Without one, views are still
// computed but nothing is drawn. Must be called before Start().
func (r *Runtime[S, M, C]) Renderer(rd Renderer[M]) *Runtime[S, M, C] {
	r.renderer = rd
	return r
}

// Executor sets the command executor. Without one, commands are dropped.
// Must be called before Start().
func (r *Runtime[S, M, C]) Executor(e Executor[M, C]) *Runtime[S, M, C] {
	r.executor = e
	return r
}

// Navigator sets the navigation collaborator. Must be called before Start().
func (r *Runtime[S, M, C]) Navigator(n Navigator) *Runtime[S, M, C] {
	r.navigator = n
	return r
}

// Subscriptions declares the timer subscriptions active for a state. The
// active set is synchronized after Start and after every committed
// transition. Must be called before Start().
func (r *Runtime[S, M, C]) Subscriptions(fn func(S) []Subscription[M]) *Runtime[S, M, C] {
	r.subs = fn
	return r
}

// Clock sets a custom clock for timers and measurements.
// Use this with clockz.FakeClock for deterministic testing.
// Must be called before Start().
func (r *Runtime[S, M, C]) Clock(clock clockz.Clock) *Runtime[S, M, C] {
	r.clock = clock
	return r
}

// Cache replaces the component cache. Entries are evicted when their
// subtree is removed or replaced, and all of them on Close.
// Must be called before Start().
func (r *Runtime[S, M, C]) Cache(c *view.Cache[any]) *Runtime[S, M, C] {
	r.cache = c
	return r
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (r *Runtime[S, M, C]) Metrics(provider MetricsProvider) *Runtime[S, M, C] {
	r.metrics = provider
	return r
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// State returns the current state.
func (r *Runtime[S, M, C]) State() S {
	return *r.state.Load()
}

// Status returns the lifecycle status of the Runtime.
func (r *Runtime[S, M, C]) Status() Status {
	return Status(r.status.Load())
}

// ComponentCache returns the component cache owned by the Runtime.
func (r *Runtime[S, M, C]) ComponentCache() *view.Cache[any] {
	return r.cache
}

// Bindings returns the number of visual trees whose mailboxes are bound
// to the Runtime.
func (r *Runtime[S, M, C]) Bindings() int {
	r.bmu.Lock()
	defer r.bmu.Unlock()
	return len(r.bindings)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start renders the initial view, activates subscriptions and then handles
// any actions dispatched before Start. Render failures are reported
// through the RenderFailed signal and do not fail Start.
//
// Start can only be called once. Subsequent calls return an error.
func (r *Runtime[S, M, C]) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.Status() != StatusIdle {
		r.mu.Unlock()
		return fmt.Errorf("runtime already started or closed")
	}
	r.timers = NewManager[M](r.clock)
	r.ctx = ctx
	r.qmu.Lock()
	r.draining = true
	r.qmu.Unlock()
	r.setStatus(StatusIdle, StatusRunning)
	r.mu.Unlock()

	capitan.Emit(ctx, RuntimeStarted,
		KeyStatus.Field(StatusRunning.String()),
	)

	state := r.State()
	r.render(ctx, state)
	r.syncSubscriptions(state)
	r.drain()
	return nil
}

// Close stops subscriptions and watchers, releases every mailbox binding
// and evicts the component cache. Actions dispatched afterwards are
// dropped. Close is idempotent.
func (r *Runtime[S, M, C]) Close() {
	r.mu.Lock()
	prev := r.Status()
	if prev == StatusClosed {
		r.mu.Unlock()
		return
	}
	r.setStatus(prev, StatusClosed)
	r.mu.Unlock()

	if r.timers != nil {
		r.timers.Close()
	}

	r.bmu.Lock()
	for id, l := range r.bindings {
		l.Close()
		delete(r.bindings, id)
	}
	for _, cancel := range r.watchers {
		cancel()
	}
	r.watchers = nil
	r.bmu.Unlock()

	r.cache.Clear()

	r.qmu.Lock()
	r.queue = nil
	r.qmu.Unlock()

	capitan.Emit(r.ctx, RuntimeStopped,
		KeyStatus.Field(StatusClosed.String()),
	)
}

// Watch attaches an external source. Every payload the watcher emits is
// decoded into an Action and dispatched; payloads decode rejects are
// dropped. The source is detached when ctx is done or the Runtime closes.
func (r *Runtime[S, M, C]) Watch(ctx context.Context, w Watcher, decode func([]byte) (Action[M], bool)) error {
	if r.Status() == StatusClosed {
		return fmt.Errorf("runtime closed")
	}
	wctx, cancel := context.WithCancel(ctx)
	changes, err := w.Watch(wctx)
	if err != nil {
		cancel()
		capitan.Emit(ctx, SourceFailed,
			KeyWatcherType.Field(fmt.Sprintf("%T", w)),
			KeyError.Field(err.Error()),
		)
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	r.bmu.Lock()
	r.watchers = append(r.watchers, cancel)
	r.bmu.Unlock()

	go func() {
		for {
			select {
			case <-wctx.Done():
				return
			case raw, ok := <-changes:
				if !ok {
					return
				}
				if a, ok := decode(raw); ok {
					r.Dispatch(a)
				}
			}
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------
// Dispatch
// -----------------------------------------------------------------------------

// Dispatch hands an action to the Runtime. It may be called from any
// goroutine, including from within collaborators the Runtime is calling.
//
// If no other call is handling actions, Dispatch handles a and everything
// queued behind it before returning. Otherwise a is queued for the handling
// call and Dispatch returns immediately. Actions dispatched before Start
// are held until Start; actions dispatched after Close are dropped.
func (r *Runtime[S, M, C]) Dispatch(a Action[M]) {
	if a == nil || r.Status() == StatusClosed {
		return
	}

	r.qmu.Lock()
	r.queue = append(r.queue, a)
	if r.draining || r.Status() == StatusIdle {
		r.qmu.Unlock()
		return
	}
	r.draining = true
	r.qmu.Unlock()

	r.drain()
}

// drain handles queued actions until the queue is empty. The caller has
// set r.draining.
func (r *Runtime[S, M, C]) drain() {
	for {
		r.qmu.Lock()
		if len(r.queue) == 0 || r.Status() == StatusClosed {
			r.queue = nil
			r.draining = false
			r.qmu.Unlock()
			return
		}
		a := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.qmu.Unlock()

		if r.metrics != nil {
			r.metrics.OnActionReceived()
		}
		a.Apply(router[S, M, C]{r: r, ctx: r.ctx})
	}
}

// router handles one action on the dispatch sequence.
type router[S, M, C any] struct {
	r   *Runtime[S, M, C]
	ctx context.Context
}

func (h router[S, M, C]) SendMessage(msg M) {
	r, ctx := h.r, h.ctx
	start := r.clock.Now()
	capitan.Emit(ctx, ActionDispatched,
		KeyAction.Field("send"),
		KeyMessage.Field(fmt.Sprintf("%T", msg)),
	)

	t, ok := r.handler(ctx, r.State(), msg, None[C]())
	if !ok {
		capitan.Emit(ctx, TransitionRejected,
			KeyMessage.Field(fmt.Sprintf("%T", msg)),
		)
		if r.metrics != nil {
			r.metrics.OnRejected()
		}
		return
	}

	state := t.State
	r.state.Store(&state)
	capitan.Emit(ctx, TransitionCommitted,
		KeyMessage.Field(fmt.Sprintf("%T", msg)),
	)

	r.render(ctx, state)
	r.syncSubscriptions(state)

	if cmd, ok := t.Command.Get(); ok && r.executor != nil {
		r.executor.Execute(ctx, cmd, r.Dispatch)
	}

	if r.metrics != nil {
		r.metrics.OnTransition(r.clock.Since(start))
	}
}

func (h router[S, M, C]) Navigate(to Route) {
	capitan.Emit(h.ctx, ActionDispatched,
		KeyAction.Field("navigate"),
		KeyRoute.Field(to.Name),
	)
	h.navigate(to.Name, func(n Navigator) error {
		if to.Presentation == Present {
			return n.Present(h.ctx, to)
		}
		return n.Push(h.ctx, to)
	})
}

func (h router[S, M, C]) NavigateBack() {
	capitan.Emit(h.ctx, ActionDispatched,
		KeyAction.Field("back"),
	)
	h.navigate("", func(n Navigator) error { return n.Pop(h.ctx) })
}

func (h router[S, M, C]) DismissNavigator(then Action[M]) {
	capitan.Emit(h.ctx, ActionDispatched,
		KeyAction.Field("dismiss"),
	)
	h.navigate("", func(n Navigator) error { return n.Dismiss(h.ctx) })
	if then != nil {
		h.r.Dispatch(then)
	}
}

func (h router[S, M, C]) navigate(route string, fn func(Navigator) error) {
	err := ErrNoNavigator
	if h.r.navigator != nil {
		err = fn(h.r.navigator)
	}
	if err != nil {
		capitan.Emit(h.ctx, NavigationFailed,
			KeyRoute.Field(route),
			KeyError.Field(err.Error()),
		)
	}
}

// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

// render draws the view of state: a full render the first time, a patch
// against the previous tree afterwards.
func (r *Runtime[S, M, C]) render(ctx context.Context, state S) {
	if r.view == nil {
		return
	}
	next := r.view(state)
	if r.renderer == nil {
		r.tree = next
		return
	}

	if r.handle == nil {
		h, mb, err := r.renderer.Render(ctx, view.Mount(next))
		if err != nil {
			r.renderFailed(ctx, "render", err)
			return
		}
		r.tree, r.handle = next, h
		r.bind(h, mb)
		return
	}

	// r.tree tracks what the surface shows. It advances only when the
	// patch lands, so a failed Apply is folded into the next patch.
	patch := view.Reconcile(r.tree, next)
	if patch.Empty() {
		r.tree = next
		return
	}
	for _, path := range patch.Removed() {
		r.cache.EvictSubtree(path)
	}

	mb, err := r.renderer.Apply(ctx, patch, r.handle)
	if err != nil {
		r.renderFailed(ctx, "apply", err)
		return
	}
	r.tree = next
	capitan.Emit(ctx, PatchApplied,
		KeyEdits.Field(patch.Len()),
	)
	if mb != nil {
		r.bind(r.handle, mb)
	}
}

func (r *Runtime[S, M, C]) renderFailed(ctx context.Context, stage string, err error) {
	capitan.Emit(ctx, RenderFailed,
		KeyError.Field(fmt.Sprintf("%s: %v", stage, err)),
	)
	if r.metrics != nil {
		r.metrics.OnRenderFailure(stage)
	}
}

// bind forwards the actions emitted through mb into the Runtime,
// replacing any previous binding for h.
func (r *Runtime[S, M, C]) bind(h Handle, mb *Mailbox[Action[M]]) {
	if h == nil || mb == nil {
		return
	}
	l := mb.Subscribe(r.Dispatch)

	r.bmu.Lock()
	prev := r.bindings[h.ID()]
	r.bindings[h.ID()] = l
	r.bmu.Unlock()

	prev.Close()
}

// Unbind releases the binding for the visual tree h, for hosts that tear
// a tree down outside of a render.
func (r *Runtime[S, M, C]) Unbind(h Handle) {
	r.bmu.Lock()
	l, ok := r.bindings[h.ID()]
	delete(r.bindings, h.ID())
	r.bmu.Unlock()
	if ok {
		l.Close()
	}
}

func (r *Runtime[S, M, C]) syncSubscriptions(state S) {
	if r.subs == nil || r.timers == nil {
		return
	}
	r.timers.Sync(r.subs(state), r.Dispatch)
}

// setStatus updates the status and reports the change. Callers hold r.mu.
func (r *Runtime[S, M, C]) setStatus(from, to Status) {
	r.status.Store(int32(to))
	if r.metrics != nil {
		r.metrics.OnStatusChange(from, to)
	}
}
