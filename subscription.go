package reflux

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Unit is the unit of a timer subscription's interval value.
type Unit int

const (
	// Milliseconds interprets Value as thousandths of a second.
	Milliseconds Unit = iota
	// Seconds interprets Value as seconds.
	Seconds
	// Minutes interprets Value as minutes.
	Minutes
)

// String returns the string representation of the unit.
func (u Unit) String() string {
	switch u {
	case Milliseconds:
		return "milliseconds"
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	default:
		return "unknown"
	}
}

// Repeat is the repeat policy of a timer subscription.
// The zero value repeats forever.
type Repeat struct {
	times int
}

// Forever repeats until the subscription is removed.
func Forever() Repeat { return Repeat{} }

// Times fires exactly n times. n <= 0 means forever.
func Times(n int) Repeat {
	if n < 0 {
		n = 0
	}
	return Repeat{times: n}
}

// Limit returns the number of fires allowed and whether there is a limit.
func (r Repeat) Limit() (int, bool) {
	return r.times, r.times > 0
}

// Subscription declares a recurring time-based message source.
//
// Two subscriptions are equal when Value, Unit, Repeat and Tag are equal;
// Transform does not take part in equality.
type Subscription[M any] struct {
	Value     float64
	Unit      Unit
	Repeat    Repeat
	Tag       string
	Transform func(time.Time) Action[M]
}

// Every declares a subscription firing forever at the given interval.
func Every[M any](value float64, unit Unit, transform func(time.Time) Action[M]) Subscription[M] {
	return Subscription[M]{Value: value, Unit: unit, Repeat: Forever(), Transform: transform}
}

// Only declares a subscription firing exactly times times at the given interval.
func Only[M any](times int, value float64, unit Unit, transform func(time.Time) Action[M]) Subscription[M] {
	return Subscription[M]{Value: value, Unit: unit, Repeat: Times(times), Transform: transform}
}

// Tagged returns a copy of s with tag set.
func (s Subscription[M]) Tagged(tag string) Subscription[M] {
	s.Tag = tag
	return s
}

// Interval returns the firing interval.
func (s Subscription[M]) Interval() time.Duration {
	return time.Duration(s.seconds() * float64(time.Second))
}

func (s Subscription[M]) seconds() float64 {
	switch s.Unit {
	case Milliseconds:
		return s.Value / 1000
	case Minutes:
		return s.Value * 60
	default:
		return s.Value
	}
}

// Equal reports structural equality.
func (s Subscription[M]) Equal(o Subscription[M]) bool {
	return s.key() == o.key()
}

// subscriptionKey is the comparable identity of a Subscription.
type subscriptionKey struct {
	value  float64
	unit   Unit
	repeat Repeat
	tag    string
}

func (s Subscription[M]) key() subscriptionKey {
	return subscriptionKey{value: s.Value, unit: s.Unit, repeat: s.Repeat, tag: s.Tag}
}

// activeTimer pairs a live ticker with its subscription and fired-count.
// The ticker repeats until stopped; the repeat budget is enforced on fire.
type activeTimer[M any] struct {
	id        string
	sub       Subscription[M]
	ticker    clockz.Ticker
	stop      chan struct{}
	fired     int
	exhausted bool
	cancelled bool
}

// Manager owns the registry of active timer subscriptions.
//
// A subscription whose repeat budget is exhausted stops its timer but keeps
// its registry entry until Remove is called, so an equal subscription added
// in the meantime stays a no-op.
//
// Dispatch is called on the goroutine that observes the timer; the Manager
// guards its registry with a mutex and provides no other threading.
type Manager[M any] struct {
	clock clockz.Clock

	mu     sync.Mutex
	timers map[string]*activeTimer[M]
	index  map[subscriptionKey]string
	closed bool
}

// NewManager creates a Manager reading time from clock.
// A nil clock uses clockz.RealClock.
func NewManager[M any](clock clockz.Clock) *Manager[M] {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Manager[M]{
		clock:  clock,
		timers: make(map[string]*activeTimer[M]),
		index:  make(map[subscriptionKey]string),
	}
}

// Add activates sub, dispatching its transformed action on every fire.
// Adding a subscription equal to an active one does nothing.
func (m *Manager[M]) Add(sub Subscription[M], dispatch func(Action[M])) {
	interval := sub.Interval()
	if interval <= 0 || sub.Transform == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	k := sub.key()
	if _, ok := m.index[k]; ok {
		return
	}

	a := &activeTimer[M]{
		id:     uuid.NewString(),
		sub:    sub,
		ticker: m.clock.NewTicker(interval),
		stop:   make(chan struct{}),
	}
	m.timers[a.id] = a
	m.index[k] = a.id

	capitan.Emit(context.Background(), TimerStarted,
		KeyTag.Field(sub.Tag),
		KeyInterval.Field(interval),
	)

	go m.run(a, dispatch)
}

// Remove cancels the active subscription equal to sub and evicts it.
func (m *Manager[M]) Remove(sub Subscription[M]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.index[sub.key()]
	if !ok {
		return
	}
	m.evict(id)
	capitan.Emit(context.Background(), TimerRemoved,
		KeyTag.Field(sub.Tag),
	)
}

// Sync makes the set of registered subscriptions equal to subs: missing
// ones are added, registered ones absent from subs are removed.
func (m *Manager[M]) Sync(subs []Subscription[M], dispatch func(Action[M])) {
	want := make(map[subscriptionKey]struct{}, len(subs))
	for _, s := range subs {
		want[s.key()] = struct{}{}
	}

	m.mu.Lock()
	var stale []Subscription[M]
	for k, id := range m.index {
		if _, ok := want[k]; !ok {
			stale = append(stale, m.timers[id].sub)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.Remove(s)
	}
	for _, s := range subs {
		m.Add(s, dispatch)
	}
}

// Len returns the number of registered subscriptions, exhausted ones included.
func (m *Manager[M]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Fired returns how many times the subscription equal to sub has fired and
// whether it is registered.
func (m *Manager[M]) Fired(sub Subscription[M]) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.index[sub.key()]
	if !ok {
		return 0, false
	}
	return m.timers[id].fired, true
}

// Exhausted reports whether the subscription equal to sub has used up its
// repeat budget.
func (m *Manager[M]) Exhausted(sub Subscription[M]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.index[sub.key()]
	if !ok {
		return false
	}
	return m.timers[id].exhausted
}

// Close cancels every subscription. Later calls to Add do nothing.
func (m *Manager[M]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.timers {
		m.evict(id)
	}
	m.closed = true
}

// evict cancels and unregisters a timer. Callers hold m.mu.
func (m *Manager[M]) evict(id string) {
	a, ok := m.timers[id]
	if !ok {
		return
	}
	if !a.cancelled {
		a.cancelled = true
		a.ticker.Stop()
		close(a.stop)
	}
	delete(m.timers, id)
	delete(m.index, a.sub.key())
}

// run waits on the timer of a and handles each fire until a is cancelled
// or exhausted.
func (m *Manager[M]) run(a *activeTimer[M], dispatch func(Action[M])) {
	for {
		select {
		case <-a.stop:
			return
		case <-a.ticker.C():
		}

		now, fired, done, ok := m.fire(a)
		if !ok {
			return
		}

		capitan.Emit(context.Background(), TimerFired,
			KeyTag.Field(a.sub.Tag),
			KeyFired.Field(fired),
		)
		dispatch(a.sub.Transform(now))

		if done {
			capitan.Emit(context.Background(), TimerExhausted,
				KeyTag.Field(a.sub.Tag),
				KeyFired.Field(fired),
			)
			return
		}
	}
}

// fire records one fire of a. When the repeat budget is spent the ticker
// is stopped and the registry entry is left in place. ok is false when a
// was cancelled first.
func (m *Manager[M]) fire(a *activeTimer[M]) (now time.Time, fired int, done bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.cancelled {
		return time.Time{}, 0, false, false
	}
	a.fired++
	if limit, limited := a.sub.Repeat.Limit(); limited && a.fired >= limit {
		a.exhausted = true
		a.cancelled = true
		a.ticker.Stop()
		close(a.stop)
		done = true
	}
	return m.clock.Now(), a.fired, done, true
}
