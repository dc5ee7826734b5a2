package reflux

import "sync"

// Mailbox is a typed, multi-subscriber broadcast channel. Views,
// subscriptions and middleware publish values into it; the Runtime
// subscribes to receive them.
//
// Send delivers synchronously to every listener in subscription order on
// the sender's goroutine. A closed Mailbox drops sends.
type Mailbox[T any] struct {
	mu        sync.RWMutex
	listeners []*Listener
	fns       map[*Listener]func(T)
	closed    bool
}

// Listener is a registration on a Mailbox.
type Listener struct {
	once   sync.Once
	detach func()
}

// Close removes the listener. It is safe to call more than once.
func (l *Listener) Close() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if l.detach != nil {
			l.detach()
		}
	})
}

// NewMailbox creates an empty Mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{fns: make(map[*Listener]func(T))}
}

// Subscribe registers fn to receive every value sent after this call.
func (m *Mailbox[T]) Subscribe(fn func(T)) *Listener {
	l := &Listener{}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return l
	}
	m.fns[l] = fn
	m.listeners = append(m.listeners, l)
	l.detach = func() { m.remove(l) }
	return l
}

// Send delivers v to all current listeners.
func (m *Mailbox[T]) Send(v T) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return
	}
	fns := make([]func(T), 0, len(m.listeners))
	for _, l := range m.listeners {
		fns = append(fns, m.fns[l])
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Forward relays every value sent to m into to.
func (m *Mailbox[T]) Forward(to *Mailbox[T]) *Listener {
	return m.Subscribe(to.Send)
}

// Len returns the number of listeners.
func (m *Mailbox[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listeners)
}

// Close drops all listeners and discards later sends.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.listeners = nil
	m.fns = make(map[*Listener]func(T))
}

func (m *Mailbox[T]) remove(l *Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fns[l]; !ok {
		return
	}
	delete(m.fns, l)
	for i, x := range m.listeners {
		if x == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			break
		}
	}
}

// Relay forwards values from one mailbox into another of a different type,
// converting each value with f. It composes message flow from nested views
// towards the root dispatcher.
func Relay[A, B any](from *Mailbox[A], to *Mailbox[B], f func(A) B) *Listener {
	return from.Subscribe(func(v A) {
		to.Send(f(v))
	})
}
