package reflux

import (
	"context"
	"errors"
	"sync"
)

// ErrFeedWatched is returned when a Feed is watched more than once.
var ErrFeedWatched = errors.New("feed already watched")

// Watcher observes an external source and emits raw payloads on a channel.
// The Runtime decodes each payload into an Action (see Runtime.Watch).
type Watcher interface {
	// Watch begins observing the source and returns a channel that emits
	// raw bytes when the source produces a value. The channel is closed
	// when the context is canceled or an unrecoverable error occurs.
	Watch(ctx context.Context) (<-chan []byte, error)
}

// Feed is a Watcher that the host pushes payloads into. It suits sources
// that already run their own loop, such as a socket reader or a test.
type Feed struct {
	ch   chan []byte
	done chan struct{}

	mu      sync.Mutex
	watched bool
	closed  bool
}

// NewFeed creates a Feed buffering up to size payloads.
func NewFeed(size int) *Feed {
	if size < 0 {
		size = 0
	}
	return &Feed{ch: make(chan []byte, size), done: make(chan struct{})}
}

// Push delivers a payload to the watcher. It blocks while the buffer is
// full and reports false once the Feed is closed or ctx is done.
func (f *Feed) Push(ctx context.Context, data []byte) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	select {
	case f.ch <- data:
		return true
	case <-f.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close ends the feed. The watch channel closes after buffered payloads
// have been received.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
}

// Watch implements Watcher. A Feed can be watched once.
func (f *Feed) Watch(ctx context.Context) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watched {
		return nil, ErrFeedWatched
	}
	f.watched = true

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			var v []byte
			select {
			case <-ctx.Done():
				return
			case v = <-f.ch:
			case <-f.done:
				for {
					select {
					case v = <-f.ch:
						if !send(ctx, out, v) {
							return
						}
					default:
						return
					}
				}
			}
			if !send(ctx, out, v) {
				return
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- []byte, v []byte) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
