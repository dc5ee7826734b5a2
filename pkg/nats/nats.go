// Package nats provides a reflux.Watcher that reads message payloads from
// a JetStream consumer.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Watcher reads messages from a JetStream consumer. A message is acked once
// it has been handed to the reader of the Watch channel and nacked if the
// watch ends first, so undelivered payloads are redelivered.
type Watcher struct {
	consumer jetstream.Consumer
}

// New creates a Watcher over consumer.
func New(consumer jetstream.Consumer) *Watcher {
	return &Watcher{consumer: consumer}
}

// Watch begins consuming and returns a channel that emits each payload.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	it, err := w.consumer.Messages()
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	out := make(chan []byte)

	go func() {
		<-ctx.Done()
		it.Stop()
	}()

	go func() {
		defer close(out)

		for {
			msg, err := it.Next()
			if err != nil {
				// The iterator is closed on cancellation.
				return
			}
			select {
			case out <- msg.Data():
				_ = msg.Ack()
			case <-ctx.Done():
				_ = msg.Nak()
				return
			}
		}
	}()

	return out, nil
}
