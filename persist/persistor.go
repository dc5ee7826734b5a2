// Package persist provides a middleware that journals accepted transitions
// to durable storage and restores state from a checkpoint and its journal.
//
// Every accepted message is appended to the journal as a length-prefixed
// record. Every CheckpointInterval messages the full state is written as a
// new checkpoint and the journal is emptied. Restoring deserializes the
// checkpoint and replays the journal through the update function.
//
// Writes run on a dedicated background goroutine in commit order; the
// dispatch path never waits for them and never sees their errors. A write
// failure clears the store so a restart never resumes from a checkpoint
// and journal that disagree.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zoobzio/capitan"

	"github.com/zoobzio/reflux"
)

// DefaultCheckpointInterval is the number of messages between checkpoints.
const DefaultCheckpointInterval = 20

// ErrReplayRejected is reported when a journaled message produces no
// transition during restore.
var ErrReplayRejected = errors.New("replayed message rejected")

// ErrClosed is returned by operations on a closed Persistor.
var ErrClosed = errors.New("persistor closed")

// Persistor is a middleware that persists accepted transitions.
type Persistor[S, M, C any] struct {
	store    Store
	ser      Serializer[S, M]
	interval int
	should   func(state S, msg M, t reflux.Transition[S, C]) bool

	w       *worker
	history *errorHistory
	count   atomic.Int64

	// Owned by the worker goroutine.
	checkpointed bool
}

// New creates a Persistor writing to store with ser.
//
// Options use chainable methods before the Persistor is placed in a chain:
//
//	p := persist.New[State, Msg, Cmd](store, persist.UseCodec[State, Msg](reflux.JSONCodec{})).
//	    CheckpointInterval(50).
//	    ShouldPersist(func(_ State, m Msg, _ reflux.Transition[State, Cmd]) bool {
//	        return !m.Transient()
//	    })
func New[S, M, C any](store Store, ser Serializer[S, M]) *Persistor[S, M, C] {
	return &Persistor[S, M, C]{
		store:    store,
		ser:      ser,
		interval: DefaultCheckpointInterval,
		w:        newWorker(),
		history:  newErrorHistory(0),
	}
}

// CheckpointInterval sets the number of messages between checkpoints.
// Values below 1 keep the default.
func (p *Persistor[S, M, C]) CheckpointInterval(n int) *Persistor[S, M, C] {
	if n >= 1 {
		p.interval = n
	}
	return p
}

// ShouldPersist sets a predicate over the pre-transition state, the message
// and the accepted transition. Transitions it rejects are not written.
func (p *Persistor[S, M, C]) ShouldPersist(fn func(state S, msg M, t reflux.Transition[S, C]) bool) *Persistor[S, M, C] {
	p.should = fn
	return p
}

// ErrorHistorySize sets the number of recent write errors to retain.
func (p *Persistor[S, M, C]) ErrorHistorySize(n int) *Persistor[S, M, C] {
	p.history = newErrorHistory(n)
	return p
}

// Count returns the number of journal entries written since the last
// checkpoint, as of the last completed write.
func (p *Persistor[S, M, C]) Count() int {
	return int(p.count.Load())
}

// LastError returns the most recent write error, or nil.
func (p *Persistor[S, M, C]) LastError() error {
	return p.history.last()
}

// ErrorHistory returns recent write errors, oldest first.
func (p *Persistor[S, M, C]) ErrorHistory() []error {
	return p.history.all()
}

// Call implements reflux.Middleware. The transition from next is returned
// unchanged; when it is accepted and passes ShouldPersist, a write of the
// message and resulting state is queued.
func (p *Persistor[S, M, C]) Call(ctx context.Context, state S, msg M, pending reflux.Maybe[C], next reflux.Handler[S, M, C]) (reflux.Transition[S, C], bool) {
	t, ok := next(ctx, state, msg, pending)
	if !ok {
		return t, ok
	}
	if p.should != nil && !p.should(state, msg, t) {
		return t, ok
	}
	wctx := context.WithoutCancel(ctx)
	pre, post := state, t.State
	p.w.submit(func() { p.write(wctx, pre, post, msg) })
	return t, ok
}

// Flush waits until every write queued before the call has completed.
func (p *Persistor[S, M, C]) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !p.w.submit(func() { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close completes queued writes and stops the background goroutine.
// Transitions seen afterwards are not persisted. The store is left open.
func (p *Persistor[S, M, C]) Close() {
	p.w.close()
}

// Restore reads the checkpoint and replays the journal over it with apply.
// It reports false when the checkpoint or journal is missing or malformed,
// a message does not deserialize, or apply rejects a message; no partial
// state is returned. On success the journal count resumes from the number
// of replayed entries.
//
// Restore runs after any queued writes. If ctx is done before the result
// is handed back, the restored position is discarded and the next write
// seeds a fresh checkpoint, as for any other failed Restore.
func (p *Persistor[S, M, C]) Restore(ctx context.Context, apply func(state S, msg M) (S, bool)) (S, bool) {
	type result struct {
		state S
		ok    bool
	}
	out := make(chan result)
	submitted := p.w.submit(func() {
		s, n, ok := p.restore(ctx, apply)
		if ok {
			p.count.Store(int64(n))
			p.checkpointed = true
		}
		select {
		case out <- result{s, ok}:
			if ok {
				capitan.Emit(ctx, StateRestored,
					KeyCount.Field(n),
				)
			}
		case <-ctx.Done():
			if ok {
				p.count.Store(0)
				p.checkpointed = false
				capitan.Emit(context.WithoutCancel(ctx), RestoreFailed,
					KeyStage.Field("abandoned"),
					KeyError.Field(ctx.Err().Error()),
				)
			}
		}
	})

	var zero S
	if !submitted {
		return zero, false
	}
	select {
	case r := <-out:
		return r.state, r.ok
	case <-ctx.Done():
		return zero, false
	}
}

// Replay adapts an update function for Restore. Commands are discarded.
func Replay[S, M, C any](update reflux.Update[S, M, C]) func(S, M) (S, bool) {
	return func(s S, m M) (S, bool) {
		t, ok := update(s, m)
		return t.State, ok
	}
}

// restore loads the replayed state and the number of journal entries. It
// does not change the journal position.
func (p *Persistor[S, M, C]) restore(ctx context.Context, apply func(S, M) (S, bool)) (S, int, bool) {
	var zero S
	failed := func(stage string, err error) (S, int, bool) {
		capitan.Emit(ctx, RestoreFailed,
			KeyStage.Field(stage),
			KeyError.Field(err.Error()),
		)
		return zero, 0, false
	}

	data, err := p.store.LoadCheckpoint(ctx)
	if err != nil {
		return failed("checkpoint", err)
	}
	state, err := p.ser.DeserializeState(data)
	if err != nil {
		return failed("checkpoint", fmt.Errorf("failed to deserialize state: %w", err))
	}
	journal, err := p.store.LoadJournal(ctx)
	if err != nil {
		return failed("journal", err)
	}
	records, err := Records(journal)
	if err != nil {
		return failed("journal", err)
	}
	for i, rec := range records {
		msg, err := p.ser.DeserializeMessage(rec)
		if err != nil {
			return failed("journal", fmt.Errorf("failed to deserialize message %d: %w", i, err))
		}
		var ok bool
		if state, ok = apply(state, msg); !ok {
			return failed("replay", fmt.Errorf("message %d: %w", i, ErrReplayRejected))
		}
	}

	return state, len(records), true
}

// write persists one accepted transition. The first write without an
// established checkpoint seeds one from pre.
func (p *Persistor[S, M, C]) write(ctx context.Context, pre, post S, msg M) {
	if !p.checkpointed {
		if err := p.checkpoint(ctx, pre); err != nil {
			p.fail(ctx, "checkpoint", err)
			return
		}
		p.checkpointed = true
	}

	if p.count.Load()+1 >= int64(p.interval) {
		if err := p.checkpoint(ctx, post); err != nil {
			p.fail(ctx, "checkpoint", err)
			return
		}
		capitan.Emit(ctx, CheckpointWritten)
		return
	}

	payload, err := p.ser.SerializeMessage(msg)
	if err != nil {
		p.fail(ctx, "serialize", fmt.Errorf("failed to serialize message: %w", err))
		return
	}
	if err := p.store.Append(ctx, Frame(payload)); err != nil {
		p.fail(ctx, "append", err)
		return
	}
	p.count.Add(1)
}

func (p *Persistor[S, M, C]) checkpoint(ctx context.Context, state S) error {
	data, err := p.ser.SerializeState(state)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	if err := p.store.Checkpoint(ctx, data); err != nil {
		return err
	}
	p.count.Store(0)
	return nil
}

// fail clears the store and resets the journal position.
func (p *Persistor[S, M, C]) fail(ctx context.Context, stage string, err error) {
	if cerr := p.store.Clear(ctx); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to clear store: %w", cerr))
	}
	p.count.Store(0)
	p.checkpointed = false
	p.history.push(err)
	capitan.Emit(ctx, WriteFailed,
		KeyStage.Field(stage),
		KeyError.Field(err.Error()),
	)
}
