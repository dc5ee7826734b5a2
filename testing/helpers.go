// Package testing provides test utilities for reflux runtimes, renderers
// and persistence.
package testing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/reflux"
	"github.com/zoobzio/reflux/persist"
	"github.com/zoobzio/reflux/view"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// RequireStatus fails the test immediately if the runtime is not in the expected status.
func RequireStatus[S, M, C any](t *testing.T, r *reflux.Runtime[S, M, C], expected reflux.Status) {
	t.Helper()
	if got := r.Status(); got != expected {
		t.Fatalf("expected status %s, got %s", expected, got)
	}
}

// Handle is a string reflux.Handle.
type Handle string

// ID implements reflux.Handle.
func (h Handle) ID() string { return string(h) }

// RecordingRenderer is a reflux.Renderer that keeps every mount and patch
// it receives. Each Render creates a fresh mailbox.
type RecordingRenderer[M any] struct {
	mu      sync.Mutex
	mounts  []view.Patch
	patches []view.Patch
	mailbox *reflux.Mailbox[reflux.Action[M]]
	err     error
}

// Fail makes later Render and Apply calls return err. A nil err clears it.
func (r *RecordingRenderer[M]) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Render implements reflux.Renderer.
func (r *RecordingRenderer[M]) Render(_ context.Context, mount view.Patch) (reflux.Handle, *reflux.Mailbox[reflux.Action[M]], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, nil, r.err
	}
	r.mounts = append(r.mounts, mount)
	r.mailbox = reflux.NewMailbox[reflux.Action[M]]()
	return Handle("root"), r.mailbox, nil
}

// Apply implements reflux.Renderer.
func (r *RecordingRenderer[M]) Apply(_ context.Context, p view.Patch, _ reflux.Handle) (*reflux.Mailbox[reflux.Action[M]], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.patches = append(r.patches, p)
	return nil, nil
}

// Emit sends a as if the rendered view produced it. It reports false when
// nothing has been rendered yet.
func (r *RecordingRenderer[M]) Emit(a reflux.Action[M]) bool {
	r.mu.Lock()
	mb := r.mailbox
	r.mu.Unlock()
	if mb == nil {
		return false
	}
	mb.Send(a)
	return true
}

// Renders returns the number of full renders.
func (r *RecordingRenderer[M]) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mounts)
}

// Mounts returns a copy of the patches passed to Render.
func (r *RecordingRenderer[M]) Mounts() []view.Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]view.Patch(nil), r.mounts...)
}

// Patches returns a copy of the applied patches.
func (r *RecordingRenderer[M]) Patches() []view.Patch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]view.Patch(nil), r.patches...)
}

// RecordingNavigator is a reflux.Navigator that records each call as
// "push <route>", "present <route>", "pop" or "dismiss".
type RecordingNavigator struct {
	mu    sync.Mutex
	calls []string
}

// Push implements reflux.Navigator.
func (n *RecordingNavigator) Push(_ context.Context, to reflux.Route) error {
	n.record("push " + to.Name)
	return nil
}

// Present implements reflux.Navigator.
func (n *RecordingNavigator) Present(_ context.Context, to reflux.Route) error {
	n.record("present " + to.Name)
	return nil
}

// Pop implements reflux.Navigator.
func (n *RecordingNavigator) Pop(context.Context) error {
	n.record("pop")
	return nil
}

// Dismiss implements reflux.Navigator.
func (n *RecordingNavigator) Dismiss(context.Context) error {
	n.record("dismiss")
	return nil
}

// Calls returns a copy of the recorded calls.
func (n *RecordingNavigator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func (n *RecordingNavigator) record(call string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
}

// ErrInjected is returned by a MemoryStore operation armed with FailNext.
var ErrInjected = errors.New("injected store failure")

// MemoryStore is an in-memory persist.Store.
type MemoryStore struct {
	mu         sync.Mutex
	state      []byte
	journal    []byte
	hasState   bool
	hasJournal bool
	failNext   int
	checkpoint int
	appends    int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailNext makes the next n Checkpoint or Append calls fail with ErrInjected.
func (s *MemoryStore) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Checkpoints returns the number of successful checkpoints.
func (s *MemoryStore) Checkpoints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint
}

// Appends returns the number of successful appends.
func (s *MemoryStore) Appends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

// Checkpoint implements persist.Store.
func (s *MemoryStore) Checkpoint(_ context.Context, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return ErrInjected
	}
	s.state = append([]byte(nil), state...)
	s.journal = nil
	s.hasState, s.hasJournal = true, true
	s.checkpoint++
	return nil
}

// Append implements persist.Store.
func (s *MemoryStore) Append(_ context.Context, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing() {
		return ErrInjected
	}
	s.journal = append(s.journal, record...)
	s.hasJournal = true
	s.appends++
	return nil
}

// LoadCheckpoint implements persist.Store.
func (s *MemoryStore) LoadCheckpoint(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasState {
		return nil, persist.ErrNotFound
	}
	return append([]byte(nil), s.state...), nil
}

// LoadJournal implements persist.Store.
func (s *MemoryStore) LoadJournal(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasJournal {
		return nil, persist.ErrNotFound
	}
	return append([]byte(nil), s.journal...), nil
}

// Clear implements persist.Store.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, s.journal = nil, nil
	s.hasState, s.hasJournal = false, false
	return nil
}

// Close implements persist.Store.
func (*MemoryStore) Close() error { return nil }

func (s *MemoryStore) failing() bool {
	if s.failNext <= 0 {
		return false
	}
	s.failNext--
	return true
}

// TimingRecorder is a reflux.TimingSink that keeps every measurement.
type TimingRecorder struct {
	mu      sync.Mutex
	elapsed []time.Duration
}

// Timing implements reflux.TimingSink.
func (r *TimingRecorder) Timing(_ context.Context, _ any, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elapsed = append(r.elapsed, elapsed)
}

// Elapsed returns a copy of the recorded measurements.
func (r *TimingRecorder) Elapsed() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.elapsed...)
}
