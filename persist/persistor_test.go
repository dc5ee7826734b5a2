package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/zoobzio/reflux"
)

type tally struct {
	Total int   `json:"total"`
	Seen  []int `json:"seen"`
}

type step int

type effect string

func apply(s tally, m step) (reflux.Transition[tally, effect], bool) {
	if m < 0 {
		return reflux.Reject[tally, effect]()
	}
	seen := append(append([]int(nil), s.Seen...), int(m))
	return reflux.Next[tally, effect](tally{Total: s.Total + int(m), Seen: seen})
}

func fold(s tally, msgs ...step) tally {
	for _, m := range msgs {
		t, _ := apply(s, m)
		s = t.State
	}
	return s
}

func steps(from, to int) []step {
	var out []step
	for i := from; i <= to; i++ {
		out = append(out, step(i))
	}
	return out
}

func newPersistor(t *testing.T, store Store) *Persistor[tally, step, effect] {
	t.Helper()
	p := New[tally, step, effect](store, UseCodec[tally, step](reflux.JSONCodec{}))
	t.Cleanup(p.Close)
	return p
}

// drive runs msgs through a chain containing p, starting from initial.
func drive(t *testing.T, p *Persistor[tally, step, effect], initial tally, msgs ...step) tally {
	t.Helper()
	h := reflux.Chain[tally, step, effect](apply, p)
	s := initial
	for _, m := range msgs {
		tr, ok := h(context.Background(), s, m, reflux.None[effect]())
		if ok {
			s = tr.State
		}
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	return s
}

func TestPersistor_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	initial := tally{Total: 100}

	want := drive(t, newPersistor(t, store), initial, steps(1, 19)...)

	// A fresh process restores from the same directory.
	store2, _ := NewFileStore(dir)
	p2 := newPersistor(t, store2)
	got, ok := p2.Restore(context.Background(), Replay[tally, step, effect](apply))
	if !ok {
		t.Fatal("expected restore to succeed")
	}
	if got.Total != want.Total || len(got.Seen) != 19 {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if fold(initial, steps(1, 19)...).Total != got.Total {
		t.Errorf("restored state differs from fold")
	}
	if p2.Count() != 19 {
		t.Errorf("expected count 19 after restore, got %d", p2.Count())
	}
}

func TestPersistor_CheckpointBoundary(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	p := newPersistor(t, store)

	after20 := drive(t, p, tally{}, steps(1, 20)...)

	journal, err := os.ReadFile(filepath.Join(dir, MessagesFile))
	if err != nil {
		t.Fatalf("failed to read journal: %v", err)
	}
	if len(journal) != 0 {
		t.Errorf("expected empty journal after 20 messages, got %d bytes", len(journal))
	}
	if p.Count() != 0 {
		t.Errorf("expected count 0, got %d", p.Count())
	}

	data, _ := os.ReadFile(filepath.Join(dir, StateFile))
	var cp tally
	if err := (reflux.JSONCodec{}).Unmarshal(data, &cp); err != nil {
		t.Fatalf("failed to decode checkpoint: %v", err)
	}
	if cp.Total != after20.Total {
		t.Errorf("expected checkpoint of state after message 20 (%d), got %d", after20.Total, cp.Total)
	}

	drive(t, p, after20, 21)
	if p.Count() != 1 {
		t.Errorf("expected 21st message to start count at 1, got %d", p.Count())
	}
	journal, _ = os.ReadFile(filepath.Join(dir, MessagesFile))
	records, err := Records(journal)
	if err != nil || len(records) != 1 {
		t.Errorf("expected 1 record, got %d (%v)", len(records), err)
	}
}

func TestPersistor_CountStaysBelowInterval(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	p := newPersistor(t, store).CheckpointInterval(5)
	h := reflux.Chain[tally, step, effect](apply, p)

	s := tally{}
	for i := 1; i <= 23; i++ {
		tr, _ := h(context.Background(), s, step(i), reflux.None[effect]())
		s = tr.State
		_ = p.Flush(context.Background())
		if p.Count() >= 5 {
			t.Fatalf("count %d reached interval after message %d", p.Count(), i)
		}
	}
	if p.Count() != 23%5 {
		t.Errorf("expected count %d, got %d", 23%5, p.Count())
	}
}

func TestPersistor_RejectedTransitionNotWritten(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	p := newPersistor(t, store)

	drive(t, p, tally{}, -1, -2)

	if _, err := os.Stat(filepath.Join(dir, StateFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no checkpoint, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, MessagesFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no journal, got %v", err)
	}
}

func TestPersistor_ShouldPersist(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	p := newPersistor(t, store).ShouldPersist(func(_ tally, m step, _ reflux.Transition[tally, effect]) bool {
		return m%2 == 0
	})

	drive(t, p, tally{}, 1, 2, 3, 4)
	if p.Count() != 2 {
		t.Errorf("expected 2 journaled messages, got %d", p.Count())
	}
}

// failingStore fails Append after a number of successful calls.
type failingStore struct {
	Store
	mu      sync.Mutex
	okCalls int
	cleared bool
}

func (s *failingStore) Append(ctx context.Context, rec []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.okCalls == 0 {
		return errors.New("disk full")
	}
	s.okCalls--
	return s.Store.Append(ctx, rec)
}

func (s *failingStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cleared = true
	s.mu.Unlock()
	return s.Store.Clear(ctx)
}

func TestPersistor_WriteFailureClearsStore(t *testing.T) {
	dir := t.TempDir()
	inner, _ := NewFileStore(dir)
	store := &failingStore{Store: inner, okCalls: 2}
	p := newPersistor(t, store).ErrorHistorySize(4)

	final := drive(t, p, tally{}, 1, 2, 3)

	if final.Total != 6 {
		t.Errorf("expected dispatch unaffected, got %d", final.Total)
	}
	if !store.cleared {
		t.Error("expected store cleared")
	}
	if p.Count() != 0 {
		t.Errorf("expected count reset, got %d", p.Count())
	}
	if p.LastError() == nil || len(p.ErrorHistory()) != 1 {
		t.Errorf("expected one recorded error, got %v", p.ErrorHistory())
	}
	if _, err := os.Stat(filepath.Join(dir, StateFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected checkpoint removed, got %v", err)
	}

	// The next write seeds a fresh checkpoint.
	store.okCalls = 1
	drive(t, p, final, 4)
	restored, ok := newPersistor(t, inner).Restore(context.Background(), Replay[tally, step, effect](apply))
	if !ok || restored.Total != 10 {
		t.Errorf("expected restore to 10 after recovery, got %+v %v", restored, ok)
	}
}

func TestPersistor_RestoreFailures(t *testing.T) {
	codec := reflux.JSONCodec{}
	state, _ := codec.Marshal(tally{Total: 1})
	good, _ := codec.Marshal(step(2))

	cases := []struct {
		name    string
		state   []byte
		journal []byte
		noState bool
		noJrnl  bool
	}{
		{name: "missing checkpoint", noState: true, journal: []byte{}},
		{name: "missing journal", state: state, noJrnl: true},
		{name: "malformed checkpoint", state: []byte("{"), journal: []byte{}},
		{name: "truncated header", state: state, journal: []byte{1, 2, 3}},
		{name: "truncated payload", state: state, journal: Frame([]byte("22"))[:headerSize+1]},
		{name: "undecodable message", state: state, journal: Frame([]byte("nope"))},
		{name: "rejected replay", state: state, journal: append(Frame(good), Frame([]byte("-1"))...)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir := t.TempDir()
			if !c.noState {
				os.WriteFile(filepath.Join(dir, StateFile), c.state, 0o600)
			}
			if !c.noJrnl {
				os.WriteFile(filepath.Join(dir, MessagesFile), c.journal, 0o600)
			}
			store, _ := NewFileStore(dir)
			p := newPersistor(t, store)

			got, ok := p.Restore(context.Background(), Replay[tally, step, effect](apply))
			if ok {
				t.Errorf("expected restore to fail, got %+v", got)
			}
			if got.Total != 0 || got.Seen != nil {
				t.Errorf("expected zero state, got %+v", got)
			}
		})
	}
}

func TestPersistor_RestoreEmptyJournal(t *testing.T) {
	dir := t.TempDir()
	state, _ := reflux.JSONCodec{}.Marshal(tally{Total: 7})
	os.WriteFile(filepath.Join(dir, StateFile), state, 0o600)
	os.WriteFile(filepath.Join(dir, MessagesFile), nil, 0o600)

	store, _ := NewFileStore(dir)
	got, ok := newPersistor(t, store).Restore(context.Background(), Replay[tally, step, effect](apply))
	if !ok || got.Total != 7 {
		t.Errorf("expected checkpoint state, got %+v %v", got, ok)
	}
}

// blockingStore holds every Append until release is closed.
type blockingStore struct {
	Store
	release chan struct{}
}

func (s *blockingStore) Append(ctx context.Context, rec []byte) error {
	<-s.release
	return s.Store.Append(ctx, rec)
}

func TestPersistor_TimingExcludesIO(t *testing.T) {
	inner, _ := NewFileStore(t.TempDir())
	store := &blockingStore{Store: inner, release: make(chan struct{})}
	p := newPersistor(t, store)

	clock := clockz.NewFakeClock()
	var elapsed []time.Duration
	logger := reflux.NewTimeLogger[tally, step, effect]().
		Clock(clock).
		Sink(reflux.TimingSinkFunc(func(_ context.Context, _ any, d time.Duration) {
			elapsed = append(elapsed, d)
		}))

	h := reflux.Chain[tally, step, effect](apply, logger, p)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h(context.Background(), tally{}, 1, reflux.None[effect]())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch waited for persistence I/O")
	}
	if len(elapsed) != 1 {
		t.Fatalf("expected one timing, got %d", len(elapsed))
	}

	close(store.release)
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if p.Count() != 1 {
		t.Errorf("expected write to complete after release, got count %d", p.Count())
	}
}

// gatedStore holds LoadJournal until release is closed.
type gatedStore struct {
	Store
	release chan struct{}
}

func (s *gatedStore) LoadJournal(ctx context.Context) ([]byte, error) {
	<-s.release
	return s.Store.LoadJournal(ctx)
}

func TestPersistor_AbandonedRestoreReseeds(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	previous := newPersistor(t, store)
	drive(t, previous, tally{Total: 1000}, steps(1, 5)...)
	previous.Close()

	gated := &gatedStore{Store: store, release: make(chan struct{})}
	p := newPersistor(t, gated)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := p.Restore(ctx, Replay[tally, step, effect](apply)); ok {
		t.Fatal("expected restore to give up at the deadline")
	}
	close(gated.release)

	// The host falls back to a fresh state.
	live := drive(t, p, tally{}, 7, 8)
	p.Close()

	got, ok := newPersistor(t, store).Restore(context.Background(), Replay[tally, step, effect](apply))
	if !ok {
		t.Fatal("expected restore to succeed")
	}
	if got.Total != live.Total || len(got.Seen) != 2 {
		t.Errorf("expected %+v, got %+v", live, got)
	}
}

func TestPersistor_FlushAfterClose(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	p := New[tally, step, effect](store, UseCodec[tally, step](reflux.JSONCodec{}))
	drive(t, p, tally{}, 1)
	p.Close()

	if err := p.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, ok := p.Restore(context.Background(), Replay[tally, step, effect](apply)); ok {
		t.Error("expected restore on closed persistor to fail")
	}
}

func TestPersistor_CloseCompletesQueuedWrites(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)
	p := New[tally, step, effect](store, UseCodec[tally, step](reflux.JSONCodec{}))
	h := reflux.Chain[tally, step, effect](apply, p)

	s := tally{}
	for _, m := range steps(1, 5) {
		tr, _ := h(context.Background(), s, m, reflux.None[effect]())
		s = tr.State
	}
	p.Close()

	journal, _ := os.ReadFile(filepath.Join(dir, MessagesFile))
	records, err := Records(journal)
	if err != nil || len(records) != 5 {
		t.Errorf("expected 5 records after close, got %d (%v)", len(records), err)
	}
}
