package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// exerciseStore checks the Store contract against a fresh, empty store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.LoadCheckpoint(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for checkpoint, got %v", err)
	}
	if _, err := s.LoadJournal(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for journal, got %v", err)
	}

	if err := s.Checkpoint(ctx, []byte("s1")); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	journal, err := s.LoadJournal(ctx)
	if err != nil || len(journal) != 0 {
		t.Fatalf("expected empty journal after checkpoint, got %q %v", journal, err)
	}

	for _, rec := range []string{"m1", "m2"} {
		if err := s.Append(ctx, Frame([]byte(rec))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	journal, _ = s.LoadJournal(ctx)
	want := append(Frame([]byte("m1")), Frame([]byte("m2"))...)
	if diff := cmp.Diff(want, journal); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}

	if err := s.Checkpoint(ctx, []byte("s2")); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	state, _ := s.LoadCheckpoint(ctx)
	journal, _ = s.LoadJournal(ctx)
	if string(state) != "s2" || len(journal) != 0 {
		t.Errorf("expected s2 with empty journal, got %q and %d bytes", state, len(journal))
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := s.LoadCheckpoint(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected checkpoint cleared, got %v", err)
	}
	if _, err := s.LoadJournal(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected journal cleared, got %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Errorf("expected Clear on empty store to succeed, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "app"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	exerciseStore(t, s)
}

func TestBoltStore(t *testing.T) {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "reflux.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reflux.db")
	ctx := context.Background()

	s, _ := NewBoltStore(path)
	_ = s.Checkpoint(ctx, []byte("state"))
	_ = s.Append(ctx, Frame([]byte("m")))
	s.Close()

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	defer s.Close()
	journal, _ := s.LoadJournal(ctx)
	records, err := Records(journal)
	if err != nil || len(records) != 1 || string(records[0]) != "m" {
		t.Errorf("expected journal to survive reopen, got %q %v", records, err)
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStore(StoreConfig{Backend: BackendFile, Dir: dir})
	if err != nil {
		t.Fatalf("OpenStore(file) error = %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", s)
	}

	s, err = OpenStore(StoreConfig{Backend: BackendBolt, Path: filepath.Join(dir, "db")})
	if err != nil {
		t.Fatalf("OpenStore(bolt) error = %v", err)
	}
	if _, ok := s.(*BoltStore); !ok {
		t.Errorf("expected *BoltStore, got %T", s)
	}
	s.Close()

	s, err = OpenStore(StoreConfig{Backend: BackendRedis, Addr: "localhost:0"})
	if err != nil {
		t.Fatalf("OpenStore(redis) error = %v", err)
	}
	if rs, ok := s.(*RedisStore); !ok || rs.prefix != "reflux" {
		t.Errorf("expected *RedisStore with default prefix, got %T", s)
	}
	s.Close()

	if _, err := OpenStore(StoreConfig{Backend: "tape"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
