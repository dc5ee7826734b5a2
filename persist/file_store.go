package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names used by FileStore.
const (
	StateFile    = "state.bin"
	MessagesFile = "messages.bin"
)

// FileStore keeps the checkpoint in state.bin and the journal in
// messages.bin inside an application-private directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore in dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the store files.
func (s *FileStore) Dir() string { return s.dir }

// Checkpoint atomically replaces state.bin and truncates messages.bin.
func (s *FileStore) Checkpoint(_ context.Context, state []byte) error {
	tmp, err := os.CreateTemp(s.dir, StateFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(state); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(StateFile)); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	if err := os.WriteFile(s.path(MessagesFile), nil, 0o600); err != nil {
		return fmt.Errorf("failed to truncate journal: %w", err)
	}
	return nil
}

// Append appends record to messages.bin.
func (s *FileStore) Append(_ context.Context, record []byte) error {
	f, err := os.OpenFile(s.path(MessagesFile), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	if _, err := f.Write(record); err != nil {
		f.Close()
		return fmt.Errorf("failed to append journal: %w", err)
	}
	return f.Close()
}

// LoadCheckpoint reads state.bin.
func (s *FileStore) LoadCheckpoint(_ context.Context) ([]byte, error) {
	return s.read(StateFile)
}

// LoadJournal reads messages.bin.
func (s *FileStore) LoadJournal(_ context.Context) ([]byte, error) {
	return s.read(MessagesFile)
}

// Clear removes both files.
func (s *FileStore) Clear(_ context.Context) error {
	var errs []error
	for _, name := range []string{StateFile, MessagesFile} {
		if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Store. FileStore holds no open handles.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

var _ Store = (*FileStore)(nil)
