package persist

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when the checkpoint or the journal
// does not exist.
var ErrNotFound = errors.New("not found")

// Store is durable storage for one checkpoint and the journal of framed
// records written since it.
//
// A Store is used from a single goroutine at a time.
type Store interface {
	// Checkpoint replaces the checkpoint with state and empties the
	// journal. An empty journal exists after a successful Checkpoint.
	Checkpoint(ctx context.Context, state []byte) error

	// Append appends a framed record to the journal.
	Append(ctx context.Context, record []byte) error

	// LoadCheckpoint returns the checkpoint, or ErrNotFound.
	LoadCheckpoint(ctx context.Context) ([]byte, error)

	// LoadJournal returns the raw journal bytes, or ErrNotFound.
	LoadJournal(ctx context.Context) ([]byte, error)

	// Clear deletes the checkpoint and the journal.
	Clear(ctx context.Context) error

	// Close releases the resources held by the store.
	Close() error
}
