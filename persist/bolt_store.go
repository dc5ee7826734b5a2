package persist

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketState   = "state"
	bucketJournal = "journal"
	keyCheckpoint = "checkpoint"
)

// BoltStore keeps the checkpoint and the journal in a bbolt database. A
// checkpoint and its journal truncation commit in one transaction. Journal
// records are stored one per key under increasing sequence numbers.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketState))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize bolt store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Checkpoint implements Store.
func (s *BoltStore) Checkpoint(_ context.Context, state []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(bucketState)).Put([]byte(keyCheckpoint), state); err != nil {
			return err
		}
		if tx.Bucket([]byte(bucketJournal)) != nil {
			if err := tx.DeleteBucket([]byte(bucketJournal)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(bucketJournal))
		return err
	})
}

// Append implements Store.
func (s *BoltStore) Append(_ context.Context, record []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketJournal))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), record)
	})
}

// LoadCheckpoint implements Store.
func (s *BoltStore) LoadCheckpoint(_ context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketState)).Get([]byte(keyCheckpoint))
		if v == nil {
			return fmt.Errorf("checkpoint: %w", ErrNotFound)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// LoadJournal implements Store. Records are concatenated in sequence order.
func (s *BoltStore) LoadJournal(_ context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketJournal))
		if b == nil {
			return fmt.Errorf("journal: %w", ErrNotFound)
		}
		data = []byte{}
		return b.ForEach(func(_, v []byte) error {
			data = append(data, v...)
			return nil
		})
	})
	return data, err
}

// Clear implements Store.
func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(bucketState)).Delete([]byte(keyCheckpoint)); err != nil {
			return err
		}
		if tx.Bucket([]byte(bucketJournal)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(bucketJournal))
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

var _ Store = (*BoltStore)(nil)
