// Package postgres provides a reflux.Watcher that drains message payloads
// from a PostgreSQL outbox table, woken by LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the outbox table name used when none is configured.
const DefaultTable = "reflux_outbox"

// DefaultBackoff is the pause after a database error before the watcher
// tries again.
const DefaultBackoff = time.Second

// Schema returns the DDL for an outbox table and the trigger that notifies
// channel on every insert.
//
//	CREATE TABLE reflux_outbox (id BIGSERIAL PRIMARY KEY, payload BYTEA NOT NULL);
func Schema(table, channel string) string {
	t := pgx.Identifier{table}.Sanitize()
	fn := pgx.Identifier{table + "_notify"}.Sanitize()
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id      BIGSERIAL PRIMARY KEY,
	payload BYTEA NOT NULL
);

CREATE OR REPLACE FUNCTION %[2]s() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify(%[3]s, '');
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS %[2]s ON %[1]s;
CREATE TRIGGER %[2]s
	AFTER INSERT ON %[1]s
	FOR EACH STATEMENT EXECUTE FUNCTION %[2]s();
`, t, fn, quoteLiteral(channel))
}

// Watcher drains an outbox table. Each row is deleted in the same
// transaction that reads it, committed once the payload is handed off, so
// every payload is delivered to exactly one watcher, in id order.
type Watcher struct {
	pool    *pgxpool.Pool
	channel string
	table   string
	backoff time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithTable sets the outbox table name.
// Defaults to DefaultTable.
func WithTable(table string) Option {
	return func(w *Watcher) {
		w.table = table
	}
}

// Backoff sets the pause after a database error.
// Defaults to DefaultBackoff.
func Backoff(d time.Duration) Option {
	return func(w *Watcher) {
		w.backoff = d
	}
}

// New creates a Watcher woken by notifications on channel.
func New(pool *pgxpool.Pool, channel string, opts ...Option) *Watcher {
	w := &Watcher{
		pool:    pool,
		channel: channel,
		table:   DefaultTable,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch begins listening and returns a channel that emits each payload.
// Rows already in the outbox are emitted first. A lost connection is
// replaced after the backoff.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	conn, err := w.listen(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer func() {
			if conn != nil {
				conn.Release()
			}
		}()

		for {
			if conn == nil {
				if conn, err = w.listen(ctx); err != nil {
					if !w.pause(ctx) {
						return
					}
					continue
				}
			}

			err := w.drain(ctx, conn, out)
			if err == nil {
				_, err = conn.Conn().WaitForNotification(ctx)
			}
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				continue
			}
			if conn.Conn().IsClosed() {
				conn.Release()
				conn = nil
			}
			if !w.pause(ctx) {
				return
			}
		}
	}()

	return out, nil
}

func (w *Watcher) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{w.channel}.Sanitize())
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", w.channel, err)
	}
	return conn, nil
}

// pause waits out the backoff. It reports false when ctx is done first.
func (w *Watcher) pause(ctx context.Context) bool {
	select {
	case <-time.After(w.backoff):
		return true
	case <-ctx.Done():
		return false
	}
}

// drain emits and deletes rows one at a time until the outbox is empty,
// using the listening connection. A row is only deleted once its payload
// has been received; when ctx ends first the row stays in the outbox.
func (w *Watcher) drain(ctx context.Context, conn *pgxpool.Conn, out chan<- []byte) error {
	query := fmt.Sprintf(`
DELETE FROM %[1]s
WHERE id = (SELECT id FROM %[1]s ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED)
RETURNING payload`, pgx.Identifier{w.table}.Sanitize())

	for {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return err
		}
		var payload []byte
		err = tx.QueryRow(ctx, query).Scan(&payload)
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return ctx.Err()
		}
		// The payload is delivered; the delete must land even if ctx ends now.
		if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}
}

func quoteLiteral(s string) string {
	q := []byte{'\''}
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			q = append(q, '\'')
		}
		q = append(q, s[i])
	}
	return string(append(q, '\''))
}
