package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// busyRetry backs off exponentially while SQLite reports lock contention
// that outlasted busy_timeout.
type busyRetry struct {
	attempts int
	first    time.Duration
	ceiling  time.Duration
}

var defaultBusyRetry = busyRetry{attempts: 5, first: 10 * time.Millisecond, ceiling: 200 * time.Millisecond}

func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func (r busyRetry) run(ctx context.Context, op func() error) error {
	wait := r.first
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || attempt >= r.attempts || !isBusy(err) {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		wait = min(wait*2, r.ceiling)
	}
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := defaultBusyRetry.run(ctx, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// txWithRetry runs fn in a transaction and replays the whole transaction on
// lock contention.
func (s *Store) txWithRetry(ctx context.Context, fn func(*sql.Tx) error) error {
	return defaultBusyRetry.run(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}
