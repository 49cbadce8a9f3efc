// Package txn provides the shared transactional primitive for the backend:
// an optimistic read-modify-write executed inside a database transaction,
// retried from scratch a bounded number of times when the store reports a
// write conflict. Both the achievement trigger and the sliding-window rate
// limiter run on this primitive, so no caller performs an unguarded
// read-then-write sequence against shared state.
package txn

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// MaxAttempts bounds how many times Run re-executes fn on conflict before
// surfacing the error to the caller.
const MaxAttempts = 5

// Run executes fn inside a transaction on db. When the commit (or any
// statement inside it) fails with a conflict, meaning a concurrent writer
// held or took the lock or the snapshot became stale, the whole transaction
// is re-run from the beginning so fn always observes a fresh read.
//
// fn must be safe to invoke multiple times: all decisions have to derive
// from state read inside the current attempt. Non-conflict errors are
// returned immediately and abort the transaction.
func Run(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !IsConflict(err) {
			return err
		}
	}
	return err
}

// IsConflict reports whether err is a transient write conflict worth
// retrying. GORM surfaces driver errors as plain text, so detection is by
// message: SQLite lock/busy/snapshot states and Postgres serialization or
// deadlock failures (SQLSTATE 40001/40P01).
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "snapshot"),
		strings.Contains(msg, "serialization failure"),
		strings.Contains(msg, "could not serialize access"),
		strings.Contains(msg, "deadlock detected"),
		strings.Contains(msg, "40001"),
		strings.Contains(msg, "40p01"):
		return true
	}
	return false
}
