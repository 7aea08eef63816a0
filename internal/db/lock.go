package db

import (
	"context"

	"github.com/rotisserie/eris"
)

// AdvisoryLocker hands out transaction-scoped Postgres advisory locks. The
// lock lives as long as the transaction that took it, so it is released by
// the release func or by Postgres if the connection dies.
type AdvisoryLocker struct {
	pool Pool
}

func NewAdvisoryLocker(pool Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// TryLock attempts to take the lock for name without waiting.
func (l *AdvisoryLocker) TryLock(ctx context.Context, name string) (func(context.Context) error, bool, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, false, eris.Wrap(err, "lock: begin")
	}

	var acquired bool
	if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock(hashtext($1))", name).Scan(&acquired); err != nil {
		_ = tx.Rollback(ctx)
		return nil, false, eris.Wrapf(err, "lock: try %s", name)
	}
	if !acquired {
		_ = tx.Rollback(ctx)
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		return eris.Wrapf(tx.Rollback(ctx), "lock: release %s", name)
	}
	return release, true, nil
}
