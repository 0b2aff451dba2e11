// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// UnlockFunc releases the advisory lock row acquired by Lock.
type UnlockFunc func(ctx context.Context) error

// lockVersion and lockInstalledRank identify the distinguished, transient
// lock row: installed_rank = 0, version = '?'.
const (
	lockVersion       = "?"
	lockInstalledRank = 0
	lockDescription   = "lock"
)

// maxLockAttempts bounds the best-effort advisory lock's retry budget: a
// cross-process contender polls with exponential backoff (base 50ms,
// doubling, capped at 2s) up to maxLockAttempts times before giving up.
const maxLockAttempts = 8

// Lock acquires the ledger's advisory lock row via a conditional insert
// ("IF NOT EXISTS"), retrying with bounded exponential backoff on
// contention. It returns ErrLockUnavailable if no attempt wins the row.
func (l *Ledger) Lock(ctx context.Context) (UnlockFunc, error) {
	owner := uuid.NewString()
	delay := 50 * time.Millisecond
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("ledger: acquire lock: %w", ctx.Err())
			case <-time.After(jitter(delay)):
			}
			delay *= 2
			if delay > 2*time.Second {
				delay = 2 * time.Second
			}
		}
		applied, err := l.acquireLock(ctx, owner)
		if err != nil {
			return nil, err
		}
		if applied {
			return func(ctx context.Context) error { return l.releaseLock(ctx) }, nil
		}
	}
	return nil, fmt.Errorf("ledger: acquire lock: %w", ErrLockUnavailable)
}

// acquireLock performs a single conditional-insert attempt and reports
// whether the caller won the lock row.
func (l *Ledger) acquireLock(ctx context.Context, owner string) (bool, error) {
	stmt := fmt.Sprintf(`INSERT INTO %s (installed_rank, version, description, installed_by, installed_on, success)
		VALUES (?, ?, ?, ?, ?, true) IF NOT EXISTS`, l.table())
	var (
		existingRank int
		existingVer  string
	)
	casCtx, cancel := l.withTimeout(ctx)
	applied, err := l.sess.Query(stmt, lockInstalledRank, lockVersion, lockDescription, owner, time.Now().UTC()).
		WithContext(casCtx).Consistency(l.consistency).ScanCAS(&existingRank, &existingVer)
	cancel()
	if err != nil {
		return false, fmt.Errorf("ledger: acquire lock: %w", errStoreFailure(err))
	}
	return applied, nil
}

// releaseLock deletes the lock row. The delete is unconditional: it does
// not check which owner wrote the row.
func (l *Ledger) releaseLock(ctx context.Context) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE installed_rank = ?`, l.table())
	delCtx, cancel := l.withTimeout(ctx)
	err := l.sess.Query(stmt, lockInstalledRank).WithContext(delCtx).Consistency(l.consistency).Exec()
	cancel()
	if err != nil {
		return fmt.Errorf("ledger: release lock: %w", errStoreFailure(err))
	}
	return nil
}

func jitter(d time.Duration) time.Duration {
	return d/2 + time.Duration(rand.Int63n(int64(d/2+1)))
}
