// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package ledger

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStoreFailure wraps any driver-level failure surfaced by the DAO.
	ErrStoreFailure = errors.New("ledger: store failure")
	// ErrLockUnavailable is returned by Lock after exhausting its retry
	// budget without winning the advisory lock row.
	ErrLockUnavailable = errors.New("ledger: lock unavailable")
	// ErrStatementTimeout is returned when a DAO operation exceeds its
	// configured per-statement timeout.
	ErrStatementTimeout = errors.New("ledger: statement timeout")
)

func errStoreFailure(cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStatementTimeout, cause)
	}
	return fmt.Errorf("%w: %v", ErrStoreFailure, cause)
}
