// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package command

import (
	"errors"
	"fmt"
)

// ErrBaselineNotAllowed is returned by Baseline when the ledger already
// holds a row above the requested baseline version.
var ErrBaselineNotAllowed = errors.New("command: baseline not allowed")

// ValidationFailedError is returned by Migrate when its pre-apply check
// finds a discrepancy in the merged ledger/resolved view (or an
// out-of-order pending migration it may not apply). Validate reports its
// discrepancy as a plain string instead.
type ValidationFailedError struct{ Detail string }

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("command: validation failed: %s", e.Detail)
}

// MigrationFailedError is returned by Migrate when a migration's executor
// fails; the ledger retains the row with success=false.
type MigrationFailedError struct {
	Version string
	Cause   error
}

func (e *MigrationFailedError) Error() string {
	return fmt.Sprintf("command: migration %s failed: %v", e.Version, e.Cause)
}

func (e *MigrationFailedError) Unwrap() error { return e.Cause }

// ConfigurationError is returned when a Config field is invalid.
type ConfigurationError struct{ Field string }

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("command: invalid configuration: %s", e.Field)
}
