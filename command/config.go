// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package command implements the four engine commands — Initialize,
// Baseline, Migrate, Validate — on top of the migrate, ledger and info
// packages. It is the engine's public entry point.
package command

import (
	"time"

	"cassmigrate/version"
)

// Config is the engine's configuration, assembled once by the caller and
// consumed immutably: no config-file or env loading happens inside the
// core itself.
type Config struct {
	// Target bounds which migrations Migrate will apply. Default LATEST.
	Target version.Version
	// BaselineVersion is the cut-off used by Baseline. Default "1".
	BaselineVersion version.Version
	// BaselineDescription labels the row Baseline inserts.
	BaselineDescription string
	// Encoding is the CQL script encoding. Default "UTF-8".
	Encoding string
	// Locations are the resource roots scanned for CQL migrations.
	// Default ["db/migration"].
	Locations []string
	// Timeout bounds every DAO operation the commands issue and each
	// Driver migration's execution. Default 60s. CQL migration statements
	// are not bounded by it; their per-statement deadline comes from the
	// resolver (see migrate.CQLResolver.Timeout).
	Timeout time.Duration
	// TablePrefix is prepended to the ledger's base table name.
	TablePrefix string
	// AllowOutOfOrder permits applying a version below the current
	// ledger maximum.
	AllowOutOfOrder bool
}

// WithDefaults returns a copy of c with every unset field filled to its
// documented default.
func (c Config) WithDefaults() Config {
	if c.Target.IsZero() {
		c.Target = version.LATEST
	}
	if c.BaselineVersion.IsZero() {
		c.BaselineVersion = version.MustParse("1")
	}
	if c.BaselineDescription == "" {
		c.BaselineDescription = "<< Cassandra Baseline >>"
	}
	if c.Encoding == "" {
		c.Encoding = "UTF-8"
	}
	if len(c.Locations) == 0 {
		c.Locations = []string{"db/migration"}
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}
