// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package ledger

import (
	"context"
	"fmt"
)

// DefaultBaseName is the ledger table's base name, combined with a
// caller-supplied prefix to form the table actually created: tablePrefix +
// baseName.
const DefaultBaseName = "cassandra_migration_version"

func (l *Ledger) table() string  { return l.prefix + l.base }
func (l *Ledger) counts() string { return l.prefix + l.base + "_counts" }

// createTablesIfMissing creates the ledger and counter tables, and the
// secondary index on version_rank that supports ordered reads. It is
// idempotent: CQL "IF NOT EXISTS" makes repeated calls no-ops.
func (l *Ledger) createTablesIfMissing(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			installed_rank  int PRIMARY KEY,
			version_rank    int,
			version         text,
			description     text,
			type            text,
			script          text,
			checksum        int,
			installed_on    timestamp,
			installed_by    text,
			execution_time  int,
			success         boolean
		)`, l.table()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ON %s (version_rank)`, l.table()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			name  text PRIMARY KEY,
			value counter
		)`, l.counts()),
	}
	for _, stmt := range stmts {
		stmtCtx, cancel := l.withTimeout(ctx)
		err := l.sess.Query(stmt).WithContext(stmtCtx).Consistency(l.consistency).Exec()
		cancel()
		if err != nil {
			return fmt.Errorf("ledger: create tables: %w", errStoreFailure(err))
		}
	}
	if l.waitForSchemaAgreement {
		agreeCtx, cancel := l.withTimeout(ctx)
		err := l.sess.AwaitSchemaAgreement(agreeCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ledger: await schema agreement: %w", errStoreFailure(err))
		}
	}
	return nil
}
