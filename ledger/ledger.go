// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"cassmigrate/migrate"
	"cassmigrate/version"
)

// Config configures a Ledger.
type Config struct {
	// TablePrefix is prepended to DefaultBaseName (or Base, if set) to form
	// the ledger table's name.
	TablePrefix string
	// Base overrides DefaultBaseName, for deployments needing more than
	// one ledger in the same keyspace.
	Base string
	// Consistency is the gocql consistency level used for all ledger
	// statements. Defaults to gocql.Quorum.
	Consistency gocql.Consistency
	// WaitForSchemaAgreement, if true, blocks after DDL until the cluster
	// reports schema agreement.
	WaitForSchemaAgreement bool
	// Timeout bounds each individual ledger statement. A fresh deadline is
	// derived from it for every query the Ledger issues, so a slow cluster
	// fails one statement at a time instead of the caller's whole ctx.
	// Defaults to 60s.
	Timeout time.Duration
}

// Ledger is the Schema-Version DAO: the durable, insert-once record of
// applied migrations plus the advisory lock row.
type Ledger struct {
	sess                   Session
	prefix                 string
	base                   string
	consistency            gocql.Consistency
	waitForSchemaAgreement bool
	timeout                time.Duration
}

// New constructs a Ledger over sess using cfg.
func New(sess Session, cfg Config) *Ledger {
	base := cfg.Base
	if base == "" {
		base = DefaultBaseName
	}
	consistency := cfg.Consistency
	if consistency == 0 {
		consistency = gocql.Quorum
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Ledger{
		sess:                   sess,
		prefix:                 cfg.TablePrefix,
		base:                   base,
		consistency:            consistency,
		waitForSchemaAgreement: cfg.WaitForSchemaAgreement,
		timeout:                timeout,
	}
}

// withTimeout derives a fresh per-statement deadline from ctx, so a ledger
// call bounds each statement it issues rather than inheriting one shared
// deadline across a multi-statement operation.
func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.timeout)
}

// CreateTablesIfMissing creates the ledger and counter tables, idempotently.
func (l *Ledger) CreateTablesIfMissing(ctx context.Context) error {
	return l.createTablesIfMissing(ctx)
}

// AllocateInstalledRank increments the counter row and returns the new,
// strictly-monotonic installed_rank.
func (l *Ledger) AllocateInstalledRank(ctx context.Context) (int, error) {
	stmt := fmt.Sprintf(`UPDATE %s SET value = value + 1 WHERE name = 'installed_rank'`, l.counts())
	updateCtx, cancel := l.withTimeout(ctx)
	err := l.sess.Query(stmt).WithContext(updateCtx).Consistency(l.consistency).Exec()
	cancel()
	if err != nil {
		return 0, fmt.Errorf("ledger: allocate installed rank: %w", errStoreFailure(err))
	}
	var rank int64
	read := fmt.Sprintf(`SELECT value FROM %s WHERE name = 'installed_rank'`, l.counts())
	readCtx, cancel := l.withTimeout(ctx)
	err = l.sess.Query(read).WithContext(readCtx).Consistency(l.consistency).Scan(&rank)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("ledger: allocate installed rank: %w", errStoreFailure(err))
	}
	return int(rank), nil
}

// FindAppliedMigrations reads every ledger row (excluding the transient
// lock row) and returns them sorted by version ascending, EMPTY/sentinel
// versions first.
func (l *Ledger) FindAppliedMigrations(ctx context.Context) ([]*migrate.AppliedMigration, error) {
	stmt := fmt.Sprintf(`SELECT installed_rank, version_rank, version, description, type, script,
		checksum, installed_on, installed_by, execution_time, success FROM %s`, l.table())
	readCtx, cancel := l.withTimeout(ctx)
	defer cancel()
	iter := l.sess.Query(stmt).WithContext(readCtx).Consistency(l.consistency).Iter()
	var out []*migrate.AppliedMigration
	var (
		installedRank, versionRank, executionTimeMS int
		versionText, description, typeText, script  string
		installedBy                                 string
		checksum                                    *int32
		installedOn                                 time.Time
		success                                     bool
	)
	for iter.Scan(&installedRank, &versionRank, &versionText, &description, &typeText, &script,
		&checksum, &installedOn, &installedBy, &executionTimeMS, &success) {
		if installedRank == 0 {
			continue // the transient lock row
		}
		v, err := version.Parse(versionText)
		if err != nil {
			return nil, fmt.Errorf("ledger: find applied migrations: %w", err)
		}
		typ, err := migrate.ParseMigrationType(typeText)
		if err != nil {
			return nil, fmt.Errorf("ledger: find applied migrations: %w", err)
		}
		out = append(out, &migrate.AppliedMigration{
			VersionRank:   versionRank,
			InstalledRank: installedRank,
			Version:       v,
			Description:   description,
			Type:          typ,
			Script:        script,
			Checksum:      checksum,
			InstalledOn:   installedOn,
			InstalledBy:   installedBy,
			ExecutionTime: time.Duration(executionTimeMS) * time.Millisecond,
			Success:       success,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("ledger: find applied migrations: %w", errStoreFailure(err))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) < 0 })
	return out, nil
}

// HasAppliedMigration reports whether v has a row in the ledger.
func (l *Ledger) HasAppliedMigration(ctx context.Context, v version.Version) (bool, error) {
	applied, err := l.FindAppliedMigrations(ctx)
	if err != nil {
		return false, err
	}
	for _, am := range applied {
		if am.Version.Equals(v) {
			return true, nil
		}
	}
	return false, nil
}

// AddAppliedMigration inserts am (success reflecting its outcome). On
// success, it recomputes the dense version_rank for every successful row:
// 1..n in ascending version order.
func (l *Ledger) AddAppliedMigration(ctx context.Context, am *migrate.AppliedMigration) error {
	var checksum interface{}
	if am.Checksum != nil {
		checksum = *am.Checksum
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (installed_rank, version_rank, version, description, type,
		script, checksum, installed_on, installed_by, execution_time, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, l.table())
	insertCtx, cancel := l.withTimeout(ctx)
	err := l.sess.Query(stmt, am.InstalledRank, am.VersionRank, am.Version.String(), am.Description,
		am.Type.String(), am.Script, checksum, am.InstalledOn, am.InstalledBy,
		int(am.ExecutionTime/time.Millisecond), am.Success).
		WithContext(insertCtx).Consistency(l.consistency).Exec()
	cancel()
	if err != nil {
		return fmt.Errorf("ledger: add applied migration: %w", errStoreFailure(err))
	}
	if am.Success {
		return l.recomputeVersionRanks(ctx)
	}
	return nil
}

// MarkSuccess flips the row at installedRank to success=true with the
// measured executionTime, then recomputes dense version ranks.
func (l *Ledger) MarkSuccess(ctx context.Context, installedRank int, executionTime time.Duration) error {
	stmt := fmt.Sprintf(`UPDATE %s SET success = true, execution_time = ? WHERE installed_rank = ?`, l.table())
	updateCtx, cancel := l.withTimeout(ctx)
	err := l.sess.Query(stmt, int(executionTime/time.Millisecond), installedRank).
		WithContext(updateCtx).Consistency(l.consistency).Exec()
	cancel()
	if err != nil {
		return fmt.Errorf("ledger: mark success: %w", errStoreFailure(err))
	}
	return l.recomputeVersionRanks(ctx)
}

func (l *Ledger) recomputeVersionRanks(ctx context.Context) error {
	applied, err := l.FindAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	successful := applied[:0:0]
	for _, am := range applied {
		if am.Success {
			successful = append(successful, am)
		}
	}
	sort.Slice(successful, func(i, j int) bool { return successful[i].Version.Compare(successful[j].Version) < 0 })
	stmt := fmt.Sprintf(`UPDATE %s SET version_rank = ? WHERE installed_rank = ?`, l.table())
	for i, am := range successful {
		rank := i + 1
		if am.VersionRank == rank {
			continue
		}
		updateCtx, cancel := l.withTimeout(ctx)
		err := l.sess.Query(stmt, rank, am.InstalledRank).WithContext(updateCtx).Consistency(l.consistency).Exec()
		cancel()
		if err != nil {
			return fmt.Errorf("ledger: recompute version ranks: %w", errStoreFailure(err))
		}
	}
	return nil
}
