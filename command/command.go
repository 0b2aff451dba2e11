// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package command

import (
	"context"
	"fmt"
	"os/user"
	"time"

	"cassmigrate/info"
	"cassmigrate/ledger"
	"cassmigrate/migrate"
	"cassmigrate/version"
)

// Ledger is the narrow slice of *ledger.Ledger the commands depend on, so
// they stay testable with a hand-rolled fake instead of a live cluster.
type Ledger interface {
	CreateTablesIfMissing(ctx context.Context) error
	AllocateInstalledRank(ctx context.Context) (int, error)
	FindAppliedMigrations(ctx context.Context) ([]*migrate.AppliedMigration, error)
	AddAppliedMigration(ctx context.Context, am *migrate.AppliedMigration) error
	MarkSuccess(ctx context.Context, installedRank int, executionTime time.Duration) error
	Lock(ctx context.Context) (ledger.UnlockFunc, error)
}

// schemaAwaiter is optionally implemented by a migrate.Session to support
// waiting for the cluster to agree on schema after DDL.
type schemaAwaiter interface {
	AwaitSchemaAgreement(ctx context.Context) error
}

// withTimeout derives a fresh, per-call deadline from ctx bounded by d, so
// a single slow DAO call can't silently borrow from the budget of the
// calls that follow it in the same command.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Initialize ensures the ledger tables exist and, if the ledger is empty,
// inserts a SCHEMA marker row at version "0". Idempotent.
func Initialize(ctx context.Context, led Ledger) error {
	if err := led.CreateTablesIfMissing(ctx); err != nil {
		return fmt.Errorf("command: initialize: %w", err)
	}
	applied, err := led.FindAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("command: initialize: %w", err)
	}
	if len(applied) > 0 {
		return nil
	}
	rank, err := led.AllocateInstalledRank(ctx)
	if err != nil {
		return fmt.Errorf("command: initialize: %w", err)
	}
	err = led.AddAppliedMigration(ctx, &migrate.AppliedMigration{
		InstalledRank: rank,
		VersionRank:   1,
		Version:       version.MustParse("0"),
		Description:   "<< Cassandra Schema >>",
		Type:          migrate.Schema,
		InstalledOn:   time.Now().UTC(),
		Success:       true,
	})
	if err != nil {
		return fmt.Errorf("command: initialize: %w", err)
	}
	return nil
}

// Baseline inserts a BASELINE row at cfg.BaselineVersion, refusing if the
// ledger already has a row (successful or failed) above that version.
func Baseline(ctx context.Context, led Ledger, cfg Config) error {
	cfg = cfg.WithDefaults()
	findCtx, cancel := withTimeout(ctx, cfg.Timeout)
	applied, err := led.FindAppliedMigrations(findCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("command: baseline: %w", err)
	}
	for _, am := range applied {
		if am.Version.IsNewerThan(cfg.BaselineVersion) {
			return fmt.Errorf("command: baseline: %w", ErrBaselineNotAllowed)
		}
	}
	allocCtx, cancel := withTimeout(ctx, cfg.Timeout)
	rank, err := led.AllocateInstalledRank(allocCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("command: baseline: %w", err)
	}
	addCtx, cancel := withTimeout(ctx, cfg.Timeout)
	err = led.AddAppliedMigration(addCtx, &migrate.AppliedMigration{
		InstalledRank: rank,
		VersionRank:   1,
		Version:       cfg.BaselineVersion,
		Description:   cfg.BaselineDescription,
		Type:          migrate.Baseline,
		InstalledOn:   time.Now().UTC(),
		Success:       true,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("command: baseline: %w", err)
	}
	return nil
}

// Migrate applies every pending migration with version <= cfg.Target, in
// ascending version order.
func Migrate(ctx context.Context, resolver migrate.Resolver, sess migrate.Session, led Ledger, cfg Config, logger Logger) (int, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = NopLogger{}
	}

	lockCtx, cancel := withTimeout(ctx, cfg.Timeout)
	unlock, err := led.Lock(lockCtx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("command: migrate: %w", err)
	}
	logger.Log(LogLock{Acquired: true})
	defer func() {
		unlockCtx, cancel := withTimeout(ctx, cfg.Timeout)
		_ = unlock(unlockCtx)
		cancel()
		logger.Log(LogLock{Acquired: false})
	}()

	svc := &info.Service{Resolver: resolver, Ledger: led, Target: cfg.Target, OutOfOrderAllowed: cfg.AllowOutOfOrder}
	refreshCtx, cancel := withTimeout(ctx, cfg.Timeout)
	err = svc.Refresh(refreshCtx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("command: migrate: %w", err)
	}

	if msg := validateEntries(svc.Entries(), cfg.Target, true); msg != "" {
		err := &ValidationFailedError{Detail: msg}
		logger.Log(LogError{Error: err})
		return 0, fmt.Errorf("command: migrate: %w", err)
	}

	current := svc.Current()
	pending := svc.Pending()
	for _, e := range pending {
		if current != nil && e.Version.Compare(current.Version) < 0 {
			if !cfg.AllowOutOfOrder {
				err := &ValidationFailedError{
					Detail: fmt.Sprintf("Migration version %s is out of order relative to current %s", e.Version, current.Version),
				}
				logger.Log(LogError{Error: err})
				return 0, fmt.Errorf("command: migrate: %w", err)
			}
			logger.Log(LogSkip{Version: e.Version.String(), Reason: "out of order, allowed"})
		}
	}

	applied := 0
	for _, e := range pending {
		logger.Log(LogApply{Version: e.Version.String(), Description: e.Resolved.Description})

		allocCtx, cancel := withTimeout(ctx, cfg.Timeout)
		rank, err := led.AllocateInstalledRank(allocCtx)
		cancel()
		if err != nil {
			return applied, fmt.Errorf("command: migrate: %w", err)
		}
		am := &migrate.AppliedMigration{
			InstalledRank: rank,
			Version:       e.Version,
			Description:   e.Resolved.Description,
			Type:          e.Resolved.Type,
			Script:        e.Resolved.Script,
			Checksum:      e.Resolved.Checksum,
			InstalledOn:   time.Now().UTC(),
			InstalledBy:   installedBy(),
			Success:       false,
		}
		addCtx, cancel := withTimeout(ctx, cfg.Timeout)
		err = led.AddAppliedMigration(addCtx, am)
		cancel()
		if err != nil {
			return applied, fmt.Errorf("command: migrate: %w", err)
		}

		// CQL scripts re-derive their own per-statement deadline inside the
		// Executor (see migrate.CQLResolver.Timeout); only a Driver
		// migration's single opaque call is bounded here.
		start := time.Now()
		var execErr error
		if e.Resolved.Type == migrate.CQL {
			execErr = e.Resolved.Executor.Execute(ctx, sess)
		} else {
			execCtx, cancel := withTimeout(ctx, cfg.Timeout)
			execErr = e.Resolved.Executor.Execute(execCtx, sess)
			cancel()
		}
		executionTime := time.Since(start)
		if execErr != nil {
			err := &MigrationFailedError{Version: e.Version.String(), Cause: execErr}
			logger.Log(LogError{Error: err})
			return applied, fmt.Errorf("command: migrate: %w", err)
		}
		if e.Resolved.Type == migrate.CQL {
			if aw, ok := sess.(schemaAwaiter); ok {
				awaitCtx, cancel := withTimeout(ctx, cfg.Timeout)
				err := aw.AwaitSchemaAgreement(awaitCtx)
				cancel()
				if err != nil {
					err := &MigrationFailedError{Version: e.Version.String(), Cause: err}
					logger.Log(LogError{Error: err})
					return applied, fmt.Errorf("command: migrate: %w", err)
				}
			}
		}

		markCtx, cancel := withTimeout(ctx, cfg.Timeout)
		err = led.MarkSuccess(markCtx, rank, executionTime)
		cancel()
		if err != nil {
			return applied, fmt.Errorf("command: migrate: %w", err)
		}
		applied++
	}

	logger.Log(LogDone{Applied: applied})
	return applied, nil
}

// Validate reports the first discrepancy between resolved and applied
// migrations, or "" if none. pendingOrFuture, when true, tolerates
// resolved-but-not-yet-applied migrations with version <= target.
func Validate(ctx context.Context, resolver migrate.Resolver, led Ledger, cfg Config, pendingOrFuture bool) (string, error) {
	cfg = cfg.WithDefaults()
	svc := &info.Service{Resolver: resolver, Ledger: led, Target: cfg.Target, OutOfOrderAllowed: cfg.AllowOutOfOrder}
	refreshCtx, cancel := withTimeout(ctx, cfg.Timeout)
	err := svc.Refresh(refreshCtx)
	cancel()
	if err != nil {
		return "", fmt.Errorf("command: validate: %w", err)
	}
	return validateEntries(svc.Entries(), cfg.Target, pendingOrFuture), nil
}

// validateEntries implements Validate's four discrepancy checks, in
// priority order, returning the first one found.
func validateEntries(entries []*info.Entry, target version.Version, pendingOrFuture bool) string {
	for _, e := range entries {
		switch {
		case e.Applied != nil && e.Resolved == nil &&
			e.Applied.Type != migrate.Schema && e.Applied.Type != migrate.Baseline:
			return fmt.Sprintf("Detected applied migration not resolved locally: %s", e.Version)
		case e.Resolved != nil && e.Applied == nil:
			if !pendingOrFuture && e.Version.Compare(target) <= 0 {
				return fmt.Sprintf("Detected resolved migration not applied: %s", e.Version)
			}
		case e.Resolved != nil && e.Applied != nil:
			if e.Resolved.Checksum != nil && e.Applied.Checksum != nil && *e.Resolved.Checksum != *e.Applied.Checksum {
				return fmt.Sprintf("Migration checksum mismatch for version %s: applied=%d, resolved=%d",
					e.Version, *e.Applied.Checksum, *e.Resolved.Checksum)
			}
			if e.Resolved.Description != e.Applied.Description {
				return fmt.Sprintf("Migration description mismatch for version %s", e.Version)
			}
			if e.Resolved.Type != e.Applied.Type {
				return fmt.Sprintf("Migration type mismatch for version %s", e.Version)
			}
		}
	}
	return ""
}

// installedBy identifies the caller responsible for a ledger insertion.
// The engine has no notion of an authenticated user, so it records the
// local OS user as a best-effort label, falling back to "cassmigrate" when
// the user can't be resolved (e.g. a stripped-down container image with no
// /etc/passwd entry for the running uid).
func installedBy() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "cassmigrate"
	}
	return u.Username
}
