// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package migrate discovers, parses and describes migration units: the
// resource scanner, the migration resolver, the CQL statement parser and
// the checksum function. It has no knowledge of how migrations are
// persisted — that is the ledger package's job.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cassmigrate/version"
)

// MigrationType tags the origin and execution strategy of a migration.
type MigrationType uint8

const (
	// CQL is a migration resolved from a parsed CQL script.
	CQL MigrationType = iota
	// Driver is a migration whose execution is delegated to a compiled
	// unit implementing the Migration interface (the Go analogue of the
	// original JAVA_DRIVER migration type).
	Driver
	// Schema is the internal marker inserted by the Initialize command.
	Schema
	// Baseline is the marker inserted by the Baseline command.
	Baseline
)

// String implements fmt.Stringer.
func (t MigrationType) String() string {
	switch t {
	case CQL:
		return "CQL"
	case Driver:
		return "DRIVER"
	case Schema:
		return "SCHEMA"
	case Baseline:
		return "BASELINE"
	default:
		return "UNKNOWN"
	}
}

// ErrUnknownMigrationType is returned by ParseMigrationType for a string
// that is not one of CQL, DRIVER, SCHEMA or BASELINE.
var ErrUnknownMigrationType = errors.New("migrate: unknown migration type")

// ParseMigrationType is the inverse of MigrationType.String, used by the
// ledger to round-trip the "type" column back into a MigrationType.
func ParseMigrationType(s string) (MigrationType, error) {
	switch s {
	case "CQL":
		return CQL, nil
	case "DRIVER":
		return Driver, nil
	case "SCHEMA":
		return Schema, nil
	case "BASELINE":
		return Baseline, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMigrationType, s)
	}
}

// Session is the minimal capability a migration's Executor needs: execute
// a single CQL statement against the target keyspace. Concrete sessions
// (e.g. the gocql-backed cqlSession in cmd/cassmigrate) satisfy this
// interface alongside their richer, driver-specific API.
type Session interface {
	Exec(ctx context.Context, stmt string) error
}

// Executor runs a migration's body against a live Session, and reports a
// failure reason if execution did not complete.
type Executor interface {
	Execute(ctx context.Context, sess Session) error
}

// ExecutorFunc adapts an ordinary function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sess Session) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, sess Session) error { return f(ctx, sess) }

// Migration is implemented by compiled units that want to be resolved as
// Driver migrations. It is the Go analogue of the original source's
// "code unit claiming to be a migration".
type Migration interface {
	Version() string
	Description() string
	Executor
}

// ChecksumProvider is optionally implemented by a Migration to advertise a
// stable checksum. Units that don't implement it resolve with a nil
// Checksum.
type ChecksumProvider interface {
	Checksum() int32
}

// ResolvedMigration describes a migration discovered by a Resolver,
// before it has (necessarily) been applied.
type ResolvedMigration struct {
	Version          version.Version
	Description      string
	Type             MigrationType
	Script           string // logical name, used in error messages
	Checksum         *int32 // nil for Driver units without a ChecksumProvider and for CQL scripts opting out with "cassmigrate:sum ignore"
	PhysicalLocation string
	Executor         Executor
}

// Identity returns the (version, description, type, checksum) tuple used
// to decide whether two migrations denote the same logical change.
func (m *ResolvedMigration) Identity() (v version.Version, desc string, typ MigrationType, sum *int32) {
	return m.Version, m.Description, m.Type, m.Checksum
}

// AppliedMigration is a row of the ledger: a migration that has been (or
// is in the process of being) applied to the target keyspace.
type AppliedMigration struct {
	VersionRank   int
	InstalledRank int
	Version       version.Version
	Description   string
	Type          MigrationType
	Script        string
	Checksum      *int32
	InstalledOn   time.Time
	InstalledBy   string
	ExecutionTime time.Duration
	Success       bool
}

var (
	// ErrDuplicateVersion is returned by Resolve when two resolved
	// migrations share the same version.
	ErrDuplicateVersion = errors.New("migrate: duplicate version")
	// ErrInvalidMigrationName is returned by Resolve when a resource
	// matches the naming grammar but its version component fails to parse.
	ErrInvalidMigrationName = errors.New("migrate: invalid migration name")
)

// Resolver discovers migration units under its configured locations and
// returns them version-sorted, with unique versions.
type Resolver interface {
	Resolve() ([]*ResolvedMigration, error)
}

// sortAndDedupe sorts ms by version ascending and fails with
// ErrDuplicateVersion if two share a version.
func sortAndDedupe(ms []*ResolvedMigration) ([]*ResolvedMigration, error) {
	sortByVersion(ms)
	for i := 1; i < len(ms); i++ {
		if ms[i-1].Version.Equals(ms[i].Version) {
			return nil, duplicateVersionErr(ms[i].Version)
		}
	}
	return ms, nil
}

func duplicateVersionErr(v version.Version) error {
	return &versionError{err: ErrDuplicateVersion, v: v}
}

type versionError struct {
	err error
	v   version.Version
}

func (e *versionError) Error() string { return e.err.Error() + ": " + e.v.String() }
func (e *versionError) Unwrap() error { return e.err }

func sortByVersion(ms []*ResolvedMigration) {
	sort.Slice(ms, func(i, j int) bool {
		return ms[i].Version.Compare(ms[j].Version) < 0
	})
}
