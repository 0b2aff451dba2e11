// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package info implements the Migration Info Service: it merges resolved
// migration units with the ledger's applied rows into a single,
// version-sorted, state-annotated view.
package info

import (
	"context"
	"fmt"
	"sort"

	"cassmigrate/migrate"
	"cassmigrate/version"
)

// State classifies one merged (resolved, applied) pair.
type State string

const (
	Pending        State = "PENDING"
	AboveTarget    State = "ABOVE_TARGET"
	Success        State = "SUCCESS"
	OutOfOrder     State = "OUT_OF_ORDER"
	Ignored        State = "IGNORED"
	Failed         State = "FAILED"
	MissingSuccess State = "MISSING_SUCCESS"
	MissingFailed  State = "MISSING_FAILED"
	Baseline       State = "BASELINE"
)

// Entry is one row of the merged, state-annotated view.
type Entry struct {
	Version  version.Version
	Resolved *migrate.ResolvedMigration
	Applied  *migrate.AppliedMigration
	State    State
}

// AppliedReader is the narrow slice of ledger.Ledger the service depends
// on, so it stays testable without a live cluster.
type AppliedReader interface {
	FindAppliedMigrations(ctx context.Context) ([]*migrate.AppliedMigration, error)
}

// Service merges a Resolver's output with an AppliedReader's ledger rows.
type Service struct {
	Resolver          migrate.Resolver
	Ledger            AppliedReader
	Target            version.Version
	OutOfOrderAllowed bool
	PendingOrFuture   bool

	entries []*Entry
}

// Refresh reads resolved and applied migrations and rebuilds the merged,
// state-annotated view.
func (s *Service) Refresh(ctx context.Context) error {
	resolved, err := s.Resolver.Resolve()
	if err != nil {
		return fmt.Errorf("info: refresh: %w", err)
	}
	applied, err := s.Ledger.FindAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("info: refresh: %w", err)
	}
	s.entries = merge(resolved, applied, s.Target, s.OutOfOrderAllowed)
	return nil
}

// Entries returns the merged, version-sorted view built by the last Refresh.
func (s *Service) Entries() []*Entry { return s.entries }

// Current returns the entry with the highest version among success
// variants (SUCCESS, OUT_OF_ORDER, BASELINE, MISSING_SUCCESS), or nil if
// none exist.
func (s *Service) Current() *Entry {
	var cur *Entry
	for _, e := range s.entries {
		switch e.State {
		case Success, OutOfOrder, Baseline, MissingSuccess:
		default:
			continue
		}
		if cur == nil || e.Version.IsNewerThan(cur.Version) {
			cur = e
		}
	}
	return cur
}

// Pending returns entries in state PENDING, version ascending.
func (s *Service) Pending() []*Entry {
	var out []*Entry
	for _, e := range s.entries {
		if e.State == Pending {
			out = append(out, e)
		}
	}
	return out
}

// merge builds the unified, version-sorted, state-annotated list from the
// resolved and applied migration sets.
func merge(resolved []*migrate.ResolvedMigration, applied []*migrate.AppliedMigration, target version.Version, outOfOrderAllowed bool) []*Entry {
	byVersion := map[string]*Entry{}
	var order []string
	key := func(v version.Version) string { return v.String() }

	for _, rm := range resolved {
		k := key(rm.Version)
		byVersion[k] = &Entry{Version: rm.Version, Resolved: rm}
		order = append(order, k)
	}
	for _, am := range applied {
		k := key(am.Version)
		if e, ok := byVersion[k]; ok {
			e.Applied = am
			continue
		}
		byVersion[k] = &Entry{Version: am.Version, Applied: am}
		order = append(order, k)
	}

	out := make([]*Entry, 0, len(order))
	for _, k := range order {
		out = append(out, byVersion[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.Compare(out[j].Version) < 0 })

	for _, e := range out {
		e.State = classify(e, applied, target, outOfOrderAllowed)
	}
	return out
}

func classify(e *Entry, allApplied []*migrate.AppliedMigration, target version.Version, outOfOrderAllowed bool) State {
	switch {
	case e.Resolved != nil && e.Applied != nil && e.Applied.Type == migrate.Baseline:
		return Baseline
	case e.Resolved != nil && e.Applied == nil:
		if e.Version.Compare(target) > 0 {
			return AboveTarget
		}
		return Pending
	case e.Resolved == nil && e.Applied != nil:
		if e.Applied.Success {
			return MissingSuccess
		}
		return MissingFailed
	case e.Resolved != nil && e.Applied != nil:
		if !e.Applied.Success {
			return Failed
		}
		if isOutOfOrder(e.Applied, allApplied) {
			if outOfOrderAllowed {
				return OutOfOrder
			}
			return Ignored
		}
		return Success
	default:
		return Pending
	}
}

// isOutOfOrder reports whether am was installed after a migration with a
// higher version already succeeded — i.e. its installedRank is greater
// than that of some successful row with a strictly higher version.
func isOutOfOrder(am *migrate.AppliedMigration, all []*migrate.AppliedMigration) bool {
	if !am.Success {
		return false
	}
	for _, other := range all {
		if other == am || !other.Success {
			continue
		}
		if other.Version.IsNewerThan(am.Version) && other.InstalledRank < am.InstalledRank {
			return true
		}
	}
	return false
}
