// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package info_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cassmigrate/info"
	"cassmigrate/migrate"
	"cassmigrate/version"
)

type fakeResolver struct{ ms []*migrate.ResolvedMigration }

func (r fakeResolver) Resolve() ([]*migrate.ResolvedMigration, error) { return r.ms, nil }

type fakeReader struct{ applied []*migrate.AppliedMigration }

func (r fakeReader) FindAppliedMigrations(context.Context) ([]*migrate.AppliedMigration, error) {
	return r.applied, nil
}

func resolvedAt(v string) *migrate.ResolvedMigration {
	return &migrate.ResolvedMigration{Version: version.MustParse(v), Description: "d", Type: migrate.CQL}
}

func appliedAt(v string, installedRank int, success bool) *migrate.AppliedMigration {
	return &migrate.AppliedMigration{
		Version: version.MustParse(v), InstalledRank: installedRank,
		Type: migrate.CQL, Success: success, InstalledOn: time.Now().UTC(),
	}
}

func TestService_PendingAndAboveTarget(t *testing.T) {
	s := &info.Service{
		Resolver: fakeResolver{ms: []*migrate.ResolvedMigration{resolvedAt("1"), resolvedAt("2")}},
		Ledger:   fakeReader{},
		Target:   version.MustParse("1"),
	}
	require.NoError(t, s.Refresh(context.Background()))
	pending := s.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, version.MustParse("1"), pending[0].Version)

	var aboveTarget *info.Entry
	for _, e := range s.Entries() {
		if e.Version.Equals(version.MustParse("2")) {
			aboveTarget = e
		}
	}
	require.NotNil(t, aboveTarget)
	require.Equal(t, info.AboveTarget, aboveTarget.State)
}

func TestService_SuccessAndCurrent(t *testing.T) {
	s := &info.Service{
		Resolver: fakeResolver{ms: []*migrate.ResolvedMigration{resolvedAt("1"), resolvedAt("2")}},
		Ledger:   fakeReader{applied: []*migrate.AppliedMigration{appliedAt("1", 1, true), appliedAt("2", 2, true)}},
		Target:   version.MustParse("2"),
	}
	require.NoError(t, s.Refresh(context.Background()))
	for _, e := range s.Entries() {
		require.Equal(t, info.Success, e.State)
	}
	cur := s.Current()
	require.NotNil(t, cur)
	require.Equal(t, version.MustParse("2"), cur.Version)
}

func TestService_OutOfOrder(t *testing.T) {
	s := &info.Service{
		Resolver: fakeResolver{ms: []*migrate.ResolvedMigration{resolvedAt("1"), resolvedAt("2"), resolvedAt("3")}},
		Ledger: fakeReader{applied: []*migrate.AppliedMigration{
			appliedAt("1", 1, true),
			appliedAt("3", 2, true),
			appliedAt("2", 3, true), // installed after 3: out of order
		}},
		Target:            version.MustParse("3"),
		OutOfOrderAllowed: true,
	}
	require.NoError(t, s.Refresh(context.Background()))
	var e2 *info.Entry
	for _, e := range s.Entries() {
		if e.Version.Equals(version.MustParse("2")) {
			e2 = e
		}
	}
	require.NotNil(t, e2)
	require.Equal(t, info.OutOfOrder, e2.State)
}

func TestService_OutOfOrderDisallowedIsIgnored(t *testing.T) {
	s := &info.Service{
		Resolver: fakeResolver{ms: []*migrate.ResolvedMigration{resolvedAt("1"), resolvedAt("2"), resolvedAt("3")}},
		Ledger: fakeReader{applied: []*migrate.AppliedMigration{
			appliedAt("1", 1, true),
			appliedAt("3", 2, true),
			appliedAt("2", 3, true),
		}},
		Target:            version.MustParse("3"),
		OutOfOrderAllowed: false,
	}
	require.NoError(t, s.Refresh(context.Background()))
	var e2 *info.Entry
	for _, e := range s.Entries() {
		if e.Version.Equals(version.MustParse("2")) {
			e2 = e
		}
	}
	require.NotNil(t, e2)
	require.Equal(t, info.Ignored, e2.State)
}

func TestService_FailedAndMissing(t *testing.T) {
	s := &info.Service{
		Resolver: fakeResolver{ms: []*migrate.ResolvedMigration{resolvedAt("1")}},
		Ledger: fakeReader{applied: []*migrate.AppliedMigration{
			appliedAt("1", 1, false),
			appliedAt("2", 2, true),
		}},
		Target: version.MustParse("2"),
	}
	require.NoError(t, s.Refresh(context.Background()))
	states := map[string]info.State{}
	for _, e := range s.Entries() {
		states[e.Version.String()] = e.State
	}
	require.Equal(t, info.Failed, states["1"])
	require.Equal(t, info.MissingSuccess, states["2"])
}

func TestService_Baseline(t *testing.T) {
	s := &info.Service{
		Resolver: fakeResolver{ms: []*migrate.ResolvedMigration{resolvedAt("1")}},
		Ledger: fakeReader{applied: []*migrate.AppliedMigration{
			{Version: version.MustParse("1"), InstalledRank: 1, Type: migrate.Baseline, Success: true, InstalledOn: time.Now().UTC()},
		}},
		Target: version.MustParse("1"),
	}
	require.NoError(t, s.Refresh(context.Background()))
	require.Equal(t, info.Baseline, s.Entries()[0].State)
}
