// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package version_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cassmigrate/version"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1"},
		{"1.2", "1.2"},
		{"2.0.1", "2.0.1"},
		{"1.0", "1"},
		{"0", "0"},
		{"0.0", "0"},
		{"EMPTY", "EMPTY"},
		{"LATEST", "LATEST"},
	}
	for _, tt := range tests {
		v, err := version.Parse(tt.in)
		require.NoError(t, err)
		require.Equal(t, tt.want, v.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "1.", ".1", "a.b", "1.x", "-1"} {
		_, err := version.Parse(in)
		require.ErrorIs(t, err, version.ErrInvalidVersion, "input %q", in)
	}
}

func TestCompare(t *testing.T) {
	less := func(a, b string) {
		t.Helper()
		av, bv := version.MustParse(a), version.MustParse(b)
		require.Negative(t, av.Compare(bv), "%s < %s", a, b)
		require.Positive(t, bv.Compare(av), "%s > %s", b, a)
	}
	less("1", "1.1")
	less("1.2", "1.10")
	less("1.9", "2")
	less("EMPTY", "1")
	less("2.0.1", "LATEST")
	require.True(t, version.EMPTY.Compare(version.MustParse("0")) < 0)
	require.True(t, version.LATEST.Compare(version.MustParse("999.999")) > 0)
}

func TestEquals(t *testing.T) {
	require.True(t, version.MustParse("1").Equals(version.MustParse("1.0.0")))
	require.False(t, version.MustParse("1").Equals(version.MustParse("1.0.1")))
	require.True(t, version.EMPTY.Equals(version.EMPTY))
}

func TestIsZero(t *testing.T) {
	var zero version.Version
	require.True(t, zero.IsZero())
	require.False(t, version.MustParse("0").IsZero())
	require.False(t, version.EMPTY.IsZero())
	require.False(t, version.LATEST.IsZero())
}

func TestIsAtLeastNewerThan(t *testing.T) {
	v1, v2 := version.MustParse("1.5"), version.MustParse("1.4")
	require.True(t, v1.IsNewerThan(v2))
	require.True(t, v1.IsAtLeast(v2))
	require.True(t, v1.IsAtLeast(version.MustParse("1.5")))
	require.False(t, v2.IsNewerThan(v1))
}
