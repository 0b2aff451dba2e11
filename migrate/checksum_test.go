// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate_test

import (
	"testing"

	"cassmigrate/migrate"

	"github.com/stretchr/testify/require"
)

func TestStripBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("CREATE TABLE t;")...)
	require.Equal(t, []byte("CREATE TABLE t;"), migrate.StripBOM(withBOM))
	require.Equal(t, []byte("CREATE TABLE t;"), migrate.StripBOM([]byte("CREATE TABLE t;")))
}

func TestCanonicalize(t *testing.T) {
	require.Equal(t, "a\nb\nc", migrate.Canonicalize([]byte("a\r\nb\rc")))
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a\r\nb")...)
	require.Equal(t, "a\nb", migrate.Canonicalize(withBOM))
}

func TestChecksum_Deterministic(t *testing.T) {
	a := migrate.Checksum([]byte("CREATE TABLE t (id int PRIMARY KEY);\n"))
	b := migrate.Checksum([]byte("CREATE TABLE t (id int PRIMARY KEY);\n"))
	require.Equal(t, a, b)
}

func TestChecksum_LineEndingInvariant(t *testing.T) {
	lf := migrate.Checksum([]byte("CREATE TABLE t;\n"))
	crlf := migrate.Checksum([]byte("CREATE TABLE t;\r\n"))
	require.Equal(t, lf, crlf)
}

func TestChecksum_BOMInvariant(t *testing.T) {
	noBOM := migrate.Checksum([]byte("CREATE TABLE t;"))
	withBOM := migrate.Checksum(append([]byte{0xEF, 0xBB, 0xBF}, []byte("CREATE TABLE t;")...))
	require.Equal(t, noBOM, withBOM)
}

func TestChecksum_DiffersOnContentChange(t *testing.T) {
	a := migrate.Checksum([]byte("CREATE TABLE t;"))
	b := migrate.Checksum([]byte("CREATE TABLE u;"))
	require.NotEqual(t, a, b)
}
