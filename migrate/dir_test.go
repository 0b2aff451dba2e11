// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate_test

import (
	"os"
	"path/filepath"
	"testing"

	"cassmigrate/migrate"

	"github.com/stretchr/testify/require"
)

func TestLocalDir_Scan(t *testing.T) {
	p := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(p, "V1__init.cql"), []byte("CREATE TABLE t;"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(p, "V2__add_col.cql"), []byte("ALTER TABLE t;"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(p, "README.md"), []byte("not a migration"), 0600))

	d, err := migrate.NewLocalDir(p)
	require.NoError(t, err)
	resources, err := d.Scan(".", ".cql")
	require.NoError(t, err)
	require.Len(t, resources, 2)
	require.Equal(t, "V1__init.cql", resources[0].Filename())
	require.Equal(t, "V2__add_col.cql", resources[1].Filename())
}

func TestLocalDir_BytesAndLoadAsString(t *testing.T) {
	p := t.TempDir()
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("CREATE TABLE t;")...)
	require.NoError(t, os.WriteFile(filepath.Join(p, "V1__init.cql"), withBOM, 0600))

	d, err := migrate.NewLocalDir(p)
	require.NoError(t, err)
	resources, err := d.Scan(".", ".cql")
	require.NoError(t, err)
	require.Len(t, resources, 1)

	raw, err := resources[0].Bytes()
	require.NoError(t, err)
	require.Equal(t, withBOM, raw)

	decoded, err := resources[0].LoadAsString("UTF-8")
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE t;", decoded)
}

func TestLocalDir_NotADirectory(t *testing.T) {
	p := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := migrate.NewLocalDir(p)
	require.Error(t, err)
}

func TestMemScanner_FiltersByPrefixAndSuffix(t *testing.T) {
	s := &migrate.MemScanner{Resources: []*migrate.MemResource{
		{Path: "db/migration/V1__init.cql", Content: []byte("CREATE TABLE t;")},
		{Path: "db/migration/V2__add.cql", Content: []byte("ALTER TABLE t;")},
		{Path: "other/V1__init.cql", Content: []byte("CREATE TABLE u;")},
	}}
	resources, err := s.Scan("db/migration", ".cql")
	require.NoError(t, err)
	require.Len(t, resources, 2)
	require.Equal(t, "db/migration/V1__init.cql", resources[0].LogicalPath())
	require.Equal(t, "db/migration/V2__add.cql", resources[1].LogicalPath())
}

func TestMemResource_LoadAsStringStripsBOM(t *testing.T) {
	r := &migrate.MemResource{Path: "V1__init.cql", Content: append([]byte{0xEF, 0xBB, 0xBF}, []byte("CREATE TABLE t;")...)}
	s, err := r.LoadAsString("UTF-8")
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE t;", s)
}
