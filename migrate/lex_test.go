// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate_test

import (
	"errors"
	"testing"

	"cassmigrate/migrate"

	"github.com/stretchr/testify/require"
)

func TestStmts_Basic(t *testing.T) {
	stmts, err := migrate.Stmts("CREATE TABLE a (id int PRIMARY KEY);\nCREATE TABLE b (id int PRIMARY KEY);")
	require.NoError(t, err)
	require.Equal(t, []string{
		"CREATE TABLE a (id int PRIMARY KEY)",
		"CREATE TABLE b (id int PRIMARY KEY)",
	}, stmts)
}

func TestStmts_LineComments(t *testing.T) {
	stmts, err := migrate.Stmts("-- a leading comment\nCREATE TABLE a (id int PRIMARY KEY); // trailing\nINSERT INTO a (id) VALUES (1);")
	require.NoError(t, err)
	require.Equal(t, []string{
		"CREATE TABLE a (id int PRIMARY KEY)",
		"INSERT INTO a (id) VALUES (1)",
	}, stmts)
}

func TestStmts_BlockComment(t *testing.T) {
	stmts, err := migrate.Stmts("CREATE TABLE a /* comment with ; inside */ (id int PRIMARY KEY);")
	require.NoError(t, err)
	require.Equal(t, []string{"CREATE TABLE a  (id int PRIMARY KEY)"}, stmts)
}

func TestStmts_SemicolonInStringLiteral(t *testing.T) {
	stmts, err := migrate.Stmts(`INSERT INTO a (name) VALUES ('a;b');`)
	require.NoError(t, err)
	require.Equal(t, []string{`INSERT INTO a (name) VALUES ('a;b')`}, stmts)
}

func TestStmts_EscapedQuoteInLiteral(t *testing.T) {
	stmts, err := migrate.Stmts(`INSERT INTO a (name) VALUES ('it''s ok');`)
	require.NoError(t, err)
	require.Equal(t, []string{`INSERT INTO a (name) VALUES ('it''s ok')`}, stmts)
}

func TestStmts_DoubleQuotedIdentifier(t *testing.T) {
	stmts, err := migrate.Stmts(`SELECT "col;name" FROM a;`)
	require.NoError(t, err)
	require.Equal(t, []string{`SELECT "col;name" FROM a`}, stmts)
}

func TestStmts_EmptyStatementsDiscarded(t *testing.T) {
	stmts, err := migrate.Stmts("CREATE TABLE a (id int PRIMARY KEY);;;\n\n")
	require.NoError(t, err)
	require.Equal(t, []string{"CREATE TABLE a (id int PRIMARY KEY)"}, stmts)
}

func TestStmts_NoTrailingSemicolon(t *testing.T) {
	stmts, err := migrate.Stmts("CREATE TABLE a (id int PRIMARY KEY)")
	require.NoError(t, err)
	require.Equal(t, []string{"CREATE TABLE a (id int PRIMARY KEY)"}, stmts)
}

func TestStmts_UnterminatedLiteral(t *testing.T) {
	_, err := migrate.Stmts("INSERT INTO a (name) VALUES ('unterminated;")
	require.Error(t, err)
	require.True(t, errors.Is(err, migrate.ErrUnterminatedLiteral))
}

func TestStmts_UnterminatedBlockComment(t *testing.T) {
	_, err := migrate.Stmts("CREATE TABLE a /* unterminated")
	require.Error(t, err)
	require.True(t, errors.Is(err, migrate.ErrUnterminatedBlockComment))
}
