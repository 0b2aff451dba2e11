// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package ledger implements the Schema-Version DAO: a durable,
// insert-once ledger of applied migrations backed by gocql, plus the
// advisory lock row used for best-effort cross-process coordination.
package ledger

import (
	"context"

	"github.com/gocql/gocql"
)

// Query is the narrow subset of *gocql.Query the ledger depends on. The
// DAO programs against this interface, not *gocql.Query directly, so it
// stays unit-testable with a hand-rolled fake instead of a live cluster.
type Query interface {
	WithContext(ctx context.Context) Query
	Consistency(c gocql.Consistency) Query
	Exec() error
	Scan(dest ...interface{}) error
	ScanCAS(dest ...interface{}) (applied bool, err error)
	Iter() Iter
}

// Iter is the narrow subset of *gocql.Iter the ledger depends on.
type Iter interface {
	Scan(dest ...interface{}) bool
	Close() error
}

// Session is the narrow subset of *gocql.Session the ledger depends on.
type Session interface {
	Query(stmt string, values ...interface{}) Query
	AwaitSchemaAgreement(ctx context.Context) error
}

// NewSession adapts a live *gocql.Session into a Session.
func NewSession(s *gocql.Session) Session {
	return gocqlSession{s}
}

type gocqlSession struct{ s *gocql.Session }

func (g gocqlSession) Query(stmt string, values ...interface{}) Query {
	return gocqlQuery{g.s.Query(stmt, values...)}
}

func (g gocqlSession) AwaitSchemaAgreement(ctx context.Context) error {
	return g.s.AwaitSchemaAgreement(ctx)
}

type gocqlQuery struct{ q *gocql.Query }

func (g gocqlQuery) WithContext(ctx context.Context) Query {
	return gocqlQuery{g.q.WithContext(ctx)}
}

func (g gocqlQuery) Consistency(c gocql.Consistency) Query {
	return gocqlQuery{g.q.Consistency(c)}
}

func (g gocqlQuery) Exec() error { return g.q.Exec() }

func (g gocqlQuery) Scan(dest ...interface{}) error { return g.q.Scan(dest...) }

func (g gocqlQuery) ScanCAS(dest ...interface{}) (bool, error) { return g.q.ScanCAS(dest...) }

func (g gocqlQuery) Iter() Iter { return gocqlIter{g.q.Iter()} }

type gocqlIter struct{ it *gocql.Iter }

func (g gocqlIter) Scan(dest ...interface{}) bool { return g.it.Scan(dest...) }
func (g gocqlIter) Close() error                  { return g.it.Close() }
