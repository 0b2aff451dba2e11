// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cassmigrate/version"
)

// NameGrammar describes how migration filenames are decomposed into a
// version and a description: PREFIX VERSION SEPARATOR DESCRIPTION SUFFIX.
type NameGrammar struct {
	Prefix    string // default "V"
	Separator string // default "__"
	Suffix    string // e.g. ".cql"
}

// DefaultCQLGrammar is the default naming grammar for CQL migration files.
var DefaultCQLGrammar = NameGrammar{Prefix: "V", Separator: "__", Suffix: ".cql"}

func (g NameGrammar) filled() NameGrammar {
	if g.Prefix == "" {
		g.Prefix = "V"
	}
	if g.Separator == "" {
		g.Separator = "__"
	}
	return g
}

// parsedName is the result of successfully matching a filename against a
// NameGrammar.
type parsedName struct {
	Version     string
	Description string
}

// parseName matches filename against g. It returns ok=false (no error) if
// filename simply doesn't match the grammar (non-matching files are
// silently ignored), and a non-nil error only when the grammar matched but
// the version component failed to parse.
func parseName(g NameGrammar, filename string) (*parsedName, bool, error) {
	g = g.filled()
	rest := filename
	if !strings.HasPrefix(rest, g.Prefix) {
		return nil, false, nil
	}
	rest = rest[len(g.Prefix):]
	if g.Suffix != "" {
		if !strings.HasSuffix(rest, g.Suffix) {
			return nil, false, nil
		}
		rest = strings.TrimSuffix(rest, g.Suffix)
	}
	sepIdx := strings.Index(rest, g.Separator)
	if sepIdx < 0 {
		return nil, false, nil
	}
	verPart, desc := rest[:sepIdx], rest[sepIdx+len(g.Separator):]
	// VERSION is the longest leading substring of [0-9.]+.
	end := 0
	for end < len(verPart) && (verPart[end] == '.' || (verPart[end] >= '0' && verPart[end] <= '9')) {
		end++
	}
	if end == 0 || end != len(verPart) {
		// Either no version chars at all, or trailing garbage after the
		// version run: grammar matched (prefix+separator+suffix present)
		// but the version is unparseable.
		return nil, true, fmt.Errorf("%w: %q", ErrInvalidMigrationName, filename)
	}
	if _, err := version.Parse(verPart); err != nil {
		return nil, true, fmt.Errorf("%w: %q: %v", ErrInvalidMigrationName, filename, err)
	}
	return &parsedName{Version: verPart, Description: strings.ReplaceAll(desc, "_", " ")}, true, nil
}

// CQLResolver resolves ResolvedMigration records from CQL script resources
// discovered by a Scanner under a set of location prefixes.
type CQLResolver struct {
	Scanner   Scanner
	Locations []string
	Encoding  string // default "UTF-8"
	Grammar   NameGrammar
	// Timeout, if nonzero, bounds each individual statement a resolved
	// migration's Executor runs: cqlExecutor derives a fresh deadline from
	// it before every statement, instead of one deadline shared across the
	// whole script. Zero means the caller's ctx is used as-is.
	Timeout time.Duration
}

var _ Resolver = (*CQLResolver)(nil)

// Resolve implements Resolver.
func (r *CQLResolver) Resolve() ([]*ResolvedMigration, error) {
	grammar := r.Grammar.filled()
	if grammar.Suffix == "" {
		grammar.Suffix = DefaultCQLGrammar.Suffix
	}
	encoding := r.Encoding
	if encoding == "" {
		encoding = "UTF-8"
	}
	locations := r.Locations
	if len(locations) == 0 {
		locations = []string{"db/migration"}
	}
	var out []*ResolvedMigration
	for _, loc := range locations {
		resources, err := r.Scanner.Scan(loc, grammar.Suffix)
		if err != nil {
			return nil, fmt.Errorf("migrate: resolve: %w", err)
		}
		for _, res := range resources {
			parsed, ok, err := parseName(grammar, res.Filename())
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			raw, err := res.Bytes()
			if err != nil {
				return nil, fmt.Errorf("migrate: resolve: read %q: %w", res.LogicalPath(), err)
			}
			v, err := version.Parse(parsed.Version)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidMigrationName, res.Filename(), err)
			}
			content, err := res.LoadAsString(encoding)
			if err != nil {
				return nil, fmt.Errorf("migrate: resolve: %w", err)
			}
			rm := &ResolvedMigration{
				Version:          v,
				Description:      parsed.Description,
				Type:             CQL,
				Script:           res.Filename(),
				PhysicalLocation: res.LogicalPath(),
			}
			if mode, ok := directive(content, directiveSum); ok && strings.TrimSpace(mode) == sumModeIgnore {
				rm.Checksum = nil
			} else {
				sum := Checksum(raw)
				rm.Checksum = &sum
			}
			rm.Executor = ExecutorFunc(cqlExecutor(content, r.Timeout))
			out = append(out, rm)
		}
	}
	return sortAndDedupe(out)
}

// cqlExecutor runs every statement in content in order, deriving a fresh
// timeout-bound context for each one when timeout is nonzero, so one slow
// statement can't exhaust the deadline for the statements that follow it.
func cqlExecutor(content string, timeout time.Duration) func(ctx context.Context, sess Session) error {
	return func(ctx context.Context, sess Session) error {
		stmts, err := Stmts(content)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			stmtCtx, cancel := ctx, context.CancelFunc(func() {})
			if timeout > 0 {
				stmtCtx, cancel = context.WithTimeout(ctx, timeout)
			}
			err := sess.Exec(stmtCtx, stmt)
			cancel()
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// DriverResolver resolves ResolvedMigration records from compiled units
// implementing the Migration interface (the Go analogue of the original
// source's JAVA_DRIVER migrations).
type DriverResolver struct {
	Units []Migration
}

var _ Resolver = (*DriverResolver)(nil)

// Resolve implements Resolver.
func (r *DriverResolver) Resolve() ([]*ResolvedMigration, error) {
	out := make([]*ResolvedMigration, 0, len(r.Units))
	for _, u := range r.Units {
		v, err := version.Parse(u.Version())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMigrationName, err)
		}
		rm := &ResolvedMigration{
			Version:     v,
			Description: u.Description(),
			Type:        Driver,
			Script:      fmt.Sprintf("%T", u),
			Executor:    u,
		}
		if cp, ok := u.(ChecksumProvider); ok {
			sum := cp.Checksum()
			rm.Checksum = &sum
		}
		out = append(out, rm)
	}
	return sortAndDedupe(out)
}

// Composite concatenates the output of several Resolvers, then enforces
// version uniqueness and sorts the merged result.
type Composite struct {
	Resolvers []Resolver
}

var _ Resolver = (*Composite)(nil)

// Resolve implements Resolver.
func (c *Composite) Resolve() ([]*ResolvedMigration, error) {
	var all []*ResolvedMigration
	for _, r := range c.Resolvers {
		ms, err := r.Resolve()
		if err != nil {
			return nil, err
		}
		all = append(all, ms...)
	}
	return sortAndDedupe(all)
}
