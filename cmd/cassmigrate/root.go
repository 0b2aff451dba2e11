// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Command cassmigrate is the CLI front end for the migration engine: it
// wires a live Cassandra/Scylla session and a local migration directory
// into the command package's Initialize, Baseline, Migrate, Validate and
// the info package's Migration Info Service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gocql/gocql"
	"github.com/spf13/cobra"

	"cassmigrate/command"
	"cassmigrate/ledger"
	"cassmigrate/migrate"
	"cassmigrate/version"
)

var flags struct {
	hosts           []string
	keyspace        string
	user            string
	password        string
	tablePrefix     string
	locations       []string
	target          string
	timeout         time.Duration
	allowOutOfOrder bool
	waitForSchema   bool
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cassmigrate",
	Short: "Version-controlled schema migrations for Cassandra and Scylla.",
	Long: `cassmigrate applies versioned CQL migration scripts to a keyspace,
recording every applied migration in a durable ledger table.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSliceVar(&flags.hosts, "hosts", []string{"127.0.0.1"}, "cluster contact points")
	pf.StringVar(&flags.keyspace, "keyspace", "", "target keyspace (required)")
	pf.StringVar(&flags.user, "user", "", "username for password authentication")
	pf.StringVar(&flags.password, "password", "", "password for password authentication")
	pf.StringVar(&flags.tablePrefix, "table-prefix", "", "prefix for the ledger's table names")
	pf.StringSliceVar(&flags.locations, "locations", []string{"db/migration"}, "migration script directories")
	pf.StringVar(&flags.target, "target", "LATEST", "highest version to migrate to")
	pf.DurationVar(&flags.timeout, "timeout", 60*time.Second, "per-statement execution timeout")
	pf.BoolVar(&flags.allowOutOfOrder, "allow-out-of-order", false, "apply pending migrations below the current version")
	pf.BoolVar(&flags.waitForSchema, "wait-for-schema-agreement", true, "block after DDL until the cluster agrees on schema")

	rootCmd.AddCommand(initCmd, baselineCmd, migrateCmd, validateCmd, infoCmd)
}

// session bundles everything a command needs to talk to the cluster.
type session struct {
	gocql   *gocql.Session
	ledger  *ledger.Ledger
	logger  *command.ZapLogger
	resolve migrate.Resolver
}

func (s *session) Close() { s.gocql.Close() }

// cqlSession adapts a live *gocql.Session to migrate.Session, plus exposes
// AwaitSchemaAgreement so command.Migrate's post-DDL wait can fire.
type cqlSession struct{ s *gocql.Session }

func (c cqlSession) Exec(ctx context.Context, stmt string) error {
	return c.s.Query(stmt).WithContext(ctx).Exec()
}

func (c cqlSession) AwaitSchemaAgreement(ctx context.Context) error {
	return c.s.AwaitSchemaAgreement(ctx)
}

func newSession() (*session, error) {
	if flags.keyspace == "" {
		return nil, &command.ConfigurationError{Field: "keyspace"}
	}
	cluster := gocql.NewCluster(flags.hosts...)
	cluster.Keyspace = flags.keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = flags.timeout
	if flags.user != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{Username: flags.user, Password: flags.password}
	}
	gs, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cluster: %w", err)
	}

	led := ledger.New(ledger.NewSession(gs), ledger.Config{
		TablePrefix:            flags.tablePrefix,
		Consistency:            gocql.Quorum,
		WaitForSchemaAgreement: flags.waitForSchema,
		Timeout:                flags.timeout,
	})

	scanner, err := migrate.NewLocalDir(".")
	if err != nil {
		gs.Close()
		return nil, err
	}
	resolver := &migrate.CQLResolver{Scanner: scanner, Locations: flags.locations, Timeout: flags.timeout}

	logger, err := command.NewZapLogger()
	if err != nil {
		gs.Close()
		return nil, err
	}

	return &session{gocql: gs, ledger: led, logger: logger, resolve: resolver}, nil
}

func (s *session) config() (command.Config, error) {
	target, err := version.Parse(flags.target)
	if err != nil {
		return command.Config{}, fmt.Errorf("invalid --target: %w", err)
	}
	return command.Config{
		Target:          target,
		Locations:       flags.locations,
		Timeout:         flags.timeout,
		TablePrefix:     flags.tablePrefix,
		AllowOutOfOrder: flags.allowOutOfOrder,
	}.WithDefaults(), nil
}
