// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cassmigrate/command"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply every pending migration up to --target.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()
		cfg, err := sess.config()
		if err != nil {
			return err
		}
		n, err := command.Migrate(cmd.Context(), sess.resolve, cqlSession{sess.gocql}, sess.ledger, cfg, sess.logger)
		if err != nil {
			return err
		}
		color.Green("applied %d migration(s)", n)
		return nil
	},
}
