// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cassmigrate/command"
)

var pendingOrFuture bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that applied migrations match what is resolved locally.",
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
		msg, err := command.Validate(cmd.Context(), sess.resolve, sess.ledger, cfg, pendingOrFuture)
		if err != nil {
			return err
		}
		if msg != "" {
			return fmt.Errorf("%s", msg)
		}
		color.Green("validated, no discrepancies")
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&pendingOrFuture, "pending-or-future", true, "tolerate resolved migrations not yet applied")
}
