// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cassmigrate/command"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the ledger tables if they do not already exist.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()
		if err := command.Initialize(cmd.Context(), sess.ledger); err != nil {
			return err
		}
		color.Green("ledger ready")
		return nil
	},
}
