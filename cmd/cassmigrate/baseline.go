// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cassmigrate/command"
	"cassmigrate/version"
)

var (
	baselineDescription string
	baselineVersion     string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Record a BASELINE row at --baseline-version; lower resolved migrations are not marked as applied.",
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
		if baselineDescription != "" {
			cfg.BaselineDescription = baselineDescription
		}
		v, err := version.Parse(baselineVersion)
		if err != nil {
			return err
		}
		cfg.BaselineVersion = v
		if err := command.Baseline(cmd.Context(), sess.ledger, cfg); err != nil {
			return err
		}
		color.Green("baseline set at %s", cfg.BaselineVersion)
		return nil
	},
}

func init() {
	baselineCmd.Flags().StringVar(&baselineDescription, "description", "", "label recorded on the baseline row")
	baselineCmd.Flags().StringVar(&baselineVersion, "baseline-version", "1", "version the baseline row is recorded at")
}
