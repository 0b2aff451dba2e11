// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cassmigrate/info"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the merged, state-annotated view of resolved and applied migrations.",
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
		svc := &info.Service{
			Resolver:          sess.resolve,
			Ledger:            sess.ledger,
			Target:            cfg.Target,
			OutOfOrderAllowed: cfg.AllowOutOfOrder,
		}
		if err := svc.Refresh(cmd.Context()); err != nil {
			return err
		}
		printEntries(svc.Entries())
		return nil
	},
}

func printEntries(entries []*info.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "Version\tDescription\tType\tState")
	for _, e := range entries {
		desc, typ := "", ""
		switch {
		case e.Resolved != nil:
			desc, typ = e.Resolved.Description, e.Resolved.Type.String()
		case e.Applied != nil:
			desc, typ = e.Applied.Description, e.Applied.Type.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Version, desc, typ, colorState(e.State))
	}
	w.Flush()
}

func colorState(s info.State) string {
	switch s {
	case info.Success, info.Baseline:
		return color.GreenString(string(s))
	case info.Pending, info.AboveTarget, info.OutOfOrder:
		return color.YellowString(string(s))
	case info.Failed, info.MissingSuccess, info.MissingFailed, info.Ignored:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}
