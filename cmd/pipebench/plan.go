// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/pipebench/pipebench/source"
	"github.com/spf13/cobra"
)

func newPlanCmd(g *globals) *cobra.Command {
	f := new(runFlags)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the lazy plan before and after optimization",
		Long: `Plan prints the plan lazy mode would execute, as written and as
optimized, without loading any data.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			o, src, err := orchestrator(cmd.Context(), cfg, g.logger(cfg))
			if err != nil {
				return err
			}
			defer source.Close(src)

			lf, err := o.Plan()
			if err != nil {
				return err
			}
			opt, err := lf.DescribeOptimized()
			if err != nil {
				return err
			}
			fmt.Fprintf(g.stdout, "plan:\n%s\noptimized plan:\n%s", lf.Describe(), opt)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}
