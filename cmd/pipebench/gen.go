// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"

	"github.com/pipebench/pipebench/gen"
	"github.com/spf13/cobra"
)

func newGenCmd(g *globals) *cobra.Command {
	opts := gen.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "gen [file]",
		Short: "Write a synthetic id,category,value dataset",
		Long: `Gen writes a synthetic CSV dataset with columns id, category and value
to file, data.csv by default, or to standard output if file is "-".
The same seed always produces the same file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := g.logger(cfg)

			path := "data.csv"
			if len(args) > 0 {
				path = args[0]
			}
			if path == "-" {
				w := bufio.NewWriter(g.stdout)
				if err := gen.Write(w, opts); err != nil {
					return err
				}
				return w.Flush()
			}
			if err := gen.WriteFile(path, opts); err != nil {
				return err
			}
			logger.Info("wrote dataset", "path", path, "rows", opts.Rows, "categories", opts.Categories, "seed", opts.Seed)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&opts.Rows, "rows", opts.Rows, "number of rows")
	fs.IntVar(&opts.Categories, "categories", opts.Categories, "number of categories")
	fs.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	fs.Float64Var(&opts.MaxValue, "max", opts.MaxValue, "values are drawn from [0, max)")
	return cmd
}
