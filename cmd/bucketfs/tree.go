package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTreeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <bucket> [path]",
		Short: "Print the folder and file hierarchy of a bucket",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if len(args) == 2 {
				node, err := a.service.Expand(cmd.Context(), opts.scope(), args[0], args[1])
				if err != nil {
					return err
				}
				return renderTree(cmd.OutOrStdout(), node)
			}

			result, err := a.service.Tree(cmd.Context(), opts.scope(), args[0])
			if err != nil {
				return err
			}
			if err := renderTree(cmd.OutOrStdout(), result.Root); err != nil {
				return err
			}
			if result.Truncated {
				_, err = fmt.Fprintf(cmd.ErrOrStderr(),
					"tree truncated at %d folders and %d files, expand a folder with 'tree %s <path>'\n",
					result.Folders, result.Files, args[0])
			}
			return err
		},
	}
}
