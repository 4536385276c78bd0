package main

import (
	"github.com/spf13/cobra"

	"bucketfs/pkg/namespace"
)

func newLsCmd(opts *rootOptions) *cobra.Command {
	var list namespace.ListOptions

	cmd := &cobra.Command{
		Use:   "ls <bucket> [path]",
		Short: "List the folders and files directly inside a path",
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

			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			listing, err := a.service.List(cmd.Context(), opts.scope(), args[0], path, list)
			if err != nil {
				return err
			}
			return renderListing(cmd.OutOrStdout(), listing)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&list.Sort, "sort", namespace.SortName, "sort files by name, size or created_at")
	flags.StringVar(&list.Order, "order", namespace.OrderAsc, "asc or desc")
	flags.IntVar(&list.Limit, "limit", 0, "maximum files to show, 0 for all")
	flags.IntVar(&list.Offset, "offset", 0, "files to skip")
	return cmd
}
