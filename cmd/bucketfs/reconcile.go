package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Retry blob deletes that failed earlier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result, err := a.service.Reconcile(cmd.Context(), limit)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, purged %d, failed %d\n",
				result.Attempted, result.Purged, result.Failed)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum purges to retry, 0 for all")
	return cmd
}
