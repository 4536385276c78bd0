package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"bucketfs/pkg/config"
	"bucketfs/pkg/log"
	"bucketfs/pkg/metrics"
	"bucketfs/pkg/server"
)

func newServeCmd(opts *rootOptions, version string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			var (
				m        *metrics.Metrics
				gatherer prometheus.Gatherer
			)
			if cfg.Metrics.Enabled {
				m = metrics.Default()
				gatherer = prometheus.DefaultGatherer
			}

			a, err := openApp(cfg, m)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error().Err(err).Msg("Shutdown cleanup failed")
				}
			}()

			srv := server.New(a.service, server.Options{
				Version:        version,
				DataDir:        cfg.DataDir,
				Gatherer:       gatherer,
				SyncOnShutdown: cfg.Blob.Driver == config.DriverDisk,
			})
			return srv.Start(cfg.Listen)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address, overrides the config file")
	return cmd
}
