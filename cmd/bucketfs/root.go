package main

import (
	"os"

	"github.com/spf13/cobra"

	"bucketfs/pkg/config"
	"bucketfs/pkg/log"
	"bucketfs/pkg/models"
)

type rootOptions struct {
	configPath string
	logLevel   string
	project    string
	principal  string
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "bucketfs",
		Short:         "Bucket and folder namespace over blob storage",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.StringVar(&opts.project, "project", models.DefaultProject, "project scope for bucket lookups")
	flags.StringVar(&opts.principal, "principal", "cli", "principal recorded as author")

	cmd.AddCommand(
		newServeCmd(opts, version),
		newTreeCmd(opts),
		newLsCmd(opts),
		newReconcileCmd(opts),
	)
	return cmd
}

// loadConfig reads the config file (or defaults), validates it and configures
// logging.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := log.Configure(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) scope() models.Scope {
	return models.Scope{ProjectID: o.project, Principal: o.principal}
}
