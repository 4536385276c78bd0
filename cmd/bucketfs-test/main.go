// Command bucketfs-test exercises a running bucketfs server end to end: bucket and
// folder setup, upload, info, download, moves and deletes, sequentially and in
// parallel, and prints timing statistics.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultServerURL     = "http://127.0.0.1:8080"
	defaultFileSize      = 1024
	defaultPassCount     = 10
	defaultParallelMoves = 10
	defaultParallelPass  = 10
	defaultHTTPTimeout   = 2 * time.Minute
)

type config struct {
	serverURL     string
	project       string
	fileSize      int
	passCount     int
	parallelMoves int
	parallelPass  int
	httpTimeout   time.Duration
	steps         []int
	showSummary   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bucketfs-test failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config{}
	var noSummary bool

	cmd := &cobra.Command{
		Use:   "bucketfs-test",
		Short: "Run end-to-end scenarios against a bucketfs server",
		Long: `Steps:
  1: single pass (bucket, folder, upload, info, download, move, delete)
  2: sequential passes
  3: parallel moves of different files in one bucket
  4: full passes in parallel

All steps run unless --step selects some.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.fileSize <= 0 {
				return fmt.Errorf("invalid file size: %d", cfg.fileSize)
			}
			cfg.showSummary = !noSummary

			t := newTester(cfg, cmd.OutOrStdout())
			if err := t.run(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nAll selected scenarios completed successfully")
			t.metrics.printSummary(cmd.OutOrStdout())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.serverURL, "server", defaultServerURL, "bucketfs server base URL")
	flags.StringVar(&cfg.project, "project", "bucketfs-test", "project scope used for test buckets")
	flags.IntVar(&cfg.fileSize, "size", defaultFileSize, "test file size in bytes")
	flags.IntVar(&cfg.passCount, "passes", defaultPassCount, "sequential passes for step 2")
	flags.IntVar(&cfg.parallelMoves, "parallel-moves", defaultParallelMoves, "files moved concurrently in step 3")
	flags.IntVar(&cfg.parallelPass, "parallel-full", defaultParallelPass, "concurrent full passes in step 4")
	flags.DurationVar(&cfg.httpTimeout, "http-timeout", defaultHTTPTimeout, "HTTP client timeout")
	flags.IntSliceVar(&cfg.steps, "step", nil, "steps to run (repeatable), default all")
	flags.BoolVar(&noSummary, "no-summary", false, "disable the metrics summary")
	return cmd
}

var errNoSteps = errors.New("no test steps selected")
