package main

import (
	_ "embed"
	"os"
	"strings"

	"bucketfs/pkg/log"
)

//go:embed VERSION
var Version string

func main() {
	if err := newRootCmd(strings.TrimSpace(Version)).Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
