// Package main runs one simulation or sequence from the command line.
package main

import (
	"flag"
	"os"

	simlabcmd "github.com/louisbranch/simlab/internal/cmd/simlab"
	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
	"github.com/louisbranch/simlab/internal/platform/config"
)

func main() {
	cfg, err := simlabcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitOnError(err)

	ctx, stop := entrypoint.SignalContext()
	defer stop()

	if err := simlabcmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.ExitOnError(err)
	}
}
