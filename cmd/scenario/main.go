// Package main runs a Lua scenario script against the simulator.
package main

import (
	"flag"
	"os"

	scenariocmd "github.com/louisbranch/simlab/internal/cmd/scenario"
	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
	"github.com/louisbranch/simlab/internal/platform/config"
)

func main() {
	cfg, err := scenariocmd.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitOnError(err)

	ctx, stop := entrypoint.SignalContext()
	defer stop()

	if err := scenariocmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.ExitOnError(err)
	}
}
