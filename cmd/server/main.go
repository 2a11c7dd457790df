// Package main starts the simulation gRPC server.
package main

import (
	"flag"
	"log"
	"os"

	servercmd "github.com/louisbranch/simlab/internal/cmd/server"
	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
)

func main() {
	cfg, err := servercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SIMLAB] ")
	ctx, stop := entrypoint.SignalContext()
	defer stop()

	if err := servercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
