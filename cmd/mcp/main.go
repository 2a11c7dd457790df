package main

import (
	"flag"
	"log"
	"os"

	mcpcmd "github.com/louisbranch/simlab/internal/cmd/mcp"
	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
)

// main serves the simulation tools over MCP on stdio.
func main() {
	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	// stdout carries the protocol.
	log.SetOutput(os.Stderr)
	log.SetPrefix("[MCP] ")

	ctx, stop := entrypoint.SignalContext()
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
