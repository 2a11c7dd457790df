// Package mcp parses MCP command flags and serves the tools on stdio.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
	mcpservice "github.com/louisbranch/simlab/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	// Addr is the simulation server; empty runs simulations in process.
	Addr   string `env:"SIMLAB_SERVER_ADDR"`
	DBPath string `env:"SIMLAB_DB_PATH"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "simulation server address (empty runs in process)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "run journal path when running in process")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return mcpservice.Run(ctx, mcpservice.Config{Addr: cfg.Addr, DBPath: cfg.DBPath})
	})
}
