// Package server parses simulation server flags and launches the service.
package server

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
	simulationserver "github.com/louisbranch/simlab/internal/services/simulation/server"
)

// Config holds server command configuration.
type Config struct {
	Port   int    `env:"SIMLAB_PORT"    envDefault:"8080"`
	DBPath string `env:"SIMLAB_DB_PATH"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The simulation gRPC server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Run journal path (default data/simlab.db)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the simulation gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return simulationserver.Run(ctx, cfg.Port, cfg.DBPath)
	})
}
