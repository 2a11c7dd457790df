// Package scenario parses scenario command flags and runs one Lua scenario.
package scenario

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
	simulationserver "github.com/louisbranch/simlab/internal/services/simulation/server"
	"github.com/louisbranch/simlab/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	// Addr is the simulation server; empty runs simulations in process.
	Addr       string        `env:"SIMLAB_SERVER_ADDR"`
	DBPath     string        `env:"SIMLAB_DB_PATH"`
	Scenario   string        `env:"SIMLAB_SCENARIO_FILE"`
	Assertions bool          `env:"SIMLAB_SCENARIO_ASSERT"  envDefault:"true"`
	Verbose    bool          `env:"SIMLAB_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"SIMLAB_SCENARIO_TIMEOUT" envDefault:"10s"`
	Locale     string        `env:"SIMLAB_LOCALE"           envDefault:"en-US"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "simulation server address (empty runs in process)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "run journal path when running in process")
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "stop at the first failed expectation (disable to log them)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "report locale (en-US or es-BO)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario and writes its report to out.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScenario, func(ctx context.Context) error {
		sim, closeSim, err := simulationserver.OpenSimulator(ctx, cfg.Addr, cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeSim(); err != nil {
				fmt.Fprintf(errOut, "close simulator: %v\n", err)
			}
		}()

		mode := scenario.AssertionStrict
		if !cfg.Assertions {
			mode = scenario.AssertionLogOnly
		}
		runner, err := scenario.NewRunner(sim, scenario.Config{
			Timeout:    cfg.Timeout,
			Assertions: mode,
			Verbose:    cfg.Verbose,
			Locale:     cfg.Locale,
			Logger:     log.New(errOut, "", 0),
		})
		if err != nil {
			return err
		}
		rep, err := runner.RunFile(ctx, cfg.Scenario, out)
		if err != nil {
			return err
		}
		if rep.Failed() {
			return fmt.Errorf("scenario %s: expectations failed", rep.Name)
		}
		return nil
	})
}
