// Package simlab implements the simlab command line: one subcommand per model
// or sequence method plus journal lookups, printed as a localized report.
package simlab

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	entrypoint "github.com/louisbranch/simlab/internal/platform/cmd"
	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	platformmetadata "github.com/louisbranch/simlab/internal/platform/grpc/metadata"
	"github.com/louisbranch/simlab/internal/platform/i18n/catalog"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/services/simulation/report"
	simulationserver "github.com/louisbranch/simlab/internal/services/simulation/server"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/sim/params"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Config holds the global flags and the selected subcommand.
type Config struct {
	// Addr is the simulation server; empty runs simulations in process.
	Addr   string `env:"SIMLAB_SERVER_ADDR"`
	DBPath string `env:"SIMLAB_DB_PATH"`
	Locale string `env:"SIMLAB_LOCALE" envDefault:"en-US"`
	JSON   bool   `env:"SIMLAB_JSON"`

	Command string
	Args    []string
}

// ParseConfig parses environment and global flags. The first remaining
// argument names the subcommand.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "simulation server address (empty runs in process)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "run journal path when running in process")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "report locale (en-US or es-BO)")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "print JSON instead of a report")
	fs.Usage = func() { usage(fs.Output(), fs) }
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Command = rest[0]
		cfg.Args = rest[1:]
	}
	return cfg, nil
}

// paramFlag binds one model parameter to a flag. An empty def leaves the
// parameter unset unless given, so required inputs are reported missing.
type paramFlag struct {
	name  string
	def   string
	usage string
}

const defaultTrials = 3

// modelFlags carries the classroom defaults of every stochastic model.
var modelFlags = func() map[exercise.Kind][]paramFlag {
	dice := exercise.DefaultDiceParams()
	shop := exercise.DefaultShopParams()
	farm := exercise.DefaultEggFarmParams()
	sugar := exercise.DefaultSugarParams()
	return map[exercise.Kind][]paramFlag{
		exercise.KindDepositFixed: {
			{"capital", "", "opening capital"},
			{"rate", "", "annual rate in percent"},
			{"years", "", "years to compound"},
		},
		exercise.KindDepositVariable: {
			{"capital", "", "opening capital"},
			{"years", "", "years to compound"},
		},
		exercise.KindDice: {
			{"games", strconv.Itoa(dice.Games), "games per trial"},
			{"price", num(dice.Price), "price paid per game"},
			{"cost7", num(dice.Cost7), "payout when the dice sum to 7"},
		},
		exercise.KindShop: {
			{"hours", strconv.Itoa(shop.Hours), "hours per trial"},
			{"unit_cost", num(shop.UnitCost), "acquisition cost per item"},
			{"unit_price", num(shop.UnitPrice), "sale price per item"},
			{"fixed_cost", num(shop.FixedCost), "daily fixed cost"},
		},
		exercise.KindEggFarm: {
			{"days", strconv.Itoa(farm.Days), "days per trial"},
			{"egg_price", num(farm.EggPrice), "sale price per egg"},
			{"chicken_price", num(farm.ChickenPrice), "sale price per chicken"},
		},
		exercise.KindSugar: {
			{"mean_demand", num(sugar.MeanDemand), "mean daily demand in kg"},
			{"capacity", num(sugar.Capacity), "warehouse capacity in kg"},
			{"order_cost", num(sugar.OrderCost), "cost per order"},
			{"holding_cost", num(sugar.HoldingCost), "holding cost per kg per day"},
			{"unit_cost", num(sugar.UnitCost), "acquisition cost per kg"},
			{"unit_price", num(sugar.UnitPrice), "sale price per kg"},
			{"review_days", strconv.Itoa(sugar.ReviewDays), "days between inventory reviews"},
			{"days", strconv.Itoa(sugar.Days), "days per trial"},
		},
	}
}()

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var sequenceFlags = map[congruential.Method][]paramFlag{
	congruential.MethodLinear: {
		{"x0", "", "seed X0"},
		{"a", "", "multiplier (overrides k)"},
		{"k", "", "derives a = 1 + 4k"},
		{"c", "", "increment"},
		{"m", "", "modulus"},
	},
	congruential.MethodMultiplicative: {
		{"x0", "", "seed X0"},
		{"a", "", "multiplier (overrides k)"},
		{"k", "", "derives a from the formula"},
		{"formula", "", "3 for a = 3 + 8k, 5 for a = 5 + 8k"},
		{"d", "", "numbers to generate"},
		{"g", "", "exponent of m = 2^g (derived when empty)"},
	},
}

// action runs one parsed subcommand against a simulator.
type action func(ctx context.Context, sim app.Simulator, w *output) error

// Run executes the subcommand and writes its output to out. Domain errors are
// returned with their localized message.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Command == "" {
		usage(errOut, nil)
		return errors.New("command is required")
	}
	run, err := parseCommand(cfg.Command, cfg.Args, errOut)
	if err != nil {
		return err
	}

	locale := catalog.Default().Match(cfg.Locale).String()
	w := &output{out: out, json: cfg.JSON, printer: report.New(locale)}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCLI, func(ctx context.Context) error {
		sim, closeSim, err := simulationserver.OpenSimulator(ctx, cfg.Addr, cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeSim(); err != nil {
				fmt.Fprintf(errOut, "close simulator: %v\n", err)
			}
		}()

		ctx = metadata.AppendToOutgoingContext(ctx, platformmetadata.LocaleHeader, locale)
		if err := run(ctx, sim, w); err != nil {
			return &commandError{command: cfg.Command, message: describe(err, locale), err: err}
		}
		return nil
	})
}

func parseCommand(command string, args []string, errOut io.Writer) (action, error) {
	if errOut == nil {
		errOut = io.Discard
	}
	switch command {
	case "epoch":
		return func(ctx context.Context, sim app.Simulator, w *output) error {
			epoch, err := sim.NewEpoch(ctx)
			if err != nil {
				return err
			}
			return w.write(map[string]uint32{"epoch": epoch}, func() error {
				return w.printer.Line(w.out, "report.epoch", epoch)
			})
		}, nil
	case "replay":
		fs := newFlagSet(command, errOut)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		runID := strings.TrimSpace(fs.Arg(0))
		return func(ctx context.Context, sim app.Simulator, w *output) error {
			res, err := sim.Replay(ctx, runID)
			if err != nil {
				return err
			}
			return w.result(res)
		}, nil
	case "runs":
		fs := newFlagSet(command, errOut)
		filter := fs.String("filter", "", `AIP-160 filter, e.g. model = "dice" AND epoch = 42`)
		pageSize := fs.Int("page-size", 0, "runs per page (default 20, max 100)")
		pageToken := fs.String("page-token", "", "token from a previous page")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, sim app.Simulator, w *output) error {
			page, err := sim.Runs(ctx, *filter, *pageSize, *pageToken)
			if err != nil {
				return err
			}
			return w.write(page, func() error { return w.printer.Runs(w.out, page) })
		}, nil
	}

	if method := congruential.Method(command); sequenceFlags[method] != nil {
		fs := newFlagSet(command, errOut)
		values := bindParams(fs, sequenceFlags[method])
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, sim app.Simulator, w *output) error {
			seq, err := sim.Sequence(ctx, method, values())
			if err != nil {
				return err
			}
			return w.write(seq, func() error { return w.printer.Sequence(w.out, seq) })
		}, nil
	}

	kind, err := exercise.ParseKind(command)
	if err != nil {
		usage(errOut, nil)
		return nil, err
	}
	fs := newFlagSet(command, errOut)
	values := bindParams(fs, modelFlags[kind])
	var trials *int
	if kind.Stochastic() {
		trials = fs.Int("trials", defaultTrials, "trials in the batch (1 to 30)")
	}
	epochFlag := fs.String("epoch", "", "pin the epoch instead of drawing one")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	req := app.Request{Model: kind, Params: values()}
	if trials != nil {
		req.Trials = *trials
	}
	if *epochFlag != "" {
		epoch, err := strconv.ParseUint(*epochFlag, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid -epoch %q: %w", *epochFlag, err)
		}
		pinned := uint32(epoch)
		req.Epoch = &pinned
	}
	return func(ctx context.Context, sim app.Simulator, w *output) error {
		res, err := sim.Run(ctx, req)
		if err != nil {
			return err
		}
		return w.result(res)
	}, nil
}

func newFlagSet(name string, errOut io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	return fs
}

// bindParams registers one string flag per parameter, dashes standing in for
// underscores, and returns a func collecting the non-empty values.
func bindParams(fs *flag.FlagSet, flags []paramFlag) func() params.Values {
	raw := make(map[string]*string, len(flags))
	for _, f := range flags {
		raw[f.name] = fs.String(strings.ReplaceAll(f.name, "_", "-"), f.def, f.usage)
	}
	return func() params.Values {
		values := make(params.Values, len(raw))
		for name, value := range raw {
			if v := strings.TrimSpace(*value); v != "" {
				values[name] = v
			}
		}
		return values
	}
}

type output struct {
	out     io.Writer
	json    bool
	printer *report.Printer
}

func (w *output) result(res app.Result) error {
	return w.write(res, func() error { return w.printer.Result(w.out, res) })
}

func (w *output) write(v any, text func() error) error {
	if !w.json {
		return text()
	}
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// commandError carries the localized message while keeping the cause for
// errors.Is and GetCode.
type commandError struct {
	command string
	message string
	err     error
}

func (e *commandError) Error() string { return e.command + ": " + e.message }

func (e *commandError) Unwrap() error { return e.err }

func describe(err error, locale string) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return fmt.Sprintf("%s: %s", appErr.Code, appErr.LocalizedMessage(locale))
	}
	// Remote errors carry the server's localized message as a status detail.
	if st, ok := status.FromError(err); ok {
		message, reason := st.Message(), ""
		for _, detail := range st.Details() {
			switch d := detail.(type) {
			case *errdetails.ErrorInfo:
				reason = d.GetReason()
			case *errdetails.LocalizedMessage:
				message = d.GetMessage()
			}
		}
		if reason != "" {
			return reason + ": " + message
		}
		return message
	}
	return err.Error()
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: simlab [flags] <command> [command flags]")
	fmt.Fprintln(w, "commands:")
	for _, kind := range exercise.Kinds {
		fmt.Fprintf(w, "  %s\n", kind)
	}
	fmt.Fprintf(w, "  %s\n  %s\n", congruential.MethodLinear, congruential.MethodMultiplicative)
	fmt.Fprintln(w, "  replay <run-id>\n  runs\n  epoch")
	if fs != nil {
		fmt.Fprintln(w, "flags:")
		fs.PrintDefaults()
	}
}
