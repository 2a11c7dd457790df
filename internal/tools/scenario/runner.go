// Package scenario loads Lua scenario scripts and runs their steps against a
// simulator, writing a localized report.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"slices"
	"time"

	"github.com/louisbranch/simlab/internal/platform/timeouts"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/services/simulation/report"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/sim/params"
)

// AssertionMode selects how failed expectations are handled.
type AssertionMode int

const (
	// AssertionStrict stops the scenario at the first failed expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs failed expectations and keeps going.
	AssertionLogOnly
)

const (
	argTrials    = "trials"
	argExpect    = "expect"
	argTolerance = "tolerance"

	defaultTolerance = 1e-6
)

// Config controls scenario execution.
type Config struct {
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Locale     string
	Logger     *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    timeouts.ScenarioStep,
		Assertions: AssertionStrict,
	}
}

// Runner executes scenarios through a simulator.
type Runner struct {
	sim        app.Simulator
	printer    *report.Printer
	assertions AssertionMode
	logger     *log.Logger
	verbose    bool
	timeout    time.Duration
}

// Outcome is the result of one step. Epoch steps carry neither output.
type Outcome struct {
	Step     int
	Kind     string
	Result   *app.Result
	Sequence *congruential.Sequence
	Failures []string
}

// Report collects the outcomes of a scenario run.
type Report struct {
	Name     string
	Outcomes []Outcome
}

// Failed reports whether any expectation failed.
func (r Report) Failed() bool {
	for _, outcome := range r.Outcomes {
		if len(outcome.Failures) > 0 {
			return true
		}
	}
	return false
}

// NewRunner prepares a runner. Defaults for the logger and timeout are
// applied here.
func NewRunner(sim app.Simulator, cfg Config) (*Runner, error) {
	if sim == nil {
		return nil, errors.New("simulator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = timeouts.ScenarioStep
	}
	return &Runner{
		sim:        sim,
		printer:    report.New(cfg.Locale),
		assertions: cfg.Assertions,
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
	}, nil
}

// RunFile loads and executes a scenario file.
func (r *Runner) RunFile(ctx context.Context, path string, out io.Writer) (Report, error) {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return Report{}, err
	}
	return r.RunScenario(ctx, scenario, out)
}

// RunScenario executes the steps in order and writes each output to out.
// An epoch step pins the epoch for later steps; without one, a single epoch
// is drawn at the first model step and shared by the rest.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario, out io.Writer) (Report, error) {
	if scenario == nil {
		return Report{}, errors.New("scenario is required")
	}
	if out == nil {
		out = io.Discard
	}
	rep := Report{Name: scenario.Name}
	if err := r.printer.Line(out, "report.scenario", scenario.Name); err != nil {
		return rep, err
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))

	var epoch *uint32
	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()

		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		outcome, err := r.runStep(stepCtx, &epoch, step)
		cancel()
		if err != nil {
			return rep, fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		outcome.Step = stepNumber
		rep.Outcomes = append(rep.Outcomes, outcome)

		if err := r.writeOutcome(out, outcome); err != nil {
			return rep, err
		}
		if len(outcome.Failures) > 0 && r.assertions == AssertionStrict {
			return rep, fmt.Errorf("step %d (%s): %s", stepNumber, step.Kind, outcome.Failures[0])
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return rep, nil
}

func (r *Runner) runStep(ctx context.Context, epoch **uint32, step Step) (Outcome, error) {
	outcome := Outcome{Kind: step.Kind}
	if step.Kind == stepEpoch {
		value, ok := step.Args["epoch"].(uint32)
		if !ok {
			return outcome, invalid("epoch step has no epoch", nil)
		}
		*epoch = &value
		return outcome, nil
	}

	values, expect, tolerance, err := splitArgs(step.Args)
	if err != nil {
		return outcome, err
	}

	switch method := congruential.Method(step.Kind); method {
	case congruential.MethodLinear, congruential.MethodMultiplicative:
		seq, err := r.sim.Sequence(ctx, method, values)
		if err != nil {
			return outcome, err
		}
		outcome.Sequence = &seq
		outcome.Failures, err = r.check(expect, tolerance, func(name string) (float64, bool) {
			return sequenceValue(seq, name)
		})
		return outcome, err
	}

	kind, err := exercise.ParseKind(step.Kind)
	if err != nil {
		return outcome, err
	}
	if *epoch == nil {
		drawn, err := r.sim.NewEpoch(ctx)
		if err != nil {
			return outcome, fmt.Errorf("draw epoch: %w", err)
		}
		*epoch = &drawn
	}
	req := app.Request{Model: kind, Epoch: *epoch, Params: values}
	if kind.Stochastic() {
		trials, err := values.Int(argTrials)
		if err != nil {
			return outcome, err
		}
		req.Trials = int(trials)
		delete(req.Params, argTrials)
	}
	res, err := r.sim.Run(ctx, req)
	if err != nil {
		return outcome, err
	}
	outcome.Result = &res
	outcome.Failures, err = r.check(expect, tolerance, func(name string) (float64, bool) {
		return resultValue(res, name)
	})
	return outcome, err
}

// splitArgs separates model parameters from the runner's own keys.
func splitArgs(args map[string]any) (params.Values, map[string]any, float64, error) {
	values := make(params.Values, len(args))
	for key, value := range args {
		values[key] = value
	}

	var expect map[string]any
	if raw, ok := values[argExpect]; ok {
		expect, ok = raw.(map[string]any)
		if !ok {
			return nil, nil, 0, invalid("expect must be a table", nil)
		}
		delete(values, argExpect)
	}

	tolerance := defaultTolerance
	if values.Has(argTolerance) {
		t, err := values.Float(argTolerance)
		if err != nil || t < 0 {
			return nil, nil, 0, invalid("tolerance must be a non-negative number", nil)
		}
		tolerance = t
		delete(values, argTolerance)
	}
	return values, expect, tolerance, nil
}

// check compares every expectation against observe. Unknown names make the
// scenario invalid; mismatches are returned as failures.
func (r *Runner) check(expect map[string]any, tolerance float64, observe func(string) (float64, bool)) ([]string, error) {
	names := make([]string, 0, len(expect))
	for name := range expect {
		names = append(names, name)
	}
	slices.Sort(names)

	var failures []string
	for _, name := range names {
		want, err := params.Values(expect).Float(name)
		if err != nil {
			return nil, invalid(fmt.Sprintf("expect %s must be a number", name), nil)
		}
		got, ok := observe(name)
		if !ok {
			return nil, invalid(fmt.Sprintf("expect %s names no output", name), nil)
		}
		if math.Abs(got-want) > tolerance {
			failure := r.printer.Sprintf("report.expect.failed", name, want, got)
			r.logger.Print(failure)
			failures = append(failures, failure)
		}
	}
	return failures, nil
}

func (r *Runner) writeOutcome(out io.Writer, outcome Outcome) error {
	if outcome.Result == nil && outcome.Sequence == nil {
		return nil
	}
	if err := r.printer.Line(out, "report.step", outcome.Step, outcome.Kind); err != nil {
		return err
	}
	if outcome.Sequence != nil {
		if err := r.printer.Sequence(out, *outcome.Sequence); err != nil {
			return err
		}
	} else if err := r.printer.Result(out, *outcome.Result); err != nil {
		return err
	}
	for _, failure := range outcome.Failures {
		if _, err := fmt.Fprintln(out, failure); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

// resultValue exposes deposit totals and aggregate means by name.
func resultValue(res app.Result, name string) (float64, bool) {
	if res.Deposit != nil {
		switch name {
		case "final":
			return res.Deposit.Final, true
		case "rate":
			return res.Deposit.Rate, true
		}
		return 0, false
	}
	agg := res.Aggregate()
	if agg == nil {
		return 0, false
	}
	if name == "predicate_rate" {
		if agg.PredicateRate == nil {
			return 0, false
		}
		return *agg.PredicateRate, true
	}
	return agg.Mean(name)
}

func sequenceValue(seq congruential.Sequence, name string) (float64, bool) {
	switch name {
	case "period":
		return float64(seq.Period()), true
	case "rows":
		return float64(len(seq.Rows)), true
	case "multiplier":
		return float64(seq.Multiplier), true
	case "modulus":
		return float64(seq.Modulus), true
	case "last":
		if len(seq.Rows) == 0 {
			return 0, false
		}
		return float64(seq.Rows[len(seq.Rows)-1].Value), true
	case "warnings":
		return float64(len(seq.Warnings)), true
	}
	return 0, false
}
