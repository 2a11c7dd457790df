package simlab

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/sim/params"
)

func TestParseConfigSplitsCommand(t *testing.T) {
	t.Setenv("SIMLAB_SERVER_ADDR", "")
	t.Setenv("SIMLAB_LOCALE", "")
	fs := flag.NewFlagSet("simlab", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-json", "-locale", "es-BO", "dice", "-games", "10"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.JSON || cfg.Locale != "es-BO" {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.Command != "dice" {
		t.Fatalf("command = %q, want dice", cfg.Command)
	}
	if strings.Join(cfg.Args, " ") != "-games 10" {
		t.Fatalf("args = %v, want [-games 10]", cfg.Args)
	}
}

func TestParseConfigLocaleDefault(t *testing.T) {
	t.Setenv("SIMLAB_LOCALE", "")
	fs := flag.NewFlagSet("simlab", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Locale != "en-US" || cfg.Command != "" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestParseModelCommandUsesDefaults(t *testing.T) {
	run, err := parseCommand("sugar", []string{"-days", "10", "-review-days", "5", "-epoch", "9"}, nil)
	if err != nil {
		t.Fatalf("parse command: %v", err)
	}
	sim := &recordingSimulator{}
	if err := run(context.Background(), sim, &output{out: &bytes.Buffer{}, json: true}); err != nil {
		t.Fatalf("run: %v", err)
	}

	req := sim.request
	if req.Model != exercise.KindSugar {
		t.Fatalf("model = %q, want sugar", req.Model)
	}
	if req.Trials != 3 {
		t.Fatalf("trials = %d, want 3", req.Trials)
	}
	if req.Epoch == nil || *req.Epoch != 9 {
		t.Fatalf("epoch = %v, want 9", req.Epoch)
	}
	tcs := map[string]string{
		"days":        "10",
		"review_days": "5",
		"capacity":    "700",
		"unit_price":  "5",
	}
	for name, want := range tcs {
		if got := req.Params[name]; got != want {
			t.Fatalf("param %s = %v, want %s", name, got, want)
		}
	}
}

func TestModelFlagDefaultsMatchModels(t *testing.T) {
	tcs := []struct {
		kind   exercise.Kind
		decode func(params.Values) (any, error)
		want   any
	}{
		{exercise.KindDice, func(v params.Values) (any, error) { return params.Dice(v) }, exercise.DefaultDiceParams()},
		{exercise.KindShop, func(v params.Values) (any, error) { return params.Shop(v) }, exercise.DefaultShopParams()},
		{exercise.KindEggFarm, func(v params.Values) (any, error) { return params.EggFarm(v) }, exercise.DefaultEggFarmParams()},
		{exercise.KindSugar, func(v params.Values) (any, error) { return params.Sugar(v) }, exercise.DefaultSugarParams()},
	}
	for _, tc := range tcs {
		t.Run(string(tc.kind), func(t *testing.T) {
			run, err := parseCommand(string(tc.kind), nil, nil)
			if err != nil {
				t.Fatalf("parse command: %v", err)
			}
			sim := &recordingSimulator{}
			if err := run(context.Background(), sim, &output{out: &bytes.Buffer{}, json: true}); err != nil {
				t.Fatalf("run: %v", err)
			}
			if sim.request.Trials != defaultTrials {
				t.Fatalf("trials = %d, want %d", sim.request.Trials, defaultTrials)
			}
			got, err := tc.decode(sim.request.Params)
			if err != nil {
				t.Fatalf("decode params: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("params = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseDepositCommandLeavesRequiredUnset(t *testing.T) {
	run, err := parseCommand("deposit_fixed", []string{"-capital", "10000"}, nil)
	if err != nil {
		t.Fatalf("parse command: %v", err)
	}
	sim := &recordingSimulator{}
	if err := run(context.Background(), sim, &output{out: &bytes.Buffer{}, json: true}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := sim.request.Params["rate"]; ok {
		t.Fatalf("params = %v, want rate unset", sim.request.Params)
	}
	if sim.request.Epoch != nil {
		t.Fatalf("epoch = %v, want nil", *sim.request.Epoch)
	}
}

func TestParseCommandRejects(t *testing.T) {
	tcs := []struct {
		name    string
		command string
		args    []string
	}{
		{name: "unknown command", command: "roulette"},
		{name: "bad epoch", command: "dice", args: []string{"-epoch", "-1"}},
		{name: "epoch overflow", command: "dice", args: []string{"-epoch", "4294967296"}},
		{name: "trials on deposit", command: "deposit_variable", args: []string{"-trials", "3"}},
		{name: "unknown flag", command: "linear", args: []string{"-z", "1"}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseCommand(tc.command, tc.args, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunRequiresCommand(t *testing.T) {
	var errOut bytes.Buffer
	if err := Run(context.Background(), Config{}, nil, &errOut); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(errOut.String(), "usage: simlab") {
		t.Fatalf("usage = %q", errOut.String())
	}
}

func TestRunDiceInProcess(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "simlab.db")
	cfg := Config{
		DBPath:  dbPath,
		Locale:  "en-US",
		Command: "dice",
		Args:    []string{"-trials", "1", "-epoch", "42"},
	}

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Model: dice\n", "Epoch: 42\n", "  House gain: 100.00\n", "  House wins: 80.00\n"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	cfg.Command, cfg.Args = "runs", []string{"-filter", `model = "dice"`}
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out.String(), "  dice  epoch 42  trials 1  ") {
		t.Fatalf("runs output = %q", out.String())
	}
}

func TestRunSequenceJSON(t *testing.T) {
	cfg := Config{
		DBPath:  filepath.Join(t.TempDir(), "simlab.db"),
		JSON:    true,
		Command: "multiplicative",
		Args:    []string{"-x0", "7", "-a", "11", "-d", "5"},
	}

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	var seq struct {
		Rows []struct {
			Value int64 `json:"value"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(out.Bytes(), &seq); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if len(seq.Rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(seq.Rows))
	}
	if last := seq.Rows[len(seq.Rows)-1].Value; last != 31 {
		t.Fatalf("last = %d, want 31", last)
	}
}

func TestRunReportsLocalizedDomainError(t *testing.T) {
	cfg := Config{
		DBPath:  filepath.Join(t.TempDir(), "simlab.db"),
		Locale:  "en-US",
		Command: "deposit_fixed",
		Args:    []string{"-capital", "10000", "-years", "1"},
	}

	err := Run(context.Background(), cfg, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if code := apperrors.GetCode(err); code != apperrors.CodeParamMissing {
		t.Fatalf("code = %s, want %s", code, apperrors.CodeParamMissing)
	}
	if !strings.HasPrefix(err.Error(), "deposit_fixed: PARAM_MISSING: ") {
		t.Fatalf("error = %q", err.Error())
	}
}

func TestDescribeRemoteError(t *testing.T) {
	err := apperrors.WithMetadata(apperrors.CodeRunNotFound, "run r1 not found", map[string]string{"RunID": "r1"})
	remote := apperrors.HandleError(err, "es-BO")

	got := describe(remote, "es-BO")
	if got != "RUN_NOT_FOUND: No se encontró la corrida r1." {
		t.Fatalf("describe = %q", got)
	}
}

type recordingSimulator struct {
	app.Simulator
	request app.Request
}

func (s *recordingSimulator) Run(_ context.Context, req app.Request) (app.Result, error) {
	s.request = req
	return app.Result{Model: req.Model}, nil
}
