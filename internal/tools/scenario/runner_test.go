package scenario

import (
	"bytes"
	"context"
	"io"
	"log"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
)

// newTestRunner returns a runner over an in-process service whose epoch
// source always yields 42, plus a counter of epoch draws.
func newTestRunner(t *testing.T, mode AssertionMode) (*Runner, *int) {
	t.Helper()
	draws := 0
	svc := app.NewService(nil, app.WithEpochSource(func() (uint32, error) {
		draws++
		return 42, nil
	}))
	runner, err := NewRunner(svc, Config{Assertions: mode, Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runner, &draws
}

func TestRunFileWritesReport(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("tour")
scene:deposit_fixed({capital = 10000, rate = 5, years = 1, expect = {final = 10500}})
scene:dice({games = 100, price = 2, cost7 = 5, trials = 1, expect = {house_gain = 100, house_wins = 80}})
scene:linear({x0 = 5, a = 5, c = 3, m = 16, expect = {period = 16, rows = 17}})
scene:multiplicative({x0 = 7, a = 11, d = 5, expect = {last = 31, rows = 6}})
return scene
`)
	runner, draws := newTestRunner(t, AssertionStrict)

	var out bytes.Buffer
	rep, err := runner.RunFile(context.Background(), path, &out)
	if err != nil {
		t.Fatalf("run file: %v", err)
	}
	if rep.Name != "tour" || len(rep.Outcomes) != 4 || rep.Failed() {
		t.Fatalf("report = %+v", rep)
	}
	if *draws != 1 {
		t.Fatalf("epoch draws = %d, want 1", *draws)
	}
	dice := rep.Outcomes[1].Result
	if dice == nil || dice.Epoch != 42 || dice.Trials != 1 {
		t.Fatalf("dice result = %+v, want epoch 42 and 1 trial", dice)
	}

	text := out.String()
	for _, want := range []string{
		"Scenario tour\n",
		"Step 1: deposit_fixed\n",
		"Final balance: 10,500.00\n",
		"Step 2: dice\n",
		"  House gain: 100.00\n",
		"Step 3: linear\n",
		"Period: 16\n",
		"Step 4: multiplicative\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestRunScenarioPinnedEpoch(t *testing.T) {
	runner, draws := newTestRunner(t, AssertionStrict)
	scenario := &Scenario{Name: "pinned", Steps: []Step{
		{Kind: "epoch", Args: map[string]any{"epoch": uint32(7)}},
		{Kind: "shop", Args: map[string]any{"hours": 3, "unit_cost": 10, "unit_price": 25, "fixed_cost": 100, "trials": 2}},
	}}

	rep, err := runner.RunScenario(context.Background(), scenario, nil)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if *draws != 0 {
		t.Fatalf("epoch draws = %d, want 0", *draws)
	}
	shop := rep.Outcomes[1].Result
	if shop == nil || shop.Epoch != 7 || len(shop.Shop.Trials) != 2 {
		t.Fatalf("shop result = %+v, want epoch 7 and 2 trials", shop)
	}
}

func TestRunScenarioAssertions(t *testing.T) {
	steps := []Step{
		{Kind: "deposit_fixed", Args: map[string]any{"capital": 10000, "rate": 5, "years": 1,
			"expect": map[string]any{"final": 1}}},
		{Kind: "deposit_variable", Args: map[string]any{"capital": 10000, "years": 1}},
	}

	t.Run("strict stops", func(t *testing.T) {
		runner, _ := newTestRunner(t, AssertionStrict)
		rep, err := runner.RunScenario(context.Background(), &Scenario{Name: "strict", Steps: steps}, nil)
		if err == nil || !strings.Contains(err.Error(), "Expectation final failed") {
			t.Fatalf("error = %v, want expectation failure", err)
		}
		if len(rep.Outcomes) != 1 || !rep.Failed() {
			t.Fatalf("report = %+v, want one failed outcome", rep)
		}
	})

	t.Run("log only continues", func(t *testing.T) {
		runner, _ := newTestRunner(t, AssertionLogOnly)
		var out bytes.Buffer
		rep, err := runner.RunScenario(context.Background(), &Scenario{Name: "soft", Steps: steps}, &out)
		if err != nil {
			t.Fatalf("run scenario: %v", err)
		}
		if len(rep.Outcomes) != 2 || !rep.Failed() {
			t.Fatalf("report = %+v, want two outcomes with a failure", rep)
		}
		if !strings.Contains(out.String(), "Expectation final failed: want 1.0000, got 10,500.0000") {
			t.Fatalf("report missing failure:\n%s", out.String())
		}
	})
}

func TestRunScenarioTolerance(t *testing.T) {
	runner, _ := newTestRunner(t, AssertionStrict)
	scenario := &Scenario{Name: "tolerance", Steps: []Step{
		{Kind: "deposit_fixed", Args: map[string]any{"capital": 10000, "rate": 5, "years": 1,
			"expect": map[string]any{"final": 10499}, "tolerance": 2}},
	}}
	if _, err := runner.RunScenario(context.Background(), scenario, nil); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
}

func TestRunScenarioErrors(t *testing.T) {
	dice := func(extra map[string]any) map[string]any {
		args := map[string]any{"games": 10, "price": 2, "cost7": 5, "trials": 1}
		for k, v := range extra {
			args[k] = v
		}
		return args
	}
	tcs := []struct {
		name string
		step Step
		code apperrors.Code
	}{
		{"unknown expectation", Step{Kind: "dice", Args: dice(map[string]any{"expect": map[string]any{"nope": 1}})}, apperrors.CodeScenarioInvalid},
		{"expect not a table", Step{Kind: "dice", Args: dice(map[string]any{"expect": 5})}, apperrors.CodeScenarioInvalid},
		{"expect not a number", Step{Kind: "dice", Args: dice(map[string]any{"expect": map[string]any{"house_gain": "lots"}})}, apperrors.CodeScenarioInvalid},
		{"negative tolerance", Step{Kind: "dice", Args: dice(map[string]any{"tolerance": -1})}, apperrors.CodeScenarioInvalid},
		{"missing trials", Step{Kind: "dice", Args: map[string]any{"games": 10, "price": 2, "cost7": 5}}, apperrors.CodeParamMissing},
		{"too many trials", Step{Kind: "dice", Args: dice(map[string]any{"trials": 31})}, apperrors.CodeTrialCountOutOfRange},
		{"unknown model", Step{Kind: "roulette", Args: map[string]any{}}, apperrors.CodeModelUnknown},
		{"bad epoch step", Step{Kind: "epoch", Args: map[string]any{}}, apperrors.CodeScenarioInvalid},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			runner, _ := newTestRunner(t, AssertionStrict)
			_, err := runner.RunScenario(context.Background(), &Scenario{Name: "errors", Steps: []Step{tc.step}}, nil)
			if got := apperrors.GetCode(err); got != tc.code {
				t.Fatalf("code = %s, want %s (err %v)", got, tc.code, err)
			}
			if !strings.HasPrefix(err.Error(), "step 1 (") {
				t.Fatalf("error = %q, want step prefix", err.Error())
			}
		})
	}
}

func TestNewRunnerRequiresSimulator(t *testing.T) {
	if _, err := NewRunner(nil, DefaultConfig()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunScenarioRequiresScenario(t *testing.T) {
	runner, _ := newTestRunner(t, AssertionStrict)
	if _, err := runner.RunScenario(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error")
	}
}
