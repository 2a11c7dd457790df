package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/sim/params"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SimulateInput represents the MCP tool input for one batch.
type SimulateInput struct {
	Model  string         `json:"model" jsonschema:"model kind: dice, shop, egg_farm, sugar, deposit_fixed or deposit_variable"`
	Epoch  *uint32        `json:"epoch,omitempty" jsonschema:"optional epoch to reproduce a previous batch"`
	Trials int            `json:"trials,omitempty" jsonschema:"number of trials between 1 and 30, ignored by deposits"`
	Params map[string]any `json:"params" jsonschema:"model parameters keyed by name"`
}

// SimulateResult is the batch result.
type SimulateResult = app.Result

// LinearInput represents the MCP tool input for the linear method.
type LinearInput struct {
	X0 int64  `json:"x0" jsonschema:"seed value"`
	K  *int64 `json:"k,omitempty" jsonschema:"derives a = 1 + 4k when a is absent"`
	A  *int64 `json:"a,omitempty" jsonschema:"explicit multiplier"`
	C  int64  `json:"c" jsonschema:"increment"`
	M  int64  `json:"m" jsonschema:"modulus"`
}

// MultiplicativeInput represents the MCP tool input for the multiplicative method.
type MultiplicativeInput struct {
	X0      int64  `json:"x0" jsonschema:"seed value, preferably odd"`
	D       int    `json:"d" jsonschema:"number of values to generate"`
	K       *int64 `json:"k,omitempty" jsonschema:"derives a = 8k + 3 or 8k + 5 when a is absent"`
	A       *int64 `json:"a,omitempty" jsonschema:"explicit multiplier"`
	Formula *int   `json:"formula,omitempty" jsonschema:"3 or 5, selects the multiplier form"`
	G       *int   `json:"g,omitempty" jsonschema:"exponent of the modulus m = 2^g"`
}

// SequenceResult is a congruential sequence with its period.
type SequenceResult struct {
	Sequence congruential.Sequence `json:"sequence" jsonschema:"generated table with parameters and warnings"`
	Period   int                   `json:"period" jsonschema:"steps until a value repeats, 0 if none within the rows"`
}

// DepositInput represents the MCP tool input for a deposit schedule.
type DepositInput struct {
	Kind    string   `json:"kind" jsonschema:"fixed or variable"`
	Capital float64  `json:"capital" jsonschema:"opening capital"`
	Rate    *float64 `json:"rate,omitempty" jsonschema:"annual rate in percent, required for fixed deposits"`
	Years   int      `json:"years" jsonschema:"number of years to compound"`
}

// DepositResult is a deposit schedule.
type DepositResult struct {
	Model   exercise.Kind    `json:"model" jsonschema:"deposit kind that ran"`
	Deposit exercise.Deposit `json:"deposit" jsonschema:"year by year schedule"`
}

// NewEpochInput is empty.
type NewEpochInput struct{}

// NewEpochResult carries a fresh epoch.
type NewEpochResult struct {
	Epoch uint32 `json:"epoch" jsonschema:"epoch to pass to simulate"`
}

// ReplayInput represents the MCP tool input for replaying a run.
type ReplayInput struct {
	RunID string `json:"run_id" jsonschema:"journaled run identifier"`
}

// ListRunsInput represents the MCP tool input for listing journaled runs.
type ListRunsInput struct {
	Filter    string `json:"filter,omitempty" jsonschema:"AIP-160 filter over model, epoch, trials and created_at"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum runs to return"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// RunSummary describes one journaled run.
type RunSummary struct {
	ID        string `json:"id" jsonschema:"run identifier"`
	Model     string `json:"model" jsonschema:"model kind"`
	Epoch     uint32 `json:"epoch" jsonschema:"recorded epoch"`
	Trials    int    `json:"trials" jsonschema:"recorded trial count"`
	CreatedAt string `json:"created_at" jsonschema:"RFC 3339 timestamp"`
}

// ListRunsResult is one page of journaled runs.
type ListRunsResult struct {
	Runs          []RunSummary `json:"runs" jsonschema:"journaled runs in ID order"`
	NextPageToken string       `json:"next_page_token,omitempty" jsonschema:"token for the next page"`
}

// SimulateTool defines the MCP tool schema for simulations.
func SimulateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "simulate",
		Description: "Runs a batch of trials of a teaching model and returns every row, summary and the cross-trial aggregate",
	}
}

// LinearTool defines the MCP tool schema for the linear congruential method.
func LinearTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "congruential_linear",
		Description: "Generates the full table of the linear congruential method",
	}
}

// MultiplicativeTool defines the MCP tool schema for the multiplicative method.
func MultiplicativeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "congruential_multiplicative",
		Description: "Generates the table of the multiplicative congruential method",
	}
}

// DepositTool defines the MCP tool schema for deposit schedules.
func DepositTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "deposit",
		Description: "Compounds a fixed or tiered-rate deposit year by year",
	}
}

// NewEpochTool defines the MCP tool schema for epochs.
func NewEpochTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "new_epoch",
		Description: "Draws a fresh epoch for independent batches",
	}
}

// ReplayTool defines the MCP tool schema for replays.
func ReplayTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "replay_run",
		Description: "Recomputes a journaled run bit for bit from its recorded inputs",
	}
}

// ListRunsTool defines the MCP tool schema for the run journal.
func ListRunsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_runs",
		Description: "Lists journaled runs",
	}
}

// SimulateHandler runs one batch.
func SimulateHandler(sim app.Simulator) mcp.ToolHandlerFor[SimulateInput, SimulateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SimulateInput) (*mcp.CallToolResult, SimulateResult, error) {
		res, err := sim.Run(ctx, app.Request{
			Model:  exercise.Kind(input.Model),
			Epoch:  input.Epoch,
			Trials: input.Trials,
			Params: params.Values(input.Params),
		})
		if err != nil {
			return nil, SimulateResult{}, toolError("simulate", err)
		}
		return &mcp.CallToolResult{}, res, nil
	}
}

// LinearHandler runs the linear congruential method.
func LinearHandler(sim app.Simulator) mcp.ToolHandlerFor[LinearInput, SequenceResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LinearInput) (*mcp.CallToolResult, SequenceResult, error) {
		values := params.Values{"x0": input.X0, "c": input.C, "m": input.M}
		setOptional(values, "k", input.K)
		setOptional(values, "a", input.A)
		return sequence(ctx, sim, congruential.MethodLinear, values)
	}
}

// MultiplicativeHandler runs the multiplicative congruential method.
func MultiplicativeHandler(sim app.Simulator) mcp.ToolHandlerFor[MultiplicativeInput, SequenceResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MultiplicativeInput) (*mcp.CallToolResult, SequenceResult, error) {
		values := params.Values{"x0": input.X0, "d": input.D}
		setOptional(values, "k", input.K)
		setOptional(values, "a", input.A)
		setOptional(values, "formula", input.Formula)
		setOptional(values, "g", input.G)
		return sequence(ctx, sim, congruential.MethodMultiplicative, values)
	}
}

// DepositHandler computes a deposit schedule.
func DepositHandler(sim app.Simulator) mcp.ToolHandlerFor[DepositInput, DepositResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DepositInput) (*mcp.CallToolResult, DepositResult, error) {
		var kind exercise.Kind
		switch strings.ToLower(strings.TrimSpace(input.Kind)) {
		case "fixed", string(exercise.KindDepositFixed):
			kind = exercise.KindDepositFixed
		case "variable", string(exercise.KindDepositVariable):
			kind = exercise.KindDepositVariable
		default:
			return nil, DepositResult{}, fmt.Errorf("deposit kind %q must be fixed or variable", input.Kind)
		}
		values := params.Values{"capital": input.Capital, "years": input.Years}
		setOptional(values, "rate", input.Rate)

		res, err := sim.Run(ctx, app.Request{Model: kind, Params: values})
		if err != nil {
			return nil, DepositResult{}, toolError("deposit", err)
		}
		if res.Deposit == nil {
			return nil, DepositResult{}, errors.New("deposit response is missing")
		}
		return &mcp.CallToolResult{}, DepositResult{Model: res.Model, Deposit: *res.Deposit}, nil
	}
}

// NewEpochHandler draws an epoch.
func NewEpochHandler(sim app.Simulator) mcp.ToolHandlerFor[NewEpochInput, NewEpochResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ NewEpochInput) (*mcp.CallToolResult, NewEpochResult, error) {
		epoch, err := sim.NewEpoch(ctx)
		if err != nil {
			return nil, NewEpochResult{}, toolError("new epoch", err)
		}
		return &mcp.CallToolResult{}, NewEpochResult{Epoch: epoch}, nil
	}
}

// ReplayHandler recomputes a journaled run.
func ReplayHandler(sim app.Simulator) mcp.ToolHandlerFor[ReplayInput, SimulateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ReplayInput) (*mcp.CallToolResult, SimulateResult, error) {
		res, err := sim.Replay(ctx, input.RunID)
		if err != nil {
			return nil, SimulateResult{}, toolError("replay", err)
		}
		return &mcp.CallToolResult{}, res, nil
	}
}

// ListRunsHandler pages through the run journal.
func ListRunsHandler(sim app.Simulator) mcp.ToolHandlerFor[ListRunsInput, ListRunsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListRunsInput) (*mcp.CallToolResult, ListRunsResult, error) {
		page, err := sim.Runs(ctx, input.Filter, input.PageSize, input.PageToken)
		if err != nil {
			return nil, ListRunsResult{}, toolError("list runs", err)
		}
		out := ListRunsResult{Runs: make([]RunSummary, 0, len(page.Runs)), NextPageToken: page.NextPageToken}
		for _, run := range page.Runs {
			out.Runs = append(out.Runs, RunSummary{
				ID:        run.ID,
				Model:     run.Model,
				Epoch:     run.Epoch,
				Trials:    run.Trials,
				CreatedAt: run.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			})
		}
		return &mcp.CallToolResult{}, out, nil
	}
}

func sequence(ctx context.Context, sim app.Simulator, method congruential.Method, values params.Values) (*mcp.CallToolResult, SequenceResult, error) {
	seq, err := sim.Sequence(ctx, method, values)
	if err != nil {
		return nil, SequenceResult{}, toolError(string(method), err)
	}
	return &mcp.CallToolResult{}, SequenceResult{Sequence: seq, Period: seq.Period()}, nil
}

func setOptional[T any](values params.Values, name string, v *T) {
	if v != nil {
		values[name] = *v
	}
}

// toolError renders domain errors with their code and user-facing message so
// the calling model can correct its input.
func toolError(op string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return fmt.Errorf("%s failed: %s: %s", op, appErr.Code, appErr.LocalizedMessage(apperrors.DefaultLocale))
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
