package app

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/sim/params"
	"github.com/louisbranch/simlab/internal/storage/sqlite"
)

var fixedNow = time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "simlab.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	seq := 0
	svc := NewService(store,
		WithClock(func() time.Time { return fixedNow }),
		WithEpochSource(func() (uint32, error) { return 42, nil }),
		WithIDGenerator(func() (string, error) {
			seq++
			return "run-" + string(rune('0'+seq)), nil
		}),
	)
	return svc, store
}

func diceValues() params.Values {
	return params.Values{"games": 100, "price": 2, "cost7": 5}
}

func TestRunDiceJournalsAndReplays(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.Run(ctx, Request{Model: exercise.KindDice, Trials: 1, Params: diceValues()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.RunID != "run-1" || res.Epoch != 42 || res.Trials != 1 {
		t.Fatalf("result header = (%q, %d, %d), want (run-1, 42, 1)", res.RunID, res.Epoch, res.Trials)
	}
	if res.Dice == nil {
		t.Fatal("expected dice batch")
	}
	summary := res.Dice.Trials[0].Summary
	if summary.HouseGain != 100 || summary.HouseWins != 80 {
		t.Fatalf("summary = %+v, want gain 100 wins 80", summary)
	}
	if mean, ok := res.Aggregate().Mean("house_gain"); !ok || mean != 100 {
		t.Fatalf("aggregate house_gain = (%v, %v), want (100, true)", mean, ok)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Model != "dice" || run.Epoch != 42 || run.Trials != 1 || !run.CreatedAt.Equal(fixedNow) {
		t.Fatalf("journaled run = %+v", run)
	}

	replay, err := svc.Replay(ctx, "run-1")
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if replay.RunID != "run-1" {
		t.Fatalf("replay RunID = %q, want run-1", replay.RunID)
	}
	if !reflect.DeepEqual(replay.Dice, res.Dice) {
		t.Fatal("replay diverged from the original batch")
	}

	page, err := svc.Runs(ctx, "", 0, "")
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(page.Runs) != 1 {
		t.Fatalf("runs = %d, want 1 (replay must not journal)", len(page.Runs))
	}
}

func TestRunPinnedEpoch(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, WithEpochSource(func() (uint32, error) {
		t.Fatal("epoch source must not be called for a pinned epoch")
		return 0, nil
	}))
	epoch := uint32(7)
	res, err := svc.Run(context.Background(), Request{
		Model:  exercise.KindShop,
		Epoch:  &epoch,
		Trials: 2,
		Params: params.Values{"hours": 10, "unit_cost": 50, "unit_price": 75, "fixed_cost": 300},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Epoch != 7 || res.RunID != "" {
		t.Fatalf("result = (%d, %q), want (7, \"\")", res.Epoch, res.RunID)
	}
	if len(res.Shop.Trials) != 2 {
		t.Fatalf("trials = %d, want 2", len(res.Shop.Trials))
	}
}

func TestRunDepositIgnoresTrials(t *testing.T) {
	t.Parallel()

	svc := NewService(nil)
	res, err := svc.Run(context.Background(), Request{
		Model:  exercise.KindDepositFixed,
		Params: params.Values{"capital": 1000, "rate": 10, "years": 2},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Deposit == nil || res.Trials != 0 || res.Aggregate() != nil {
		t.Fatalf("result = %+v, want deposit only", res)
	}
	if len(res.Deposit.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Deposit.Rows))
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		req  Request
		want apperrors.Code
	}{
		{
			name: "unknown model",
			req:  Request{Model: "roulette", Trials: 1},
			want: apperrors.CodeModelUnknown,
		},
		{
			name: "zero trials",
			req:  Request{Model: exercise.KindDice, Trials: 0, Params: diceValues()},
			want: apperrors.CodeTrialCountOutOfRange,
		},
		{
			name: "too many trials",
			req:  Request{Model: exercise.KindDice, Trials: 31, Params: diceValues()},
			want: apperrors.CodeTrialCountOutOfRange,
		},
		{
			name: "missing param",
			req:  Request{Model: exercise.KindEggFarm, Trials: 1, Params: params.Values{"days": 30}},
			want: apperrors.CodeParamMissing,
		},
		{
			name: "games beyond period bound",
			req:  Request{Model: exercise.KindDice, Trials: 1, Params: params.Values{"games": 1e15, "price": 2, "cost7": 5}},
			want: apperrors.CodeParamOutOfRange,
		},
		{
			name: "years beyond period bound",
			req:  Request{Model: exercise.KindDepositFixed, Params: params.Values{"capital": 10, "rate": 5, "years": 1e12}},
			want: apperrors.CodeParamOutOfRange,
		},
		{
			name: "bad param",
			req:  Request{Model: exercise.KindDepositVariable, Params: params.Values{"capital": -1, "years": 3}},
			want: apperrors.CodeParamOutOfRange,
		},
	}

	svc, _ := newTestService(t)
	for _, tc := range tcs {
		_, err := svc.Run(context.Background(), tc.req)
		if got := apperrors.GetCode(err); got != tc.want {
			t.Fatalf("%s: code = %s, want %s", tc.name, got, tc.want)
		}
	}

	page, err := svc.Runs(context.Background(), "", 10, "")
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(page.Runs) != 0 {
		t.Fatalf("runs = %d, want 0 after failed requests", len(page.Runs))
	}
}

func TestReplayErrors(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	if _, err := svc.Replay(context.Background(), "  "); apperrors.GetCode(err) != apperrors.CodeRunIDEmpty {
		t.Fatalf("empty id error = %v, want %s", err, apperrors.CodeRunIDEmpty)
	}
	if _, err := svc.Replay(context.Background(), "missing"); apperrors.GetCode(err) != apperrors.CodeRunNotFound {
		t.Fatalf("missing run error = %v, want %s", err, apperrors.CodeRunNotFound)
	}
	if _, err := NewService(nil).Replay(context.Background(), "run-1"); err == nil {
		t.Fatal("expected error without a journal")
	}
}

func TestRunsFilter(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Run(ctx, Request{Model: exercise.KindDice, Trials: 1, Params: diceValues()}); err != nil {
		t.Fatalf("Run(dice) error = %v", err)
	}
	if _, err := svc.Run(ctx, Request{Model: exercise.KindDepositFixed, Params: params.Values{"capital": 500, "rate": 5, "years": 1}}); err != nil {
		t.Fatalf("Run(deposit) error = %v", err)
	}

	page, err := svc.Runs(ctx, `model = "deposit_fixed"`, 0, "")
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(page.Runs) != 1 || page.Runs[0].ID != "run-2" {
		t.Fatalf("runs = %+v, want run-2 only", page.Runs)
	}

	page, err = svc.Runs(ctx, "", 1, "")
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(page.Runs) != 1 || page.Runs[0].ID != "run-1" || page.NextPageToken == "" {
		t.Fatalf("first page = %+v, want run-1 and a token", page)
	}

	next, err := svc.Runs(ctx, "", 1, page.NextPageToken)
	if err != nil {
		t.Fatalf("Runs(next) error = %v", err)
	}
	if len(next.Runs) != 1 || next.Runs[0].ID != "run-2" || next.NextPageToken != "" {
		t.Fatalf("second page = %+v, want run-2 only", next)
	}

	if _, err := svc.Runs(ctx, "", 1, "run-1"); apperrors.GetCode(err) != apperrors.CodePageTokenInvalid {
		t.Fatalf("invalid token error = %v, want %s", err, apperrors.CodePageTokenInvalid)
	}

	if _, err := svc.Runs(ctx, `model = `, 0, ""); apperrors.GetCode(err) != apperrors.CodeFilterInvalid {
		t.Fatalf("invalid filter error = %v, want %s", err, apperrors.CodeFilterInvalid)
	}
}

func TestSequence(t *testing.T) {
	t.Parallel()

	svc := NewService(nil)
	seq, err := svc.Sequence(context.Background(), congruential.MethodLinear,
		params.Values{"x0": 5, "k": 1, "c": 3, "m": 16})
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	want := []int64{12, 15, 14, 9, 0, 3, 2, 13, 4, 7, 6, 1, 8, 11, 10, 5, 12}
	if len(seq.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(seq.Rows), len(want))
	}
	for i, row := range seq.Rows {
		if row.Value != want[i] {
			t.Fatalf("row %d = %d, want %d", i, row.Value, want[i])
		}
	}

	_, err = svc.Sequence(context.Background(), "quadratic", params.Values{})
	if apperrors.GetCode(err) != apperrors.CodeSequenceMethodUnknown {
		t.Fatalf("unknown method error = %v, want %s", err, apperrors.CodeSequenceMethodUnknown)
	}
}
