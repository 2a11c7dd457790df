// Package engine runs independent trials of a period-stepped model.
//
// A model names its randomness sources, its period count, its initial state,
// a transition that emits one row per period, and a reduction into a summary.
// The engine derives per-trial seeds from an epoch, owns the generators, and
// keeps trials isolated from one another.
package engine

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// MinTrials is the smallest accepted batch.
	MinTrials = 1
	// MaxTrials is the largest accepted batch.
	MaxTrials = 30
)

// Model is a stochastic process stepped period by period.
//
// S is the per-trial state, R the row emitted per period and T the summary.
// Step must draw from streams in a fixed order so trials are reproducible.
type Model[S, R, T any] interface {
	Name() string
	Sources() []Source
	Periods() int
	Init() S
	Step(period int, state S, streams Streams) (S, R)
	Summarize(state S) T
}

// Trial is one completed run.
type Trial[R, T any] struct {
	Index   int      `json:"index"`
	Seeds   []uint32 `json:"seeds"`
	Rows    []R      `json:"rows"`
	Summary T        `json:"summary"`
}

// CheckTrials validates a requested batch size.
func CheckTrials(n int) error {
	if n < MinTrials || n > MaxTrials {
		return apperrors.WithMetadata(apperrors.CodeTrialCountOutOfRange,
			fmt.Sprintf("trial count %d outside [%d, %d]", n, MinTrials, MaxTrials),
			map[string]string{"Trials": strconv.Itoa(n)})
	}
	return nil
}

// Run executes trialCount independent trials of model under epoch.
//
// No partial batch is returned: on an invalid trial count nothing runs, and
// when ctx ends between trials the batch is abandoned with a BATCH_CANCELED
// error wrapping ctx.Err().
func Run[S, R, T any](ctx context.Context, model Model[S, R, T], epoch uint32, trialCount int) ([]Trial[R, T], error) {
	ctx, span := otel.Tracer().Start(ctx, "engine.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("simlab.model", model.Name()),
		attribute.Int64("simlab.epoch", int64(epoch)),
		attribute.Int("simlab.trials", trialCount),
	)

	if err := CheckTrials(trialCount); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sources := model.Sources()
	periods := model.Periods()
	trials := make([]Trial[R, T], 0, trialCount)
	for s := 0; s < trialCount; s++ {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, apperrors.Wrap(apperrors.CodeBatchCanceled,
				fmt.Sprintf("batch canceled after %d of %d trials", s, trialCount), err)
		}
		trials = append(trials, RunTrial(model, sources, periods, epoch, s))
	}
	return trials, nil
}

// RunTrial executes trial index s. It shares no state with other trials.
func RunTrial[S, R, T any](model Model[S, R, T], sources []Source, periods int, epoch uint32, s int) Trial[R, T] {
	seeds := Seeds(sources, epoch, s)
	streams := newStreams(seeds)
	state := model.Init()
	rows := make([]R, 0, max(0, periods))
	for period := 1; period <= periods; period++ {
		var row R
		state, row = model.Step(period, state, streams)
		rows = append(rows, row)
	}
	return Trial[R, T]{
		Index:   s,
		Seeds:   seeds,
		Rows:    rows,
		Summary: model.Summarize(state),
	}
}
