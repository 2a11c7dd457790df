// Package app is the simulation service shared by every transport.
//
// It dispatches a request to the model it names, supplies a fresh epoch when
// the caller does not pin one, and journals the run inputs so the same batch
// can be recomputed later. Results are returned, never stored.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/platform/grpc/pagination"
	"github.com/louisbranch/simlab/internal/platform/id"
	"github.com/louisbranch/simlab/internal/platform/otel"
	"github.com/louisbranch/simlab/internal/random"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/engine"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/sim/params"
	"github.com/louisbranch/simlab/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var runPageSize = pagination.PageSizeConfig{Default: 20, Max: 100}

// Request asks for one batch of a model.
type Request struct {
	Model exercise.Kind
	// Epoch pins the seed streams; nil draws a fresh one.
	Epoch *uint32
	// Trials is ignored by the deterministic deposit models.
	Trials int
	Params params.Values
}

// Batch is the output of a stochastic model.
type Batch[R any, T engine.Summary] struct {
	Trials    []engine.Trial[R, T]    `json:"trials"`
	Aggregate engine.AggregateSummary `json:"aggregate"`
}

// Result carries exactly one populated model output.
type Result struct {
	RunID   string                                               `json:"run_id,omitempty"`
	Model   exercise.Kind                                        `json:"model"`
	Epoch   uint32                                               `json:"epoch"`
	Trials  int                                                  `json:"trials"`
	Deposit *exercise.Deposit                                    `json:"deposit,omitempty"`
	Dice    *Batch[exercise.DiceRow, exercise.DiceSummary]       `json:"dice,omitempty"`
	Shop    *Batch[exercise.ShopRow, exercise.ShopSummary]       `json:"shop,omitempty"`
	EggFarm *Batch[exercise.EggFarmRow, exercise.EggFarmSummary] `json:"egg_farm,omitempty"`
	Sugar   *Batch[exercise.SugarRow, exercise.SugarSummary]     `json:"sugar,omitempty"`
}

// Aggregate returns the cross-trial summary, or nil for deposits.
func (r Result) Aggregate() *engine.AggregateSummary {
	switch {
	case r.Dice != nil:
		return &r.Dice.Aggregate
	case r.Shop != nil:
		return &r.Shop.Aggregate
	case r.EggFarm != nil:
		return &r.EggFarm.Aggregate
	case r.Sugar != nil:
		return &r.Sugar.Aggregate
	default:
		return nil
	}
}

// Simulator is the surface shared by the in-process Service and remote
// clients.
type Simulator interface {
	Run(ctx context.Context, req Request) (Result, error)
	Replay(ctx context.Context, runID string) (Result, error)
	Runs(ctx context.Context, filter string, pageSize int, pageToken string) (storage.RunPage, error)
	Sequence(ctx context.Context, method congruential.Method, values params.Values) (congruential.Sequence, error)
	NewEpoch(ctx context.Context) (uint32, error)
}

var _ Simulator = (*Service)(nil)

// Service runs simulations and keeps the run journal.
type Service struct {
	runs     storage.RunStore
	clock    func() time.Time
	newEpoch func() (uint32, error)
	newID    func() (string, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the journal timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithEpochSource overrides how fresh epochs are drawn.
func WithEpochSource(fn func() (uint32, error)) Option {
	return func(s *Service) { s.newEpoch = fn }
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a service. runs may be nil, in which case nothing is
// journaled and Replay and Runs fail.
func NewService(runs storage.RunStore, opts ...Option) *Service {
	s := &Service{
		runs:     runs,
		clock:    time.Now,
		newEpoch: random.NewEpoch,
		newID:    id.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run computes a batch and journals its inputs.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	ctx, span := otel.Tracer().Start(ctx, "simulation.Run")
	defer span.End()

	kind, err := exercise.ParseKind(string(req.Model))
	if err != nil {
		return Result{}, fail(span, err)
	}
	epoch, err := s.epoch(req.Epoch)
	if err != nil {
		return Result{}, fail(span, err)
	}
	span.SetAttributes(
		attribute.String("simlab.model", string(kind)),
		attribute.Int64("simlab.epoch", int64(epoch)),
	)

	res, err := compute(ctx, kind, epoch, req.Trials, req.Params)
	if err != nil {
		return Result{}, fail(span, err)
	}
	if s.runs == nil {
		return res, nil
	}

	runID, err := s.journal(ctx, res, req.Params)
	if err != nil {
		return Result{}, fail(span, err)
	}
	res.RunID = runID
	return res, nil
}

// Replay recomputes a journaled run with its recorded epoch.
func (s *Service) Replay(ctx context.Context, runID string) (Result, error) {
	ctx, span := otel.Tracer().Start(ctx, "simulation.Replay")
	defer span.End()

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return Result{}, fail(span, apperrors.New(apperrors.CodeRunIDEmpty, "run id is required"))
	}
	if s.runs == nil {
		return Result{}, fail(span, errors.New("run journal is not configured"))
	}
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = apperrors.WithMetadata(apperrors.CodeRunNotFound,
				fmt.Sprintf("run %s not found", runID), map[string]string{"RunID": runID})
		}
		return Result{}, fail(span, err)
	}

	values := params.Values{}
	dec := json.NewDecoder(bytes.NewReader(run.Params))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return Result{}, fail(span, fmt.Errorf("decode run %s params: %w", runID, err))
	}
	res, err := compute(ctx, exercise.Kind(run.Model), run.Epoch, run.Trials, values)
	if err != nil {
		return Result{}, fail(span, err)
	}
	res.RunID = run.ID
	return res, nil
}

// Runs lists journaled runs.
func (s *Service) Runs(ctx context.Context, filter string, pageSize int, pageToken string) (storage.RunPage, error) {
	if s.runs == nil {
		return storage.RunPage{}, errors.New("run journal is not configured")
	}
	size := pagination.ClampPageSize(int32(min(pageSize, runPageSize.Max+1)), runPageSize)
	page, err := s.runs.ListRuns(ctx, filter, size, pageToken)
	switch {
	case errors.Is(err, storage.ErrInvalidFilter):
		return storage.RunPage{}, apperrors.Wrap(apperrors.CodeFilterInvalid, err.Error(), err)
	case errors.Is(err, storage.ErrInvalidPageToken):
		return storage.RunPage{}, apperrors.Wrap(apperrors.CodePageTokenInvalid, err.Error(), err)
	}
	return page, err
}

// Sequence computes a congruential sequence. It is deterministic and not
// journaled.
func (s *Service) Sequence(ctx context.Context, method congruential.Method, values params.Values) (congruential.Sequence, error) {
	_, span := otel.Tracer().Start(ctx, "simulation.Sequence")
	defer span.End()
	span.SetAttributes(attribute.String("simlab.method", string(method)))

	switch method {
	case congruential.MethodLinear:
		p, err := params.Linear(values)
		if err != nil {
			return congruential.Sequence{}, fail(span, err)
		}
		return congruential.Linear(p)
	case congruential.MethodMultiplicative:
		p, err := params.Multiplicative(values)
		if err != nil {
			return congruential.Sequence{}, fail(span, err)
		}
		return congruential.Multiplicative(p)
	default:
		return congruential.Sequence{}, fail(span, apperrors.WithMetadata(apperrors.CodeSequenceMethodUnknown,
			fmt.Sprintf("unknown sequence method %q", method),
			map[string]string{"Method": string(method)}))
	}
}

// NewEpoch draws a fresh epoch.
func (s *Service) NewEpoch(context.Context) (uint32, error) {
	return s.newEpoch()
}

func (s *Service) epoch(pinned *uint32) (uint32, error) {
	if pinned != nil {
		return *pinned, nil
	}
	return s.newEpoch()
}

func (s *Service) journal(ctx context.Context, res Result, values params.Values) (string, error) {
	runID, err := s.newID()
	if err != nil {
		return "", err
	}
	if values == nil {
		values = params.Values{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	err = s.runs.PutRun(ctx, storage.Run{
		ID:        runID,
		Model:     string(res.Model),
		Epoch:     res.Epoch,
		Trials:    res.Trials,
		Params:    raw,
		CreatedAt: s.clock(),
	})
	if err != nil {
		return "", fmt.Errorf("journal run: %w", err)
	}
	return runID, nil
}

func compute(ctx context.Context, kind exercise.Kind, epoch uint32, trials int, values params.Values) (Result, error) {
	res := Result{Model: kind, Epoch: epoch}
	if kind.Stochastic() {
		if err := engine.CheckTrials(trials); err != nil {
			return Result{}, err
		}
		res.Trials = trials
	}

	var err error
	switch kind {
	case exercise.KindDepositFixed:
		res.Deposit, err = fixedDeposit(values)
	case exercise.KindDepositVariable:
		res.Deposit, err = variableDeposit(values)
	case exercise.KindDice:
		res.Dice, err = dice(ctx, values, epoch, trials)
	case exercise.KindShop:
		res.Shop, err = shop(ctx, values, epoch, trials)
	case exercise.KindEggFarm:
		res.EggFarm, err = eggFarm(ctx, values, epoch, trials)
	case exercise.KindSugar:
		res.Sugar, err = sugar(ctx, values, epoch, trials)
	default:
		_, err = exercise.ParseKind(string(kind))
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func fixedDeposit(values params.Values) (*exercise.Deposit, error) {
	p, err := params.FixedDeposit(values)
	if err != nil {
		return nil, err
	}
	d, err := exercise.FixedDeposit(p)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func variableDeposit(values params.Values) (*exercise.Deposit, error) {
	p, err := params.VariableDeposit(values)
	if err != nil {
		return nil, err
	}
	d, err := exercise.VariableDeposit(p)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func dice(ctx context.Context, values params.Values, epoch uint32, trials int) (*Batch[exercise.DiceRow, exercise.DiceSummary], error) {
	p, err := params.Dice(values)
	if err != nil {
		return nil, err
	}
	model, err := exercise.NewDice(p)
	if err != nil {
		return nil, err
	}
	return runBatch(ctx, model, epoch, trials)
}

func shop(ctx context.Context, values params.Values, epoch uint32, trials int) (*Batch[exercise.ShopRow, exercise.ShopSummary], error) {
	p, err := params.Shop(values)
	if err != nil {
		return nil, err
	}
	model, err := exercise.NewShop(p)
	if err != nil {
		return nil, err
	}
	return runBatch(ctx, model, epoch, trials)
}

func eggFarm(ctx context.Context, values params.Values, epoch uint32, trials int) (*Batch[exercise.EggFarmRow, exercise.EggFarmSummary], error) {
	p, err := params.EggFarm(values)
	if err != nil {
		return nil, err
	}
	model, err := exercise.NewEggFarm(p)
	if err != nil {
		return nil, err
	}
	return runBatch(ctx, model, epoch, trials)
}

func sugar(ctx context.Context, values params.Values, epoch uint32, trials int) (*Batch[exercise.SugarRow, exercise.SugarSummary], error) {
	p, err := params.Sugar(values)
	if err != nil {
		return nil, err
	}
	model, err := exercise.NewSugar(p)
	if err != nil {
		return nil, err
	}
	return runBatch(ctx, model, epoch, trials)
}

func runBatch[S, R any, T engine.Summary](ctx context.Context, model engine.Model[S, R, T], epoch uint32, trials int) (*Batch[R, T], error) {
	out, err := engine.Run(ctx, model, epoch, trials)
	if err != nil {
		return nil, err
	}
	return &Batch[R, T]{Trials: out, Aggregate: engine.Aggregate(out)}, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
