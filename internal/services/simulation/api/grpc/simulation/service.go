// Package simulation exposes the simulation service over gRPC.
package simulation

import (
	"context"

	apperrors "github.com/louisbranch/simlab/internal/platform/errors"
	"github.com/louisbranch/simlab/internal/platform/grpc/metadata"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service exposes simlab.v1 gRPC operations.
type Service struct {
	app *app.Service
}

// NewService creates a gRPC facade over the simulation service.
func NewService(svc *app.Service) *Service {
	return &Service{app: svc}
}

// Simulate runs one batch of a model.
func (s *Service) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req SimulateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.app.Run(ctx, app.Request{
		Model:  exercise.Kind(req.Model),
		Epoch:  req.Epoch,
		Trials: req.Trials,
		Params: req.Params,
	})
	if err != nil {
		return nil, domainError(ctx, err)
	}
	return encode(res)
}

// Sequence computes a congruential sequence.
func (s *Service) Sequence(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req SequenceRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	seq, err := s.app.Sequence(ctx, congruential.Method(req.Method), req.Params)
	if err != nil {
		return nil, domainError(ctx, err)
	}
	return encode(seq)
}

// Replay recomputes a journaled run.
func (s *Service) Replay(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req ReplayRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.app.Replay(ctx, req.RunID)
	if err != nil {
		return nil, domainError(ctx, err)
	}
	return encode(res)
}

// ListRuns pages through the run journal.
func (s *Service) ListRuns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req ListRunsRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	page, err := s.app.Runs(ctx, req.Filter, req.PageSize, req.PageToken)
	if err != nil {
		return nil, domainError(ctx, err)
	}
	return encode(newListRunsResponse(page))
}

// NewEpoch draws a fresh epoch.
func (s *Service) NewEpoch(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt32Value, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	epoch, err := s.app.NewEpoch(ctx)
	if err != nil {
		return nil, domainError(ctx, err)
	}
	return wrapperspb.UInt32(epoch), nil
}

func (s *Service) ready() error {
	if s == nil || s.app == nil {
		return status.Error(codes.Internal, "simulation service is not configured")
	}
	return nil
}

func domainError(ctx context.Context, err error) error {
	return apperrors.HandleError(err, metadata.LocaleFromContext(ctx))
}

func encode(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

var _ SimulationServer = (*Service)(nil)
