package simulation

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "simlab.v1.SimulationService"

const (
	simulateMethod = "/" + ServiceName + "/Simulate"
	sequenceMethod = "/" + ServiceName + "/Sequence"
	replayMethod   = "/" + ServiceName + "/Replay"
	listRunsMethod = "/" + ServiceName + "/ListRuns"
	newEpochMethod = "/" + ServiceName + "/NewEpoch"
)

// SimulationServer is the server API. Payloads are JSON-shaped structs so the
// service needs no generated stubs.
type SimulationServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sequence(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Replay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NewEpoch(context.Context, *emptypb.Empty) (*wrapperspb.UInt32Value, error)
}

// ServiceDesc describes SimulationService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: unary(simulateMethod, SimulationServer.Simulate)},
		{MethodName: "Sequence", Handler: unary(sequenceMethod, SimulationServer.Sequence)},
		{MethodName: "Replay", Handler: unary(replayMethod, SimulationServer.Replay)},
		{MethodName: "ListRuns", Handler: unary(listRunsMethod, SimulationServer.ListRuns)},
		{MethodName: "NewEpoch", Handler: unary(newEpochMethod, SimulationServer.NewEpoch)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "simlab/v1/simulation.proto",
}

// RegisterSimulationServer registers srv on s.
func RegisterSimulationServer(s grpc.ServiceRegistrar, srv SimulationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[In, Out any](fullMethod string, call func(SimulationServer, context.Context, *In) (*Out, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SimulationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SimulationServer), ctx, req.(*In))
		}
		return interceptor(ctx, in, info, handler)
	}
}
