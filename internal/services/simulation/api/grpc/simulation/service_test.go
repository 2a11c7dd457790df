package simulation

import (
	"context"
	"net"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/simlab/internal/platform/grpc/metadata"
	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/exercise"
	"github.com/louisbranch/simlab/internal/sim/params"
	"github.com/louisbranch/simlab/internal/storage/sqlite"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcmetadata "google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func startServer(t *testing.T) (*Client, *grpc.ClientConn) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "simlab.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := app.NewService(store,
		app.WithEpochSource(func() (uint32, error) { return 42, nil }),
		app.WithClock(func() time.Time { return time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC) }),
	)

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(metadata.UnaryServerInterceptor(func() (string, error) {
		return "req-test", nil
	})))
	RegisterSimulationServer(server, NewService(svc))
	go func() { _ = server.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
		_ = store.Close()
	})
	return NewClient(conn), conn
}

func TestSimulateReplayRoundTrip(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	res, err := client.Run(ctx, app.Request{
		Model:  exercise.KindDice,
		Trials: 1,
		Params: params.Values{"games": 100, "price": 2, "cost7": 5},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.RunID == "" || res.Epoch != 42 || res.Dice == nil {
		t.Fatalf("result = %+v", res)
	}
	if s := res.Dice.Trials[0].Summary; s.HouseGain != 100 || s.HouseWins != 80 {
		t.Fatalf("summary = %+v, want gain 100 wins 80", s)
	}

	replay, err := client.Replay(ctx, res.RunID)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if !reflect.DeepEqual(replay.Dice, res.Dice) {
		t.Fatal("replay diverged from the original batch")
	}

	page, err := client.Runs(ctx, `model = "dice"`, 10, "")
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(page.Runs) != 1 || page.Runs[0].ID != res.RunID || page.Runs[0].Epoch != 42 {
		t.Fatalf("runs = %+v", page.Runs)
	}
}

func TestSequenceOverGRPC(t *testing.T) {
	client, _ := startServer(t)

	seq, err := client.Sequence(context.Background(), congruential.MethodMultiplicative,
		params.Values{"x0": 7, "a": 11, "d": 5})
	if err != nil {
		t.Fatalf("Sequence() error = %v", err)
	}
	want := []int64{13, 15, 5, 23, 29, 31}
	if len(seq.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(seq.Rows), len(want))
	}
	for i, row := range seq.Rows {
		if row.Value != want[i] {
			t.Fatalf("row %d = %d, want %d", i, row.Value, want[i])
		}
	}
}

func TestSequenceLargeModulusMatchesInProcess(t *testing.T) {
	client, _ := startServer(t)
	values := params.Values{"x0": congruential.MaxMagnitude - 1, "d": 4, "k": 1, "g": 53}

	remote, err := client.Sequence(context.Background(), congruential.MethodMultiplicative, values)
	if err != nil {
		t.Fatalf("remote Sequence() error = %v", err)
	}
	local, err := app.NewService(nil).Sequence(context.Background(), congruential.MethodMultiplicative, values)
	if err != nil {
		t.Fatalf("local Sequence() error = %v", err)
	}
	if remote.Modulus != 1<<53 || remote.Modulus != local.Modulus {
		t.Fatalf("modulus remote %d local %d, want %d", remote.Modulus, local.Modulus, int64(1)<<53)
	}
	if remote.Seed != local.Seed || remote.Multiplier != local.Multiplier {
		t.Fatalf("remote x0=%d a=%d, local x0=%d a=%d", remote.Seed, remote.Multiplier, local.Seed, local.Multiplier)
	}
	if len(remote.Rows) != len(local.Rows) {
		t.Fatalf("rows remote %d local %d", len(remote.Rows), len(local.Rows))
	}
	for i := range local.Rows {
		if remote.Rows[i].Prev != local.Rows[i].Prev || remote.Rows[i].Value != local.Rows[i].Value {
			t.Fatalf("row %d remote %+v, local %+v", i, remote.Rows[i], local.Rows[i])
		}
	}

	values["g"] = 60
	_, err = client.Sequence(context.Background(), congruential.MethodMultiplicative, values)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("g=60 code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}
}

func TestNewEpochOverGRPC(t *testing.T) {
	client, _ := startServer(t)

	epoch, err := client.NewEpoch(context.Background())
	if err != nil {
		t.Fatalf("NewEpoch() error = %v", err)
	}
	if epoch != 42 {
		t.Fatalf("epoch = %d, want 42", epoch)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, conn := startServer(t)

	var header grpcmetadata.MD
	err := conn.Invoke(context.Background(), newEpochMethod, &emptypb.Empty{}, new(wrapperspb.UInt32Value), grpc.Header(&header))
	if err != nil {
		t.Fatalf("NewEpoch() error = %v", err)
	}
	if got := header.Get(metadata.RequestIDHeader); len(got) != 1 || got[0] != "req-test" {
		t.Fatalf("request id header = %v, want [req-test]", got)
	}
}

func TestDomainErrorsAreLocalized(t *testing.T) {
	client, _ := startServer(t)

	ctx := grpcmetadata.AppendToOutgoingContext(context.Background(), metadata.LocaleHeader, "es-BO")
	_, err := client.Run(ctx, app.Request{Model: exercise.KindDice, Trials: 31, Params: params.Values{"games": 1, "price": 1, "cost7": 1}})
	st := status.Convert(err)
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", st.Code(), codes.InvalidArgument)
	}
	var info *errdetails.ErrorInfo
	var msg *errdetails.LocalizedMessage
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			info = v
		case *errdetails.LocalizedMessage:
			msg = v
		}
	}
	if info == nil || info.Reason != "TRIAL_COUNT_OUT_OF_RANGE" {
		t.Fatalf("ErrorInfo = %v", info)
	}
	if msg == nil || msg.Locale != "es-BO" {
		t.Fatalf("LocalizedMessage = %v", msg)
	}

	_, err = client.Replay(context.Background(), "missing")
	if status.Code(err) != codes.NotFound {
		t.Fatalf("replay missing code = %v, want %v", status.Code(err), codes.NotFound)
	}
}

func TestSimulateRejectsUnknownFields(t *testing.T) {
	_, conn := startServer(t)

	in, err := structpb.NewStruct(map[string]any{"model": "dice", "trails": 3})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	err = conn.Invoke(context.Background(), simulateMethod, in, new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}
}
