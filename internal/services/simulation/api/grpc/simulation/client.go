package simulation

import (
	"context"
	"fmt"

	"github.com/louisbranch/simlab/internal/services/simulation/app"
	"github.com/louisbranch/simlab/internal/sim/congruential"
	"github.com/louisbranch/simlab/internal/sim/params"
	"github.com/louisbranch/simlab/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a remote SimulationService and decodes its payloads back into
// the service types.
type Client struct {
	conn grpc.ClientConnInterface
}

var _ app.Simulator = (*Client)(nil)

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Run mirrors app.Service.Run.
func (c *Client) Run(ctx context.Context, req app.Request) (app.Result, error) {
	var res app.Result
	err := c.call(ctx, simulateMethod, SimulateRequest{
		Model:  string(req.Model),
		Epoch:  req.Epoch,
		Trials: req.Trials,
		Params: req.Params,
	}, &res)
	return res, err
}

// Sequence mirrors app.Service.Sequence.
func (c *Client) Sequence(ctx context.Context, method congruential.Method, values params.Values) (congruential.Sequence, error) {
	var seq congruential.Sequence
	err := c.call(ctx, sequenceMethod, SequenceRequest{Method: string(method), Params: values}, &seq)
	return seq, err
}

// Replay mirrors app.Service.Replay.
func (c *Client) Replay(ctx context.Context, runID string) (app.Result, error) {
	var res app.Result
	err := c.call(ctx, replayMethod, ReplayRequest{RunID: runID}, &res)
	return res, err
}

// Runs mirrors app.Service.Runs.
func (c *Client) Runs(ctx context.Context, filter string, pageSize int, pageToken string) (storage.RunPage, error) {
	var resp ListRunsResponse
	req := ListRunsRequest{Filter: filter, PageSize: pageSize, PageToken: pageToken}
	if err := c.call(ctx, listRunsMethod, req, &resp); err != nil {
		return storage.RunPage{}, err
	}
	page := storage.RunPage{Runs: make([]storage.Run, 0, len(resp.Runs)), NextPageToken: resp.NextPageToken}
	for _, run := range resp.Runs {
		page.Runs = append(page.Runs, storage.Run{
			ID:        run.ID,
			Model:     run.Model,
			Epoch:     run.Epoch,
			Trials:    run.Trials,
			Params:    []byte(run.Params),
			CreatedAt: run.CreatedAt,
		})
	}
	return page, nil
}

// NewEpoch asks the server for a fresh epoch.
func (c *Client) NewEpoch(ctx context.Context) (uint32, error) {
	out := new(wrapperspb.UInt32Value)
	if err := c.conn.Invoke(ctx, newEpochMethod, &emptypb.Empty{}, out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("simulation client is not configured")
	}
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return decodeStruct(out, resp, false)
}
