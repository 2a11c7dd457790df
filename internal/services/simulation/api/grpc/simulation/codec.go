package simulation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/simlab/internal/sim/params"
	"github.com/louisbranch/simlab/internal/storage"
	"google.golang.org/protobuf/types/known/structpb"
)

// SimulateRequest is the Simulate payload.
type SimulateRequest struct {
	Model  string        `json:"model"`
	Epoch  *uint32       `json:"epoch,omitempty"`
	Trials int           `json:"trials,omitempty"`
	Params params.Values `json:"params,omitempty"`
}

// SequenceRequest is the Sequence payload.
type SequenceRequest struct {
	Method string        `json:"method"`
	Params params.Values `json:"params,omitempty"`
}

// ReplayRequest is the Replay payload.
type ReplayRequest struct {
	RunID string `json:"run_id"`
}

// ListRunsRequest is the ListRuns payload.
type ListRunsRequest struct {
	Filter    string `json:"filter,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

// RunRecord is one journaled run on the wire.
type RunRecord struct {
	ID        string          `json:"id"`
	Model     string          `json:"model"`
	Epoch     uint32          `json:"epoch"`
	Trials    int             `json:"trials"`
	Params    json.RawMessage `json:"params"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListRunsResponse is the ListRuns payload.
type ListRunsResponse struct {
	Runs          []RunRecord `json:"runs"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

func newListRunsResponse(page storage.RunPage) ListRunsResponse {
	resp := ListRunsResponse{Runs: make([]RunRecord, 0, len(page.Runs)), NextPageToken: page.NextPageToken}
	for _, run := range page.Runs {
		resp.Runs = append(resp.Runs, RunRecord{
			ID:        run.ID,
			Model:     run.Model,
			Epoch:     run.Epoch,
			Trials:    run.Trials,
			Params:    json.RawMessage(run.Params),
			CreatedAt: run.CreatedAt.UTC(),
		})
	}
	return resp
}

// toStruct renders v as a protobuf Struct through its JSON form. Numbers
// travel as doubles; congruential inputs are bounded by
// congruential.MaxMagnitude so they stay exact.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return structpb.NewStruct(fields)
}

// fromStruct decodes a request Struct into v, rejecting unknown fields.
func fromStruct(in *structpb.Struct, v any) error {
	return decodeStruct(in, v, true)
}

func decodeStruct(in *structpb.Struct, v any, strict bool) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := in.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
