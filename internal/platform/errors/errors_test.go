package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("run: %w", WithMetadata(CodeTrialCountOutOfRange, "trials 0", map[string]string{"Trials": "0"}))
	if !stderrors.Is(err, &Error{Code: CodeTrialCountOutOfRange}) {
		t.Fatal("expected wrapped error to match by code")
	}
	if stderrors.Is(err, &Error{Code: CodeRunNotFound}) {
		t.Fatal("expected different code not to match")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("GetCode(plain) = %v, want %v", got, CodeUnknown)
	}
	wrapped := Wrap(CodeRunNotFound, "missing", stderrors.New("sql: no rows"))
	if got := GetCode(fmt.Errorf("x: %w", wrapped)); got != CodeRunNotFound {
		t.Fatalf("GetCode() = %v, want %v", got, CodeRunNotFound)
	}
	if wrapped.Unwrap() == nil {
		t.Fatal("expected cause to be kept")
	}
}

func TestIsConfiguration(t *testing.T) {
	tcs := []struct {
		code Code
		want bool
	}{
		{CodeParamMissing, true},
		{CodeParamOutOfRange, true},
		{CodeTrialCountOutOfRange, true},
		{CodeModelUnknown, true},
		{CodeRunNotFound, false},
		{CodeFilterInvalid, false},
	}
	for _, tc := range tcs {
		if got := IsConfiguration(New(tc.code, "x")); got != tc.want {
			t.Fatalf("IsConfiguration(%v) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestGRPCCode(t *testing.T) {
	tcs := []struct {
		code Code
		want codes.Code
	}{
		{CodeParamMissing, codes.InvalidArgument},
		{CodeFilterInvalid, codes.InvalidArgument},
		{CodePageTokenInvalid, codes.InvalidArgument},
		{CodeRunNotFound, codes.NotFound},
		{CodeBatchCanceled, codes.Canceled},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range tcs {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("%v.GRPCCode() = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestToGRPCStatusDetails(t *testing.T) {
	err := WithMetadata(CodeParamMissing, "capital missing", map[string]string{"Param": "capital"})
	st := status.Convert(err.ToGRPCStatus("en-US", err.LocalizedMessage("en-US")))
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
	if info == nil || info.Reason != string(CodeParamMissing) || info.Domain != Domain {
		t.Fatalf("ErrorInfo = %v", info)
	}
	if msg == nil || msg.Message != "Parameter capital is required." {
		t.Fatalf("LocalizedMessage = %v", msg)
	}
}
