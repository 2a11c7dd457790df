// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors: the request is not ready to compute.
	CodeParamMissing          Code = "PARAM_MISSING"
	CodeParamOutOfRange       Code = "PARAM_OUT_OF_RANGE"
	CodeTrialCountOutOfRange  Code = "TRIAL_COUNT_OUT_OF_RANGE"
	CodeModelUnknown          Code = "MODEL_UNKNOWN"
	CodeScenarioInvalid       Code = "SCENARIO_INVALID"
	CodeFilterInvalid         Code = "FILTER_INVALID"
	CodePageTokenInvalid      Code = "PAGE_TOKEN_INVALID"
	CodeSequenceMethodUnknown Code = "SEQUENCE_METHOD_UNKNOWN"

	// Journal errors
	CodeRunNotFound Code = "RUN_NOT_FOUND"
	CodeRunIDEmpty  Code = "RUN_ID_EMPTY"

	// Batch errors
	CodeBatchCanceled Code = "BATCH_CANCELED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeParamMissing,
		CodeParamOutOfRange,
		CodeTrialCountOutOfRange,
		CodeModelUnknown,
		CodeScenarioInvalid,
		CodeFilterInvalid,
		CodePageTokenInvalid,
		CodeSequenceMethodUnknown,
		CodeRunIDEmpty:
		return codes.InvalidArgument

	// NotFound - resource doesn't exist
	case CodeRunNotFound:
		return codes.NotFound

	case CodeBatchCanceled:
		return codes.Canceled

	default:
		return codes.Internal
	}
}

// IsConfiguration reports whether the code marks a request that was withheld
// from computation because its parameters are not ready.
func (c Code) IsConfiguration() bool {
	switch c {
	case CodeParamMissing,
		CodeParamOutOfRange,
		CodeTrialCountOutOfRange,
		CodeModelUnknown,
		CodeSequenceMethodUnknown:
		return true
	default:
		return false
	}
}
