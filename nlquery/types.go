package nlquery

import (
	"fmt"

	"github.com/invdb/agent/executor"
	"github.com/invdb/agent/validator"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	// KindSchemaUnavailable aborts before any generation.
	KindSchemaUnavailable ErrorKind = "schema_unavailable"
	// KindModelUnavailable means a required model call failed.
	// Refinement failure is not fatal and degrades to pass-through.
	KindModelUnavailable ErrorKind = "model_unavailable"
	// KindValidationRejected means every generation attempt was
	// rejected by the validator.
	KindValidationRejected ErrorKind = "validation_rejected"
	// KindTimeout mirrors executor.KindTimeout. Not retried.
	KindTimeout ErrorKind = "timeout"
	// KindExecutionError mirrors executor.KindExecutionError. Not retried.
	KindExecutionError ErrorKind = "execution_error"
)

// Failure is a terminal pipeline failure. Validation failures carry
// the violations from the last attempt so rejections stay explainable.
type Failure struct {
	Kind       ErrorKind
	Message    string
	Violations []validator.Violation
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Candidate is one generated SQL statement. A candidate is never
// mutated, only superseded by the next attempt.
type Candidate struct {
	Statement string
	Attempt   int
}

// Response is the result surface consumed by the display layer.
type Response struct {
	Question        string
	RefinedQuestion string
	SQL             string
	Attempts        int
	Result          *executor.Result
	Insight         string
	Warnings        []string
}
