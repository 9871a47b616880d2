package facematch

import (
	"errors"
	"fmt"
)

// Run-level failures. Per-call oracle failures never surface through these;
// they are absorbed into ComparisonResult values.
var (
	// ErrCandidatePoolEmpty means there was nothing to compare against.
	ErrCandidatePoolEmpty = errors.New("candidate pool is empty")

	// ErrNoMatchFound means a complete run finished and no candidate cleared the threshold.
	ErrNoMatchFound = errors.New("no matching faces found")

	// ErrOracleUnavailable means every oracle call of a run failed at the infrastructure level.
	ErrOracleUnavailable = errors.New("comparison oracle unavailable")

	// ErrInvalidInput is returned for out-of-range thresholds, empty references and bad scopes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoFace is returned by Oracle implementations when the oracle reports
	// that an image has no face to compare. It is a valid negative, not a failure.
	ErrNoFace = errors.New("no face in image")
)

// OracleError is an infrastructure failure of a single oracle call.
type OracleError struct {
	Op  string // "detect" or "compare"
	Ref string
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// Error codes reported to API clients.
const (
	CodeCandidatePoolEmpty = "candidate_pool_empty"
	CodeNoMatchFound       = "no_match_found"
	CodeOracleUnavailable  = "oracle_unavailable"
	CodeInvalidInput       = "invalid_input"
	CodeInternal           = "internal_error"
)

// ErrorCode maps an engine error to a stable code so callers can render
// "upload some images first" differently from "no matching faces found".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrCandidatePoolEmpty):
		return CodeCandidatePoolEmpty
	case errors.Is(err, ErrNoMatchFound):
		return CodeNoMatchFound
	case errors.Is(err, ErrOracleUnavailable):
		return CodeOracleUnavailable
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
