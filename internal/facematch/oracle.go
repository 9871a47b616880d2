package facematch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Oracle is the external face detection and comparison capability.
//
// CompareFaces returns the similarity of every face in the target that matched the
// source at or above thresholdHint. An empty list means no match. Implementations
// return ErrNoFace (possibly wrapped) when the oracle reports there is no face to compare.
type Oracle interface {
	DetectFaces(ctx context.Context, ref string) (int, error)
	CompareFaces(ctx context.Context, sourceRef, targetRef string, thresholdHint float64) ([]float64, error)
}

// RunScoped is implemented by oracles that keep state while answering for one run.
// The engine calls ForRun at the start of every run and drops the result when it ends.
type RunScoped interface {
	ForRun() Oracle
}

// OutcomeKind tags the variant of an Outcome.
type OutcomeKind int

const (
	// OutcomeFailure is an infrastructure failure of the call.
	OutcomeFailure OutcomeKind = iota
	// OutcomeNoFace is a valid negative: no face, or no face matched.
	OutcomeNoFace
	// OutcomeSuccess carries the best similarity among matched faces.
	OutcomeSuccess
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoFace:
		return "no_face"
	default:
		return "failure"
	}
}

// Outcome is the closed result of a single comparison.
// Similarity is set only for OutcomeSuccess, Reason only for OutcomeFailure.
type Outcome struct {
	Kind       OutcomeKind
	Similarity float64
	Reason     error
}

func successOutcome(similarity float64) Outcome {
	return Outcome{Kind: OutcomeSuccess, Similarity: similarity}
}

func noFaceOutcome() Outcome {
	return Outcome{Kind: OutcomeNoFace}
}

func failureOutcome(reason error) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}

// Adapter turns raw Oracle answers into typed outcomes.
type Adapter struct {
	oracle Oracle
	logger *zap.Logger
}

// NewAdapter wraps an oracle. A nil logger discards log output.
func NewAdapter(oracle Oracle, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{oracle: oracle, logger: logger}
}

// Detect returns the number of faces in ref. Failures are returned as *OracleError.
func (a *Adapter) Detect(ctx context.Context, ref string) (int, error) {
	n, err := a.oracle.DetectFaces(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			return 0, nil
		}
		return 0, &OracleError{Op: "detect", Ref: ref, Err: err}
	}
	if n < 0 {
		return 0, &OracleError{Op: "detect", Ref: ref, Err: fmt.Errorf("negative face count %d", n)}
	}
	return n, nil
}

// Compare compares the face in sourceRef against targetRef.
// When several faces in the target match, the highest similarity is kept.
func (a *Adapter) Compare(ctx context.Context, sourceRef, targetRef string, thresholdHint float64) Outcome {
	similarities, err := a.oracle.CompareFaces(ctx, sourceRef, targetRef, thresholdHint)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			a.logger.Debug("no face to compare", zap.String("ref", targetRef))
			return noFaceOutcome()
		}
		oerr := &OracleError{Op: "compare", Ref: targetRef, Err: err}
		a.logger.Warn("face comparison failed", zap.String("ref", targetRef), zap.Error(err))
		return failureOutcome(oerr)
	}
	if len(similarities) == 0 {
		a.logger.Debug("no matching face", zap.String("ref", targetRef))
		return noFaceOutcome()
	}

	best := similarities[0]
	for _, s := range similarities[1:] {
		if s > best {
			best = s
		}
	}
	if best < 0 || best > 100 {
		oerr := &OracleError{Op: "compare", Ref: targetRef, Err: fmt.Errorf("similarity %.2f out of range", best)}
		a.logger.Warn("face comparison failed", zap.String("ref", targetRef), zap.Error(oerr.Err))
		return failureOutcome(oerr)
	}
	return successOutcome(best)
}
