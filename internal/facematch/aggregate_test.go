package facematch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(ref string, index int, o Outcome) ComparisonResult {
	return newComparisonResult(CandidateImage{Ref: ref, URL: "url_" + ref}, index, o)
}

func TestAggregate_RanksAndFilters(t *testing.T) {
	results := []ComparisonResult{
		result("c", 2, successOutcome(92)),
		result("a", 0, successOutcome(89.9)),
		result("b", 1, successOutcome(95)),
		result("d", 3, noFaceOutcome()),
		result("e", 4, failureOutcome(errors.New("boom"))),
		result("f", 5, successOutcome(90)),
	}

	report, err := Aggregate(results, 90)

	require.NoError(t, err)
	assert.Equal(t, []string{"url_b", "url_c", "url_f"}, report.RankedURLs)
	assert.Equal(t, "Found 3 matches out of 6 images processed.", report.Summary)
	assert.Equal(t, 6, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.NoFace)
	for i := 1; i < len(report.Matches); i++ {
		assert.GreaterOrEqual(t, report.Matches[i-1].Similarity, report.Matches[i].Similarity)
	}
}

func TestAggregate_TiesKeepInputOrder(t *testing.T) {
	// Results arrive out of order, as they would from concurrent workers.
	results := []ComparisonResult{
		result("z", 4, successOutcome(97)),
		result("y", 1, successOutcome(97)),
		result("x", 3, successOutcome(99)),
		result("w", 0, successOutcome(97)),
	}

	report, err := Aggregate(results, 90)

	require.NoError(t, err)
	assert.Equal(t, []string{"url_x", "url_w", "url_y", "url_z"}, report.RankedURLs)
}

func TestAggregate_NoMatch(t *testing.T) {
	results := []ComparisonResult{
		result("a", 0, noFaceOutcome()),
		result("b", 1, successOutcome(50)),
		result("c", 2, failureOutcome(errors.New("boom"))),
	}

	report, err := Aggregate(results, 90)

	require.ErrorIs(t, err, ErrNoMatchFound)
	assert.NotErrorIs(t, err, ErrCandidatePoolEmpty)
	assert.Empty(t, report.RankedURLs)
	assert.Equal(t, "Found 0 matches out of 3 images processed.", report.Summary)
}

func TestAggregate_AllFailed(t *testing.T) {
	results := []ComparisonResult{
		result("a", 0, failureOutcome(errors.New("denied"))),
		result("b", 1, failureOutcome(errors.New("denied"))),
	}

	_, err := Aggregate(results, 90)

	require.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeCandidatePoolEmpty, ErrorCode(ErrCandidatePoolEmpty))
	assert.Equal(t, CodeNoMatchFound, ErrorCode(ErrNoMatchFound))
	assert.Equal(t, CodeOracleUnavailable, ErrorCode(errors.Join(errors.New("x"), ErrOracleUnavailable)))
	assert.Equal(t, CodeInvalidInput, ErrorCode(invalidInput("bad")))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("other")))
}
