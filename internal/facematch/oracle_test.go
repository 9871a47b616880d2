package facematch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Compare(t *testing.T) {
	errTransport := errors.New("connection reset")

	tests := []struct {
		name     string
		sims     []float64
		err      error
		wantKind OutcomeKind
		wantSim  float64
	}{
		{name: "single match", sims: []float64{93.5}, wantKind: OutcomeSuccess, wantSim: 93.5},
		{name: "best of many", sims: []float64{91, 99.2, 95}, wantKind: OutcomeSuccess, wantSim: 99.2},
		{name: "empty list is no face", sims: nil, wantKind: OutcomeNoFace},
		{name: "no face sentinel", err: fmt.Errorf("rekognition: %w", ErrNoFace), wantKind: OutcomeNoFace},
		{name: "transport failure", err: errTransport, wantKind: OutcomeFailure},
		{name: "similarity above range", sims: []float64{101}, wantKind: OutcomeFailure},
		{name: "similarity below range", sims: []float64{-3}, wantKind: OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newFakeOracle()
			p := pair{source: "selfie.jpg", target: "a.jpg"}
			if tt.err != nil {
				oracle.compareErr[p] = tt.err
			} else {
				oracle.similarity[p] = tt.sims
			}

			outcome := NewAdapter(oracle, nil).Compare(context.Background(), "selfie.jpg", "a.jpg", 90)

			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.InDelta(t, tt.wantSim, outcome.Similarity, 0.0001)
			if tt.wantKind == OutcomeFailure {
				var oerr *OracleError
				require.ErrorAs(t, outcome.Reason, &oerr)
				assert.Equal(t, "compare", oerr.Op)
				assert.Equal(t, "a.jpg", oerr.Ref)
			} else {
				assert.NoError(t, outcome.Reason)
			}
		})
	}
}

func TestAdapter_Detect(t *testing.T) {
	oracle := newFakeOracle()
	oracle.faces["two.jpg"] = 2
	oracle.detectErrs["broken.jpg"] = errors.New("access denied")
	oracle.detectErrs["blank.jpg"] = ErrNoFace
	adapter := NewAdapter(oracle, nil)
	ctx := context.Background()

	n, err := adapter.Detect(ctx, "two.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = adapter.Detect(ctx, "empty.jpg")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = adapter.Detect(ctx, "blank.jpg")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = adapter.Detect(ctx, "broken.jpg")
	var oerr *OracleError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, "detect", oerr.Op)
	assert.Contains(t, err.Error(), "access denied")
}

func TestComparisonResult_SimilarityPresence(t *testing.T) {
	c := CandidateImage{Ref: "a.jpg", URL: "u"}

	ok := newComparisonResult(c, 0, successOutcome(97))
	sim, present := ok.Similarity()
	assert.True(t, ok.Succeeded())
	assert.True(t, present)
	assert.InDelta(t, 97, sim, 0.0001)

	for _, o := range []Outcome{noFaceOutcome(), failureOutcome(errors.New("x"))} {
		r := newComparisonResult(c, 0, o)
		sim, present := r.Similarity()
		assert.False(t, r.Succeeded())
		assert.False(t, present)
		assert.Zero(t, sim)
	}
}
