package facematch

import (
	"cmp"
	"fmt"
	"slices"
)

// Aggregate filters and ranks the results of one scheduler run.
//
// Successful results with similarity >= threshold are kept and sorted by
// similarity descending; equal similarities keep their input order.
// If nothing is kept the error is ErrNoMatchFound, or ErrOracleUnavailable when
// every single comparison failed at the infrastructure level. The partial
// report is returned alongside the error so callers can still show counts.
func Aggregate(results []ComparisonResult, threshold float64) (*MatchReport, error) {
	ordered := slices.Clone(results)
	slices.SortFunc(ordered, func(a, b ComparisonResult) int {
		return cmp.Compare(a.Index, b.Index)
	})

	report := &MatchReport{Processed: len(ordered)}
	var kept []MatchRecord
	for _, r := range ordered {
		switch r.Outcome {
		case OutcomeFailure:
			report.Failed++
		case OutcomeNoFace:
			report.NoFace++
		}
		similarity, ok := r.Similarity()
		if !ok || similarity < threshold {
			continue
		}
		kept = append(kept, MatchRecord{URL: r.URL, Similarity: similarity})
	}

	slices.SortStableFunc(kept, func(a, b MatchRecord) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	report.Matches = kept
	report.RankedURLs = make([]string, len(kept))
	for i, m := range kept {
		report.RankedURLs[i] = m.URL
	}
	report.Summary = fmt.Sprintf("Found %d matches out of %d images processed.", len(kept), report.Processed)

	if len(kept) == 0 {
		if report.Processed > 0 && report.Failed == report.Processed {
			return report, ErrOracleUnavailable
		}
		return report, ErrNoMatchFound
	}
	return report, nil
}
