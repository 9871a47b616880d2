package facematch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives the number of processed candidates after each batch.
type ProgressFunc func(processed, total int)

// Scheduler compares a source image against a candidate pool in fixed-size
// batches. Calls within a batch run concurrently; a batch starts only after
// every call of the previous batch has settled.
type Scheduler struct {
	adapter *Adapter
	logger  *zap.Logger
}

// NewScheduler creates a scheduler on top of an adapter.
func NewScheduler(adapter *Adapter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{adapter: adapter, logger: logger}
}

// Run produces exactly one ComparisonResult per candidate. Per-call failures are
// recorded as failed results and never stop the run. If ctx is cancelled, Run
// stops at the next batch boundary and returns the results gathered so far along
// with the context error.
func (s *Scheduler) Run(ctx context.Context, sourceRef string, candidates []CandidateImage,
	batchSize int, threshold float64, onProgress ProgressFunc,
) ([]ComparisonResult, error) {
	total := len(candidates)
	if total == 0 {
		return nil, ErrCandidatePoolEmpty
	}
	if batchSize < 1 {
		return nil, invalidInput("batch size %d must be at least 1", batchSize)
	}

	results := make([]ComparisonResult, 0, total)
	batches := (total + batchSize - 1) / batchSize

	for b := range batches {
		if err := ctx.Err(); err != nil {
			s.logger.Info("comparison run cancelled",
				zap.Int("batch", b+1), zap.Int("processed", len(results)), zap.Int("total", total))
			return results, err
		}

		start := b * batchSize
		end := min(start+batchSize, total)
		batch := candidates[start:end]

		// Each worker owns one slot; the slice is merged once the batch settles.
		local := make([]ComparisonResult, len(batch))
		var g errgroup.Group
		for i, c := range batch {
			g.Go(func() error {
				outcome := s.adapter.Compare(ctx, sourceRef, c.Ref, threshold)
				local[i] = newComparisonResult(c, start+i, outcome)
				return nil
			})
		}
		_ = g.Wait()

		results = append(results, local...)
		s.logger.Debug("batch settled",
			zap.Int("batch", b+1), zap.Int("batches", batches), zap.Int("processed", len(results)))

		if onProgress != nil {
			onProgress(len(results), total)
		}
	}

	return results, nil
}
