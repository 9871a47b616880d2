package facematch

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/kozaktomas/event-faces/internal/constants"
)

// Engine exposes the two flows: ranked matching of a source image against a
// pool, and gallery clustering of a pool. It holds no per-run state.
type Engine struct {
	oracle Oracle
	logger *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used by the engine and its adapter.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine on top of an oracle.
func NewEngine(oracle Oracle, opts ...EngineOption) *Engine {
	e := &Engine{oracle: oracle, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runAdapter returns the adapter for a single run. Oracles that keep per-run
// state get a fresh instance, so nothing is remembered between runs.
func (e *Engine) runAdapter() *Adapter {
	oracle := e.oracle
	if rs, ok := oracle.(RunScoped); ok {
		oracle = rs.ForRun()
	}
	return NewAdapter(oracle, e.logger)
}

type matchOptions struct {
	threshold  float64
	batchSize  int
	onProgress ProgressFunc
}

// MatchOption configures a RunMatch call.
type MatchOption func(*matchOptions)

// WithThreshold sets the minimum similarity (0-100) for a match.
func WithThreshold(threshold float64) MatchOption {
	return func(o *matchOptions) { o.threshold = threshold }
}

// WithBatchSize sets how many comparisons run concurrently per batch.
func WithBatchSize(size int) MatchOption {
	return func(o *matchOptions) { o.batchSize = size }
}

// WithProgress sets a callback invoked after each batch.
func WithProgress(fn ProgressFunc) MatchOption {
	return func(o *matchOptions) { o.onProgress = fn }
}

// RunMatch compares sourceRef against every candidate and returns the ranked matches.
//
// Errors: ErrInvalidInput, ErrCandidatePoolEmpty (no oracle call made),
// ErrNoMatchFound, ErrOracleUnavailable, or the context error if cancelled.
func (e *Engine) RunMatch(ctx context.Context, scope Scope, sourceRef string, candidates []CandidateImage, opts ...MatchOption) (*MatchReport, error) {
	o := matchOptions{
		threshold: constants.DefaultMatchThreshold,
		batchSize: constants.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sourceRef) == "" {
		return nil, invalidInput("source reference is required")
	}
	if err := validateThreshold(o.threshold); err != nil {
		return nil, err
	}
	if o.batchSize < 1 {
		return nil, invalidInput("batch size %d must be at least 1", o.batchSize)
	}
	if len(candidates) == 0 {
		return nil, ErrCandidatePoolEmpty
	}

	log := e.logger.With(zap.String("owner", scope.Owner), zap.String("event", scope.EventID))
	log.Info("starting face match",
		zap.String("source", sourceRef),
		zap.Int("candidates", len(candidates)),
		zap.Int("batch_size", o.batchSize),
		zap.Float64("threshold", o.threshold))

	scheduler := NewScheduler(e.runAdapter(), log)
	results, err := scheduler.Run(ctx, sourceRef, candidates, o.batchSize, o.threshold, o.onProgress)
	if err != nil {
		return nil, fmt.Errorf("comparing faces: %w", err)
	}

	report, err := Aggregate(results, o.threshold)
	if err != nil {
		log.Info("face match finished without matches",
			zap.Int("processed", report.Processed), zap.Int("failed", report.Failed), zap.Error(err))
		return report, err
	}
	log.Info("face match finished", zap.String("summary", report.Summary), zap.Int("failed", report.Failed))
	return report, nil
}

type clusterOptions struct {
	threshold  float64
	onProgress ProgressFunc
}

// ClusterOption configures a RunClustering call.
type ClusterOption func(*clusterOptions)

// WithGroupThreshold sets the similarity (0-100) needed to join a group.
func WithGroupThreshold(threshold float64) ClusterOption {
	return func(o *clusterOptions) { o.threshold = threshold }
}

// WithClusterProgress registers a callback invoked after each image is placed.
func WithClusterProgress(fn ProgressFunc) ClusterOption {
	return func(o *clusterOptions) { o.onProgress = fn }
}

// RunClustering partitions the pool into identity groups and images without a face.
// An empty pool yields an empty partition.
func (e *Engine) RunClustering(ctx context.Context, scope Scope, candidates []CandidateImage, opts ...ClusterOption) (*ClusterPartition, error) {
	o := clusterOptions{threshold: constants.DefaultGroupThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := validateThreshold(o.threshold); err != nil {
		return nil, err
	}

	log := e.logger.With(zap.String("owner", scope.Owner), zap.String("event", scope.EventID))
	log.Info("starting face clustering", zap.Int("images", len(candidates)), zap.Float64("threshold", o.threshold))

	builder := NewClusterBuilder(e.runAdapter(), o.threshold, log)
	builder.progress = o.onProgress
	partition, err := builder.Build(ctx, candidates)
	if err != nil {
		return partition, err
	}

	log.Info("face clustering finished", zap.Int("groups", len(partition.Groups)), zap.Int("no_face", len(partition.NoFace)))
	return partition, nil
}

func validateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 100 {
		return invalidInput("threshold %.2f must be within [0,100]", t)
	}
	return nil
}
