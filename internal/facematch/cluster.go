package facematch

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// clusterState is the partition built so far. A step never mutates the state it
// receives: groups are copied on write and untouched groups are shared.
type clusterState struct {
	groups      []Group
	noFace      []CandidateImage
	nextGroupID int
	probed      int // images whose face probe succeeded
}

func newClusterState() clusterState {
	return clusterState{nextGroupID: 1}
}

func (s clusterState) withNoFace(img CandidateImage) clusterState {
	s.noFace = append(slices.Clip(s.noFace), img)
	return s
}

func (s clusterState) withMember(groupIdx int, img CandidateImage) clusterState {
	groups := slices.Clone(s.groups)
	g := groups[groupIdx]
	g.Members = append(slices.Clip(g.Members), img)
	groups[groupIdx] = g
	s.groups = groups
	return s
}

func (s clusterState) withNewGroup(img CandidateImage) clusterState {
	g := Group{
		ID:             fmt.Sprintf("group_%d", s.nextGroupID),
		Representative: img,
		Members:        []CandidateImage{img},
	}
	s.groups = append(slices.Clip(s.groups), g)
	s.nextGroupID++
	return s
}

func (s clusterState) partition() *ClusterPartition {
	return &ClusterPartition{
		Groups: slices.Clone(s.groups),
		NoFace: slices.Clone(s.noFace),
	}
}

// ClusterBuilder partitions a pool into identity groups, one image at a time,
// in input order. Each image is compared only against group representatives,
// in group creation order, and joins the first group that matches.
type ClusterBuilder struct {
	adapter   *Adapter
	threshold float64
	logger    *zap.Logger
	progress  ProgressFunc
}

// NewClusterBuilder creates a builder with the given grouping threshold.
func NewClusterBuilder(adapter *Adapter, threshold float64, logger *zap.Logger) *ClusterBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClusterBuilder{adapter: adapter, threshold: threshold, logger: logger}
}

// Build folds the pool into a partition. It checks ctx before every image.
func (b *ClusterBuilder) Build(ctx context.Context, images []CandidateImage) (*ClusterPartition, error) {
	state := newClusterState()
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			b.logger.Info("clustering cancelled", zap.Int("processed", i), zap.Int("total", len(images)))
			return nil, err
		}
		state = b.step(ctx, state, img)
		if b.progress != nil {
			b.progress(i+1, len(images))
		}
	}

	if len(images) > 0 && state.probed == 0 {
		return state.partition(), fmt.Errorf("%w: face detection failed for all %d images", ErrOracleUnavailable, len(images))
	}
	return state.partition(), nil
}

func (b *ClusterBuilder) step(ctx context.Context, state clusterState, img CandidateImage) clusterState {
	faces, err := b.adapter.Detect(ctx, img.Ref)
	if err != nil {
		b.logger.Warn("face detection failed", zap.String("ref", img.Ref), zap.Error(err))
		img.Face = FaceUnknown
		return state.withNoFace(img)
	}
	state.probed++
	if faces == 0 {
		img.Face = FaceAbsent
		return state.withNoFace(img)
	}
	img.Face = FacePresent

	for idx, g := range state.groups {
		outcome := b.adapter.Compare(ctx, g.Representative.Ref, img.Ref, b.threshold)
		if outcome.Kind != OutcomeSuccess || outcome.Similarity < b.threshold {
			continue
		}
		b.logger.Debug("joined group",
			zap.String("ref", img.Ref), zap.String("group", g.ID), zap.Float64("similarity", outcome.Similarity))
		return state.withMember(idx, img)
	}

	return state.withNewGroup(img)
}
