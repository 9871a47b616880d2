package embedding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kozaktomas/event-faces/internal/constants"
	"github.com/kozaktomas/event-faces/internal/facematch"
	"github.com/kozaktomas/event-faces/internal/storage"
)

// Faces computes face embeddings for image bytes.
type Faces interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error)
}

// Oracle compares faces by the cosine similarity of their embeddings.
// Refs are keys readable through the configured storage.Reader.
//
// Oracle itself keeps no embeddings. ForRun returns a session that computes each
// ref at most once for the length of one engine run.
type Oracle struct {
	faces   Faces
	reader  storage.Reader
	maxSize int
	limiter *rate.Limiter
	logger  *zap.Logger
}

var (
	_ facematch.Oracle    = (*Oracle)(nil)
	_ facematch.RunScoped = (*Oracle)(nil)
	_ facematch.Oracle    = (*session)(nil)
)

// Option configures an Oracle.
type Option func(*Oracle)

// WithRateLimit caps embedding requests per second. Zero or less means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(o *Oracle) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxImageSize sets the longest side images are downscaled to before upload.
func WithMaxImageSize(px int) Option {
	return func(o *Oracle) {
		if px > 0 {
			o.maxSize = px
		}
	}
}

// NewOracle creates an embedding-backed oracle.
func NewOracle(faces Faces, reader storage.Reader, opts ...Option) *Oracle {
	o := &Oracle{
		faces:   faces,
		reader:  reader,
		maxSize: constants.MaxImageSize,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ForRun starts a session whose embeddings live until the caller drops it.
func (o *Oracle) ForRun() facematch.Oracle {
	return o.newSession()
}

func (o *Oracle) newSession() *session {
	return &session{oracle: o, cache: make(map[string][][]float32)}
}

// session memoizes embeddings per ref for one run.
type session struct {
	oracle *Oracle

	group singleflight.Group
	mu    sync.Mutex
	cache map[string][][]float32
}

// embeddings returns the face embeddings of ref, computing each ref at most once
// even under concurrent callers. The shared computation does not inherit the
// first caller's cancellation; every caller still stops waiting when its own ctx ends.
func (s *session) embeddings(ctx context.Context, ref string) ([][]float32, error) {
	s.mu.Lock()
	cached, ok := s.cache[ref]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan(ref, func() (any, error) {
		embs, err := s.oracle.compute(context.WithoutCancel(ctx), ref)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[ref] = embs
		s.mu.Unlock()
		return embs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([][]float32), nil
	}
}

func (o *Oracle) compute(ctx context.Context, ref string) ([][]float32, error) {
	data, err := o.reader.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	data, err = prepareImage(data, o.maxSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := o.faces.ComputeFaceEmbeddings(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", ref, err)
	}

	embs := make([][]float32, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.Embedding) > 0 {
			embs = append(embs, f.Embedding)
		}
	}
	o.logger.Debug("computed face embeddings", zap.String("ref", ref), zap.Int("faces", len(embs)))
	return embs, nil
}

// DetectFaces returns the number of faces the embedding server finds.
// Called outside a run, nothing is memoized.
func (o *Oracle) DetectFaces(ctx context.Context, ref string) (int, error) {
	return o.newSession().DetectFaces(ctx, ref)
}

// CompareFaces scores targetRef against sourceRef without memoizing either.
func (o *Oracle) CompareFaces(ctx context.Context, sourceRef, targetRef string, thresholdHint float64) ([]float64, error) {
	return o.newSession().CompareFaces(ctx, sourceRef, targetRef, thresholdHint)
}

func (s *session) DetectFaces(ctx context.Context, ref string) (int, error) {
	embs, err := s.embeddings(ctx, ref)
	if err != nil {
		return 0, err
	}
	return len(embs), nil
}

// CompareFaces scores each target face against the source faces, keeping the
// best source match per target face. Scores below thresholdHint are dropped.
func (s *session) CompareFaces(ctx context.Context, sourceRef, targetRef string, thresholdHint float64) ([]float64, error) {
	source, err := s.embeddings(ctx, sourceRef)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("%w: source %s", facematch.ErrNoFace, sourceRef)
	}
	target, err := s.embeddings(ctx, targetRef)
	if err != nil {
		return nil, err
	}

	var similarities []float64
	for _, t := range target {
		best := 0.0
		for _, src := range source {
			if sim := percent(CosineSimilarity(src, t)); sim > best {
				best = sim
			}
		}
		if best >= thresholdHint {
			similarities = append(similarities, best)
		}
	}
	return similarities, nil
}
