// Package rekognition implements the face oracle on top of Amazon Rekognition,
// comparing images that live in an S3 bucket.
package rekognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"golang.org/x/time/rate"

	"github.com/kozaktomas/event-faces/internal/facematch"
)

// Client is the subset of the Rekognition API used by Oracle.
type Client interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	CompareFaces(ctx context.Context, params *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
}

// Oracle resolves refs as object keys in a single bucket.
type Oracle struct {
	client  Client
	bucket  string
	limiter *rate.Limiter
}

var _ facematch.Oracle = (*Oracle)(nil)

// Option configures an Oracle.
type Option func(*Oracle)

// WithRateLimit caps the number of API calls per second. Zero or less means unlimited.
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

// New creates a Rekognition-backed oracle for images in bucket.
func New(client Client, bucket string, opts ...Option) *Oracle {
	o := &Oracle{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Oracle) image(ref string) *types.Image {
	return &types.Image{S3Object: &types.S3Object{
		Bucket: aws.String(o.bucket),
		Name:   aws.String(ref),
	}}
}

func (o *Oracle) wait(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

// DetectFaces returns the number of faces Rekognition finds in the image.
func (o *Oracle) DetectFaces(ctx context.Context, ref string) (int, error) {
	if err := o.wait(ctx); err != nil {
		return 0, err
	}
	out, err := o.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: o.image(ref),
	})
	if err != nil {
		return 0, translate(err)
	}
	return len(out.FaceDetails), nil
}

// CompareFaces returns the similarity of each face in targetRef that matched the
// largest face in sourceRef at or above thresholdHint.
func (o *Oracle) CompareFaces(ctx context.Context, sourceRef, targetRef string, thresholdHint float64) ([]float64, error) {
	if err := o.wait(ctx); err != nil {
		return nil, err
	}
	out, err := o.client.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         o.image(sourceRef),
		TargetImage:         o.image(targetRef),
		SimilarityThreshold: aws.Float32(float32(thresholdHint)),
	})
	if err != nil {
		return nil, translate(err)
	}

	similarities := make([]float64, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		if m.Similarity == nil {
			continue
		}
		similarities = append(similarities, float64(*m.Similarity))
	}
	return similarities, nil
}

// translate maps "no face in image" responses to facematch.ErrNoFace.
// Rekognition reports those as InvalidParameterException.
func translate(err error) error {
	var invalid *types.InvalidParameterException
	if errors.As(err, &invalid) {
		return fmt.Errorf("%w: %s", facematch.ErrNoFace, aws.ToString(invalid.Message))
	}
	return err
}
