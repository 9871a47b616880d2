package storage

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kozaktomas/event-faces/internal/config"
)

// MinioStore lists event images in a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioClient creates a MinIO client from configuration.
func NewMinioClient(cfg config.MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return client, nil
}

// NewMinioStore creates a store. If publicBaseURL is empty, image URLs use the
// client's endpoint in path style.
func NewMinioStore(client *minio.Client, bucket, publicBaseURL string) *MinioStore {
	if publicBaseURL == "" {
		publicBaseURL = client.EndpointURL().String()
	}
	return &MinioStore{client: client, bucket: bucket, baseURL: joinURL(publicBaseURL, bucket)}
}

func (s *MinioStore) List(ctx context.Context, prefix string) ([]ImageRef, error) {
	var refs []ImageRef
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", s.bucket, prefix, obj.Err)
		}
		if !IsImageKey(obj.Key) {
			continue
		}
		refs = append(refs, ImageRef{Key: obj.Key, URL: joinURL(s.baseURL, obj.Key)})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", s.bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}
