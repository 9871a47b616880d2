// Package storage lists and reads event images from an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/kozaktomas/event-faces/internal/facematch"
)

// ErrNotFound is returned by Reader.Get for missing keys.
var ErrNotFound = errors.New("object not found")

// ImageRef is a stored image: a stable key plus the URL shown to users.
type ImageRef struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Store lists image objects. Results are ordered by key and contain only images.
type Store interface {
	List(ctx context.Context, prefix string) ([]ImageRef, error)
}

// Reader loads object bytes.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Bucket is a store that can also read objects.
type Bucket interface {
	Store
	Reader
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IsImageKey reports whether the key names a supported image (.jpg, .jpeg, .png).
func IsImageKey(key string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(key))]
	return ok
}

// joinURL appends a key to a base URL, escaping nothing but slashes between them.
func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}

// Candidates lists the scope's event images as a candidate pool, in key order.
func Candidates(ctx context.Context, store Store, scope facematch.Scope) ([]facematch.CandidateImage, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	refs, err := store.List(ctx, scope.ImagesPrefix())
	if err != nil {
		return nil, fmt.Errorf("listing images for event %s: %w", scope.EventID, err)
	}
	candidates := make([]facematch.CandidateImage, len(refs))
	for i, ref := range refs {
		candidates[i] = facematch.CandidateImage{Ref: ref.Key, URL: ref.URL}
	}
	return candidates, nil
}
