package ports

import (
	"context"
	"io"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// ObjectStorage stores binary objects under slash-separated paths.
type ObjectStorage interface {
	// Put stores data at path, replacing any earlier object at the same path.
	Put(ctx context.Context, path, contentType string, data []byte) (domain.StoredObject, error)
	// Open returns domain.ErrFileNotFound when nothing is stored at path.
	Open(ctx context.Context, path string) (io.ReadCloser, domain.StoredObject, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]domain.StoredObject, error)
}
