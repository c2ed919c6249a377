package ports

import (
	"context"
	"io"

	"github.com/familycircle/circle-api/internal/core/domain"
)

// MediaService uploads files to object storage and hands out public URLs.
type MediaService interface {
	UploadFile(ctx context.Context, blob domain.Blob, pathPrefix, fileName string) (string, error)
	UploadProfileImage(ctx context.Context, userID string, blob domain.Blob) (string, error)
	UploadFamilyPhoto(ctx context.Context, familyID string, blob domain.Blob) (string, error)
	UpdateProfileImage(ctx context.Context, userID string, blob domain.Blob, oldURL string) (string, error)
	// CheckProfileImage returns domain.ErrForbidden for a stored-media URL
	// that is not userID's own profile image.
	CheckProfileImage(userID, url string) error
	DeleteFile(ctx context.Context, url string) error
	ListFiles(ctx context.Context, pathPrefix string) ([]string, error)
	ListFamilyPhotos(ctx context.Context, familyID string) ([]string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, domain.StoredObject, error)
	// MaxBytes is the largest accepted upload.
	MaxBytes() int64
}
