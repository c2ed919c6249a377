package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/familycircle/circle-api/internal/core/domain"
	"github.com/familycircle/circle-api/internal/core/ports"
	"github.com/familycircle/circle-api/internal/pkg/metrics"
)

const (
	profileImagesPrefix = "profile_images"
	familyPhotosPrefix  = "family_photos"
	mediaRoute          = "/v1/media/"
)

type MediaService struct {
	storage  ports.ObjectStorage
	baseURL  string
	maxBytes int64
	logger   zerolog.Logger
}

// NewMediaService serves stored objects under baseURL + "/v1/media/".
// maxBytes <= 0 falls back to domain.MaxUploadBytes.
func NewMediaService(storage ports.ObjectStorage, baseURL string, maxBytes int64, logger zerolog.Logger) *MediaService {
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadBytes
	}
	return &MediaService{
		storage:  storage,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// MaxBytes is the upload ceiling enforced by UploadFile.
func (s *MediaService) MaxBytes() int64 { return s.maxBytes }

// UploadFile stores blob under pathPrefix and returns its public URL. When
// fileName is empty a unique name is derived from the blob name.
func (s *MediaService) UploadFile(ctx context.Context, blob domain.Blob, pathPrefix, fileName string) (string, error) {
	if blob.Size() > s.maxBytes {
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		return "", fmt.Errorf("%w: %d bytes, limit is %d", domain.ErrFileTooLarge, blob.Size(), s.maxBytes)
	}
	if blob.Size() == 0 {
		metrics.UploadsTotal.WithLabelValues("empty").Inc()
		return "", domain.ErrEmptyFile
	}

	if fileName == "" {
		fileName = uuid.NewString() + "_" + sanitizeFileName(blob.Name)
	}
	objectPath := strings.Trim(pathPrefix, "/") + "/" + fileName

	// Stored type comes from the content, not the client header.
	contentType := http.DetectContentType(blob.Data)

	obj, err := s.storage.Put(ctx, objectPath, contentType, blob.Data)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("path", objectPath).Msg("upload failed")
		return "", fmt.Errorf("upload file: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.UploadSizeBytes.Observe(float64(obj.Size))
	s.logger.Info().Str("path", obj.Path).Int64("size", obj.Size).Msg("file uploaded")
	return s.urlFor(obj.Path), nil
}

// UploadProfileImage stores the image at profile_images/<userID>.<ext>.
func (s *MediaService) UploadProfileImage(ctx context.Context, userID string, blob domain.Blob) (string, error) {
	return s.UploadFile(ctx, blob, profileImagesPrefix, userID+"."+imageExt(blob))
}

func (s *MediaService) UploadFamilyPhoto(ctx context.Context, familyID string, blob domain.Blob) (string, error) {
	return s.UploadFile(ctx, blob, familyPhotosPrefix+"/"+familyID, "")
}

// ListFamilyPhotos returns the URLs of the photos uploaded for familyID.
func (s *MediaService) ListFamilyPhotos(ctx context.Context, familyID string) ([]string, error) {
	return s.ListFiles(ctx, familyPhotosPrefix+"/"+familyID)
}

// UpdateProfileImage uploads the new image and then removes oldURL when it
// is the user's own stored profile image. Failing to remove the old image
// does not fail the update.
func (s *MediaService) UpdateProfileImage(ctx context.Context, userID string, blob domain.Blob, oldURL string) (string, error) {
	newURL, err := s.UploadProfileImage(ctx, userID, blob)
	if err != nil {
		return "", err
	}

	if oldURL == "" || oldURL == newURL {
		return newURL, nil
	}
	if objectPath, ok := s.pathFromURL(oldURL); !ok || !isProfileImagePath(userID, objectPath) {
		s.logger.Warn().Str("user_id", userID).Str("old_url", oldURL).Msg("old profile image is not owned by user, keeping it")
		return newURL, nil
	}
	if err := s.DeleteFile(ctx, oldURL); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("old_url", oldURL).Msg("failed to delete old profile image")
	}
	return newURL, nil
}

// CheckProfileImage rejects a profile image URL that points into stored
// media other than userID's own profile image. External URLs are allowed.
func (s *MediaService) CheckProfileImage(userID, url string) error {
	if url == "" || !strings.Contains(url, mediaRoute) {
		return nil
	}
	objectPath, ok := s.pathFromURL(url)
	if !ok || !isProfileImagePath(userID, objectPath) {
		return fmt.Errorf("%w: profile image must be your own upload", domain.ErrForbidden)
	}
	return nil
}

func (s *MediaService) DeleteFile(ctx context.Context, url string) error {
	objectPath, ok := s.pathFromURL(url)
	if !ok {
		return domain.ErrFileNotFound
	}
	if err := s.storage.Delete(ctx, objectPath); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// ListFiles returns the URLs of the files directly under pathPrefix.
func (s *MediaService) ListFiles(ctx context.Context, pathPrefix string) ([]string, error) {
	objects, err := s.storage.List(ctx, strings.Trim(pathPrefix, "/"))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	urls := make([]string, 0, len(objects))
	for _, obj := range objects {
		urls = append(urls, s.urlFor(obj.Path))
	}
	return urls, nil
}

func (s *MediaService) Open(ctx context.Context, objectPath string) (io.ReadCloser, domain.StoredObject, error) {
	return s.storage.Open(ctx, strings.TrimPrefix(path.Clean("/"+objectPath), "/"))
}

func (s *MediaService) urlFor(objectPath string) string {
	return s.baseURL + mediaRoute + objectPath
}

func (s *MediaService) pathFromURL(url string) (string, bool) {
	prefix := s.baseURL + mediaRoute
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	p := strings.TrimPrefix(url, prefix)
	return p, p != ""
}

// isProfileImagePath reports whether objectPath is profile_images/<userID>.<ext>.
func isProfileImagePath(userID, objectPath string) bool {
	if userID == "" || path.Clean(objectPath) != objectPath {
		return false
	}
	dir, file := path.Split(objectPath)
	if dir != profileImagesPrefix+"/" {
		return false
	}
	name := strings.TrimSuffix(file, path.Ext(file))
	return name == userID
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == '?' || r == '#' || r == '%':
			return -1
		}
		return r
	}, name)
}

func imageExt(blob domain.Blob) string {
	if ext := blob.Ext(); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, _ := mime.ExtensionsByType(http.DetectContentType(blob.Data)); len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}
