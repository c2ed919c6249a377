package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/familycircle/circle-api/internal/core/domain"
)

const (
	mediaBucket   = "media"
	streamTimeout = time.Minute
)

// GridFSStorage implements ports.ObjectStorage on a GridFS bucket. The object
// path is the GridFS filename; the newest revision of a name wins.
type GridFSStorage struct {
	db *mongo.Database
}

func NewGridFSStorage(db *mongo.Database) *GridFSStorage {
	return &GridFSStorage{db: db}
}

type gridFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Name     string             `bson:"filename"`
	Length   int64              `bson:"length"`
	Metadata struct {
		ContentType string `bson:"content_type"`
	} `bson:"metadata"`
}

// bucket returns a fresh bucket handle; deadlines are set per handle.
func (s *GridFSStorage) bucket() (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(mediaBucket))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return b, nil
}

func deadline(ctx context.Context, fallback time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(fallback)
}

// Put uploads data under path and then drops older revisions of the same path.
func (s *GridFSStorage) Put(ctx context.Context, path, contentType string, data []byte) (domain.StoredObject, error) {
	b, err := s.bucket()
	if err != nil {
		return domain.StoredObject{}, err
	}
	if err := b.SetWriteDeadline(deadline(ctx, defaultTimeout)); err != nil {
		return domain.StoredObject{}, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	id, err := b.UploadFromStream(path, bytes.NewReader(data), opts)
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("gridfs upload %s: %w", path, err)
	}

	if err := s.deleteWhere(ctx, b, bson.M{"filename": path, "_id": bson.M{"$ne": id}}); err != nil {
		return domain.StoredObject{}, err
	}

	return domain.StoredObject{Path: path, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *GridFSStorage) Open(ctx context.Context, path string) (io.ReadCloser, domain.StoredObject, error) {
	b, err := s.bucket()
	if err != nil {
		return nil, domain.StoredObject{}, err
	}
	if err := b.SetReadDeadline(deadline(ctx, streamTimeout)); err != nil {
		return nil, domain.StoredObject{}, err
	}

	stream, err := b.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, domain.StoredObject{}, domain.ErrFileNotFound
		}
		return nil, domain.StoredObject{}, fmt.Errorf("gridfs open %s: %w", path, err)
	}

	file := stream.GetFile()
	obj := domain.StoredObject{Path: path, Size: file.Length}
	if v, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok {
		obj.ContentType = v
	}
	return stream, obj, nil
}

// Delete removes every revision stored under path.
func (s *GridFSStorage) Delete(ctx context.Context, path string) error {
	b, err := s.bucket()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	files, err := s.find(ctx, b, bson.M{"filename": path})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return domain.ErrFileNotFound
	}
	for _, f := range files {
		if err := b.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("gridfs delete %s: %w", path, err)
		}
	}
	return nil
}

// List returns the objects stored directly under prefix.
func (s *GridFSStorage) List(ctx context.Context, prefix string) ([]domain.StoredObject, error) {
	b, err := s.bucket()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	pattern := "^" + regexp.QuoteMeta(prefix) + "/[^/]+$"
	files, err := s.find(ctx, b, bson.M{"filename": bson.M{"$regex": pattern}})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(files))
	objects := make([]domain.StoredObject, 0, len(files))
	for _, f := range files {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		objects = append(objects, domain.StoredObject{Path: f.Name, ContentType: f.Metadata.ContentType, Size: f.Length})
	}
	return objects, nil
}

func (s *GridFSStorage) find(ctx context.Context, b *gridfs.Bucket, filter bson.M) ([]gridFile, error) {
	opts := options.GridFSFind().SetSort(bson.D{{Key: "filename", Value: 1}, {Key: "uploadDate", Value: -1}})
	cur, err := b.FindContext(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("gridfs find: %w", err)
	}
	defer cur.Close(ctx)

	var files []gridFile
	if err := cur.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("gridfs decode: %w", err)
	}
	return files, nil
}

func (s *GridFSStorage) deleteWhere(ctx context.Context, b *gridfs.Bucket, filter bson.M) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	stale, err := s.find(ctx, b, filter)
	if err != nil {
		return err
	}
	for _, f := range stale {
		if err := b.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("gridfs delete revision: %w", err)
		}
	}
	return nil
}
