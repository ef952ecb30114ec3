package store

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// GCSObjectStore backs ObjectStore with a Google Cloud Storage bucket.
type GCSObjectStore struct {
	bucket *storage.BucketHandle
}

var _ ObjectStore = &GCSObjectStore{}

// NewGCSObjectStore opens a client with ambient credentials and binds it to
// the named bucket.
func NewGCSObjectStore(ctx context.Context, bucket string) (*GCSObjectStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs object store: empty bucket name")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "gcs object store: create client")
	}
	return &GCSObjectStore{bucket: client.Bucket(bucket)}, nil
}

func (s *GCSObjectStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.bucket.Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", name)
	}
	return true, nil
}

func (s *GCSObjectStore) LastModified(ctx context.Context, name string) (time.Time, error) {
	attrs, err := s.bucket.Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return time.Time{}, ErrObjectNotExist
	}
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "stat %s", name)
	}
	return attrs.Updated, nil
}

func (s *GCSObjectStore) Download(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotExist
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

func (s *GCSObjectStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "finalize %s", name)
	}
	return nil
}
