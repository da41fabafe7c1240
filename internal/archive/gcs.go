package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore keeps artifacts as objects in a Cloud Storage bucket. Writes are
// create-only; artifact names carry a unique suffix so they never collide.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	log    *slog.Logger
}

// NewGCSStore opens a client with application default credentials.
func NewGCSStore(ctx context.Context, bucket string, log *slog.Logger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		log:    log.With("component", "gcs-store", "bucket", bucket),
	}, nil
}

// Put uploads data and returns its gs:// URI. An object that already exists
// is left untouched and reported as written.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("gs://%s/%s", s.name, name)

	w := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			s.log.Info("object already exists, skipping", "object", name)
			return ref, nil
		}
		return "", fmt.Errorf("finalize gcs object %s: %w", name, err)
	}
	return ref, nil
}

func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, ErrNotFound
	}
	r, err := s.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s: %w", name, err)
	}
	return r, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
