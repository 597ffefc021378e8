//go:build gcp

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSBackend mirrors blobs to a Google Cloud Storage bucket. Built only
// under the "gcp" tag since it pulls in the full GCS client stack.
type GCSBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSConfig configures a GCSBackend.
type GCSConfig struct {
	Bucket string
	Prefix string
}

func init() {
	newGCS = func(ctx context.Context, bucket, prefix string) (Backend, error) {
		return NewGCSBackend(ctx, GCSConfig{Bucket: bucket, Prefix: prefix})
	}
}

// NewGCSBackend builds a GCSBackend using application default credentials.
func NewGCSBackend(ctx context.Context, cfg GCSConfig) (*GCSBackend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: new gcs client: %w", err)
	}
	return &GCSBackend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *GCSBackend) object(key string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.prefix + key)
}

// Put uploads data to key.
func (b *GCSBackend) Put(ctx context.Context, key string, data []byte) error {
	w := b.object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("blob: gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("blob: gcs close %s: %w", key, err)
	}
	return nil
}

// Get downloads key's bytes.
func (b *GCSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: gcs read %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Exists reports whether key is present in the bucket.
func (b *GCSBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("blob: gcs attrs %s: %w", key, err)
}
