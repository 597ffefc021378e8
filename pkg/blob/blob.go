// Package blob provides a pluggable raw-bytes backend for off-site archive
// delivery. It sits behind the package writer's single read/write seam: the
// content-addressed store's primary path always stays local disk (hard
// links require it), but a finished case archive may
// additionally be mirrored to S3 or GCS for off-site custody.
package blob

import "context"

// Backend stores and retrieves opaque byte blobs keyed by name. Names are
// caller-chosen (typically "<case-id>.zip" or a content hash); Backend does
// not interpret them.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}
