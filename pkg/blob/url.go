package blob

import (
	"context"
	"fmt"
	"strings"
)

// newGCS is set by the gcp-tagged gcs.go; without the tag, gs:// mirrors
// are rejected at ForURL rather than at upload time.
var newGCS func(ctx context.Context, bucket, prefix string) (Backend, error)

// ForURL selects a Backend for a mirror destination: "s3://bucket/prefix"
// builds an S3Backend (credentials from the AWS default provider chain),
// "gs://bucket/prefix" a GCSBackend (requires the gcp build tag), and any
// other value is treated as a local directory path.
func ForURL(ctx context.Context, dest string) (Backend, error) {
	switch {
	case strings.HasPrefix(dest, "s3://"):
		bucket, prefix := splitBucket(strings.TrimPrefix(dest, "s3://"))
		return NewS3Backend(ctx, S3Config{Bucket: bucket, Prefix: prefix})
	case strings.HasPrefix(dest, "gs://"):
		if newGCS == nil {
			return nil, fmt.Errorf("blob: gs:// mirror %q requires a build with the gcp tag", dest)
		}
		bucket, prefix := splitBucket(strings.TrimPrefix(dest, "gs://"))
		return newGCS(ctx, bucket, prefix)
	default:
		return NewLocalBackend(dest), nil
	}
}

// splitBucket splits "bucket/some/prefix" into ("bucket", "some/prefix/").
func splitBucket(s string) (bucket, prefix string) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		bucket, prefix = s[:i], strings.TrimPrefix(s[i+1:], "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		return bucket, prefix
	}
	return s, ""
}
