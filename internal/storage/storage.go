package storage

import (
	"context"
	"time"
)

// ObjectStore defines the object-storage operations the pipeline needs.
// This allows switching between S3 and an in-memory implementation in tests.
type ObjectStore interface {
	// Put uploads a binary object under the given key.
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// Get downloads an object's bytes.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// PresignGet returns a short-lived signed download URL for a key.
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)

	// SyncPrefix mirrors every object under srcPrefix to dstPrefix, deleting
	// destination objects that no longer exist at the source.
	SyncPrefix(ctx context.Context, srcBucket, srcPrefix, dstBucket, dstPrefix string) error
}
