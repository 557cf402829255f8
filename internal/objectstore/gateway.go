// Package objectstore abstracts the object store the intake handler, worker,
// and URL issuer read job descriptors from and write status documents,
// metrics, and job artifacts to. Two backends are provided: S3 and Azure
// Blob Storage, selected by internal/config.Config.ObjectStoreProvider.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Electrostatics/apbs-aws/internal/config"
)

// Gateway is the backend-agnostic object store contract every component
// above it (internal/statusdoc, internal/intake, internal/worker,
// internal/urlissuer) depends on.
type Gateway interface {
	// GetBytes reads the full contents of key from bucket.
	GetBytes(ctx context.Context, bucket, key string) ([]byte, error)

	// PutBytes writes data to key in bucket, replacing any existing object.
	PutBytes(ctx context.Context, bucket, key string, data []byte) error

	// Head reports whether an object exists. A 403 response (a bucket
	// policy hiding object existence from an unauthorized caller) is
	// treated the same as a 404: exists=false, err=nil.
	Head(ctx context.Context, bucket, key string) (exists bool, size int64, err error)

	// Copy copies an object within or across buckets of the same backend.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// DownloadFile streams an object's contents to w.
	DownloadFile(ctx context.Context, bucket, key string, w io.Writer) error

	// UploadFile streams r's contents to key in bucket.
	UploadFile(ctx context.Context, bucket, key string, r io.Reader, size int64) error
}

// Presigner is implemented by backends that can mint a time-limited upload
// URL without the caller ever holding credentials, per spec.md §4.9. Both
// backends this package ships (S3 and Azure) implement it; Gateway itself
// stays narrower because only the URL issuer needs this capability.
type Presigner interface {
	// PresignPut returns a PUT URL for bucket/key that expires after ttl.
	PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// New constructs the Gateway implementation named by cfg.ObjectStoreProvider.
func New(ctx context.Context, cfg *config.Config) (Gateway, error) {
	switch cfg.ObjectStoreProvider {
	case config.ProviderAzure:
		return newAzureBackend(ctx, cfg)
	case config.ProviderS3, "":
		return newS3Backend(ctx, cfg)
	default:
		return nil, fmt.Errorf("objectstore: unknown provider %q", cfg.ObjectStoreProvider)
	}
}
