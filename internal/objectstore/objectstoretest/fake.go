// Package objectstoretest provides an in-memory objectstore.Gateway for
// tests in internal/statusdoc, internal/intake, internal/worker, and
// internal/urlissuer, the way the teacher's tests fake its api.Client
// rather than hitting the network.
package objectstoretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Fake is an in-memory objectstore.Gateway. It also implements
// objectstore.Presigner, so it can stand in for internal/urlissuer's tests.
type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte

	// HeadErr, GetErr, PutErr, CopyErr force every matching call to fail
	// while they are set, for exercising transport error paths.
	GetErr  error
	PutErr  error
	HeadErr error
	CopyErr error

	// PresignErrKeys forces PresignPut to fail for exactly the listed keys,
	// so tests can exercise spec.md §4.9's per-file failure tolerance
	// without breaking every other file in the same batch.
	PresignErrKeys map[string]bool
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{objects: make(map[string][]byte)}
}

func objKey(bucket, key string) string { return bucket + "/" + key }

func (f *Fake) GetBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	data, ok := f.objects[objKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("objectstoretest: %s/%s not found", bucket, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *Fake) PutBytes(ctx context.Context, bucket, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PutErr != nil {
		return f.PutErr
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	f.objects[objKey(bucket, key)] = stored
	return nil
}

func (f *Fake) Head(ctx context.Context, bucket, key string) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HeadErr != nil {
		return false, 0, f.HeadErr
	}
	data, ok := f.objects[objKey(bucket, key)]
	if !ok {
		return false, 0, nil
	}
	return true, int64(len(data)), nil
}

func (f *Fake) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CopyErr != nil {
		return f.CopyErr
	}
	data, ok := f.objects[objKey(srcBucket, srcKey)]
	if !ok {
		return fmt.Errorf("objectstoretest: %s/%s not found", srcBucket, srcKey)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	f.objects[objKey(dstBucket, dstKey)] = stored
	return nil
}

func (f *Fake) DownloadFile(ctx context.Context, bucket, key string, w io.Writer) error {
	data, err := f.GetBytes(ctx, bucket, key)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (f *Fake) UploadFile(ctx context.Context, bucket, key string, r io.Reader, size int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	return f.PutBytes(ctx, bucket, key, buf.Bytes())
}

// PresignPut returns a fake but deterministic URL, or an error for any key
// listed in PresignErrKeys.
func (f *Fake) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PresignErrKeys[key] {
		return "", fmt.Errorf("objectstoretest: presign denied for %s/%s", bucket, key)
	}
	return fmt.Sprintf("https://fake-presign.test/%s/%s?ttl=%s", bucket, key, ttl), nil
}

// Seed directly sets an object's contents, bypassing PutErr.
func (f *Fake) Seed(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objKey(bucket, key)] = data
}

// Objects returns a snapshot of all bucket/key pairs currently stored.
func (f *Fake) Objects() map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte, len(f.objects))
	for k, v := range f.objects {
		out[k] = v
	}
	return out
}
