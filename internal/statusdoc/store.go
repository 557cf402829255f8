package statusdoc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Electrostatics/apbs-aws/internal/objectstore"
)

// Store reads and writes StatusDocs in the output bucket at
// "<JobTag>/<kind>-status.json", per spec.md §4.8 (C3).
type Store struct {
	gw     objectstore.Gateway
	bucket string
}

// NewStore builds a Store over gw, writing into bucket.
func NewStore(gw objectstore.Gateway, bucket string) *Store {
	return &Store{gw: gw, bucket: bucket}
}

func statusKey(jobTag string, kind Kind) string {
	return fmt.Sprintf("%s/%s-status.json", jobTag, kind)
}

// Write persists doc at <jobTag>/<kind>-status.json, replacing any
// existing document. Writes are last-writer-wins; spec.md §4.8 notes no
// compare-and-swap is required because the state machine guarantees a
// single writer per transition.
func (s *Store) Write(ctx context.Context, jobTag string, kind Kind, doc Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.gw.PutBytes(ctx, s.bucket, statusKey(jobTag, kind), data)
}

// Read fetches and parses the status document at <jobTag>/<kind>-status.json.
func (s *Store) Read(ctx context.Context, jobTag string, kind Kind) (Doc, error) {
	data, err := s.gw.GetBytes(ctx, s.bucket, statusKey(jobTag, kind))
	if err != nil {
		return Doc{}, err
	}
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Doc{}, err
	}
	return doc, nil
}

// Merge performs a read-modify-write: it reads the current document, lets
// fn transform it, then writes the result. Per spec.md §4.8.
func (s *Store) Merge(ctx context.Context, jobTag string, kind Kind, fn func(Doc) Doc) error {
	current, err := s.Read(ctx, jobTag, kind)
	if err != nil {
		return err
	}
	return s.Write(ctx, jobTag, kind, fn(current))
}
