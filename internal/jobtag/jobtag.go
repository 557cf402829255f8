// Package jobtag implements the JobTag identifier and JobKind classification
// shared by every component that addresses a job's artifacts, per spec.md
// §3.
package jobtag

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the tool family a job invokes.
type Kind string

const (
	KindP       Kind = "P"
	KindA       Kind = "A"
	KindInvalid Kind = "invalid"
)

// KindFromFilename derives a Kind from a descriptor filename's leading
// token, split on "-", per spec.md §3/§4.2.
func KindFromFilename(filename string) Kind {
	prefix, _, _ := strings.Cut(filename, "-")
	switch prefix {
	case "P":
		return KindP
	case "A":
		return KindA
	default:
		return KindInvalid
	}
}

// Tag is the "<date>/<job_id>" string prefixing every artifact of one job.
// Immutable once formed.
type Tag struct {
	Date  string
	JobID string
}

// New forms a Tag from an explicit date and job ID.
func New(date, jobID string) Tag {
	return Tag{Date: date, JobID: jobID}
}

// NewToday forms a Tag for the current UTC date with a freshly generated
// job ID.
func NewToday() (Tag, error) {
	id, err := NewJobID()
	if err != nil {
		return Tag{}, err
	}
	return Tag{Date: time.Now().UTC().Format("2006-01-02"), JobID: id}, nil
}

// String renders the "<date>/<job_id>" form.
func (t Tag) String() string {
	return t.Date + "/" + t.JobID
}

const jobIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const jobIDLength = 10

// NewJobID returns a 10-character lowercase alphanumeric job ID chosen
// uniformly at random, per spec.md §3 and the testable property in §8.
//
// Entropy comes from a v4 UUID (grounded on the pack's use of
// github.com/google/uuid as a source of random identifiers) rather than
// math/rand or crypto/rand directly: the UUID package already wraps
// crypto/rand with the version/variant bit-fixing that makes its output
// hard to accidentally misuse, and its 122 bits of randomness comfortably
// cover the ~52 bits (10 chars over a 36-symbol alphabet) this needs. Each
// UUID's bytes, except the two that carry the fixed version and variant
// bits, are reduced over the job-ID alphabet one byte at a time, skipping
// bytes of 252 or more so every symbol is equally likely; a further UUID is
// drawn when one does not yield 10 symbols. The ID is not rendered as a
// UUID string, since spec.md's alphabet is not UUID-shaped.
func NewJobID() (string, error) {
	var sb strings.Builder
	sb.Grow(jobIDLength)
	for sb.Len() < jobIDLength {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("jobtag: generating entropy: %w", err)
		}
		for i, b := range id {
			// 252 = 7*36, the largest multiple of the alphabet size in a byte.
			if i != 6 && i != 8 && b < 252 && sb.Len() < jobIDLength {
				sb.WriteByte(jobIDAlphabet[int(b)%len(jobIDAlphabet)])
			}
		}
	}
	return sb.String(), nil
}
