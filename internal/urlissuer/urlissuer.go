// Package urlissuer implements the URL Issuer (C9): the only synchronous
// surface in the pipeline, handing a submitter presigned PUT URLs for a
// batch of filenames under a freshly-minted or caller-supplied job tag, per
// spec.md §4.9 and §6's "URL issuer API".
//
// There is no original_source analogue for this component — the original
// system's upload URLs were issued by a separate API Gateway/Lambda pair
// outside original_source/'s Docker worker tree. This package follows the
// teacher's internal/intake.Handler shape instead: a small struct holding
// its dependencies, one exported entry point, and per-item error tolerance
// rather than an all-or-nothing batch.
package urlissuer

import (
	"context"
	"fmt"
	"time"

	"github.com/Electrostatics/apbs-aws/internal/jobtag"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/objectstore"
)

// presignTTL is the fixed expiry spec.md §4.9 mandates for every issued URL.
const presignTTL = time.Hour

// Request is the URL issuer API's JSON body, per spec.md §6.
type Request struct {
	FileList []string `json:"file_list"`
	JobID    string   `json:"job_id,omitempty"`
}

// Response is the URL issuer API's JSON reply, per spec.md §4.9 and §6.
type Response struct {
	Date   string            `json:"date"`
	JobID  string            `json:"job_id"`
	JobTag string            `json:"job_tag"`
	URLs   map[string]string `json:"urls"`
}

// Handler wires together the URL issuer's dependencies.
type Handler struct {
	Presigner   objectstore.Presigner
	InputBucket string
	Log         *logging.Logger
}

// Issue generates (or accepts) a job ID and returns one presigned PUT URL
// per requested filename. A presign failure for one file yields an empty
// string for that entry and a logged warning; the batch never fails as a
// whole, per spec.md §4.9.
func (h *Handler) Issue(ctx context.Context, req Request) (Response, error) {
	var tag jobtag.Tag
	if req.JobID == "" {
		t, err := jobtag.NewToday()
		if err != nil {
			return Response{}, fmt.Errorf("urlissuer: generating job id: %w", err)
		}
		tag = t
	} else {
		tag = jobtag.New(time.Now().UTC().Format("2006-01-02"), req.JobID)
	}

	urls := make(map[string]string, len(req.FileList))
	for _, name := range req.FileList {
		key := tag.String() + "/" + name
		url, err := h.Presigner.PresignPut(ctx, h.InputBucket, key, presignTTL)
		if err != nil {
			h.Log.Warn().Err(err).Str("job_tag", tag.String()).Str("file", name).
				Msg("urlissuer: failed to presign upload url")
			urls[name] = ""
			continue
		}
		urls[name] = url
	}

	return Response{
		Date:   tag.Date,
		JobID:  tag.JobID,
		JobTag: tag.String(),
		URLs:   urls,
	}, nil
}
