// Package intake implements the Intake Handler (C5): object-event →
// Translator → Status Store → Queue Gateway, per spec.md §4.2.
//
// Grounded on
// original_source/.../job_service.py's interpret_job_submission, trimmed
// of its Fargate desired-count nudge (no Fargate service exists in this
// domain; the worker is a long-running poll loop started independently,
// not scaled from zero on first job).
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Electrostatics/apbs-aws/internal/jobtag"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/models"
	"github.com/Electrostatics/apbs-aws/internal/objectstore"
	"github.com/Electrostatics/apbs-aws/internal/queue"
	"github.com/Electrostatics/apbs-aws/internal/statusdoc"
	"github.com/Electrostatics/apbs-aws/internal/translator"
)

// nowFunc is overridden in tests so status timestamps are deterministic.
var nowFunc = func() float64 { return float64(time.Now().Unix()) }

// Handler wires together the gateways the Intake Handler needs.
type Handler struct {
	ObjectStore  objectstore.Gateway
	Queue        queue.Gateway
	Status       *statusdoc.Store
	InputBucket  string
	OutputBucket string
	DefaultMaxRT int
	Log          *logging.Logger
}

// toolKind maps the descriptor filename's single-letter JobKind onto the
// status document's full tool-name Kind, per statusdoc.Kind's doc comment.
func toolKind(k jobtag.Kind) (statusdoc.Kind, bool) {
	switch k {
	case jobtag.KindP:
		return statusdoc.KindPDB2PQR, true
	case jobtag.KindA:
		return statusdoc.KindAPBS, true
	default:
		return "", false
	}
}

// Handle processes one object-store event per spec.md §4.2: bucket and key
// identify the descriptor that triggered this invocation.
func (h *Handler) Handle(ctx context.Context, bucket, key string) error {
	jobDate, jobID, filename, err := splitKey(key)
	if err != nil {
		h.Log.Error().Err(err).Str("key", key).Msg("intake: malformed event key")
		return err
	}
	jobTag := jobDate + "/" + jobID
	kind := jobtag.KindFromFilename(filename)

	descriptor, err := h.ObjectStore.GetBytes(ctx, bucket, key)
	if err != nil {
		h.Log.Error().Err(err).Str("key", key).Msg("intake: fetching descriptor")
		return fmt.Errorf("intake: fetching descriptor %s/%s: %w", bucket, key, err)
	}

	statusKind, ok := toolKind(kind)
	if !ok {
		// Any job_type outside {P, A} has no tool to run and no natural
		// status-document kind; fall back to the raw filename prefix so
		// the failure is still visible at a deterministic key.
		prefix, _, _ := strings.Cut(filename, "-")
		statusKind = statusdoc.Kind(prefix)
		return h.writeInvalid(ctx, jobTag, statusKind, "Invalid job type. No job executed")
	}

	prepared, err := translator.Translate(ctx, h.ObjectStore, h.InputBucket, h.OutputBucket, jobTag, descriptor)
	if err != nil {
		if mf, ok := err.(*models.MissingFiles); ok {
			return h.writeFailed(ctx, jobTag, statusKind, mf.Error())
		}
		if invalid, ok := err.(*models.InvalidDescriptor); ok {
			return h.writeInvalid(ctx, jobTag, statusKind, invalid.Reason)
		}
		h.Log.Error().Err(err).Str("job_tag", jobTag).Msg("intake: translation failed")
		return fmt.Errorf("intake: translating %s: %w", jobTag, err)
	}

	startTime := nowFunc()
	doc := statusdoc.NewPending(jobID, statusKind, startTime, prepared.InputFiles, prepared.OutputFiles)
	if err := h.Status.Write(ctx, jobTag, statusKind, doc); err != nil {
		h.Log.Error().Err(err).Str("job_tag", jobTag).Msg("intake: writing pending status")
		return fmt.Errorf("intake: writing status for %s: %w", jobTag, err)
	}

	maxRunTime := h.DefaultMaxRT
	if prepared.EstimatedMaxRuntime > 0 {
		maxRunTime = prepared.EstimatedMaxRuntime
	}

	msg := models.WorkMessage{
		JobDate:         jobDate,
		JobID:           jobID,
		JobTag:          jobTag,
		JobType:         string(kind),
		BucketName:      bucket,
		InputFiles:      prepared.InputFiles,
		CommandLineArgs: prepared.CLIArgs,
		MaxRunTime:      maxRunTime,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("intake: encoding work message for %s: %w", jobTag, err)
	}
	if err := h.Queue.Send(ctx, string(body)); err != nil {
		h.Log.Error().Err(err).Str("job_tag", jobTag).Msg("intake: enqueueing work message")
		return fmt.Errorf("intake: enqueueing %s: %w", jobTag, err)
	}

	h.Log.Info().Str("job_tag", jobTag).Msg("intake: job enqueued")
	return nil
}

func (h *Handler) writeFailed(ctx context.Context, jobTag string, kind statusdoc.Kind, message string) error {
	now := nowFunc()
	doc := statusdoc.NewFailed(lastSegment(jobTag), kind, now, now, message)
	if err := h.Status.Write(ctx, jobTag, kind, doc); err != nil {
		h.Log.Error().Err(err).Str("job_tag", jobTag).Msg("intake: writing failed status")
		return fmt.Errorf("intake: writing failed status for %s: %w", jobTag, err)
	}
	h.Log.Warn().Str("job_tag", jobTag).Str("message", message).Msg("intake: job failed during translation")
	return nil
}

func (h *Handler) writeInvalid(ctx context.Context, jobTag string, kind statusdoc.Kind, message string) error {
	doc := statusdoc.NewInvalid(lastSegment(jobTag), kind, message)
	if err := h.Status.Write(ctx, jobTag, kind, doc); err != nil {
		h.Log.Error().Err(err).Str("job_tag", jobTag).Msg("intake: writing invalid status")
		return fmt.Errorf("intake: writing invalid status for %s: %w", jobTag, err)
	}
	h.Log.Warn().Str("job_tag", jobTag).Str("message", message).Msg("intake: invalid job type")
	return nil
}

func lastSegment(jobTag string) string {
	_, id, found := strings.Cut(jobTag, "/")
	if !found {
		return jobTag
	}
	return id
}

// splitKey extracts job_date, job_id, filename from the last three
// "/"-separated segments of an object key, per spec.md §4.2.
func splitKey(key string) (jobDate, jobID, filename string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("intake: key %q has fewer than 3 segments", key)
	}
	n := len(parts)
	return parts[n-3], parts[n-2], parts[n-1], nil
}
