// Package worker implements the Worker (C6): the single-process poll loop
// that leases one WorkMessage at a time from the queue, materializes its
// inputs, runs the chosen binary, records resource usage, uploads
// whatever the run produced, and retires the job's status document.
//
// Grounded on original_source/src/docker/job_control.py's main/run_job
// loop; the per-job mechanics (materialize/run/upload) live in
// internal/worker/spawn so this file is the orchestration and ordering
// logic spec.md §4.3 and §5 describe.
package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Electrostatics/apbs-aws/internal/config"
	"github.com/Electrostatics/apbs-aws/internal/jobtag"
	"github.com/Electrostatics/apbs-aws/internal/lifecycle"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/metrics"
	"github.com/Electrostatics/apbs-aws/internal/models"
	"github.com/Electrostatics/apbs-aws/internal/objectstore"
	"github.com/Electrostatics/apbs-aws/internal/queue"
	"github.com/Electrostatics/apbs-aws/internal/statusdoc"
	"github.com/Electrostatics/apbs-aws/internal/worker/spawn"
)

// Worker is the Worker (C6) poll loop's state.
type Worker struct {
	ObjectStore objectstore.Gateway
	Queue       queue.Gateway
	Status      *statusdoc.Store
	Controller  *lifecycle.Controller
	Log         *logging.Logger
	HTTPClient  *http.Client

	cfg atomic.Pointer[config.Config]
}

// New builds a Worker. The HTTP client used for URL-sourced input_files is
// a retryablehttp client (per SPEC_FULL.md's domain stack, grounded on the
// teacher's internal/api/client.go), not cfg's retry policy — URL fetches
// are a one-shot operation from the caller's perspective per spec.md §4.6,
// but transient network blips on a single GET are worth a few retries
// before surfacing a download failure.
func New(cfg *config.Config, gw objectstore.Gateway, q queue.Gateway, status *statusdoc.Store, ctrl *lifecycle.Controller, log *logging.Logger) *Worker {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	w := &Worker{
		ObjectStore: gw,
		Queue:       q,
		Status:      status,
		Controller:  ctrl,
		Log:         log,
		HTTPClient:  retryClient.StandardClient(),
	}
	w.cfg.Store(cfg)
	return w
}

// Config returns the currently active configuration.
func (w *Worker) Config() *config.Config {
	return w.cfg.Load()
}

// Reload re-reads configuration from the environment, per spec.md §4.5's
// "reload" action and §6.
func (w *Worker) Reload() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	w.cfg.Store(cfg)
	return nil
}

// Run executes the poll loop until ctx is cancelled, the lifecycle
// controller's "stop" action fires, or MAX_TRIES consecutive empty polls
// elapse, per spec.md §4.3 step 1.
func (w *Worker) Run(ctx context.Context) error {
	emptyPolls := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Controller.Stopped():
			return nil
		default:
		}

		if !w.Controller.IsProcessing() {
			time.Sleep(10 * time.Second)
			continue
		}

		cfg := w.Config()
		msg, err := w.Queue.Receive(ctx, time.Duration(cfg.SQSQueueTimeout)*time.Second)
		if err != nil {
			w.Log.Error().Err(err).Msg("worker: receive failed")
			time.Sleep(cfg.SQSRetryTime)
			continue
		}
		if msg == nil {
			emptyPolls++
			if emptyPolls >= cfg.SQSMaxTries {
				w.Log.Info().Int("empty_polls", emptyPolls).Msg("worker: max empty polls reached, exiting")
				return nil
			}
			time.Sleep(cfg.SQSRetryTime)
			continue
		}
		emptyPolls = 0

		w.handleMessage(ctx, cfg, msg)
	}
}

// toolKind maps a WorkMessage's raw job_type ("A"/"P") onto the status
// document's full-name Kind, the same mapping internal/intake makes from
// the other direction of the pipeline.
func toolKind(jobType string) (statusdoc.Kind, bool) {
	switch jobtag.Kind(jobType) {
	case jobtag.KindA:
		return statusdoc.KindAPBS, true
	case jobtag.KindP:
		return statusdoc.KindPDB2PQR, true
	default:
		return "", false
	}
}

func (w *Worker) handleMessage(ctx context.Context, cfg *config.Config, msg *queue.Message) {
	var wm models.WorkMessage
	if err := json.Unmarshal([]byte(msg.Body), &wm); err != nil || wm.JobDate == "" || wm.JobID == "" {
		w.Log.Error().Err(err).Str("body", msg.Body).Msg("worker: malformed work message")
		w.deleteMessage(ctx, msg)
		return
	}

	log := w.Log.WithJob(wm.JobTag)

	kind, ok := toolKind(wm.JobType)
	if !ok {
		log.Error().Str("job_type", wm.JobType).Msg("worker: unrecognized job type")
		w.deleteMessage(ctx, msg)
		return
	}

	dir := filepath.Join(cfg.JobPath, wm.JobTag)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("worker: creating job directory failed")
		w.deleteMessage(ctx, msg)
		return
	}

	job := spawn.Job{
		JobTag:      wm.JobTag,
		JobType:     wm.JobType,
		InputBucket: wm.BucketName,
		CLIArgs:     wm.CommandLineArgs,
		InputFiles:  wm.InputFiles,
	}

	if err := spawn.Materialize(ctx, w.ObjectStore, w.HTTPClient, dir, job); err != nil {
		log.Error().Err(err).Msg("worker: materializing inputs failed")
		w.failJob(ctx, wm.JobTag, kind, "Failed to download input file. Job did not run.")
		w.cleanup(dir, log)
		w.deleteMessage(ctx, msg)
		return
	}

	if err := w.Status.Merge(ctx, wm.JobTag, kind, func(d statusdoc.Doc) statusdoc.Doc { return d.WithRunning() }); err != nil {
		log.Error().Err(err).Msg("worker: writing running status failed")
	}

	if wm.MaxRunTime > 0 {
		if err := w.Queue.ExtendVisibility(ctx, msg, wm.MaxRunTime); err != nil {
			log.Warn().Err(err).Msg("worker: extending visibility failed")
		}
	}

	exitCode, delta, runtimeSeconds, diskBytes := w.execute(ctx, dir, string(kind), job, log)

	metricsBytes, err := metrics.Render(delta, runtimeSeconds, diskBytes, exitCode)
	if err != nil {
		log.Error().Err(err).Msg("worker: rendering metrics failed")
	} else {
		metricsKey := wm.JobTag + "/" + string(kind) + "-metrics.json"
		if err := w.ObjectStore.PutBytes(ctx, cfg.OutputBucket, metricsKey, metricsBytes); err != nil {
			log.Error().Err(err).Msg("worker: writing metrics document failed")
		}
	}

	uploadRes, err := spawn.Upload(ctx, w.ObjectStore, cfg.OutputBucket, wm.JobTag, dir, wm.InputFiles)
	if err != nil {
		log.Error().Err(err).Msg("worker: listing working directory for upload failed")
	}
	for _, uerr := range uploadRes.Errs {
		log.Error().Err(uerr).Msg("worker: output upload failed for one file")
	}

	w.cleanup(dir, log)

	if err := w.Status.Merge(ctx, wm.JobTag, kind, func(d statusdoc.Doc) statusdoc.Doc {
		return d.WithComplete(uploadRes.OutputFiles, nowSeconds())
	}); err != nil {
		log.Error().Err(err).Msg("worker: writing complete status failed")
	}

	w.deleteMessage(ctx, msg)
}

// execute snapshots resource usage before and after spawn.Run, per
// spec.md §4.3 step 7. Snapshot failures are logged, not fatal: the run
// still completes and reports zeroed deltas rather than blocking the job
// on a metrics collection problem.
func (w *Worker) execute(ctx context.Context, dir, kind string, job spawn.Job, log *logging.Logger) (exitCode int, delta metrics.Delta, runtimeSeconds float64, diskBytes int64) {
	before, beforeErr := metrics.TakeSnapshot()
	if beforeErr != nil {
		log.Error().Err(beforeErr).Msg("worker: rusage snapshot before run failed")
	}

	start := time.Now()
	exitCode, runErr := spawn.Run(ctx, dir, kind, job)
	if runErr != nil {
		log.Error().Err(runErr).Msg("worker: spawning binary failed")
	}
	runtimeSeconds = time.Since(start).Seconds()

	after, afterErr := metrics.TakeSnapshot()
	if afterErr != nil {
		log.Error().Err(afterErr).Msg("worker: rusage snapshot after run failed")
	}
	if beforeErr == nil && afterErr == nil {
		delta = metrics.ComputeDelta(before, after)
	}

	diskBytes, err := metrics.StorageBytes(dir)
	if err != nil {
		log.Error().Err(err).Msg("worker: computing disk usage failed")
	}

	return exitCode, delta, runtimeSeconds, diskBytes
}

func nowSeconds() float64 {
	return float64(time.Now().Unix())
}

func (w *Worker) failJob(ctx context.Context, jobTag string, kind statusdoc.Kind, message string) {
	if err := w.Status.Merge(ctx, jobTag, kind, func(d statusdoc.Doc) statusdoc.Doc {
		return d.WithFailed(message, nowSeconds())
	}); err != nil {
		w.Log.Error().Err(err).Msg("worker: writing failed status failed")
	}
}

func (w *Worker) cleanup(dir string, log *logging.Logger) {
	if err := os.RemoveAll(dir); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("worker: cleanup failed")
	}
}

func (w *Worker) deleteMessage(ctx context.Context, msg *queue.Message) {
	if err := w.Queue.Delete(ctx, msg); err != nil {
		w.Log.Error().Err(err).Msg("worker: deleting message failed")
	}
}
