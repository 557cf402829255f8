// Command intake runs the Intake Handler (C5) as a standalone long-lived
// process: it polls a notification queue for object-store key-notification
// events (spec.md §6's "Intake event shape") and dispatches each one to
// internal/intake.Handler.
//
// Signal handling follows the teacher's internal/cli.coordinator_cmd.go
// shape directly (signal.Notify/select/signal.Stop) rather than going
// through internal/lifecycle: the PROCESSING pause/resume flag is scoped
// to the Worker by spec.md §4.5 ("Runtime controls for the worker"), not
// to intake, so this process only needs a plain graceful-stop signal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Electrostatics/apbs-aws/internal/config"
	"github.com/Electrostatics/apbs-aws/internal/intake"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/objectstore"
	"github.com/Electrostatics/apbs-aws/internal/queue"
	"github.com/Electrostatics/apbs-aws/internal/statusdoc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Translate job descriptors into queued work messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	return cmd
}

// notification is the minimal shape spec.md §6 requires: "at minimum
// s3.object.key and s3.bucket.name; other fields ignored." Modeled on an
// S3 event notification record so a real bucket-to-queue subscription can
// feed this process unmodified.
type notification struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	if cfg.IntakeQueueName == "" {
		return fmt.Errorf("intake: INTAKE_QUEUE_NAME is required")
	}
	logging.SetLevelFromEnv(cfg.LogLevel)
	log := logging.New("intake")

	gw, err := objectstore.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("intake: constructing object store: %w", err)
	}
	notifyQueue, err := queue.New(ctx, cfg, cfg.IntakeQueueName)
	if err != nil {
		return fmt.Errorf("intake: constructing notification queue: %w", err)
	}
	workQueue, err := queue.New(ctx, cfg, cfg.JobQueueName)
	if err != nil {
		return fmt.Errorf("intake: constructing work queue: %w", err)
	}

	h := &intake.Handler{
		ObjectStore:  gw,
		Queue:        workQueue,
		Status:       statusdoc.NewStore(gw, cfg.OutputBucket),
		InputBucket:  cfg.InputBucket,
		OutputBucket: cfg.OutputBucket,
		DefaultMaxRT: cfg.JobMaxRuntime,
		Log:          log,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log.Info().Str("intake_queue", cfg.IntakeQueueName).Msg("intake: starting poll loop")

	emptyPolls := 0
	for {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("intake: shutting down")
			return nil
		default:
		}

		msg, err := notifyQueue.Receive(ctx, time.Duration(cfg.SQSQueueTimeout)*time.Second)
		if err != nil {
			log.Error().Err(err).Msg("intake: receive failed")
			time.Sleep(cfg.SQSRetryTime)
			continue
		}
		if msg == nil {
			emptyPolls++
			if emptyPolls >= cfg.SQSMaxTries {
				log.Info().Int("empty_polls", emptyPolls).Msg("intake: max empty polls reached, exiting")
				return nil
			}
			time.Sleep(cfg.SQSRetryTime)
			continue
		}
		emptyPolls = 0

		handleNotification(ctx, h, notifyQueue, msg, log)
	}
}

func handleNotification(ctx context.Context, h *intake.Handler, q queue.Gateway, msg *queue.Message, log *logging.Logger) {
	var evt notification
	if err := json.Unmarshal([]byte(msg.Body), &evt); err != nil || len(evt.Records) == 0 {
		log.Error().Err(err).Str("body", msg.Body).Msg("intake: malformed notification")
		if err := q.Delete(ctx, msg); err != nil {
			log.Error().Err(err).Msg("intake: deleting malformed notification failed")
		}
		return
	}

	for _, rec := range evt.Records {
		bucket := rec.S3.Bucket.Name
		key := rec.S3.Object.Key
		if err := h.Handle(ctx, bucket, key); err != nil {
			log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("intake: handling event failed")
		}
	}

	if err := q.Delete(ctx, msg); err != nil {
		log.Error().Err(err).Msg("intake: deleting notification failed")
	}
}
