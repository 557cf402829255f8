// Command worker runs the Worker (C6) poll loop as a standalone long-lived
// process: one job leased and executed at a time, forever, until the
// lifecycle controller's "stop" action fires or the configured number of
// consecutive empty polls elapses.
//
// Flag parsing follows the teacher's internal/cli.root.go cobra
// composition (see SPEC_FULL.md's AMBIENT STACK), without resurrecting any
// of the teacher's interactive job-management subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Electrostatics/apbs-aws/internal/config"
	"github.com/Electrostatics/apbs-aws/internal/lifecycle"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/objectstore"
	"github.com/Electrostatics/apbs-aws/internal/queue"
	"github.com/Electrostatics/apbs-aws/internal/statusdoc"
	"github.com/Electrostatics/apbs-aws/internal/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Poll the work queue and run APBS/PDB2PQR jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	return cmd
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	logging.SetLevelFromEnv(cfg.LogLevel)
	log := logging.New("worker")

	gw, err := objectstore.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("worker: constructing object store: %w", err)
	}
	q, err := queue.New(ctx, cfg, cfg.JobQueueName)
	if err != nil {
		return fmt.Errorf("worker: constructing queue: %w", err)
	}
	status := statusdoc.NewStore(gw, cfg.OutputBucket)

	var w *worker.Worker
	ctrl := lifecycle.New(log, func() {
		if err := w.Reload(); err != nil {
			log.Error().Err(err).Msg("worker: reload failed, keeping previous configuration")
		}
	}, func() {
		c := w.Config()
		log.Info().
			Str("input_bucket", c.InputBucket).
			Str("output_bucket", c.OutputBucket).
			Str("job_queue", c.JobQueueName).
			Bool("processing", ctrl.IsProcessing()).
			Msg("worker: current configuration")
	})
	w = worker.New(cfg, gw, q, status, ctrl, log)

	stopSignals := ctrl.ListenSignals()
	defer stopSignals()

	log.Info().Str("job_queue", cfg.JobQueueName).Msg("worker: starting poll loop")
	return w.Run(ctx)
}
