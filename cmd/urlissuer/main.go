// Command urlissuer serves the URL Issuer (C9) HTTP API: POST a
// {file_list, job_id?} body, get back a job tag and one presigned PUT URL
// per filename, per spec.md §4.9 and §6.
//
// A single JSON route has no need for a router framework the teacher
// itself never carries (it has no HTTP server at all); net/http's
// ServeMux is the whole of the ambient HTTP stack this command needs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Electrostatics/apbs-aws/internal/config"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/objectstore"
	"github.com/Electrostatics/apbs-aws/internal/urlissuer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "urlissuer",
		Short: "Serve presigned upload URLs for job input files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}

func run(ctx context.Context, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("urlissuer: %w", err)
	}
	logging.SetLevelFromEnv(cfg.LogLevel)
	log := logging.New("urlissuer")

	gw, err := objectstore.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("urlissuer: constructing object store: %w", err)
	}
	presigner, ok := gw.(objectstore.Presigner)
	if !ok {
		return fmt.Errorf("urlissuer: object store backend does not support presigning")
	}

	h := &urlissuer.Handler{Presigner: presigner, InputBucket: cfg.InputBucket, Log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /urls", httpHandler(h, log))

	srv := &http.Server{Addr: addr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	log.Info().Str("addr", addr).Msg("urlissuer: listening")

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("urlissuer: shutting down")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("urlissuer: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func httpHandler(h *urlissuer.Handler, log *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req urlissuer.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		resp, err := h.Issue(r.Context(), req)
		if err != nil {
			log.Error().Err(err).Msg("urlissuer: issuing urls failed")
			http.Error(w, "failed to issue urls", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("urlissuer: encoding response failed")
		}
	}
}
