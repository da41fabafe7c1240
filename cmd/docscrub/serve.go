package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docscrub/internal/api"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cleaner HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New(nil)

	store, closeStore, err := artifactStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rc := remoteClient(cfg, m)
	orch := newOrchestrator(cfg, store, rc, m)

	queue := pipeline.NewQueue(cfg.QueueConfig(), orch, log)
	queue.Start(context.WithoutCancel(ctx))

	deps := api.Deps{Orchestrator: orch, Queue: queue, Store: store, Metrics: m}
	if rc != nil {
		deps.Remote = rc
	}
	srv := api.NewServer(deps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting docscrub", "port", cfg.Port, "remote", cfg.RemoteURL != "", "gcs", cfg.GCSBucket != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		queue.Stop()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	queue.Stop()
	return nil
}
