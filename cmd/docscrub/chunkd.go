package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docscrub/internal/chunkservice"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/parser"
)

var chunkdCmd = &cobra.Command{
	Use:   "chunkd",
	Short: "Run the remote chunking service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChunkd(cmd.Context())
	},
}

func runChunkd(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New(nil)

	var cache chunkservice.Cache
	if cfg.RedisAddr != "" {
		rc, err := chunkservice.NewRedisCache(cfg.RedisAddr, cfg.RedisTTL, log)
		if err != nil {
			// Serve uncached rather than refusing to start.
			log.Warn("redis cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	svc := chunkservice.NewService(cfg.ChunkServiceConfig(), parser.NewExtractor(cfg.PDFFallbackPdftotext), cache, m, log)
	srv := chunkservice.NewServer(svc, m, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.ChunkdPort,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting chunkd", "port", cfg.ChunkdPort, "cache", cache != nil)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
