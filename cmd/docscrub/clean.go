package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docscrub/internal/document"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/pipeline"
)

var (
	cleanOutput    string
	cleanChunkSize int
	cleanRemote    string
)

var cleanCmd = &cobra.Command{
	Use:   "clean FILE...",
	Short: "Clean documents and print one JSON outcome per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanOutput != "" {
			cfg.OutputDir = cleanOutput
		}
		if cleanChunkSize > 0 {
			cfg.ChunkSizeWords = cleanChunkSize
		}
		if cleanRemote != "" {
			cfg.RemoteURL = cleanRemote
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		// Keep stdout for the outcomes.
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))

		docs := make([]document.Document, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			docs = append(docs, document.New(filepath.Base(path), data))
		}

		ctx := cmd.Context()
		store, closeStore, err := artifactStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		m := metrics.New(nil)
		orch := newOrchestrator(cfg, store, remoteClient(cfg, m), m)
		outcomes := orch.ProcessBatch(ctx, docs)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"results": outcomes}); err != nil {
			return err
		}

		failed := 0
		for _, o := range outcomes {
			if o.Failed() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed (%s)", failed, len(outcomes), pipeline.Describe(outcomes))
		}
		return nil
	},
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return cfg.SlogLevel()
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "artifact output directory (overrides OUTPUT_DIR)")
	cleanCmd.Flags().IntVar(&cleanChunkSize, "chunk-size", 0, "words per chunk for large documents")
	cleanCmd.Flags().StringVar(&cleanRemote, "remote", "", "remote chunking service URL")
}
