package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docscrub/internal/archive"
	"github.com/dgallion1/docscrub/internal/config"
	"github.com/dgallion1/docscrub/internal/metrics"
	"github.com/dgallion1/docscrub/internal/parser"
	"github.com/dgallion1/docscrub/internal/pipeline"
	"github.com/dgallion1/docscrub/internal/remote"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	verbose bool

	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docscrub",
	Short: "Strip Arabic text from documents",
	Long: `docscrub extracts text from txt, pdf, docx, md and html documents, chunks
large ones (locally or through a remote chunking service), removes every
Arabic codepoint and packages the cleaned text as a merged file plus a zip.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "docscrub %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (defaults to $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chunkdCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// artifactStore picks GCS when a bucket is configured, the output directory
// otherwise.
func artifactStore(ctx context.Context, cfg config.Config) (archive.Store, func(), error) {
	if cfg.GCSBucket != "" {
		gcs, err := archive.NewGCSStore(ctx, cfg.GCSBucket, log)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { gcs.Close() }, nil
	}
	fs, err := archive.NewFSStore(cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

// remoteClient returns nil when no remote URL is configured.
func remoteClient(cfg config.Config, m *metrics.Metrics) *remote.Client {
	if cfg.RemoteURL == "" {
		return nil
	}
	return remote.New(cfg.RemoteConfig(), remote.WithLogger(log), remote.WithMetrics(m))
}

func newOrchestrator(cfg config.Config, store archive.Store, rc *remote.Client, m *metrics.Metrics) *pipeline.Orchestrator {
	var chunker pipeline.RemoteChunker
	if rc != nil {
		chunker = rc
	}
	return pipeline.NewOrchestrator(
		cfg.PipelineConfig(),
		parser.NewExtractor(cfg.PDFFallbackPdftotext),
		chunker,
		archive.NewWriter(store, log),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
	)
}
