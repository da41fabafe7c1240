package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docscrub/internal/chunkservice"
	"github.com/dgallion1/docscrub/internal/pipeline"
	"github.com/dgallion1/docscrub/internal/policy"
	"github.com/dgallion1/docscrub/internal/remote"
)

// EnvConfigFile names the optional YAML file overlaid on the defaults.
const EnvConfigFile = "DOCSCRUB_CONFIG"

type Config struct {
	Port       string `yaml:"port"`
	ChunkdPort string `yaml:"chunkd_port"`

	// Auth
	APIKey string `yaml:"api_key"`

	LogLevel string `yaml:"log_level"`

	// Processing policy
	SizeThresholdBytes int64 `yaml:"size_threshold_bytes"`
	WordThreshold      int   `yaml:"word_threshold"`
	ChunkSizeWords     int   `yaml:"chunk_size_words"`
	OverlapWords       int   `yaml:"overlap_words"`

	// Upload limits
	MaxRequestBytes int64 `yaml:"max_request_bytes"`
	MaxFileBytes    int64 `yaml:"max_file_bytes"`

	// Remote chunking service
	RemoteURL            string        `yaml:"remote_url"`
	RemoteRetries        int           `yaml:"remote_retries"`
	RemoteBackoffInitial time.Duration `yaml:"remote_backoff_initial"`
	RemoteBackoffMax     time.Duration `yaml:"remote_backoff_max"`
	RemoteTimeout        time.Duration `yaml:"remote_timeout"`
	RemoteProbeTimeout   time.Duration `yaml:"remote_probe_timeout"`
	RemoteBatchMax       int           `yaml:"remote_batch_max"`

	// Worker pool
	WorkerCount      int `yaml:"worker_count"`
	MaxQueueSize     int `yaml:"max_queue_size"`
	BatchConcurrency int `yaml:"batch_concurrency"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Artifacts
	OutputDir string `yaml:"output_dir"`
	GCSBucket string `yaml:"gcs_bucket"`

	// Chunking service result cache
	RedisAddr string        `yaml:"redis_addr"`
	RedisTTL  time.Duration `yaml:"redis_ttl"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	pol := policy.DefaultConfig()
	rc := remote.DefaultConfig()
	return Config{
		Port:       "8090",
		ChunkdPort: "8000",
		LogLevel:   "info",

		SizeThresholdBytes: pol.SizeThresholdBytes,
		WordThreshold:      pol.WordThreshold,
		ChunkSizeWords:     pol.ChunkSizeWords,
		OverlapWords:       pol.OverlapWords,

		MaxRequestBytes: 100 * 1024 * 1024,
		MaxFileBytes:    50 * 1024 * 1024,

		RemoteRetries:        rc.Retries,
		RemoteBackoffInitial: rc.BackoffInitial,
		RemoteBackoffMax:     rc.BackoffMax,
		RemoteTimeout:        rc.Timeout,
		RemoteProbeTimeout:   rc.ProbeTimeout,
		RemoteBatchMax:       rc.BatchMax,

		WorkerCount:      4,
		MaxQueueSize:     100,
		BatchConcurrency: 4,

		JobTTL: 1 * time.Hour,

		OutputDir: "./output",

		RedisTTL: 1 * time.Hour,

		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $DOCSCRUB_CONFIG when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.ChunkdPort = envOr("CHUNKD_PORT", cfg.ChunkdPort)
	cfg.APIKey = envOr("API_KEY", cfg.APIKey)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	cfg.SizeThresholdBytes = envInt64("SIZE_THRESHOLD_BYTES", cfg.SizeThresholdBytes)
	cfg.WordThreshold = envInt("WORD_THRESHOLD", cfg.WordThreshold)
	cfg.ChunkSizeWords = envInt("CHUNK_SIZE_WORDS", cfg.ChunkSizeWords)
	cfg.OverlapWords = envInt("OVERLAP_WORDS", cfg.OverlapWords)

	cfg.MaxRequestBytes = envInt64("MAX_REQUEST_BYTES", cfg.MaxRequestBytes)
	cfg.MaxFileBytes = envInt64("MAX_FILE_BYTES", cfg.MaxFileBytes)

	cfg.RemoteURL = envOr("REMOTE_URL", cfg.RemoteURL)
	cfg.RemoteRetries = envInt("REMOTE_RETRIES", cfg.RemoteRetries)
	cfg.RemoteBackoffInitial = envDuration("REMOTE_BACKOFF_INITIAL", cfg.RemoteBackoffInitial)
	cfg.RemoteBackoffMax = envDuration("REMOTE_BACKOFF_MAX", cfg.RemoteBackoffMax)
	cfg.RemoteTimeout = envDuration("REMOTE_TIMEOUT", cfg.RemoteTimeout)
	cfg.RemoteProbeTimeout = envDuration("REMOTE_PROBE_TIMEOUT", cfg.RemoteProbeTimeout)
	cfg.RemoteBatchMax = envInt("REMOTE_BATCH_MAX", cfg.RemoteBatchMax)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.BatchConcurrency = envInt("BATCH_CONCURRENCY", cfg.BatchConcurrency)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)
	cfg.GCSBucket = envOr("GCS_BUCKET", cfg.GCSBucket)

	cfg.RedisAddr = envOr("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisTTL = envDuration("REDIS_TTL", cfg.RedisTTL)

	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("SIZE_THRESHOLD_BYTES", c.SizeThresholdBytes)
	positive("WORD_THRESHOLD", int64(c.WordThreshold))
	positive("CHUNK_SIZE_WORDS", int64(c.ChunkSizeWords))
	positive("MAX_REQUEST_BYTES", c.MaxRequestBytes)
	positive("MAX_FILE_BYTES", c.MaxFileBytes)
	positive("REMOTE_BATCH_MAX", int64(c.RemoteBatchMax))
	positive("WORKER_COUNT", int64(c.WorkerCount))
	positive("MAX_QUEUE_SIZE", int64(c.MaxQueueSize))
	positive("BATCH_CONCURRENCY", int64(c.BatchConcurrency))

	if c.OverlapWords < 0 {
		errs = append(errs, fmt.Errorf("OVERLAP_WORDS must not be negative, got %d", c.OverlapWords))
	}
	if c.RemoteRetries < 1 {
		errs = append(errs, fmt.Errorf("REMOTE_RETRIES must be at least 1, got %d", c.RemoteRetries))
	}
	if c.RemoteBackoffInitial <= 0 {
		errs = append(errs, fmt.Errorf("REMOTE_BACKOFF_INITIAL must be positive"))
	}
	if c.RemoteBackoffMax < c.RemoteBackoffInitial {
		errs = append(errs, fmt.Errorf("REMOTE_BACKOFF_MAX (%s) is below REMOTE_BACKOFF_INITIAL (%s)", c.RemoteBackoffMax, c.RemoteBackoffInitial))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REMOTE_TIMEOUT must be positive"))
	}
	if c.RemoteProbeTimeout <= 0 || c.RemoteProbeTimeout > 5*time.Second {
		errs = append(errs, fmt.Errorf("REMOTE_PROBE_TIMEOUT must be in (0, 5s], got %s", c.RemoteProbeTimeout))
	}
	if c.JobTTL <= 0 {
		errs = append(errs, fmt.Errorf("JOB_TTL must be positive"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PolicyConfig projects the processing thresholds.
func (c Config) PolicyConfig() policy.Config {
	return policy.Config{
		SizeThresholdBytes: c.SizeThresholdBytes,
		WordThreshold:      c.WordThreshold,
		ChunkSizeWords:     c.ChunkSizeWords,
		OverlapWords:       c.OverlapWords,
	}
}

// RemoteConfig projects the remote client settings.
func (c Config) RemoteConfig() remote.Config {
	return remote.Config{
		BaseURL:        c.RemoteURL,
		Retries:        c.RemoteRetries,
		BackoffInitial: c.RemoteBackoffInitial,
		BackoffMax:     c.RemoteBackoffMax,
		Timeout:        c.RemoteTimeout,
		ProbeTimeout:   c.RemoteProbeTimeout,
		BatchMax:       c.RemoteBatchMax,
	}
}

func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{Policy: c.PolicyConfig(), Concurrency: c.BatchConcurrency}
}

func (c Config) QueueConfig() pipeline.QueueConfig {
	return pipeline.QueueConfig{Workers: c.WorkerCount, MaxQueueSize: c.MaxQueueSize, JobTTL: c.JobTTL}
}

func (c Config) ChunkServiceConfig() chunkservice.Config {
	return chunkservice.Config{
		DefaultChunkSizeWords: c.ChunkSizeWords,
		DefaultOverlapWords:   c.OverlapWords,
		MaxRequestBytes:       c.MaxFileBytes,
		APIKey:                c.APIKey,
	}
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
