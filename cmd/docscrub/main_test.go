package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docscrub/internal/document"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DOCSCRUB_CONFIG", "")
	t.Setenv("REMOTE_URL", "")
	t.Setenv("GCS_BUCKET", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cleanOutput, cleanChunkSize, cleanRemote = "", 0, ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docscrub "+version)
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(in, []byte("Hello world! مرحبا بالعالم This is English text."), 0o644))
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "clean", "--output", outDir, in)
	require.NoError(t, err)

	var resp struct {
		Results []document.Outcome `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 1)
	require.Equal(t, document.StatusSuccess, resp.Results[0].Status)

	merged, err := os.ReadFile(filepath.Join(outDir, resp.Results[0].Artifacts.Merged))
	require.NoError(t, err)
	assert.Equal(t, "Hello world! This is English text.", string(merged))
}

func TestCleanCommand_FailsOnErrorOutcome(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sheet.xlsx")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0o644))

	out, err := execute(t, "clean", "--output", filepath.Join(dir, "out"), in)
	require.Error(t, err)
	assert.Contains(t, out, "format_error")
}

func TestServeCommands_RejectInvalidConfig(t *testing.T) {
	tests := []struct {
		cmd, env, value, want string
	}{
		{"serve", "CHUNK_SIZE_WORDS", "0", "CHUNK_SIZE_WORDS"},
		{"serve", "MAX_REQUEST_BYTES", "0", "MAX_REQUEST_BYTES"},
		{"chunkd", "REMOTE_RETRIES", "0", "REMOTE_RETRIES"},
		{"chunkd", "REMOTE_BACKOFF_MAX", "100ms", "REMOTE_BACKOFF_MAX"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := execute(t, tt.cmd)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
