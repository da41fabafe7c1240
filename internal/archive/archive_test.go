package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func TestWriter_ChunkFilesAndMerged(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)
	w := NewWriter(store, nil)

	b, err := w.Write(context.Background(), Request{
		MergedName:  "doc_cleaned_merged_u1.txt",
		Merged:      "one\n\n--- CHUNK SEPARATOR ---\n\ntwo",
		ArchiveName: "doc_cleaned_chunks_u1.zip",
		Files: []File{
			{Name: "doc_chunk_1_u1.txt", Content: "one"},
			{Name: "doc_chunk_2_u1.txt", Content: "two"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "doc_cleaned_merged_u1.txt", b.MergedRef)
	assert.Equal(t, "doc_cleaned_chunks_u1.zip", b.ArchiveRef)

	merged, err := os.ReadFile(filepath.Join(dir, b.MergedRef))
	require.NoError(t, err)
	assert.Equal(t, "one\n\n--- CHUNK SEPARATOR ---\n\ntwo", string(merged))

	zipped, err := os.ReadFile(filepath.Join(dir, b.ArchiveRef))
	require.NoError(t, err)
	files := readZip(t, zipped)
	assert.Equal(t, map[string]string{
		"doc_chunk_1_u1.txt":        "one",
		"doc_chunk_2_u1.txt":        "two",
		"doc_cleaned_merged_u1.txt": "one\n\n--- CHUNK SEPARATOR ---\n\ntwo",
	}, files)
}

func TestWriter_SingleChunkHoldsOnlyMerged(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	w := NewWriter(store, nil)

	b, err := w.Write(context.Background(), Request{
		MergedName:  "a_cleaned_merged_x.txt",
		Merged:      "hello",
		ArchiveName: "a_cleaned_chunks_x.zip",
	})
	require.NoError(t, err)

	rc, err := store.Open(context.Background(), b.ArchiveRef)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a_cleaned_merged_x.txt": "hello"}, readZip(t, data))
}

func TestFSStore_Open(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Open(context.Background(), "../etc/passwd")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFSStore_RejectsBadNames(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b.txt", `a\b.txt`, ".hidden"} {
		_, err := store.Put(context.Background(), name, []byte("x"))
		assert.Error(t, err, name)
	}
}

func TestFSStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "a.txt", []byte("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name())
}
