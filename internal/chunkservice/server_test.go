package chunkservice

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docscrub/internal/wire"
)

type memCache struct {
	mu   sync.Mutex
	data map[string]wire.ChunkResponse
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: map[string]wire.ChunkResponse{}}
}

func (c *memCache) Get(_ context.Context, key string) (*wire.ChunkResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[key]
	if !ok {
		return nil, false
	}
	return &r, true
}

func (c *memCache) Set(_ context.Context, key string, resp *wire.ChunkResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = *resp
}

func newTestServer(cache Cache) *Server {
	cfg := DefaultConfig()
	cfg.DefaultChunkSizeWords = 5
	svc := NewService(cfg, nil, cache, nil, nil)
	return NewServer(svc, nil, nil)
}

type upload struct {
	name string
	data string
}

func multipartBody(t *testing.T, field string, files []upload, params map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.name)
		require.NoError(t, err)
		part.Write([]byte(f.data))
	}
	for k, v := range params {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

const twoParagraphs = "one two three four\n\nfive six seven eight nine ten"

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var h wire.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, ServiceVersion, h.Version)
}

func TestSupportedFormats(t *testing.T) {
	rec := do(t, newTestServer(nil), httptest.NewRequest(http.MethodGet, "/supported-formats", nil))
	var f wire.FormatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, []string{".txt", ".pdf", ".docx"}, f.SupportedFormats)
	assert.Len(t, f.Descriptions, 3)
}

func TestChunkFile(t *testing.T) {
	body, ct := multipartBody(t, wire.FieldFile, []upload{{"notes.txt", twoParagraphs}}, map[string]string{
		wire.FieldChunkSizeWords: "6",
		wire.FieldOverlapWords:   "2",
	})
	req := httptest.NewRequest(http.MethodPost, "/chunk-file", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, newTestServer(nil), req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp wire.ChunkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "notes.txt", resp.FileName)
	assert.Equal(t, 10, resp.TotalWordCount)
	assert.Equal(t, 2, resp.ChunkCount)
	assert.Equal(t, 4, resp.Chunks[0].WordCount)
	assert.Equal(t, 6, resp.Chunks[1].WordCount)
	assert.EqualValues(t, len(twoParagraphs), resp.FileSizeBytes)
	require.NotNil(t, resp.ProcessingInfo)
	assert.Equal(t, 6, resp.ProcessingInfo.ChunkSizeWords)
	assert.Equal(t, 2, resp.ProcessingInfo.OverlapWords)
	assert.False(t, resp.ProcessingInfo.OverlapApplied)
}

func TestChunkFile_QueryParams(t *testing.T) {
	body, ct := multipartBody(t, wire.FieldFile, []upload{{"notes.txt", twoParagraphs}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/chunk-file?chunk_size_words=100", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, newTestServer(nil), req)
	var resp wire.ChunkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ChunkCount)
}

func TestChunkFile_UnsupportedFormat(t *testing.T) {
	body, ct := multipartBody(t, wire.FieldFile, []upload{{"sheet.xlsx", "x"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/chunk-file", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, newTestServer(nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unsupported file format: .xlsx")
}

func TestChunkFile_ExtractionFailureIsSuccessFalse(t *testing.T) {
	body, ct := multipartBody(t, wire.FieldFile, []upload{{"broken.pdf", "not a pdf"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/chunk-file", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, newTestServer(nil), req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp wire.ChunkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "format_error", resp.ErrorType)
	assert.NotEmpty(t, resp.Error)
}

func TestChunkFile_TooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRequestBytes = 64
	s := NewServer(NewService(cfg, nil, nil, nil, nil), nil, nil)

	body, ct := multipartBody(t, wire.FieldFile, []upload{{"big.txt", strings.Repeat("word ", 100)}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/chunk-file", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, s, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChunkMultiple(t *testing.T) {
	body, ct := multipartBody(t, wire.FieldFiles, []upload{
		{"a.txt", "alpha beta"},
		{"b.csv", "x,y"},
		{"c.txt", "gamma"},
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/chunk-multiple", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, newTestServer(nil), req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp wire.MultiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "a.txt", resp.Results[0].FileName)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "format_error", resp.Results[1].ErrorType)
	assert.True(t, resp.Results[2].Success)
	assert.Equal(t, 1, resp.Results[2].TotalWordCount)
}

func TestChunkMultiple_TooManyFiles(t *testing.T) {
	files := make([]upload, MaxFilesPerRequest+1)
	for i := range files {
		files[i] = upload{name: "f.txt", data: "x"}
	}
	body, ct := multipartBody(t, wire.FieldFiles, files, nil)
	req := httptest.NewRequest(http.MethodPost, "/chunk-multiple", body)
	req.Header.Set("Content-Type", ct)

	rec := do(t, newTestServer(nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChunkText(t *testing.T) {
	payload, _ := json.Marshal(wire.TextRequest{Text: twoParagraphs, ChunkSizeWords: 4})
	req := httptest.NewRequest(http.MethodPost, "/chunk-text", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, newTestServer(nil), req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp wire.ChunkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.ChunkCount)
	assert.Equal(t, "text", resp.ProcessingInfo.Format)
}

func TestChunkText_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/chunk-text", strings.NewReader(`{"text":"   "}`))
	rec := do(t, newTestServer(nil), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChunkFile_RequiresAPIKeyWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "k"
	s := NewServer(NewService(cfg, nil, nil, nil, nil), nil, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/chunk-text", strings.NewReader(`{"text":"a"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/chunk-text", strings.NewReader(`{"text":"a"}`))
	req.Header.Set("Authorization", "Bearer k")
	assert.Equal(t, http.StatusOK, do(t, s, req).Code)
}

func TestChunkFile_UsesCache(t *testing.T) {
	cache := newMemCache()
	s := newTestServer(cache)

	send := func(name string) wire.ChunkResponse {
		body, ct := multipartBody(t, wire.FieldFile, []upload{{name, twoParagraphs}}, nil)
		req := httptest.NewRequest(http.MethodPost, "/chunk-file", body)
		req.Header.Set("Content-Type", ct)
		rec := do(t, s, req)
		var resp wire.ChunkResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := send("a.txt")
	second := send("b.txt")

	assert.Equal(t, 1, cache.sets)
	assert.False(t, first.ProcessingInfo.Cached)
	assert.True(t, second.ProcessingInfo.Cached)
	assert.Equal(t, "b.txt", second.FileName)
	assert.Equal(t, first.Chunks, second.Chunks)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey([]byte("x"), "txt", 10, 0)
	assert.True(t, strings.HasPrefix(a, keyPrefix))
	assert.Equal(t, a, CacheKey([]byte("x"), "txt", 10, 0))
	assert.NotEqual(t, a, CacheKey([]byte("x"), "txt", 11, 0))
	assert.NotEqual(t, a, CacheKey([]byte("y"), "txt", 10, 0))
	assert.NotEqual(t, a, CacheKey([]byte("x"), "pdf", 10, 0))
}
