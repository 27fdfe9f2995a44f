package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
)

type fakeQdrant struct {
	mu          sync.Mutex
	requests    []string
	failUpsert  bool
	searchReply string
	lastSearch  map[string]any
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	switch {
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/points"):
		if f.failUpsert {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/points/search"):
		_ = json.NewDecoder(r.Body).Decode(&f.lastSearch)
		_, _ = w.Write([]byte(f.searchReply))
		return
	}
	_, _ = w.Write([]byte(`{"result":true}`))
}

func (f *fakeQdrant) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func testChunks() ([]domain.Chunk, [][]float64) {
	return []domain.Chunk{{Text: "a", Index: 0}, {Text: "b", Index: 1}},
		[][]float64{{1, 0}, {0, 1}}
}

func TestBuild_CreatesFreshCollection(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake)
	defer server.Close()

	b := NewBuilder(Config{URL: server.URL, CollectionPrefix: "test"}, nil)
	chunks, vectors := testChunks()
	first, err := b.Build(context.Background(), chunks, vectors)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), chunks, vectors)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Len())
	c1 := first.(*Index).collection
	c2 := second.(*Index).collection
	assert.NotEqual(t, c1, c2)
	assert.True(t, strings.HasPrefix(c1, "test-"))

	calls := fake.calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "PUT /collections/"+c1, calls[0])
	assert.Equal(t, "PUT /collections/"+c1+"/points", calls[1])
}

func TestBuild_FailedUpsertDropsCollection(t *testing.T) {
	fake := &fakeQdrant{failUpsert: true}
	server := httptest.NewServer(fake)
	defer server.Close()

	chunks, vectors := testChunks()
	_, err := NewBuilder(Config{URL: server.URL}, nil).Build(context.Background(), chunks, vectors)
	require.Error(t, err)

	calls := fake.calls()
	require.Len(t, calls, 3)
	assert.True(t, strings.HasPrefix(calls[2], "DELETE /collections/pdfchat-"))
}

func TestSearch_ReordersAndConvertsScores(t *testing.T) {
	fake := &fakeQdrant{searchReply: `{"result":[
		{"score":0.5,"payload":{"index":3,"text":"d"}},
		{"score":0.9,"payload":{"index":1,"text":"b"}},
		{"score":0.5,"payload":{"index":2,"text":"c"}}]}`}
	server := httptest.NewServer(fake)
	defer server.Close()

	chunks, vectors := testChunks()
	idx, err := NewBuilder(Config{URL: server.URL, APIKey: "k"}, nil).Build(context.Background(), chunks, vectors)
	require.NoError(t, err)

	res, err := idx.Search(context.Background(), []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, 1, res[0].Chunk.Index)
	assert.InDelta(t, 0.1, res[0].Distance, 1e-9)
	assert.Equal(t, 2, res[1].Chunk.Index)
	assert.Equal(t, 3, res[2].Chunk.Index)
	assert.Equal(t, true, fake.lastSearch["with_payload"])
	assert.Equal(t, float64(3), fake.lastSearch["limit"])
}

func TestClose_DeletesCollection(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake)
	defer server.Close()

	chunks, vectors := testChunks()
	idx, err := NewBuilder(Config{URL: server.URL}, nil).Build(context.Background(), chunks, vectors)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	calls := fake.calls()
	assert.Equal(t, "DELETE /collections/"+idx.(*Index).collection, calls[len(calls)-1])
}

func TestBuild_UnreachableServer(t *testing.T) {
	chunks, vectors := testChunks()
	_, err := NewBuilder(Config{URL: "http://127.0.0.1:1"}, nil).Build(context.Background(), chunks, vectors)
	assert.Error(t, err)
}
