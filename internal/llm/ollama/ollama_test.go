package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/domain"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, "ollama:llama3", c.Name())
	assert.Equal(t, DefaultTimeout, c.transport.Client.Timeout)
}

func TestChat_RequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral", body["model"])
		assert.Equal(t, false, body["stream"])
		assert.Equal(t, map[string]any{"temperature": 0.3}, body["options"])
		assert.Len(t, body["messages"], 2)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hi"},"done":true}`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL + "/", Model: "mistral", Temperature: 0.3})
	reply, err := c.Chat(context.Background(), []domain.Turn{
		{Role: domain.RoleSystem, Content: "ctx"},
		domain.UserTurn("q"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
}

func TestChat_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Chat(context.Background(), []domain.Turn{domain.UserTurn("q")})
	require.ErrorIs(t, err, domain.ErrGeneration)
	assert.Contains(t, err.Error(), "model not found")
}

func TestChat_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Chat(context.Background(), []domain.Turn{domain.UserTurn("q")})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
