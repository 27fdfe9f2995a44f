package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdfchat/internal/domain"
	"pdfchat/internal/llm"
)

// Verify interface compliance
var _ llm.ChatModel = (*Client)(nil)

// Defaults for a local Ollama server.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"
	DefaultTimeout = 5 * time.Minute
)

// Config configures the Ollama chat client.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client calls Ollama's /api/chat without streaming.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	transport   *llm.Transport
}

// NewClient creates an Ollama chat client. Ollama needs no credential.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		transport:   llm.NewTransport(cfg.Timeout, cfg.MaxRetries, nil),
	}
}

// Name returns the provider and model.
func (c *Client) Name() string { return "ollama:" + c.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature float64 `json:"temperature"`
}

// Chat sends messages and returns the assistant message content.
func (c *Client) Chat(ctx context.Context, messages []domain.Turn) (string, error) {
	req := struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
		Stream   bool      `json:"stream"`
		Options  options   `json:"options"`
	}{
		Model:    c.model,
		Messages: make([]message, len(messages)),
		Options:  options{Temperature: c.temperature},
	}
	for i, m := range messages {
		req.Messages[i] = message{Role: string(m.Role), Content: m.Content}
	}

	var resp struct {
		Message message `json:"message"`
		Done    bool    `json:"done"`
		Error   string  `json:"error"`
	}
	if err := c.transport.PostJSON(ctx, c.baseURL+"/api/chat", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, errors.New(resp.Error))
	}
	return resp.Message.Content, nil
}
