package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pdfchat/internal/domain"
	"pdfchat/internal/llm"
)

// Verify interface compliance
var _ llm.ChatModel = (*Client)(nil)

// Defaults for the OpenAI chat completions client.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.3
	DefaultTimeout     = 120 * time.Second
	DefaultMaxRetries  = 3
)

// Config configures the chat completions client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client talks to an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	transport   *llm.Transport
}

// NewClient creates a chat client. A missing API key is a configuration error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing language model API key", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	return &Client{
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		transport:   llm.NewTransport(cfg.Timeout, cfg.MaxRetries, header),
	}, nil
}

// Name returns the provider and model.
func (c *Client) Name() string { return "openai:" + c.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat sends messages and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, messages []domain.Turn) (string, error) {
	req := struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		Temperature float64   `json:"temperature"`
	}{
		Model:       c.model,
		Messages:    make([]message, len(messages)),
		Temperature: c.temperature,
	}
	for i, m := range messages {
		req.Messages[i] = message{Role: string(m.Role), Content: m.Content}
	}

	var resp struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := c.transport.PostJSON(ctx, c.baseURL+"/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}
