package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"pdfchat/internal/domain"
)

// ChatModel generates an assistant reply for an ordered list of role-tagged messages.
type ChatModel interface {
	Name() string
	Chat(ctx context.Context, messages []domain.Turn) (string, error)
}

// Transport posts JSON to a model endpoint, retrying network errors, 429 and 5xx
// responses up to MaxRetries times with exponential backoff.
type Transport struct {
	Client     *http.Client
	Header     http.Header
	MaxRetries int
	Sleep      func(time.Duration)
}

// NewTransport returns a Transport with the given timeout and retry budget.
func NewTransport(timeout time.Duration, maxRetries int, header http.Header) *Transport {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Transport{
		Client:     &http.Client{Timeout: timeout},
		Header:     header,
		MaxRetries: maxRetries,
		Sleep:      time.Sleep,
	}
}

// PostJSON sends body to url and decodes the response into out.
// Every returned error wraps domain.ErrGeneration.
func (t *Transport) PostJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	var lastErr error
	for attempt := 0; attempt <= t.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, vs := range t.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			t.backoff(attempt, RetryDelay(attempt))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("model request failed: %s", resp.Status)
			delay := RetryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			t.backoff(attempt, delay)
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%w: model request failed: %s: %s", domain.ErrGeneration, resp.Status, bytes.TrimSpace(payload))
		}
		if err != nil {
			lastErr = err
			t.backoff(attempt, RetryDelay(attempt))
			continue
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("%w: decode response: %w", domain.ErrGeneration, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrGeneration, lastErr)
}

func (t *Transport) backoff(attempt int, d time.Duration) {
	if attempt < t.MaxRetries {
		t.Sleep(d)
	}
}

// RetryDelay is exponential from 200ms, capped at 5s.
func RetryDelay(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 5)
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
