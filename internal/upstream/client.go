package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dynamo-works/claude-engine/internal/apierror"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"

	maxErrorBody = 4 * 1024
)

// Client talks the provider's native messages protocol. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("content-type", "application/json")
	r.Header.Set("x-api-key", c.apiKey)
	r.Header.Set("anthropic-version", apiVersion)
}

// CreateMessage issues a non-streaming call and returns the raw response
// body for the caller to translate or pass through.
func (c *Client) CreateMessage(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp)
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}
	return out, nil
}

// Event is one SSE event from the upstream stream. A non-nil Err terminates
// the channel.
type Event struct {
	Type string
	Data []byte
	Err  error
}

// StreamMessages issues a streaming call and returns a channel of events.
// The channel closes when the stream ends, errors, or ctx is cancelled.
func (c *Client) StreamMessages(ctx context.Context, body []byte) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: do request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseAPIError(resp)
	}

	ch := make(chan Event, 8)
	go readEvents(ctx, resp.Body, ch)
	return ch, nil
}

// readEvents walks the SSE stream, pairing event lines with their data
// lines. Context cancellation stops delivery promptly.
func readEvents(ctx context.Context, body io.ReadCloser, ch chan<- Event) {
	defer close(ch)
	defer body.Close()

	scanner := newScanner(body)
	var currentEvent string
	for scanner.Scan() {
		event, data, ok := parseSSELine(scanner.Text())
		if !ok {
			continue
		}
		if event != "" {
			currentEvent = event
			continue
		}
		if data == "" {
			continue
		}

		select {
		case ch <- Event{Type: currentEvent, Data: []byte(data)}:
		case <-ctx.Done():
			return
		}
		currentEvent = ""
	}
	if err := scanner.Err(); err != nil {
		select {
		case ch <- Event{Err: fmt.Errorf("upstream: read stream: %w", err)}:
		case <-ctx.Done():
		}
	}
}

// parseAPIError drains at most 4KB of an error body so the taxonomy mapper
// can inspect the provider's error type.
func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &apierror.UpstreamError{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}
