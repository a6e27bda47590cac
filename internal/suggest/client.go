// Package suggest wraps the external text-suggestion API. The service is an
// optional collaborator: any failure yields an empty suggestion and callers
// proceed without one.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Client calls the suggestion endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a suggestion client; an empty baseURL disables it.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
		logger:  logger,
	}
}

type suggestRequest struct {
	Prompt string `json:"prompt"`
}

type suggestResponse struct {
	Text string `json:"text"`
}

// Suggest returns generated text for the prompt, or "" when the service is
// disabled or unavailable.
func (c *Client) Suggest(ctx context.Context, prompt string) string {
	if c == nil || c.baseURL == "" || prompt == "" {
		return ""
	}
	body, err := json.Marshal(suggestRequest{Prompt: prompt})
	if err != nil {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/suggest", bytes.NewReader(body))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.warn(err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	var out suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.warn(err)
		return ""
	}
	return out.Text
}

func (c *Client) warn(err error) {
	if c.logger != nil {
		c.logger.Warn("suggestion service unavailable", slog.Any("error", err))
	}
}
