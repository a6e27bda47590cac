// Package blob talks to the remote blob endpoint used as shared persistence.
// Reads are fail-open: any transport or decode failure degrades to an empty
// result so callers stay available. Writes are fail-closed and surface their
// error; a caller cannot mistake a dropped save for a successful one.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// keyPrefix namespaces every key before it reaches the remote store.
const keyPrefix = "nexusledger/"

// SaveResult reports the outcome of a save call.
type SaveResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client is the HTTP gateway to the blob backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a gateway client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type savePayload struct {
	Key  string `json:"key"`
	Data any    `json:"data"`
}

// Save stores data under the namespaced key. A non-nil error always means
// the data may not have been persisted.
func (c *Client) Save(ctx context.Context, key string, data any) (SaveResult, error) {
	body, err := json.Marshal(savePayload{Key: keyPrefix + key, Data: data})
	if err != nil {
		return SaveResult{}, fmt.Errorf("blob: encode %s: %w", key, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/save", bytes.NewReader(body))
	if err != nil {
		return SaveResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return SaveResult{}, fmt.Errorf("blob: save %s: %w", key, err)
	}
	defer resp.Body.Close()
	var result SaveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SaveResult{}, fmt.Errorf("blob: save %s: decode response: %w", key, err)
	}
	if !result.Success {
		return result, fmt.Errorf("blob: save %s rejected: %s", key, result.Error)
	}
	return result, nil
}

// Load fetches the JSON previously saved under key. The remote may answer
// with either {"data":[...]} or a bare array; both normalize to a document
// slice. Missing keys and any failure return an empty slice.
func (c *Client) Load(ctx context.Context, key string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/load?key=%s", c.baseURL, url.QueryEscape(keyPrefix+key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("load request failed", key, err)
		return []json.RawMessage{}, nil
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.warn("load read failed", key, err)
		return []json.RawMessage{}, nil
	}
	docs, err := normalize(raw)
	if err != nil {
		c.warn("load decode failed", key, err)
		return []json.RawMessage{}, nil
	}
	return docs, nil
}

func (c *Client) warn(msg, key string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.String("key", key), slog.Any("error", err))
	}
}

// normalize accepts the two remote response shapes and yields a flat slice.
func normalize(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []json.RawMessage{}, nil
	}
	var direct []json.RawMessage
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}
	var wrapped struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data == nil {
		return []json.RawMessage{}, nil
	}
	return wrapped.Data, nil
}
