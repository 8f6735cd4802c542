// Package publishapi — клиент внешнего API публикации.
package publishapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// Ошибки публикации.
var (
	// ErrRequest — запрос не дошёл или ответ не прочитан.
	ErrRequest = errors.New("publish request failed")

	// ErrRejected — API ответило ошибкой или success=false.
	ErrRejected = errors.New("publish rejected")
)

// Publisher публикует контент на внешней платформе.
type Publisher interface {
	Publish(ctx context.Context, req Request) (*Response, error)
}

// Request — запрос публикации.
type Request struct {
	ContentID int64          `json:"content_id"`
	AccountID int64          `json:"account_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Summary   string         `json:"summary,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// Response — ответ API публикации.
type Response struct {
	Success bool   `json:"success"`
	LogID   string `json:"log_id,omitempty"`
	MediaID string `json:"media_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExternalID возвращает идентификатор публикации: media_id или log_id.
func (r *Response) ExternalID() string {
	if r.MediaID != "" {
		return r.MediaID
	}
	return r.LogID
}

// HTTPClient — Publisher поверх HTTP.
//
// Отправляет POST {BaseURL}/publish с JSON-телом Request.
// HTTP >= 400 и success=false считаются отказом.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient создаёт клиента. timeout == 0 — 30s.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Publish выполняет запрос публикации.
func (c *HTTPClient) Publish(ctx context.Context, in Request) (*Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/publish", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRequest, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRejected, resp.StatusCode, truncate(string(respBody), 200))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRequest, err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "no reason given"
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return &out, nil
}

// truncate обрезает строку до maxLen символов.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
