// Package client is a typed client for the transaction REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finance/internal/core"
	"finance/internal/store"
)

// APIError is a non-2xx response other than 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Input is the body of a create or update call.
type Input struct {
	Text   string      `json:"text"`
	Amount core.Amount `json:"amount"`
	Type   core.Type   `json:"type"`
	Date   core.Date   `json:"date"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the API at baseURL, e.g. "http://localhost:8081".
// A nil httpClient uses one with a 15 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) Get(ctx context.Context, id string) (core.Transaction, error) {
	var tx core.Transaction
	err := c.do(ctx, http.MethodGet, "/api/transactions/"+url.PathEscape(id), nil, &tx)
	return tx, err
}

func (c *Client) Create(ctx context.Context, in Input) (core.Transaction, error) {
	var tx core.Transaction
	err := c.do(ctx, http.MethodPost, "/api/transactions", in, &tx)
	return tx, err
}

func (c *Client) Update(ctx context.Context, id string, in Input) (core.Transaction, error) {
	var tx core.Transaction
	err := c.do(ctx, http.MethodPut, "/api/transactions/"+url.PathEscape(id), in, &tx)
	return tx, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

// Summary fetches the derived view. chronological orders the daily series
// oldest day first.
func (c *Client) Summary(ctx context.Context, chronological bool) (core.Summary, error) {
	path := "/api/summary"
	if chronological {
		path += "?order=chronological"
	}
	var s core.Summary
	err := c.do(ctx, http.MethodGet, path, nil, &s)
	return s, err
}

// do sends body as JSON and decodes a 2xx response into out. A 404 maps to
// store.ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(raw))
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", path, store.ErrNotFound)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
