// Package es provides typed access to the Elasticsearch-compatible
// document store over its HTTP/JSON API.
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
)

// Connection is the low-level store client. All helpers route through
// the verb methods so failure semantics stay in one place.
type Connection struct {
	baseURL string
	user    string
	pass    string
	client  *http.Client
}

// NewConnection builds a store client with basic auth.
func NewConnection(baseURL, user, pass string) *Connection {
	return &Connection{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		user:    user,
		pass:    pass,
		client: &http.Client{
			Timeout: consts.StoreRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// APIError is a non-2xx response from the store.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store returned %d for %s: %s", e.Status, e.Path, e.Body)
}

// Is maps 404 responses onto the shared not-found sentinel.
func (e *APIError) Is(target error) bool {
	return target == errs.ErrNotFound && e.Status == http.StatusNotFound
}

func (c *Connection) do(ctx context.Context, method, path string, body io.Reader, contentType string) (json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimPrefix(path, "/"), body)
	if err != nil {
		return nil, 0, err
	}
	req.SetBasicAuth(c.user, c.pass)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("store request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, resp.StatusCode, &APIError{Status: resp.StatusCode, Path: path, Body: truncate(string(raw), 512)}
	}
	return raw, resp.StatusCode, nil
}

func jsonBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(raw), nil
}

// Get performs a GET against the raw API path.
func (c *Connection) Get(ctx context.Context, path string) (json.RawMessage, int, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// Put performs a PUT with an optional JSON body.
func (c *Connection) Put(ctx context.Context, path string, body any) (json.RawMessage, int, error) {
	r, err := jsonBody(body)
	if err != nil {
		return nil, 0, err
	}
	return c.do(ctx, http.MethodPut, path, r, "application/json")
}

// Post performs a POST with an optional JSON body.
func (c *Connection) Post(ctx context.Context, path string, body any) (json.RawMessage, int, error) {
	r, err := jsonBody(body)
	if err != nil {
		return nil, 0, err
	}
	return c.do(ctx, http.MethodPost, path, r, "application/json")
}

// PostNDJSON posts a preassembled newline-delimited payload, used for
// _bulk requests.
func (c *Connection) PostNDJSON(ctx context.Context, path string, payload []byte) (json.RawMessage, int, error) {
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/x-ndjson")
}

// Delete performs a DELETE with an optional JSON body.
func (c *Connection) Delete(ctx context.Context, path string, body any) (json.RawMessage, int, error) {
	r, err := jsonBody(body)
	if err != nil {
		return nil, 0, err
	}
	return c.do(ctx, http.MethodDelete, path, r, "application/json")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// NotFound reports whether err is a 404 from the store.
func NotFound(err error) bool {
	return errors.Is(err, errs.ErrNotFound)
}
