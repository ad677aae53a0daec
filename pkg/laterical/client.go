// Package laterical implements the client for the Laterical search API.
// The API has two failure shapes besides transport errors: a top-level
// error field, and an error object nested inside the first element of a
// success-shaped data list. This package decides the variant exactly
// once and callers only ever see hits or a typed error.
package laterical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://laterical.com/api/call/"

// Client performs search calls against the Laterical API.
type Client interface {
	Search(ctx context.Context, query string) ([]QueryResult, error)
}

// QueryResult is one result object from a search call.
type QueryResult struct {
	Results WebResults `json:"results"`
}

// WebResults holds the web hits of a result object.
type WebResults struct {
	Web []WebHit `json:"web"`
}

// WebHit is a single web result.
type WebHit struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// APIError is an application-level error returned inside a 200 response.
// Not retryable: the query itself was rejected.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("laterical: api error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("laterical: api error %s", e.Code)
}

// StatusError is a non-200 HTTP response. Callers decide retryability
// from the status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("laterical: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Laterical API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchRequest struct {
	Path   string   `json:"path"`
	Entity []string `json:"entity"`
}

// envelope covers all three 200-response shapes the API produces.
type envelope struct {
	Data  []dataElement   `json:"data"`
	Error json.RawMessage `json:"error"`
}

// dataElement is a success result that may instead carry a nested error.
type dataElement struct {
	Results WebResults   `json:"results"`
	Error   *nestedError `json:"error"`
}

type nestedError struct {
	Code    json.Number `json:"code"`
	Message string      `json:"message"`
}

func (c *httpClient) Search(ctx context.Context, query string) ([]QueryResult, error) {
	body, err := json.Marshal(searchRequest{Path: "search", Entity: []string{query}})
	if err != nil {
		return nil, eris.Wrap(err, "laterical: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "laterical: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "laterical: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "laterical: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, eris.Wrapf(err, "laterical: unmarshal response: %s", truncate(respBody, 200))
	}

	// Top-level error shape.
	if len(env.Error) > 0 && string(env.Error) != "null" {
		var msg string
		if err := json.Unmarshal(env.Error, &msg); err != nil {
			msg = string(env.Error)
		}
		return nil, &APIError{Message: msg}
	}

	if len(env.Data) == 0 {
		return nil, eris.New("laterical: no data in response")
	}

	// Error nested inside a success-shaped data list.
	if first := env.Data[0]; first.Error != nil {
		return nil, &APIError{Code: first.Error.Code.String(), Message: first.Error.Message}
	}

	results := make([]QueryResult, len(env.Data))
	for i, d := range env.Data {
		results[i] = QueryResult{Results: d.Results}
	}
	return results, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
