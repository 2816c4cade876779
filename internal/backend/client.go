// Package backend is the client for the first-party activities REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"actcal/internal/apperr"
	appLog "actcal/internal/log"
)

const defaultTimeout = 15 * time.Second

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 64 << 10

// Client talks JSON to the backend rooted at baseURL (e.g.
// "https://localhost:7285/api").
type Client struct {
	baseURL string
	http    *http.Client
	headers http.Header
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithHeader adds a header to every request, e.g. an API key.
func WithHeader(key, value string) Option {
	return func(cl *Client) {
		cl.headers.Add(key, value)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// validationBody is the shape of a 400 with per-field messages.
type validationBody struct {
	Title  string              `json:"title"`
	Errors map[string][]string `json:"errors"`
}

// do sends body (if non-nil) as JSON and decodes a JSON response into out
// (if non-nil). An empty response body leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindServer, op, err)
	}
	defer resp.Body.Close()

	appLog.Debug("backend response", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(op, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindServer, op, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	// Some endpoints answer with bare text instead of a JSON string.
	if sp, ok := out.(*string); ok {
		if err := json.Unmarshal(data, sp); err != nil {
			*sp = string(bytes.TrimSpace(data))
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.KindServer, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errorFromResponse(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &apperr.Error{
		Kind:   apperr.FromStatus(resp.StatusCode),
		Op:     op,
		Status: resp.StatusCode,
	}
	if e.Kind == apperr.KindUnknown {
		e.Kind = apperr.KindServer
	}

	if e.Kind == apperr.KindValidation {
		var vb validationBody
		if err := json.Unmarshal(data, &vb); err == nil && len(vb.Errors) > 0 {
			e.Fields = vb.Errors
			e.Message = vb.Title
			return e
		}
	}

	msg := strings.TrimSpace(string(data))
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		msg = s
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	e.Message = msg
	return e
}

func escape(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperr.New(apperr.KindInvalidInput, "backend", "empty id")
	}
	return url.PathEscape(id), nil
}
