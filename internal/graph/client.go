// Package graph is the client for the external group calendar. All event
// calls are scoped to the calendar of one fixed group.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"actcal/internal/apperr"
	appLog "actcal/internal/log"
)

const (
	DefaultBaseURL  = "https://graph.microsoft.com/v1.0"
	DefaultScope    = "https://graph.microsoft.com/.default"
	DefaultPageSize = 1000

	defaultTimeout = 30 * time.Second
	maxPages       = 50
	maxErrorBody   = 64 << 10
)

// Config selects the tenant, application credentials and group calendar.
type Config struct {
	BaseURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	// TokenURL defaults to the tenant's v2.0 token endpoint.
	TokenURL string
	Scopes   []string
	GroupID  string
	// User is used by CurrentUser; empty means /me.
	User     string
	PageSize int
}

type Client struct {
	baseURL  string
	groupID  string
	user     string
	pageSize int

	ts   oauth2.TokenSource
	base *http.Client
	http *http.Client
}

type Option func(*Client)

// WithTokenSource bypasses the client-credentials flow.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.ts = ts
	}
}

// WithHTTPClient sets the client used both for token requests and, wrapped
// with the bearer token, for API calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.base = h
		}
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("graph: calendar group id is empty")
	}

	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		groupID:  cfg.GroupID,
		user:     cfg.User,
		pageSize: cfg.PageSize,
		base:     &http.Client{Timeout: defaultTimeout},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.ts == nil {
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, errors.New("graph: client id and secret are required")
		}
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			if cfg.TenantID == "" {
				return nil, errors.New("graph: tenant id or token url is required")
			}
			tokenURL = "https://login.microsoftonline.com/" + url.PathEscape(cfg.TenantID) + "/oauth2/v2.0/token"
		}
		scopes := cfg.Scopes
		if len(scopes) == 0 {
			scopes = []string{DefaultScope}
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
		c.ts = cc.TokenSource(tokenCtx)
	}
	c.ts = oauth2.ReuseTokenSource(nil, c.ts)

	c.http = &http.Client{
		Timeout: c.base.Timeout,
		Transport: &oauth2.Transport{
			Source: c.ts,
			Base:   c.base.Transport,
		},
	}
	return c, nil
}

// IsSignedIn reports whether a valid access token can be obtained.
func (c *Client) IsSignedIn(_ context.Context) bool {
	tok, err := c.ts.Token()
	if err != nil {
		appLog.Debug("graph token unavailable", "err", err)
		return false
	}
	return tok.Valid()
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do accepts a path relative to baseURL or an absolute URL (nextLink).
func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + target
	}
	op := "graph " + method

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindProvider, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindProvider, op, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.KindProvider, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errorFromResponse(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	e := &apperr.Error{Kind: apperr.KindProvider, Op: op, Status: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = apperr.KindUnauthenticated
	case http.StatusNotFound:
		e.Kind = apperr.KindNotFound
	}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error.Message != "" {
		e.Message = eb.Error.Code + ": " + eb.Error.Message
	} else {
		e.Message = strings.TrimSpace(string(data))
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func (c *Client) eventsPath() string {
	return "/groups/" + url.PathEscape(c.groupID) + "/calendar/events"
}

func (c *Client) eventPath(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperr.New(apperr.KindInvalidInput, "graph", "empty event id")
	}
	return c.eventsPath() + "/" + url.PathEscape(id), nil
}

func (c *Client) listQuery() string {
	return "?$orderby=start/dateTime&$top=" + strconv.Itoa(c.pageSize)
}
