package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second

	userAgent = "gocredsync/1.0"
)

// gistFile mirrors the files map entry in the Gists REST payloads.
type gistFile struct {
	Content string `json:"content"`
}

type gistPayload struct {
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

type gistResponse struct {
	ID    string              `json:"id"`
	Files map[string]gistFile `json:"files"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Client is a minimal authenticated client for the GitHub Gists REST API:
// create, update, fetch, and delete of a single opaque blob plus a viewer
// lookup used as a credential health check. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a Client with the given bearer token. httpClient may
// be nil, in which case a client with the default request timeout is
// used. baseURL is overridable for tests; empty selects the public API.
func NewClient(token string, httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// Create makes a new private gist holding content under filename and
// returns its ID.
func (c *Client) Create(ctx context.Context, description, filename, content string) (string, error) {
	private := false
	payload := gistPayload{
		Description: description,
		Public:      &private,
		Files:       map[string]gistFile{filename: {Content: content}},
	}

	var resp gistResponse
	if err := c.do(ctx, "create_gist", http.MethodPost, "/gists", &payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &APIError{Operation: "create_gist", StatusCode: 0, Details: "response missing gist id"}
	}
	return resp.ID, nil
}

// Update replaces the content of filename in gist id.
func (c *Client) Update(ctx context.Context, id, filename, content string) error {
	payload := gistPayload{
		Files: map[string]gistFile{filename: {Content: content}},
	}
	return c.do(ctx, "update_gist", http.MethodPatch, "/gists/"+id, &payload, nil)
}

// Fetch returns the content of filename in gist id. A gist that exists
// but lacks the file maps to ErrNotFound.
func (c *Client) Fetch(ctx context.Context, id, filename string) (string, error) {
	var resp gistResponse
	if err := c.do(ctx, "fetch_gist", http.MethodGet, "/gists/"+id, nil, &resp); err != nil {
		return "", err
	}

	file, ok := resp.Files[filename]
	if !ok {
		return "", fmt.Errorf("%w: file %q missing from gist %s", ErrNotFound, filename, id)
	}
	return strings.TrimSpace(file.Content), nil
}

// Delete removes gist id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete_gist", http.MethodDelete, "/gists/"+id, nil, nil)
}

// Viewer returns the authenticated user's login. Used by the pool as a
// cheap health check when publishing a new handle.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	var resp struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, "viewer", http.MethodGet, "/user", nil, &resp); err != nil {
		return "", err
	}
	return resp.Login, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &APIError{Operation: operation, StatusCode: 0, Details: err.Error()}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &APIError{Operation: operation, StatusCode: 0, Details: err.Error()}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &TimeoutError{Operation: operation, Timeout: c.http.Timeout}
		}
		return &APIError{Operation: operation, StatusCode: 0, Details: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(operation, resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Operation: operation, StatusCode: resp.StatusCode, Details: "malformed response: " + err.Error()}
		}
	}
	return nil
}

func (c *Client) checkStatus(operation string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	details := readErrorMessage(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, operation)
	case resp.StatusCode == http.StatusForbidden:
		// GitHub signals primary rate limiting with 403 + a ratelimit
		// header; anything else on 403 is a credential/scope problem.
		if after := retryAfterHint(resp); after > 0 || strings.Contains(strings.ToLower(details), "rate limit") {
			return &RateLimitError{RetryAfter: defaultRetryAfter(after)}
		}
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, operation)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: defaultRetryAfter(retryAfterHint(resp))}
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, operation)
	default:
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Details: details}
	}
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(raw))
}

func retryAfterHint(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func defaultRetryAfter(after time.Duration) time.Duration {
	if after > 0 {
		return after
	}
	return time.Minute
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
