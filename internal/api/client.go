package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/session"
)

// unauthenticatedPaths are the endpoints that legitimately answer 401 for
// bad credentials and must never trigger a token refresh.
var unauthenticatedPaths = map[string]bool{
	"/auth/login/":    true,
	"/auth/register/": true,
}

// refreshPath exchanges a refresh token for a new access token.
const refreshPath = "/auth/token/refresh/"

// Client is a thin HTTP client for the todo REST API. It attaches Bearer
// authentication from the injected session store, handles JSON
// (de)serialization, and performs at most one refresh-and-retry cycle when
// an authenticated request answers 401.
type Client struct {
	baseURL    string
	session    *session.Store
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL. The session
// store is the single source of tokens; the client never reads ambient
// state.
func NewClient(baseURL string, sess *session.Store, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    sess,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// Post performs an HTTP POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

// Put performs an HTTP PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

// Patch performs an HTTP PATCH request with an optional JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, result)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, result)
}

// do builds the request, attaches auth, and runs the bounded attempt loop:
// a 401 on an authenticated endpoint allows exactly one
// refresh-and-resubmit cycle, tracked by the attempt counter in this call
// frame. Every other non-2xx status is surfaced unmodified.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
	result interface{},
) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	const maxAttempts = 2
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.session.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &RequestError{Op: method + " " + path, Err: err}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusUnauthorized &&
			attempt == 0 && !unauthenticatedPaths[path] {
			c.logger.Debug("access token rejected, refreshing",
				"method", method, "path", path)
			if err := c.refreshAccessToken(ctx); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeError(resp.StatusCode, respBody)
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return nil
	}

	// Unreachable: the second attempt always returns above.
	return fmt.Errorf("request %s %s exhausted retries", method, path)
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token using a bare request (never back through do, so the cycle cannot
// recurse). On a rejected refresh token the whole session is cleared and
// ErrSessionExpired is returned.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	refresh := c.session.RefreshToken()
	if refresh == "" {
		return ErrNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return fmt.Errorf("marshaling refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: "POST " + refreshPath, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("refresh token rejected, clearing session",
			"status", resp.StatusCode)
		if clearErr := c.session.Clear(); clearErr != nil {
			c.logger.Warn("clearing session mirror failed", "error", clearErr)
		}
		return fmt.Errorf("%w: refresh rejected with status %d",
			ErrSessionExpired, resp.StatusCode)
	}

	var refreshed struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(respBody, &refreshed); err != nil {
		return fmt.Errorf("unmarshaling refresh response: %w", err)
	}
	if refreshed.Access == "" {
		return fmt.Errorf("%w: refresh response carried no access token",
			ErrSessionExpired)
	}

	return c.session.SetAccessToken(refreshed.Access)
}
