// Package activityclient provides a client for the activities HTTP API.
//
// The API exposes three calls:
//
//   - GET /activities returns the roster, a mapping of activity name to activity
//   - POST /activities/{name}/signup?email={email} registers a participant
//   - DELETE /activities/{name}/participants?email={email} removes a participant
//
// Example usage:
//
//	client, err := activityclient.New("http://localhost:8000")
//	roster, err := client.Activities(ctx)
//	result, err := client.Signup(ctx, "Chess Club", "someone@example.com")
package activityclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 1 << 20
)

// Client talks to the activities API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the API rooted at baseURL.
// The base URL must include the scheme, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the root URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Activities fetches the current roster. Caches are bypassed.
// Any non-2xx status is returned as an *APIError, an undecodable body as
// ErrMalformedResponse.
func (c *Client) Activities(ctx context.Context) (Roster, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/activities", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, &APIError{StatusCode: status, Detail: decodeDetail(body)}
	}

	var roster Roster
	if err := json.Unmarshal(body, &roster); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if roster == nil {
		return nil, fmt.Errorf("%w: roster is null", ErrMalformedResponse)
	}
	return roster, nil
}

// Signup registers email for the named activity.
//
// The response body must be valid JSON whatever the status; a body that
// cannot be decoded yields ErrMalformedResponse. A non-2xx status yields an
// *APIError carrying the server's detail, alongside the decoded Result.
func (c *Client) Signup(ctx context.Context, activity, email string) (Result, error) {
	path := fmt.Sprintf("/activities/%s/signup?email=%s", url.PathEscape(activity), url.QueryEscape(email))
	return c.mutate(ctx, http.MethodPost, path, false)
}

// Unregister removes email from the named activity.
//
// Unlike Signup the body is decoded leniently: a body that is not JSON
// becomes an empty Result rather than an error.
func (c *Client) Unregister(ctx context.Context, activity, email string) (Result, error) {
	path := fmt.Sprintf("/activities/%s/participants?email=%s", url.PathEscape(activity), url.QueryEscape(email))
	return c.mutate(ctx, http.MethodDelete, path, true)
}

func (c *Client) mutate(ctx context.Context, method, path string, lenient bool) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		if !lenient {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		c.logger.Debug("ignoring undecodable response body", "method", method, "status", status, "error", err)
		result = Result{}
	}

	if status/100 != 2 {
		return result, &APIError{StatusCode: status, Detail: result.Detail}
	}
	return result, nil
}

// do sends the request and returns the body and status code.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("activities API call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return body, resp.StatusCode, nil
}

// decodeDetail extracts the detail field from an error body, if any.
func decodeDetail(body []byte) string {
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return ""
	}
	return result.Detail
}
