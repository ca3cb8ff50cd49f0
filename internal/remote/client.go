package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/tradequest/internal/progress"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the retry policy.
func WithRetry(cfg RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithToken sets the bearer token sent with progress requests.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithClientLogger sets the logger for retried requests.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	retry   RetryConfig
	token   string
	logger  *slog.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse sync url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("sync url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// FetchProgress implements Service.
func (c *Client) FetchProgress(ctx context.Context, userID string) (*progress.State, error) {
	body, err := c.do(ctx, http.MethodGet, progressPath(userID), nil, c.token, nil)
	if err != nil {
		return nil, err
	}
	return decodeProgress(body)
}

// PushProgress implements Service.
func (c *Client) PushProgress(ctx context.Context, userID string, st progress.State) error {
	data, err := progress.Encode(st)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, progressPath(userID), nil, c.token, data)
	return err
}

// FetchLeaderboard implements Service.
func (c *Client) FetchLeaderboard(ctx context.Context, token string, limit int) (*Leaderboard, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.do(ctx, http.MethodGet, "/leaderboard", q, token, nil)
	if err != nil {
		return nil, err
	}
	var lb Leaderboard
	if err := json.Unmarshal(body, &lb); err != nil {
		return nil, &ErrInvalidPayload{Content: body, Err: err}
	}
	return &lb, nil
}

// PushXPSnapshot implements Service.
func (c *Client) PushXPSnapshot(ctx context.Context, token string, snap XPSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode xp snapshot: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/leaderboard/xp", nil, token, data)
	return err
}

func progressPath(userID string) string {
	return "/users/" + url.PathEscape(userID) + "/progress"
}

// do sends a request with retries and returns the response body of a 2xx
// reply.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body []byte) ([]byte, error) {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	attempt := 0
	return withRetry(ctx, c.retry, func() ([]byte, error) {
		attempt++
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &ErrUnavailable{Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, &ErrUnavailable{Err: fmt.Errorf("read response: %w", err)}
		}

		if err := statusError(resp, data); err != nil {
			if shouldRetry(err) {
				c.logger.Debug("sync request failed, retrying",
					"method", method, "path", path, "attempt", attempt, "status", resp.StatusCode)
			}
			return nil, err
		}
		return data, nil
	})
}

func statusError(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	apiErr := fmt.Errorf("status %d: %s", code, strings.TrimSpace(string(body)))
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Err: apiErr}
	case code >= 500:
		return &ErrUnavailable{Err: apiErr}
	default:
		return apiErr
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
