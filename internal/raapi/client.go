package raapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://retroachievements.org/API"
	userAgent      = "romfilter/0.1 (https://github.com/Another0Noob/romfilter)"
)

const (
	// DefaultInterval spaces consecutive requests.
	DefaultInterval = 500 * time.Millisecond
	requestTimeout  = 30 * time.Second
	maxErrorBody    = 512
)

// Client talks to the RetroAchievements web API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	auth        Auth
	rateLimiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithInterval sets the minimum spacing between requests. Zero disables spacing.
func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.rateLimiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.rateLimiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewClient creates a new RetroAchievements API client.
func NewClient(auth Auth, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		baseURL:     DefaultBaseURL,
		userAgent:   userAgent,
		auth:        auth,
		rateLimiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuth replaces the credentials used for subsequent requests.
func (c *Client) SetAuth(auth Auth) {
	c.auth = auth
}

// doRequest performs a GET against endpoint with credentials attached.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("z", c.auth.Username)
	params.Set("y", c.auth.APIKey)

	fullURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// doJSON executes the request and decodes a 2xx body into out.
func (c *Client) doJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	resp, err := c.doRequest(ctx, endpoint, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := strings.TrimSpace(string(b))
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: body}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
