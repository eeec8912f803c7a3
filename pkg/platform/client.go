// Package platform is the HTTP client for the synthetic-data platform API:
// authentication, channel deployment, run submission, and volume access.
//
// The Client handles caching, retry logic, and auth headers; the per-area
// files (auth.go, runs.go, volumes.go, deploy.go) build the typed calls on
// top of it.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/channelkit/channelkit/pkg/cache"
	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/httputil"
)

// DefaultBaseURL is the hosted platform endpoint. Override with the
// platform.url config key for on-prem deployments.
const DefaultBaseURL = "https://api.channelkit.dev"

// Client provides shared HTTP functionality for all platform API calls.
// It handles caching, retry logic, and common request headers.
type Client struct {
	http  *http.Client
	base  string
	token string
	cache *httputil.Cache
	keyer cache.Keyer
}

// NewClient creates a Client for the given base URL. The token may be
// empty for unauthenticated calls (the device flow itself); the cache may
// be nil to disable response caching.
func NewClient(baseURL, token string, respCache *httputil.Cache) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:  &http.Client{Timeout: 30 * time.Second},
		base:  baseURL,
		token: token,
		cache: respCache,
		keyer: cache.NewDefaultKeyer(),
	}
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string { return c.base }

// Cached retrieves a value from cache or executes fetch and caches the
// result. If refresh is true, the cache is bypassed and fetch is always
// called. The fetch function should populate v; on success, v is stored in
// the cache.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if c.cache != nil && !refresh {
		if ok, _ := c.cache.Get(key, v); ok {
			return nil
		}
	}
	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Set(key, v)
	}
	return nil
}

// Get performs a GET against an API path and JSON-decodes the response
// into v.
func (c *Client) Get(ctx context.Context, path string, v any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer body.Close()
	return decodeJSON(body, v)
}

// Post performs a POST with a JSON body and decodes the response into v.
// Pass nil for v to discard the response body.
func (c *Client) Post(ctx context.Context, path string, payload, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode request body")
	}
	body, err := c.doRequest(ctx, http.MethodPost, path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer body.Close()
	if v == nil {
		return nil
	}
	return decodeJSON(body, v)
}

// Upload performs a POST with a raw body, for archive uploads.
func (c *Client) Upload(ctx context.Context, path, contentType string, r io.Reader, v any) error {
	body, err := c.doRequest(ctx, http.MethodPost, path, contentType, r)
	if err != nil {
		return err
	}
	defer body.Close()
	if v == nil {
		return nil
	}
	return decodeJSON(body, v)
}

// GetText performs a GET and returns the response body as a string, for
// plain-text endpoints like run logs.
func (c *Client) GetText(ctx context.Context, path string) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	return string(data), err
}

func (c *Client) doRequest(ctx context.Context, method, path, contentType string, body io.Reader) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path)}
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return errors.New(errors.ErrCodeUnauthorized, "not logged in or token expired; run channelkit login")
	case code == http.StatusForbidden:
		return errors.New(errors.ErrCodeForbidden, "access denied by the platform")
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "resource not found")
	case code == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &errors.RateLimitedError{RetryAfter: retryAfter}
	case code >= 500:
		return &httputil.RetryableError{Err: errors.New(errors.ErrCodeNetwork, "platform returned status %d", code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "platform returned status %d", code)
	}
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "decode response")
	}
	return nil
}
