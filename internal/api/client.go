// Package api is the typed client for the LinkUp REST backend.
package api

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

	"go.uber.org/zap"

	"linkup/linkup-shell/internal/observability"
)

const maxResponseBytes = 8 << 20

// Client talks to the backend under one base URL, e.g. http://localhost:80/api.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration

	// RateLimitRPS <= 0 disables client-side throttling.
	RateLimitRPS float64
	RateBurst    int

	// Jar carries the backend session cookie.
	Jar     http.CookieJar
	Metrics *observability.Metrics
	Logger  *zap.Logger

	// OnAuthFailure runs for every 401 the backend returns.
	OnAuthFailure func(reason string)
	// LoginPath is where a page request is sent after an auth failure.
	LoginPath string
	// PublicPaths are screens on which an auth failure never redirects.
	PublicPaths []string

	// Transport is the innermost round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	inner := cfg.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	var rt http.RoundTripper = NewInterceptor(inner, InterceptorConfig{
		LoginPath:     loginPath,
		PublicPaths:   cfg.PublicPaths,
		OnAuthFailure: cfg.OnAuthFailure,
		Metrics:       cfg.Metrics,
		Logger:        log,
	})
	rt = &metricsTransport{next: rt, metrics: cfg.Metrics}
	rt = &requestIDTransport{next: rt}
	if cfg.RateLimitRPS > 0 {
		rt = newRateLimitTransport(rt, cfg.RateLimitRPS, cfg.RateBurst)
	}

	return &Client{
		base: base,
		http: &http.Client{
			Transport: rt,
			Jar:       cfg.Jar,
			Timeout:   timeout,
		},
		log: log,
	}, nil
}

// BaseURL is the backend root the client was built for.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// envelope is the wrapper every backend response uses.
type envelope struct {
	Success *bool             `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, "", out)
	return err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) (string, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

// do sends one request and unwraps the envelope into out. It returns the
// envelope message on success.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, raw)
		c.log.Debug("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return "", apiErr
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return "", &Error{Status: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return env.Message, nil
}
