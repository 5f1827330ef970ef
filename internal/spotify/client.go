// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package spotify implements the player capabilities over the Spotify Web API.
package spotify

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/metrics"
	"github.com/ManuGH/resumer/internal/player"
)

// DefaultBaseURL is the public Web API endpoint.
const DefaultBaseURL = "https://api.spotify.com"

const (
	defaultTimeout        = 10 * time.Second
	defaultRateLimit      = 10
	defaultRateLimitBurst = 20
	maxErrorBody          = 64 << 10
)

// Options configures the Web API client behavior.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	UserAgent      string
}

func normalizeOptions(opts Options) Options {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = "resumer"
	}
	return opts
}

// Factory builds per-session clients that share one transport and one rate limiter,
// since the upstream quota belongs to the application rather than to a user.
type Factory struct {
	opts      Options
	limiter   *rate.Limiter
	transport http.RoundTripper
}

// NewFactory creates a client factory.
func NewFactory(opts Options) *Factory {
	nopts := normalizeOptions(opts)
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: nopts.Timeout,
	}
	return &Factory{
		opts:      nopts,
		limiter:   rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		transport: otelhttp.NewTransport(base),
	}
}

// ForToken returns a client authenticated with a bearer access token.
func (f *Factory) ForToken(accessToken string) *Client {
	return f.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
}

// WithTokenSource returns a client authenticated by ts.
func (f *Factory) WithTokenSource(ts oauth2.TokenSource) *Client {
	return &Client{
		baseURL: f.opts.BaseURL,
		http: &http.Client{
			Timeout:   f.opts.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: f.transport},
		},
		limiter:   f.limiter,
		userAgent: f.opts.UserAgent,
	}
}

// Client is one authenticated Web API session. It implements player.Client.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

var _ player.Client = (*Client)(nil)

// do sends one request and decodes a JSON response into out when out is non-nil.
// It returns the HTTP status for callers that distinguish 204.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (int, error) {
	status, err := c.send(ctx, op, method, path, query, body, out)
	metrics.RecordUpstreamRequest(op, metricClass(err))
	if err != nil {
		logger := xglog.WithComponentFromContext(ctx, "spotify")
		logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "spotify.request_failed").
			Str("operation", op).
			Int(xglog.FieldStatus, status).
			Msg("upstream request failed")
	}
	return status, err
}

func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, &APIError{Sentinel: player.ErrUpstream, Operation: op, Err: err}
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("spotify: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, &APIError{Sentinel: player.ErrUpstream, Operation: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &APIError{Sentinel: player.ErrUpstream, Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return resp.StatusCode, &APIError{
			Sentinel:  classify(resp.StatusCode, eb.Error.Reason, eb.Error.Message),
			Operation: op,
			Status:    resp.StatusCode,
			Reason:    eb.Error.Reason,
			Message:   eb.Error.Message,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, &APIError{Sentinel: player.ErrUpstream, Operation: op, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return resp.StatusCode, nil
}

// CurrentUserID returns the id of the token's owner.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	var me struct {
		ID string `json:"id"`
	}
	if _, err := c.do(ctx, "me", http.MethodGet, "/v1/me", nil, nil, &me); err != nil {
		return "", err
	}
	if me.ID == "" {
		return "", &APIError{Sentinel: player.ErrUpstream, Operation: "me", Message: "empty user id"}
	}
	return me.ID, nil
}
