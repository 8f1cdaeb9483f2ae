package gateway

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

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/metrics"
	"github.com/desertthunder/setlist/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries     = 3
	defaultBaseDelay      = time.Second
	defaultMaxDelay       = 10 * time.Second
	defaultAttemptTimeout = 30 * time.Second
	defaultUserAgent      = "setlist"
	maxErrorBody          = 64 << 10
)

// DefaultPublicPaths never carry credentials and never trigger a refresh.
// Matching is by substring, so "/users" also covers "/users/me".
var DefaultPublicPaths = []string{
	"/auth/login",
	"/auth/sign-up",
	"/auth/refresh",
	"/auth/forgot-password",
	"/auth/new-password",
	"/auth/verify-email",
	"/users",
}

// TokenProvider is the session surface the gateway needs.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context) (string, bool)
	ClearTokens(ctx context.Context) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a [Client].
//
// MaxRetries is used as given, so the zero value means a single attempt; use
// [DefaultOptions] for the standard policy.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Tokens         TokenProvider
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	RateLimit      float64
	PublicPaths    []string
	UserAgent      string
	OnUnauthorized func(ctx context.Context)
	Sleep          SleepFunc
	Logger         *log.Logger
}

// DefaultOptions returns the standard retry policy for baseURL.
func DefaultOptions(baseURL string, tokens TokenProvider) Options {
	return Options{
		BaseURL:        baseURL,
		Tokens:         tokens,
		MaxRetries:     defaultMaxRetries,
		BaseDelay:      defaultBaseDelay,
		MaxDelay:       defaultMaxDelay,
		AttemptTimeout: defaultAttemptTimeout,
	}
}

// OptionsFromConfig maps the [api] config section onto [Options].
func OptionsFromConfig(cfg shared.APIConfig, tokens TokenProvider) Options {
	opts := DefaultOptions(cfg.BaseURL, tokens)
	opts.MaxRetries = cfg.MaxRetries
	opts.RateLimit = cfg.RequestsPerSecond
	if cfg.RetryBaseDelay.Duration > 0 {
		opts.BaseDelay = cfg.RetryBaseDelay.Duration
	}
	if cfg.RetryMaxDelay.Duration > 0 {
		opts.MaxDelay = cfg.RetryMaxDelay.Duration
	}
	if cfg.AttemptTimeout.Duration > 0 {
		opts.AttemptTimeout = cfg.AttemptTimeout.Duration
	}
	return opts
}

// Client is the single path every API call takes.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	tokens         TokenProvider
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	publicPaths    []string
	userAgent      string
	onUnauthorized func(ctx context.Context)
	sleep          SleepFunc
	logger         *log.Logger
}

// New creates a [Client].
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", shared.ErrInvalidConfig, opts.BaseURL)
	}

	c := &Client{
		baseURL:        base,
		http:           opts.HTTPClient,
		tokens:         opts.Tokens,
		maxRetries:     max(opts.MaxRetries, 0),
		baseDelay:      opts.BaseDelay,
		maxDelay:       opts.MaxDelay,
		attemptTimeout: opts.AttemptTimeout,
		publicPaths:    opts.PublicPaths,
		userAgent:      opts.UserAgent,
		onUnauthorized: opts.OnUnauthorized,
		sleep:          opts.Sleep,
		logger:         opts.Logger,
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = defaultMaxDelay
	}
	if c.attemptTimeout <= 0 {
		c.attemptTimeout = defaultAttemptTimeout
	}
	if c.publicPaths == nil {
		c.publicPaths = DefaultPublicPaths
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	c.logger = shared.WithLogger(c.logger, "component", "gateway")
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Response is a completed API response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsJSON reports whether the response declares a JSON body.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "json")
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsPublic reports whether the path of target matches the public
// allow-list. The query string and fragment never count.
func (c *Client) IsPublic(target string) bool {
	path := target
	if u, err := url.Parse(target); err == nil {
		path = u.Path
	}
	for _, p := range c.publicPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Do sends one logical request, retrying attempts that got no response.
//
// Non-2xx responses come back as *[HTTPError]. A 401 on a protected call
// clears the session and runs the OnUnauthorized hook first. Network
// failures that outlast the retries come back as *[NetworkError].
func (c *Client) Do(ctx context.Context, method, target string, body any, opts ...RequestOption) (*Response, error) {
	cfg := newRequestConfig(opts)

	u, err := c.resolve(target, cfg.query)
	if err != nil {
		return nil, err
	}

	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	if cfg.contentType != "" {
		contentType = cfg.contentType
	}

	header := cfg.header.Clone()
	header.Set("Accept", "application/json")
	header.Set("User-Agent", c.userAgent)
	if header.Get("X-Request-ID") == "" {
		header.Set("X-Request-ID", shared.GenerateID())
	}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	public := c.IsPublic(u.Path)
	if !public && c.tokens != nil {
		if token, ok := c.tokens.GetValidAccessToken(ctx); ok {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, attempts, err := c.send(ctx, method, u.String(), payload, header)
	logger := c.logger.With("method", method, "path", u.Path, "attempts", attempts, "request_id", header.Get("X-Request-ID"))
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(method, metrics.OutcomeNetworkError).Inc()
		logger.Error("request failed", "err", err)
		return nil, err
	}
	logger = logger.With("status", resp.StatusCode, "took", time.Since(start).Round(time.Millisecond))

	switch {
	case resp.StatusCode == http.StatusUnauthorized && !public:
		metrics.RequestsTotal.WithLabelValues(method, metrics.OutcomeUnauthorized).Inc()
		logger.Warn("session rejected by server")
		herr := newHTTPError(resp.StatusCode, resp.Body)
		herr.sessionCleared = true
		c.expireSession(ctx)
		return nil, herr
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.RequestsTotal.WithLabelValues(method, metrics.OutcomeHTTPError).Inc()
		logger.Debug("request returned error status")
		return nil, newHTTPError(resp.StatusCode, resp.Body)
	}

	metrics.RequestsTotal.WithLabelValues(method, metrics.OutcomeSuccess).Inc()
	logger.Debug("request completed")
	return resp, nil
}

func (c *Client) expireSession(ctx context.Context) {
	metrics.TokenClearsTotal.WithLabelValues("unauthorized").Inc()
	if c.tokens != nil {
		if err := c.tokens.ClearTokens(ctx); err != nil {
			c.logger.Error("failed to clear session", "err", err)
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
}

// send runs the retry loop and returns the response plus the number of
// attempts made.
func (c *Client) send(ctx context.Context, method, target string, payload []byte, header http.Header) (*Response, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.Backoff(attempt)
			metrics.RetriesTotal.Inc()
			c.logger.Warn("retrying request", "method", method, "attempt", attempt+1, "delay", delay, "err", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, attempts, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, attempts, err
			}
		}

		attempts++
		resp, err := c.attempt(ctx, method, target, payload, header)
		if err == nil {
			return resp, attempts, nil
		}
		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}
		lastErr = err
	}

	return nil, attempts, &NetworkError{Attempts: attempts, Err: lastErr}
}

// attempt performs one request under its own timeout. Any error means no
// usable response was received.
func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, header http.Header) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Backoff returns the delay before retry n (1-based): BaseDelay doubled per
// retry and capped at MaxDelay.
func (c *Client) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := c.baseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if d >= c.maxDelay {
			return c.maxDelay
		}
	}
	return min(d, c.maxDelay)
}

// URL resolves target against the base URL.
func (c *Client) URL(target string) (string, error) {
	u, err := c.resolve(target, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (c *Client) resolve(target string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: url %q", shared.ErrInvalidInput, target)
	}

	var u *url.URL
	if ref.IsAbs() {
		u = ref
	} else {
		joined := *c.baseURL
		joined.Path = c.baseURL.Path + "/" + strings.TrimLeft(ref.Path, "/")
		joined.RawQuery = ref.RawQuery
		u = &joined
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
