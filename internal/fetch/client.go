package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vinylscout/internal/config"
	"vinylscout/internal/logging"
	"vinylscout/internal/metrics"
)

// blockPageMaxBytes bounds the body scan for challenge vocabulary. Challenge
// and refusal pages are short; full catalog pages can legitimately embed
// words like "captcha" in login widgets.
const blockPageMaxBytes = 32 << 10

var blockVocabulary = []string{
	"captcha",
	"access denied",
	"too many requests",
	"are you a robot",
	"비정상적인 접근",
	"자동화된 요청",
	"요청이 너무 많",
}

var challengeVocabulary = []string{
	"challenge",
	"cf-chl",
	"just a moment",
	"captcha",
}

// Request describes one retrieval.
type Request struct {
	// Vendor labels metrics and logs.
	Vendor string
	URL    string
	// Header is merged over the browser headers (API keys, Accept overrides).
	Header http.Header
	// Encoding forces a body charset such as "euc-kr".
	Encoding string
}

// Document is a successfully retrieved response with its body in UTF-8.
type Document struct {
	URL    string
	Status int
	Header http.Header
	Body   string
}

// Fetcher is the contract adapters and the sweep depend on.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Document, error)
}

var _ Fetcher = (*Client)(nil)

// Client applies the shared retrieval policy.
type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	maxRetries     int
	backoffInitial time.Duration
	userAgent      string
	acceptLanguage string
	logger         *slog.Logger
	sleep          func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for retry and block reports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the per-attempt deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry sets the retry budget and first backoff delay.
func WithRetry(maxRetries int, backoffInitial time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if backoffInitial >= 0 {
			c.backoffInitial = backoffInitial
		}
	}
}

// WithUserAgent overrides the browser identity headers.
func WithUserAgent(userAgent, acceptLanguage string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
		if acceptLanguage != "" {
			c.acceptLanguage = acceptLanguage
		}
	}
}

// New builds a client with the default policy: 5s per attempt, two retries
// starting at one second.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{},
		timeout:        5 * time.Second,
		maxRetries:     2,
		backoffInitial: time.Second,
		userAgent:      defaultUserAgent,
		acceptLanguage: defaultAcceptLanguage,
		logger:         logging.NewNop(),
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the [fetch] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return New(
		WithTimeout(cfg.FetchTimeout()),
		WithRetry(cfg.Fetch.MaxRetries, cfg.FetchBackoff()),
		WithUserAgent(cfg.Fetch.UserAgent, cfg.Fetch.AcceptLanguage),
		WithLogger(logging.NewComponentLogger(logger, "fetch")),
	)
}

// Fetch retrieves req.URL under the retry policy.
func (c *Client) Fetch(ctx context.Context, req Request) (*Document, error) {
	target, err := url.Parse(req.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("fetch: invalid url %q", req.URL)
	}
	logger := c.logger.With(logging.String(logging.FieldVendor, req.Vendor))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffInitial * time.Duration(1<<(attempt-1))
			logger.Debug("retrying fetch",
				logging.Int("attempt", attempt+1),
				logging.Duration("backoff", delay),
				logging.Error(lastErr),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		doc, retry, err := c.attempt(ctx, target, req)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, ErrBlocked) {
			logging.WarnWithContext(logger, "vendor refused request", "vendor_blocked",
				logging.String("url", req.URL),
				logging.String(logging.FieldErrorHint, "raise sync.product_delay_ms or disable the vendor"),
				logging.String(logging.FieldImpact, "sync run will abort"),
			)
			return nil, err
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %d attempts: %w", ErrNetwork, c.maxRetries+1, lastErr)
}

// attempt performs one request. retry reports whether the failure is a
// connection error or 5xx that the retry loop may repeat.
func (c *Client) attempt(ctx context.Context, target *url.URL, req Request) (*Document, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	class := "error"
	defer func() {
		metrics.RecordFetch(req.Vendor, class, time.Since(started))
	}()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("fetch: build request: %w", err)
	}
	c.applyBrowserHeaders(httpReq, req.Header)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, false, ctx.Err()
		case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			class = "timeout"
			return nil, false, fmt.Errorf("%w: %s after %v", ErrTimeout, target.Host, c.timeout)
		default:
			class = "network"
			return nil, true, err
		}
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body, resp.Header.Get("Content-Type"), req.Encoding)
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			class = "timeout"
			return nil, false, fmt.Errorf("%w: reading %s after %v", ErrTimeout, target.Host, c.timeout)
		}
		class = "network"
		return nil, true, err
	}

	class = metrics.ClassifyStatus(resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		class = "blocked"
		return nil, false, fmt.Errorf("%w: %s returned %d", ErrBlocked, target.Host, resp.StatusCode)
	case resp.StatusCode == http.StatusServiceUnavailable && containsAny(body, challengeVocabulary):
		class = "blocked"
		return nil, false, fmt.Errorf("%w: %s served a challenge page", ErrBlocked, target.Host)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%s returned %d", target.Host, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, &StatusError{Code: resp.StatusCode, URL: target.String()}
	}
	if len(body) <= blockPageMaxBytes && containsAny(body, blockVocabulary) {
		class = "blocked"
		return nil, false, fmt.Errorf("%w: %s served a refusal page", ErrBlocked, target.Host)
	}

	return &Document{
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, false, nil
}

func containsAny(body string, terms []string) bool {
	lowered := strings.ToLower(body)
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
