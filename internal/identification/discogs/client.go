package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vinylscout/internal/config"
)

// ErrNotFound is returned when Discogs has no release with the requested id.
var ErrNotFound = errors.New("discogs release not found")

// Artist is one credited artist on a release.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	ANV  string `json:"anv"`
	Join string `json:"join"`
}

// Format is one physical format entry, e.g. {"name":"Vinyl","qty":"2"}.
type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

// Identifier is a printed code on the release (barcode, matrix, label code).
type Identifier struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Release models the subset of the Discogs release payload VinylScout reads.
type Release struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Year        int          `json:"year"`
	Artists     []Artist     `json:"artists"`
	Formats     []Format     `json:"formats"`
	Identifiers []Identifier `json:"identifiers"`
}

// FormatNames returns the format names in payload order.
func (r Release) FormatNames() []string {
	names := make([]string, 0, len(r.Formats))
	for _, format := range r.Formats {
		if name := strings.TrimSpace(format.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

const defaultTimeout = 10 * time.Second

// Looker fetches a release by id.
type Looker interface {
	Release(ctx context.Context, id int64) (*Release, error)
}

// Client provides access to the Discogs database API.
type Client struct {
	token      string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Looker = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRequestsPerMinute paces outgoing requests. Zero or negative disables pacing.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *Client) {
		if rpm <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
}

// New creates a Discogs client. Discogs rejects requests without a
// User-Agent, so one is always sent.
func New(token, baseURL, userAgent string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discogs token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("discogs base url required")
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = "VinylScout/1.0"
	}
	client := &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [discogs] section. A non-positive
// timeout keeps the default rather than producing an unbounded client.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	timeout := defaultTimeout
	if cfg.Discogs.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Discogs.TimeoutSeconds) * time.Second
	}
	return New(cfg.Discogs.Token, cfg.Discogs.BaseURL, cfg.Discogs.UserAgent,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithRequestsPerMinute(cfg.Discogs.RequestsPerMinute),
	)
}

// Release fetches one release by id.
func (c *Client) Release(ctx context.Context, id int64) (*Release, error) {
	if id <= 0 {
		return nil, errors.New("release id must be positive")
	}
	endpoint, err := url.Parse(fmt.Sprintf("%s/releases/%d", c.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("parse discogs url: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for discogs rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Discogs token="+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.discogs.v2.discogs+json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("discogs release returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload Release
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode discogs release: %w", err)
	}
	return &payload, nil
}
