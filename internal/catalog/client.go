// Package catalog searches the KicksCrew sneaker catalog on RapidAPI. The
// server proxies every search so the API key never reaches a browser.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/config"
	"github.com/sakif/sneaker-rotation/internal/model"
)

// maxResponseBytes caps how much of an upstream reply we decode.
const maxResponseBytes = 4 << 20

var errNoAPIKey = errors.New("catalog api key is not configured")

// Searcher is what the handlers need from a catalog.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.CatalogProduct, error)
}

var _ Searcher = (*Client)(nil)

// Client calls the catalog search endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	host        string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client rate limited to cfg.RequestsPerMinute.
// Zero means unlimited.
func NewClient(cfg config.CatalogConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		host:        cfg.Host,
		rateLimiter: newLimiter(cfg.RequestsPerMinute),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := min(perMinute, 5)
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// Close drops idle upstream connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// searchResponse is the raw upstream reply.
type searchResponse struct {
	Products []model.CatalogProduct `json:"products"`
}

// Search returns catalog products matching query. An empty query is a
// validation error; every upstream problem is an apperror.ErrUpstream.
func (c *Client) Search(ctx context.Context, query string) ([]model.CatalogProduct, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("query", "Missing query")
	}
	if c.apiKey == "" {
		return nil, apperror.Upstream("catalog search is not configured", errNoAPIKey)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, apperror.Upstream("catalog search is busy, try again", fmt.Errorf("rate limit: %w", err))
	}

	searchURL := c.baseURL + "/search?" + url.Values{"query": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream("catalog search failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("catalog search",
		zap.String("query", query),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, apperror.Upstream(
			fmt.Sprintf("catalog search failed with status %d", resp.StatusCode),
			fmt.Errorf("status %d", resp.StatusCode),
		)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, apperror.Upstream("catalog returned an unreadable response", err)
	}
	if body.Products == nil {
		body.Products = []model.CatalogProduct{}
	}
	return body.Products, nil
}
