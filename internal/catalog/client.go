package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"cardscan/internal/cards"
	"cardscan/internal/config"
	"cardscan/internal/services"
)

// Searcher defines the catalog operations used by resolution.
type Searcher interface {
	SearchCards(ctx context.Context, query string) ([]*cards.ResolvedCard, error)
	GetCard(ctx context.Context, cardID string) (*cards.ResolvedCard, error)
}

// errNotFound marks a 404 from the catalog. GetCard converts it to a normal
// (nil, nil) miss; anywhere else it propagates as services.ErrNotFound.
var errNotFound = errors.New("catalog resource not found")

// Client provides access to the card catalog API.
type Client struct {
	apiKey     string
	baseURL    string
	pageSize   int
	schedule   []time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Searcher = (*Client)(nil)

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

// New creates a catalog client. The API key is optional: the public catalog
// serves unauthenticated requests at a tighter server-side rate limit.
func New(cfg config.Catalog, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := cfg.MinRequestInterval()
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   pageSize,
		schedule:   cfg.BackoffSchedule(),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchCards queries the catalog with a raw query expression such as
// `number:"4" name:"Charizard"` and returns the parsed records, discarding
// any that lack an identifier or name. An empty result is not an error.
func (c *Client) SearchCards(ctx context.Context, query string) ([]*cards.ResolvedCard, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/cards")
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	endpoint.RawQuery = params.Encode()

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint.String(), "search cards", &payload); err != nil {
		return nil, err
	}
	return toResolvedList(payload.Data), nil
}

// GetCard fetches one card by catalog identifier. An unknown identifier is a
// normal miss: (nil, nil), not an error.
func (c *Client) GetCard(ctx context.Context, cardID string) (*cards.ResolvedCard, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, errors.New("card id must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/cards/" + url.PathEscape(cardID))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}

	var payload cardResponse
	if err := c.getJSON(ctx, endpoint.String(), "get card", &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if payload.Data == nil {
		return nil, nil
	}
	return toResolved(*payload.Data), nil
}

// getJSON performs a rate-limited GET with the fixed retry schedule and
// decodes the 200 body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, op string, out any) error {
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if c.apiKey != "" {
			req.Header.Set("X-Api-Key", c.apiKey)
		}

		requestStart := time.Now()
		resp, err := c.httpClient.Do(req)
		latency := time.Since(requestStart)
		if err != nil {
			return services.Wrap(services.ErrTransient, "catalog", op, fmt.Sprintf("execute request (latency=%v)", latency), err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(services.Wrap(services.ErrNotFound, "catalog", op, "status 404", errNotFound))
		case retryableStatus(resp.StatusCode):
			return services.Wrap(services.ErrTransient, "catalog", op, fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency), nil)
		default:
			return backoff.Permanent(services.Wrap(services.ErrValidation, "catalog", op, fmt.Sprintf("status %d", resp.StatusCode), nil))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode catalog response: %w", err))
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(newScheduleBackOff(c.schedule), ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrTransient) && ctx.Err() == nil {
		return services.Wrap(services.ErrUnavailable, "catalog", op, "retries exhausted", err)
	}
	return err
}
