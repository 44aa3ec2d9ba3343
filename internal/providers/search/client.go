// Package search queries the read-only stock asset integration. Bearer
// tokens come exclusively from the credential cache; this client never
// negotiates its own.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
)

// TokenSource supplies a valid bearer token. Satisfied by credentials.Cache.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// Options configures the search client.
type Options struct {
	BaseURL        string
	Tokens         TokenSource
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs authenticated stock searches.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *infra.Logger
}

// Result is one stock search hit.
type Result struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ThumbURL string `json:"thumb_url"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// NewClient constructs a search client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		tokens:     opts.Tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Search returns up to limit results for query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search: query is required: %w", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = 10
	}
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/search?" + url.Values{
		"q":     {strings.TrimSpace(query)},
		"limit": {strconv.Itoa(limit)},
	}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search: http request: %v: %w", err, domain.ErrGeneration)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("search: token rejected (status %d): %w", resp.StatusCode, domain.ErrAuth)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrGeneration)
	}

	var decoded searchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("search: decode response: %v: %w", err, domain.ErrProtocol)
	}
	c.logger.Debug().Str("query", query).Int("results", len(decoded.Results)).Msg("search: completed")
	return decoded.Results, nil
}
