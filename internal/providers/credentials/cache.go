// Package credentials caches the short-lived OAuth bearer token used by the
// stock search integration so that concurrent callers share one exchange
// instead of negotiating a token per request.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"adstudio/internal/domain"
	"adstudio/internal/infra"
)

// SafetyMargin is subtracted from the provider-reported lifetime so a token
// handed to a caller cannot expire mid-request.
const SafetyMargin = 60 * time.Second

// Options configures the token cache.
type Options struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	Now          func() time.Time
}

// Cache memoizes a single bearer token with its absolute expiry. Refreshes
// are serialized behind one mutex: at most one token exchange is in flight
// at a time, and a concurrent caller blocked on the lock reuses the result
// of the exchange that beat it there.
type Cache struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	logger       *infra.Logger
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewCache constructs a cache. Credentials are validated lazily on first
// use so a partially configured deployment can still boot.
func NewCache(opts Options) *Cache {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Cache{
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		tokenURL:     strings.TrimRight(opts.TokenURL, "/"),
		httpClient:   httpClient,
		logger:       logger,
		now:          now,
	}
}

// Get returns a bearer token guaranteed valid for at least the safety
// margin. It performs a network exchange only when no unexpired token is
// cached.
func (c *Cache) Get(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("credentials: client id and secret are required: %w", domain.ErrConfig)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}

	token, expiry, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = expiry
	c.logger.Debug().Time("expiry", expiry).Msg("credentials: refreshed bearer token")
	return token, nil
}

func (c *Cache) exchange(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("credentials: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("credentials: token exchange: %v: %w", err, domain.ErrAuth)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("credentials: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf("credentials: token endpoint status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrAuth)
	}

	var decoded tokenResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", time.Time{}, fmt.Errorf("credentials: decode response: %v: %w", err, domain.ErrAuth)
	}
	if decoded.AccessToken == "" || decoded.ExpiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("credentials: empty token in response: %w", domain.ErrAuth)
	}

	// Absolute expiry is now + expires_in minus the safety margin, so the
	// expiry comparison in Get stays a plain Before.
	expiry := c.now().Add(time.Duration(decoded.ExpiresIn)*time.Second - SafetyMargin)
	return decoded.AccessToken, expiry, nil
}
