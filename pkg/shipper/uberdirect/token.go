package uberdirect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// DefaultScope is the OAuth2 scope required for delivery quotes.
const DefaultScope = "eats.deliveries"

const (
	defaultExpirySkew   = time.Minute
	defaultFetchTimeout = 10 * time.Second
)

// Credentials identifies one client-credentials grant.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// key identifies the credential set without keeping the raw secret in the map.
func (c Credentials) key() string {
	digest := sha256.Sum256([]byte(c.ClientSecret))
	return strings.Join([]string{
		c.ClientID,
		c.TokenURL,
		strings.Join(c.Scopes, " "),
		hex.EncodeToString(digest[:8]),
	}, "|")
}

// TokenCache shares access tokens across concurrent callers. Tokens are reused
// until shortly before expiry, and concurrent misses for the same credentials
// share a single token request.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
	group  singleflight.Group

	httpClient   *http.Client
	skew         time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	observe      func(hit bool)
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithHTTPClient sets the client used against the token endpoint.
func WithHTTPClient(c *http.Client) TokenCacheOption {
	return func(tc *TokenCache) { tc.httpClient = c }
}

// WithExpirySkew refreshes tokens this long before they expire.
func WithExpirySkew(d time.Duration) TokenCacheOption {
	return func(tc *TokenCache) { tc.skew = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(tc *TokenCache) { tc.now = now }
}

// WithObserver is called once per lookup with whether a cached token was used.
func WithObserver(fn func(hit bool)) TokenCacheOption {
	return func(tc *TokenCache) { tc.observe = fn }
}

// NewTokenCache creates an empty token cache.
func NewTokenCache(opts ...TokenCacheOption) *TokenCache {
	tc := &TokenCache{
		tokens: make(map[string]*oauth2.Token),
		httpClient: &http.Client{
			Timeout:   defaultFetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		skew:         defaultExpirySkew,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		observe:      func(bool) {},
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Token returns a valid access token for creds, fetching one if needed.
func (tc *TokenCache) Token(ctx context.Context, creds Credentials) (string, error) {
	key := creds.key()

	if tok := tc.cached(key); tok != nil {
		tc.observe(true)
		return tok.AccessToken, nil
	}
	tc.observe(false)

	// The fetch is detached from ctx so one caller giving up does not fail
	// the others waiting on the same flight.
	ch := tc.group.DoChan(key, func() (any, error) {
		if tok := tc.cached(key); tok != nil {
			return tok, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tc.fetchTimeout)
		defer cancel()
		fetchCtx = context.WithValue(fetchCtx, oauth2.HTTPClient, tc.httpClient)

		cfg := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			Scopes:       creds.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		tok, err := cfg.Token(fetchCtx)
		if err != nil {
			return nil, err
		}

		tc.mu.Lock()
		tc.tokens[key] = tok
		tc.mu.Unlock()
		return tok, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("fetch access token: %w", res.Err)
		}
		return res.Val.(*oauth2.Token).AccessToken, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token for creds.
func (tc *TokenCache) Invalidate(creds Credentials) {
	tc.mu.Lock()
	delete(tc.tokens, creds.key())
	tc.mu.Unlock()
}

func (tc *TokenCache) cached(key string) *oauth2.Token {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tok, ok := tc.tokens[key]
	if !ok || tok.AccessToken == "" {
		return nil
	}
	if !tok.Expiry.IsZero() && !tc.now().Add(tc.skew).Before(tok.Expiry) {
		delete(tc.tokens, key)
		return nil
	}
	return tok
}

// boundToken adapts a TokenCache to a single credential set.
type boundToken struct {
	cache *TokenCache
	creds Credentials
}

func (b boundToken) Token(ctx context.Context) (string, error) { return b.cache.Token(ctx, b.creds) }
func (b boundToken) Invalidate()                              { b.cache.Invalidate(b.creds) }
