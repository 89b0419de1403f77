package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/mihmosh/whisper-flash/logger"
	"github.com/mihmosh/whisper-flash/observability"
)

// expiryLeeway is subtracted from a token's expiry so a token is refreshed
// before it can expire mid-request.
const expiryLeeway = 30 * time.Second

// TokenCache caches identity tokens per target audience. Concurrent
// requests for the same audience share a single fetch; requests for
// different audiences never block each other.
type TokenCache struct {
	issuer      TokenIssuer
	fallbackTTL time.Duration
	log         *logger.Logger
	metrics     *observability.Metrics

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenCache creates a token cache. metrics may be nil.
func NewTokenCache(issuer TokenIssuer, fallbackTTL time.Duration, log *logger.Logger, metrics *observability.Metrics) *TokenCache {
	if fallbackTTL <= 0 {
		fallbackTTL = 5 * time.Minute
	}
	return &TokenCache{
		issuer:      issuer,
		fallbackTTL: fallbackTTL,
		log:         log.WithComponent("token-cache"),
		metrics:     metrics,
		entries:     make(map[string]*cacheEntry),
	}
}

// Token returns a cached token for the audience, fetching a new one if the
// cached token is absent or within the expiry leeway.
func (c *TokenCache) Token(ctx context.Context, audience string) (string, error) {
	entry := c.entry(audience)

	// Per-entry lock: a refresh of one audience holds up only callers of
	// that audience.
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.token != "" && time.Now().Before(entry.expires.Add(-expiryLeeway)) {
		if c.metrics != nil {
			c.metrics.RecordTokenCache(ctx, "hit")
		}
		return entry.token, nil
	}

	if c.metrics != nil {
		c.metrics.RecordTokenCache(ctx, "miss")
	}

	token, err := c.issuer.IssueToken(ctx, audience)
	if err != nil {
		return "", err
	}

	expires := tokenExpiry(token)
	if expires.IsZero() {
		expires = time.Now().Add(c.fallbackTTL)
	}

	entry.token = token
	entry.expires = expires
	c.log.Debug("Token refreshed", map[string]interface{}{
		"audience": audience,
		"expires":  expires.Format(time.RFC3339),
	})
	return token, nil
}

// Invalidate drops the cached token for an audience, forcing a refresh on
// the next request. Used after an upstream 401.
func (c *TokenCache) Invalidate(audience string) {
	entry := c.entry(audience)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.token = ""
	entry.expires = time.Time{}
}

func (c *TokenCache) entry(audience string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[audience]
	if !ok {
		e = &cacheEntry{}
		c.entries[audience] = e
	}
	return e
}
