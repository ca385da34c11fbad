// Package auth acquires and caches the bearer token used for Graph calls.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// RefreshSkew is the minimum remaining validity for a cached token to be reused.
const RefreshSkew = 60 * time.Second

// Token is a bearer token and its absolute expiry.
type Token struct {
	Value  string
	Expiry time.Time
}

// freshAt reports whether the token has more than RefreshSkew left at now.
func (t Token) freshAt(now time.Time) bool {
	return t.Value != "" && t.Expiry.Sub(now) > RefreshSkew
}

// TokenCache hands out a bearer token, refreshing it through an Exchanger
// when less than RefreshSkew of validity remains. Concurrent callers may
// refresh redundantly; every refresh yields a valid token so the last
// writer wins without harm.
type TokenCache struct {
	exchanger Exchanger
	store     Store
	storeKey  string
	now       func() time.Time
	logger    hclog.Logger

	mu      sync.RWMutex
	current Token
}

// Option configures a TokenCache.
type Option func(*TokenCache)

// WithStore adds a shared second-level cache consulted before exchanging.
func WithStore(store Store, key string) Option {
	return func(c *TokenCache) {
		c.store = store
		c.storeKey = key
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *TokenCache) { c.logger = l }
}

// NewTokenCache creates an empty cache in front of exchanger.
func NewTokenCache(exchanger Exchanger, opts ...Option) *TokenCache {
	c := &TokenCache{
		exchanger: exchanger,
		now:       time.Now,
		logger:    hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a token valid for more than RefreshSkew.
func (c *TokenCache) Token(ctx context.Context) (Token, error) {
	now := c.now()

	c.mu.RLock()
	cached := c.current
	c.mu.RUnlock()
	if cached.freshAt(now) {
		return cached, nil
	}

	if c.store != nil {
		stored, err := c.store.Load(ctx, c.storeKey)
		if err != nil {
			c.logger.Warn("shared token cache load failed", "error", err)
		} else if stored != nil && stored.freshAt(now) {
			c.replace(*stored)
			c.logger.Debug("adopted token from shared cache", "expiry", stored.Expiry)
			return *stored, nil
		}
	}

	tok, err := c.exchanger.Exchange(ctx)
	if err != nil {
		c.logger.Error("token exchange failed", "error", err)
		return Token{}, err
	}
	c.replace(tok)
	c.logger.Debug("token refreshed", "expiry", tok.Expiry)

	if c.store != nil {
		if err := c.store.Save(ctx, c.storeKey, tok); err != nil {
			c.logger.Warn("shared token cache save failed", "error", err)
		}
	}
	return tok, nil
}

func (c *TokenCache) replace(tok Token) {
	c.mu.Lock()
	c.current = tok
	c.mu.Unlock()
}
