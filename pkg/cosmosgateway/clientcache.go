package cosmosgateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cache"
	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

const clientCacheGroup = "cosmosclient"

// clientTTL bounds how long a data-plane client is reused before it is
// disposed and renegotiated.
const clientTTL = 15 * time.Minute

// ClientCache maps account name to a live data-plane client. It exclusively
// owns every handle it stores and is the only component that disposes them.
//
// The key is the account name alone, independent of the requested auth mode:
// a caller asking for credential auth against an account whose cached client
// was negotiated with shared key gets the cached client back unchanged. This
// is a deliberate simplification carried over from the original design; see
// DESIGN.md before changing it.
type ClientCache struct {
	negotiator ClientNegotiator
	store      *cache.Cache
	flight     singleflight.Group
	logger     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// ClientNegotiator is the slice of AuthNegotiator the cache needs, extracted
// so tests can count and script negotiations.
type ClientNegotiator interface {
	CreateClient(ctx context.Context, accountName string, sub subscriptions.Subscription, mode AuthMode, tenantID string, retry *RetryPolicy) (DataPlaneClient, error)
}

// NewClientCache creates a cache around the given negotiator.
func NewClientCache(negotiator ClientNegotiator, logger zerolog.Logger) (*ClientCache, error) {
	if negotiator == nil {
		return nil, errors.New("negotiator (ClientNegotiator interface) cannot be nil")
	}
	return &ClientCache{
		negotiator: negotiator,
		store:      cache.New(clientTTL),
		logger:     logger.With().Str("component", "ClientCache").Logger(),
	}, nil
}

// GetOrCreate returns the cached client for the target's account, negotiating
// a new one on miss or expiry. Concurrent misses for the same account are
// collapsed into a single negotiation.
func (c *ClientCache) GetOrCreate(ctx context.Context, t Target) (DataPlaneClient, error) {
	key := cache.Key(clientCacheGroup, t.Account)
	if cached, ok := c.store.Get(key); ok {
		return cached.(DataPlaneClient), nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A concurrent winner may have populated the entry while this call
		// waited on the flight group.
		if cached, ok := c.store.Get(key); ok {
			return cached, nil
		}

		if stale, ok := c.store.Peek(key); ok {
			c.logger.Debug().Str("account", t.Account).Msg("Cached client expired, disposing.")
			c.store.Delete(key)
			_ = stale.(DataPlaneClient).Close()
		}

		client, err := c.negotiator.CreateClient(ctx, t.Account, t.Subscription, t.Auth, t.TenantID, t.Retry)
		if err != nil {
			return nil, err
		}
		c.store.Set(key, client)
		c.logger.Info().Str("account", t.Account).Msg("Cached new data-plane client.")
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(DataPlaneClient), nil
}

// Invalidate drops and disposes the cached client for an account, if any.
func (c *ClientCache) Invalidate(account string) {
	if stale, ok := c.store.Delete(cache.Key(clientCacheGroup, account)); ok {
		_ = stale.(DataPlaneClient).Close()
	}
}

// Close disposes every cached client. It is idempotent and tolerates handles
// that were already closed elsewhere.
func (c *ClientCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	for _, key := range c.store.Keys(clientCacheGroup) {
		if v, ok := c.store.Delete(key); ok {
			_ = v.(DataPlaneClient).Close()
		}
	}
	c.logger.Info().Msg("Client cache closed.")
	return nil
}
