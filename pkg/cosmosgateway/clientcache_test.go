package cosmosgateway_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cosmosgateway"
)

func testTarget(account string) cosmosgateway.Target {
	return cosmosgateway.Target{
		Account:      account,
		Database:     "orders-db",
		Container:    "orders",
		Subscription: testSub,
	}
}

func TestClientCache_ReusesClientWithinTTL(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{items: newFakeItemHandle()}
	negotiator := &stubNegotiator{results: []negotiationResult{{client: client}}}
	cache, err := cosmosgateway.NewClientCache(negotiator, zerolog.Nop())
	require.NoError(t, err)

	first, err := cache.GetOrCreate(ctx, testTarget("acct-1"))
	require.NoError(t, err)
	second, err := cache.GetOrCreate(ctx, testTarget("acct-1"))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, negotiator.callCount(), "two calls within TTL must negotiate once")
}

func TestClientCache_DistinctAccountsNegotiateSeparately(t *testing.T) {
	ctx := context.Background()
	negotiator := &stubNegotiator{results: []negotiationResult{
		{client: &fakeClient{items: newFakeItemHandle()}},
		{client: &fakeClient{items: newFakeItemHandle()}},
	}}
	cache, err := cosmosgateway.NewClientCache(negotiator, zerolog.Nop())
	require.NoError(t, err)

	_, err = cache.GetOrCreate(ctx, testTarget("acct-1"))
	require.NoError(t, err)
	_, err = cache.GetOrCreate(ctx, testTarget("acct-2"))
	require.NoError(t, err)

	assert.Equal(t, 2, negotiator.callCount())
}

func TestClientCache_FallbackResultIsCached(t *testing.T) {
	// The negotiator double fails the first (credential) negotiation with a
	// 401 terminal error, then succeeds. After the successful negotiation the
	// cached client is reused and credential auth is never re-attempted.
	ctx := context.Background()
	client := &fakeClient{items: newFakeItemHandle()}
	negotiator := &stubNegotiator{results: []negotiationResult{
		{err: &cosmosgateway.OpError{Kind: cosmosgateway.KindAuthFailure, Status: http.StatusUnauthorized}},
		{client: client},
	}}
	cache, err := cosmosgateway.NewClientCache(negotiator, zerolog.Nop())
	require.NoError(t, err)

	target := testTarget("acct-1")
	target.Auth = cosmosgateway.AuthModeCredential

	_, err = cache.GetOrCreate(ctx, target)
	require.Error(t, err, "negotiation failure must propagate, not cache")

	got, err := cache.GetOrCreate(ctx, target)
	require.NoError(t, err)
	assert.Same(t, client, got)

	again, err := cache.GetOrCreate(ctx, target)
	require.NoError(t, err)
	assert.Same(t, client, again)
	assert.Equal(t, 2, negotiator.callCount(), "cached client must not trigger renegotiation")
}

func TestClientCache_ConcurrentMissesSingleFlight(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{items: newFakeItemHandle()}
	negotiator := &stubNegotiator{results: []negotiationResult{{client: client}}}
	cache, err := cosmosgateway.NewClientCache(negotiator, zerolog.Nop())
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	clients := make([]cosmosgateway.DataPlaneClient, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := cache.GetOrCreate(ctx, testTarget("acct-1"))
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, negotiator.callCount(), "concurrent misses must collapse to one negotiation")
	for _, c := range clients {
		assert.Same(t, client, c)
	}
}

func TestClientCache_InvalidateDisposes(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{items: newFakeItemHandle()}
	replacement := &fakeClient{items: newFakeItemHandle()}
	negotiator := &stubNegotiator{results: []negotiationResult{{client: client}, {client: replacement}}}
	cache, err := cosmosgateway.NewClientCache(negotiator, zerolog.Nop())
	require.NoError(t, err)

	_, err = cache.GetOrCreate(ctx, testTarget("acct-1"))
	require.NoError(t, err)

	cache.Invalidate("acct-1")
	assert.Equal(t, 1, client.closeCount(), "invalidation must dispose the handle")

	got, err := cache.GetOrCreate(ctx, testTarget("acct-1"))
	require.NoError(t, err)
	assert.Same(t, replacement, got)
	assert.Equal(t, 2, negotiator.callCount())
}

func TestClientCache_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clientA := &fakeClient{items: newFakeItemHandle()}
	clientB := &fakeClient{items: newFakeItemHandle()}
	negotiator := &stubNegotiator{results: []negotiationResult{{client: clientA}, {client: clientB}}}
	cache, err := cosmosgateway.NewClientCache(negotiator, zerolog.Nop())
	require.NoError(t, err)

	_, err = cache.GetOrCreate(ctx, testTarget("acct-1"))
	require.NoError(t, err)
	_, err = cache.GetOrCreate(ctx, testTarget("acct-2"))
	require.NoError(t, err)

	require.NoError(t, cache.Close())
	assert.Equal(t, 1, clientA.closeCount())
	assert.Equal(t, 1, clientB.closeCount())

	// Second close is a no-op and must not close handles again.
	require.NoError(t, cache.Close())
	assert.Equal(t, 1, clientA.closeCount())
	assert.Equal(t, 1, clientB.closeCount())
}

func TestNewClientCache_NilNegotiator(t *testing.T) {
	_, err := cosmosgateway.NewClientCache(nil, zerolog.Nop())
	assert.Error(t, err)
}
