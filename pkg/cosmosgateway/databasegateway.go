package cosmosgateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cache"
)

const databaseListGroup = "dblist"

// DatabaseGateway lists the databases of an account, read through the same
// 15-minute cache discipline as container lists.
type DatabaseGateway struct {
	clients *ClientCache
	lists   *cache.Cache
	logger  zerolog.Logger
}

// NewDatabaseGateway creates a database gateway over a shared client cache.
func NewDatabaseGateway(clients *ClientCache, logger zerolog.Logger) (*DatabaseGateway, error) {
	if clients == nil {
		return nil, errors.New("client cache (ClientCache) cannot be nil")
	}
	return &DatabaseGateway{
		clients: clients,
		lists:   cache.New(listTTL),
		logger:  logger.With().Str("component", "DatabaseGateway").Logger(),
	}, nil
}

// List returns the ids of the databases in the target account.
func (g *DatabaseGateway) List(ctx context.Context, t Target) ([]string, error) {
	if t.Account == "" {
		return nil, newValidationError("account name is required")
	}
	key := cache.Key(databaseListGroup, t.Account)
	if cached, ok := g.lists.Get(key); ok {
		return cached.([]string), nil
	}

	client, err := g.clients.GetOrCreate(ctx, t)
	if err != nil {
		return nil, err
	}
	names, err := client.Databases().List(ctx)
	if err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to list databases in account %q", t.Account))
	}
	g.lists.Set(key, names)
	return names, nil
}
