package cosmosgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ItemGateway exposes schema-agnostic CRUD for single documents. Bodies are
// raw JSON bytes end to end; the gateway only parses the input of Create and
// Upsert to verify the required id field and shape the result envelope, since
// the stream APIs do not echo the document back.
type ItemGateway struct {
	clients *ClientCache
	logger  zerolog.Logger
}

// NewItemGateway creates an item gateway over a shared client cache.
func NewItemGateway(clients *ClientCache, logger zerolog.Logger) (*ItemGateway, error) {
	if clients == nil {
		return nil, errors.New("client cache (ClientCache) cannot be nil")
	}
	return &ItemGateway{
		clients: clients,
		logger:  logger.With().Str("component", "ItemGateway").Logger(),
	}, nil
}

// Create inserts a new item. A collision on (id, partition key) surfaces as
// KindConflict.
func (g *ItemGateway) Create(ctx context.Context, t Target, partitionKey string, body []byte) (*ItemOperationResult, error) {
	id, err := g.prepareWrite(t, partitionKey, body)
	if err != nil {
		return nil, err
	}
	items, err := g.items(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := items.Create(ctx, partitionKey, body); err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to create item %q in container %q", id, t.Container))
	}
	return &ItemOperationResult{Success: true, ID: id, PartitionKey: partitionKey}, nil
}

// Upsert inserts or replaces an item.
func (g *ItemGateway) Upsert(ctx context.Context, t Target, partitionKey string, body []byte) (*ItemOperationResult, error) {
	id, err := g.prepareWrite(t, partitionKey, body)
	if err != nil {
		return nil, err
	}
	items, err := g.items(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := items.Upsert(ctx, partitionKey, body); err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to upsert item %q in container %q", id, t.Container))
	}
	return &ItemOperationResult{Success: true, ID: id, PartitionKey: partitionKey}, nil
}

// Get reads one item and returns its full JSON body. A missing item surfaces
// as KindNotFound.
func (g *ItemGateway) Get(ctx context.Context, t Target, partitionKey, id string) ([]byte, error) {
	if err := validateItemTarget(t, partitionKey); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, newValidationError("item id is required")
	}
	items, err := g.items(ctx, t)
	if err != nil {
		return nil, err
	}
	body, err := items.Read(ctx, partitionKey, id)
	if err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to read item %q from container %q", id, t.Container))
	}
	return body, nil
}

// Delete removes one item. Deleting an item that does not exist surfaces as
// KindNotFound; delete is not idempotent at this boundary.
func (g *ItemGateway) Delete(ctx context.Context, t Target, partitionKey, id string) (*ItemOperationResult, error) {
	if err := validateItemTarget(t, partitionKey); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, newValidationError("item id is required")
	}
	items, err := g.items(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := items.Delete(ctx, partitionKey, id); err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to delete item %q from container %q", id, t.Container))
	}
	return &ItemOperationResult{Success: true, ID: id, PartitionKey: partitionKey}, nil
}

func (g *ItemGateway) items(ctx context.Context, t Target) (ItemHandle, error) {
	client, err := g.clients.GetOrCreate(ctx, t)
	if err != nil {
		return nil, err
	}
	return client.Items(t.Database, t.Container), nil
}

// prepareWrite validates the write target and extracts the document id from
// the input body. Validation failures never reach the network.
func (g *ItemGateway) prepareWrite(t Target, partitionKey string, body []byte) (string, error) {
	if err := validateItemTarget(t, partitionKey); err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", newValidationError("item body is required")
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", newValidationError("item body must be a JSON object: %v", err)
	}
	raw, ok := doc["id"]
	if !ok {
		return "", newValidationError("item body must contain an \"id\" field")
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil || id == "" {
		return "", newValidationError("item \"id\" must be a non-empty string")
	}
	return id, nil
}

func validateItemTarget(t Target, partitionKey string) error {
	switch {
	case t.Account == "":
		return newValidationError("account name is required")
	case t.Database == "":
		return newValidationError("database name is required")
	case t.Container == "":
		return newValidationError("container name is required")
	case partitionKey == "":
		return newValidationError("partition key is required")
	}
	return nil
}
