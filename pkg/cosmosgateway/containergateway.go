package cosmosgateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cache"
)

const (
	containerListGroup = "containerlist"
	listTTL            = 15 * time.Minute
)

// ContainerGateway composes the two container surfaces: the data-plane reader
// for list/get and the control-plane administrator for create. The data plane
// cannot define containers in this deployment, so creation goes through the
// management API.
type ContainerGateway struct {
	clients  *ClientCache
	admin    ContainerAdministrator
	resolver AccountResolver
	lists    *cache.Cache
	logger   zerolog.Logger
}

// NewContainerGateway creates a container gateway. The client cache serves the
// read path; the administrator and resolver serve the write path.
func NewContainerGateway(clients *ClientCache, admin ContainerAdministrator, resolver AccountResolver, logger zerolog.Logger) (*ContainerGateway, error) {
	if clients == nil {
		return nil, errors.New("client cache (ClientCache) cannot be nil")
	}
	if admin == nil {
		return nil, errors.New("container administrator (ContainerAdministrator interface) cannot be nil")
	}
	if resolver == nil {
		return nil, errors.New("account resolver (AccountResolver interface) cannot be nil")
	}
	return &ContainerGateway{
		clients:  clients,
		admin:    admin,
		resolver: resolver,
		lists:    cache.New(listTTL),
		logger:   logger.With().Str("component", "ContainerGateway").Logger(),
	}, nil
}

// List returns the ids of the containers in the target database, read through
// a 15-minute cache keyed by account and database.
func (g *ContainerGateway) List(ctx context.Context, t Target) ([]string, error) {
	if err := validateDatabaseTarget(t); err != nil {
		return nil, err
	}
	key := cache.Key(containerListGroup, t.Account+"/"+t.Database)
	if cached, ok := g.lists.Get(key); ok {
		return cached.([]string), nil
	}

	client, err := g.clients.GetOrCreate(ctx, t)
	if err != nil {
		return nil, err
	}
	names, err := client.Containers(t.Database).List(ctx)
	if err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to list containers in database %q", t.Database))
	}
	g.lists.Set(key, names)
	return names, nil
}

// Get assembles a container's details from its raw definition plus a separate
// throughput read. A 404 from the throughput read means the container has no
// dedicated RU/s (serverless or database-inherited) and yields Throughput nil,
// not an error. Get never touches the control plane.
func (g *ContainerGateway) Get(ctx context.Context, t Target, name string) (*ContainerDetails, error) {
	if err := validateDatabaseTarget(t); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, newValidationError("container name is required")
	}

	client, err := g.clients.GetOrCreate(ctx, t)
	if err != nil {
		return nil, err
	}
	reader := client.Containers(t.Database)

	state, err := reader.Read(ctx, name)
	if err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to read container %q", name))
	}
	throughput, err := reader.ReadThroughput(ctx, name)
	if err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to read throughput for container %q", name))
	}

	return &ContainerDetails{
		Name:              state.Name,
		PartitionKeyPaths: state.PartitionKeyPaths,
		DefaultTTLSeconds: state.DefaultTTLSeconds,
		IndexingPolicy:    state.IndexingPolicy,
		UniqueKeyPolicy:   state.UniqueKeyPolicy,
		ETag:              state.ETag,
		LastModified:      state.LastModified,
		Throughput:        throughput,
	}, nil
}

// Create provisions a new container through the control plane, with a hash
// partition key on the given path and optional dedicated throughput. The call
// blocks until the underlying long-running operation completes. A name
// collision surfaces as KindConflict. Create never touches the data-plane
// client.
func (g *ContainerGateway) Create(ctx context.Context, t Target, name, partitionKeyPath string, throughput *int32) (*ContainerOperationResult, error) {
	if err := validateDatabaseTarget(t); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, newValidationError("container name is required")
	}
	if !strings.HasPrefix(partitionKeyPath, "/") {
		return nil, newValidationError("partition key path must start with '/', got %q", partitionKeyPath)
	}

	account, err := g.resolver.Resolve(ctx, t.Subscription, t.Account)
	if err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to resolve account %q", t.Account))
	}
	if err := g.admin.CreateContainer(ctx, t.Subscription, account, t.Database, name, partitionKeyPath, throughput); err != nil {
		return nil, wrapServiceError(err, fmt.Sprintf("failed to create container %q in database %q", name, t.Database))
	}

	// The cached list for this database is now stale.
	g.lists.Delete(cache.Key(containerListGroup, t.Account+"/"+t.Database))

	g.logger.Info().
		Str("account", t.Account).
		Str("database", t.Database).
		Str("container", name).
		Str("partition_key_path", partitionKeyPath).
		Msg("Container created.")
	return &ContainerOperationResult{Success: true, Container: name, PartitionKeyPath: partitionKeyPath}, nil
}

func validateDatabaseTarget(t Target) error {
	switch {
	case t.Account == "":
		return newValidationError("account name is required")
	case t.Database == "":
		return newValidationError("database name is required")
	}
	return nil
}
