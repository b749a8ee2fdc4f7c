package cosmosgateway

import (
	"context"

	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

// DataPlaneClient is a live, authenticated connection to one account's
// document API. Implementations must be safe for concurrent use; the
// ClientCache owns every instance it stores and is the only component that
// may Close one.
type DataPlaneClient interface {
	// Validate performs one cheap round-trip to prove the client can reach
	// the account with its current credentials.
	Validate(ctx context.Context) error
	// Items returns a handle for single-document operations in a container.
	Items(database, container string) ItemHandle
	// Containers returns the read-only container surface of a database.
	Containers(database string) ContainerReader
	// Databases returns the read-only database surface of the account.
	Databases() DatabaseReader
	// Close releases transport resources. Closing twice is a no-op.
	Close() error
}

// ItemHandle performs stream-based CRUD on single documents. Bodies are raw
// JSON bytes in both directions; no schema is imposed.
type ItemHandle interface {
	Create(ctx context.Context, partitionKey string, body []byte) error
	Upsert(ctx context.Context, partitionKey string, body []byte) error
	Read(ctx context.Context, partitionKey, id string) ([]byte, error)
	Delete(ctx context.Context, partitionKey, id string) error
}

// ContainerReader is the data-plane read surface for containers. The
// data-plane build used here cannot define containers, so there is no write
// counterpart on this interface; see ContainerAdministrator.
type ContainerReader interface {
	// List returns the ids of every container in the database.
	List(ctx context.Context) ([]string, error)
	// Read returns the raw definition of one container.
	Read(ctx context.Context, name string) (*ContainerState, error)
	// ReadThroughput returns the container's provisioned RU/s, or nil when
	// the container has no dedicated throughput (the underlying 404 is not
	// an error).
	ReadThroughput(ctx context.Context, name string) (*int32, error)
}

// DatabaseReader lists databases within an account.
type DatabaseReader interface {
	List(ctx context.Context) ([]string, error)
}

// ContainerAdministrator is the control-plane write surface for containers,
// used because container definitions cannot be created through the data-plane
// client in this deployment.
type ContainerAdministrator interface {
	// CreateContainer submits a create-or-update for a new container with a
	// hash partition key and waits for the long-running operation to finish.
	// A nil throughput means serverless or database-inherited throughput.
	CreateContainer(ctx context.Context, sub subscriptions.Subscription, account *Account, database, name, partitionKeyPath string, throughput *int32) error
}

// AccountResolver turns an account name into its control-plane descriptor and
// lazily fetches key material for shared-key auth.
type AccountResolver interface {
	// Resolve enumerates the accounts visible under the subscription and
	// returns the one whose name matches exactly. KindNotFound after full
	// enumeration without a match.
	Resolve(ctx context.Context, sub subscriptions.Subscription, accountName string) (*Account, error)
	// PrimaryKey fetches the account's primary master key.
	PrimaryKey(ctx context.Context, sub subscriptions.Subscription, account *Account) (string, error)
}

// ClientFactoryOptions carry the per-connection settings the negotiator
// computes before constructing a client.
type ClientFactoryOptions struct {
	Retry *RetryPolicy
}

// ClientFactory constructs data-plane clients for the two auth modes. The
// Azure implementation lives in azurecosmos.go; tests substitute their own.
type ClientFactory interface {
	NewCredentialClient(ctx context.Context, endpoint, tenantID string, opts ClientFactoryOptions) (DataPlaneClient, error)
	NewKeyClient(ctx context.Context, endpoint, key string, opts ClientFactoryOptions) (DataPlaneClient, error)
}
