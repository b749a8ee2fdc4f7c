package cosmosgateway

import (
	"encoding/json"
	"time"

	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

// AuthMode selects how a data-plane client authenticates to an account.
type AuthMode string

const (
	// AuthModeCredential authenticates with the ambient credential chain
	// (managed identity, workload identity, developer login). Default.
	AuthModeCredential AuthMode = "credential"
	// AuthModeSharedKey authenticates with the account's primary master key,
	// fetched through the control plane.
	AuthModeSharedKey AuthMode = "key"
)

// RetryPolicy bounds transport retries for rate-limited requests. A nil policy
// leaves the transport's own defaults in place.
type RetryPolicy struct {
	MaxRetries    int32
	MaxRetryDelay time.Duration
}

// Target identifies where an operation should act and how to connect. Account
// and Database are required by every operation; Container where the operation
// is container-scoped.
type Target struct {
	Account      string
	Database     string
	Container    string
	Subscription subscriptions.Subscription
	Auth         AuthMode
	TenantID     string
	Retry        *RetryPolicy
}

// Account is a read-only control-plane snapshot of a database account,
// resolved on demand and never persisted.
type Account struct {
	Name          string
	ResourceID    string
	ResourceGroup string
	Location      string
	Endpoint      string
}

// ItemOperationResult is the uniform success envelope for mutating item
// operations. Failures are signaled via errors, never via Success=false.
type ItemOperationResult struct {
	Success      bool   `json:"success"`
	ID           string `json:"id"`
	PartitionKey string `json:"partitionKey"`
}

// ContainerOperationResult is the success envelope for container creation.
type ContainerOperationResult struct {
	Success          bool   `json:"success"`
	Container        string `json:"container"`
	PartitionKeyPath string `json:"partitionKeyPath"`
}

// ContainerState is the raw container definition surfaced by a data-plane
// read, normalized away from any one SDK's response shape.
type ContainerState struct {
	Name              string
	PartitionKeyPaths []string
	DefaultTTLSeconds *int32
	IndexingPolicy    json.RawMessage
	UniqueKeyPolicy   json.RawMessage
	ETag              string
	LastModified      time.Time
}

// ContainerDetails is the assembled result of a container Get: the definition
// plus the separately-read provisioned throughput. Throughput is nil for
// serverless containers and containers inheriting database throughput; that
// is a normal outcome, not an error.
type ContainerDetails struct {
	Name              string          `json:"name"`
	PartitionKeyPaths []string        `json:"partitionKeyPaths"`
	DefaultTTLSeconds *int32          `json:"defaultTtlSeconds,omitempty"`
	IndexingPolicy    json.RawMessage `json:"indexingPolicy,omitempty"`
	UniqueKeyPolicy   json.RawMessage `json:"uniqueKeyPolicy,omitempty"`
	ETag              string          `json:"etag,omitempty"`
	LastModified      time.Time       `json:"lastModified,omitempty"`
	Throughput        *int32          `json:"throughput"`
}
