package cosmosgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// userAgentSuffix identifies this gateway on every data-plane request.
const userAgentSuffix = "go-cosmos-agent"

// AzureClientFactory builds real azcosmos clients for the negotiator.
type AzureClientFactory struct{}

// NewAzureClientFactory creates the production client factory.
func NewAzureClientFactory() *AzureClientFactory {
	return &AzureClientFactory{}
}

func (f *AzureClientFactory) clientOptions(opts ClientFactoryOptions) *azcosmos.ClientOptions {
	o := &azcosmos.ClientOptions{}
	o.Telemetry = policy.TelemetryOptions{ApplicationID: userAgentSuffix}
	if opts.Retry != nil {
		o.Retry = policy.RetryOptions{
			MaxRetries:    opts.Retry.MaxRetries,
			MaxRetryDelay: opts.Retry.MaxRetryDelay,
		}
	}
	return o
}

// NewCredentialClient constructs a client authenticating with the ambient
// credential chain, optionally pinned to a tenant.
func (f *AzureClientFactory) NewCredentialClient(_ context.Context, endpoint, tenantID string, opts ClientFactoryOptions) (DataPlaneClient, error) {
	credential, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{TenantID: tenantID})
	if err != nil {
		return nil, fmt.Errorf("failed to build default credential: %w", err)
	}
	client, err := azcosmos.NewClient(endpoint, credential, f.clientOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create cosmos client for %q: %w", endpoint, err)
	}
	return &azureDataPlaneClient{client: client}, nil
}

// NewKeyClient constructs a client authenticating with the account's master key.
func (f *AzureClientFactory) NewKeyClient(_ context.Context, endpoint, key string, opts ClientFactoryOptions) (DataPlaneClient, error) {
	credential, err := azcosmos.NewKeyCredential(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build key credential: %w", err)
	}
	client, err := azcosmos.NewClientWithKey(endpoint, credential, f.clientOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create cosmos client for %q: %w", endpoint, err)
	}
	return &azureDataPlaneClient{client: client}, nil
}

// azureDataPlaneClient adapts *azcosmos.Client to DataPlaneClient.
type azureDataPlaneClient struct {
	client *azcosmos.Client
}

// Validate reads the first page of the databases query. The SDK exposes no
// read-account call, so this is the cheapest authenticated round-trip.
func (a *azureDataPlaneClient) Validate(ctx context.Context) error {
	pager := a.client.NewQueryDatabasesPager("SELECT * FROM root r", nil)
	if pager.More() {
		if _, err := pager.NextPage(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *azureDataPlaneClient) Items(database, container string) ItemHandle {
	return &azureItemHandle{client: a.client, database: database, container: container}
}

func (a *azureDataPlaneClient) Containers(database string) ContainerReader {
	return &azureContainerReader{client: a.client, database: database}
}

func (a *azureDataPlaneClient) Databases() DatabaseReader {
	return &azureDatabaseReader{client: a.client}
}

// Close is a no-op: azcosmos clients share a pooled HTTP transport with no
// explicit shutdown. The method exists so the cache's ownership contract holds
// for implementations that do pin resources.
func (a *azureDataPlaneClient) Close() error {
	return nil
}

type azureItemHandle struct {
	client    *azcosmos.Client
	database  string
	container string
}

func (h *azureItemHandle) containerClient() (*azcosmos.ContainerClient, error) {
	return h.client.NewContainer(h.database, h.container)
}

func (h *azureItemHandle) Create(ctx context.Context, partitionKey string, body []byte) error {
	cc, err := h.containerClient()
	if err != nil {
		return err
	}
	_, err = cc.CreateItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), body, nil)
	return err
}

func (h *azureItemHandle) Upsert(ctx context.Context, partitionKey string, body []byte) error {
	cc, err := h.containerClient()
	if err != nil {
		return err
	}
	_, err = cc.UpsertItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), body, nil)
	return err
}

func (h *azureItemHandle) Read(ctx context.Context, partitionKey, id string) ([]byte, error) {
	cc, err := h.containerClient()
	if err != nil {
		return nil, err
	}
	resp, err := cc.ReadItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (h *azureItemHandle) Delete(ctx context.Context, partitionKey, id string) error {
	cc, err := h.containerClient()
	if err != nil {
		return err
	}
	_, err = cc.DeleteItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	return err
}

type azureContainerReader struct {
	client   *azcosmos.Client
	database string
}

func (r *azureContainerReader) List(ctx context.Context) ([]string, error) {
	db, err := r.client.NewDatabase(r.database)
	if err != nil {
		return nil, err
	}
	var names []string
	pager := db.NewQueryContainersPager("SELECT * FROM root r", nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range page.Containers {
			names = append(names, c.ID)
		}
	}
	return names, nil
}

func (r *azureContainerReader) Read(ctx context.Context, name string) (*ContainerState, error) {
	cc, err := r.client.NewContainer(r.database, name)
	if err != nil {
		return nil, err
	}
	resp, err := cc.Read(ctx, nil)
	if err != nil {
		return nil, err
	}
	props := resp.ContainerProperties
	if props == nil {
		return nil, fmt.Errorf("container read for %q returned no properties", name)
	}

	state := &ContainerState{
		Name:              props.ID,
		PartitionKeyPaths: props.PartitionKeyDefinition.Paths,
		DefaultTTLSeconds: props.DefaultTimeToLive,
		LastModified:      props.LastModified,
	}
	if props.ETag != nil {
		state.ETag = string(*props.ETag)
	}
	if props.IndexingPolicy != nil {
		if raw, err := json.Marshal(props.IndexingPolicy); err == nil {
			state.IndexingPolicy = raw
		}
	}
	if props.UniqueKeyPolicy != nil {
		if raw, err := json.Marshal(props.UniqueKeyPolicy); err == nil {
			state.UniqueKeyPolicy = raw
		}
	}
	return state, nil
}

// ReadThroughput returns nil RU/s when the service reports 404: a container
// without dedicated throughput is serverless or inherits from its database.
func (r *azureContainerReader) ReadThroughput(ctx context.Context, name string) (*int32, error) {
	cc, err := r.client.NewContainer(r.database, name)
	if err != nil {
		return nil, err
	}
	resp, err := cc.ReadThroughput(ctx, nil)
	if err != nil {
		if StatusOf(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return manualOrAutoscale(resp.ThroughputProperties), nil
}

func manualOrAutoscale(tp *azcosmos.ThroughputProperties) *int32 {
	if tp == nil {
		return nil
	}
	if v, ok := tp.ManualThroughput(); ok {
		return &v
	}
	if v, ok := tp.AutoscaleMaxThroughput(); ok {
		return &v
	}
	return nil
}

type azureDatabaseReader struct {
	client *azcosmos.Client
}

func (r *azureDatabaseReader) List(ctx context.Context) ([]string, error) {
	var names []string
	pager := r.client.NewQueryDatabasesPager("SELECT * FROM root r", nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, db := range page.Databases {
			names = append(names, db.ID)
		}
	}
	return names, nil
}
