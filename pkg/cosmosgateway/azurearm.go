package cosmosgateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cosmos/armcosmos/v3"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

// armClients caches per-subscription ARM clients. ARM clients are long-lived
// and reuse HTTP connections through their pipeline, so constructing one per
// call wastes TCP and TLS handshakes.
type armClients[T any] struct {
	cache sync.Map
}

func (c *armClients[T]) getOrCreate(subscriptionID string, factory func() (T, error)) (T, error) {
	if cached, ok := c.cache.Load(subscriptionID); ok {
		return cached.(T), nil
	}
	client, err := factory()
	if err != nil {
		var zero T
		return zero, err
	}
	actual, _ := c.cache.LoadOrStore(subscriptionID, client)
	return actual.(T), nil
}

// ARMAccountResolver resolves database accounts through the control plane: a
// linear scan of the subscription's accounts (account counts per subscription
// are small) and a ListKeys call for shared-key material.
type ARMAccountResolver struct {
	credential azcore.TokenCredential
	clients    armClients[*armcosmos.DatabaseAccountsClient]
	logger     zerolog.Logger
}

// NewARMAccountResolver creates a resolver using the given control-plane
// credential.
func NewARMAccountResolver(credential azcore.TokenCredential, logger zerolog.Logger) (*ARMAccountResolver, error) {
	if credential == nil {
		return nil, fmt.Errorf("control-plane credential cannot be nil")
	}
	return &ARMAccountResolver{
		credential: credential,
		logger:     logger.With().Str("component", "AccountResolver").Logger(),
	}, nil
}

func (r *ARMAccountResolver) accountsClient(subscriptionID string) (*armcosmos.DatabaseAccountsClient, error) {
	return r.clients.getOrCreate(subscriptionID, func() (*armcosmos.DatabaseAccountsClient, error) {
		return armcosmos.NewDatabaseAccountsClient(subscriptionID, r.credential, nil)
	})
}

// Resolve enumerates every account visible under the subscription and returns
// the first exact (case-sensitive) name match.
func (r *ARMAccountResolver) Resolve(ctx context.Context, sub subscriptions.Subscription, accountName string) (*Account, error) {
	if accountName == "" {
		return nil, newValidationError("account name is required")
	}
	if sub.ID == "" {
		return nil, newValidationError("subscription is required to resolve account %q", accountName)
	}

	client, err := r.accountsClient(sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create accounts client: %w", err)
	}

	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapServiceError(err, "failed to list database accounts")
		}
		for _, acct := range page.Value {
			if acct.Name == nil || *acct.Name != accountName {
				continue
			}
			return accountFromARM(acct)
		}
	}
	return nil, &OpError{
		Kind:    KindNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("database account %q not found in subscription %q", accountName, sub.ID),
	}
}

// PrimaryKey fetches the account's primary master key through the control plane.
func (r *ARMAccountResolver) PrimaryKey(ctx context.Context, sub subscriptions.Subscription, account *Account) (string, error) {
	client, err := r.accountsClient(sub.ID)
	if err != nil {
		return "", fmt.Errorf("failed to create accounts client: %w", err)
	}
	resp, err := client.ListKeys(ctx, account.ResourceGroup, account.Name, nil)
	if err != nil {
		return "", wrapServiceError(err, fmt.Sprintf("failed to list keys for account %q", account.Name))
	}
	if resp.PrimaryMasterKey == nil {
		return "", fmt.Errorf("account %q returned no primary key", account.Name)
	}
	return *resp.PrimaryMasterKey, nil
}

func accountFromARM(acct *armcosmos.DatabaseAccountGetResults) (*Account, error) {
	if acct.ID == nil {
		return nil, fmt.Errorf("account listing returned an entry with no resource ID")
	}
	resourceID, err := arm.ParseResourceID(*acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account resource ID %q: %w", *acct.ID, err)
	}

	account := &Account{
		ResourceID:    *acct.ID,
		ResourceGroup: resourceID.ResourceGroupName,
	}
	if acct.Name != nil {
		account.Name = *acct.Name
	}
	if acct.Location != nil {
		account.Location = *acct.Location
	}
	if acct.Properties != nil && acct.Properties.DocumentEndpoint != nil {
		account.Endpoint = *acct.Properties.DocumentEndpoint
	}
	return account, nil
}

// ARMContainerAdministrator creates containers through the control plane's
// SQL resources API.
type ARMContainerAdministrator struct {
	credential azcore.TokenCredential
	clients    armClients[*armcosmos.SQLResourcesClient]
	logger     zerolog.Logger
}

// NewARMContainerAdministrator creates the control-plane container writer.
func NewARMContainerAdministrator(credential azcore.TokenCredential, logger zerolog.Logger) (*ARMContainerAdministrator, error) {
	if credential == nil {
		return nil, fmt.Errorf("control-plane credential cannot be nil")
	}
	return &ARMContainerAdministrator{
		credential: credential,
		logger:     logger.With().Str("component", "ContainerAdministrator").Logger(),
	}, nil
}

func (a *ARMContainerAdministrator) sqlClient(subscriptionID string) (*armcosmos.SQLResourcesClient, error) {
	return a.clients.getOrCreate(subscriptionID, func() (*armcosmos.SQLResourcesClient, error) {
		return armcosmos.NewSQLResourcesClient(subscriptionID, a.credential, nil)
	})
}

// CreateContainer verifies the target database exists under the account, then
// submits a create-or-update for the container and waits for the long-running
// operation to complete.
func (a *ARMContainerAdministrator) CreateContainer(ctx context.Context, sub subscriptions.Subscription, account *Account, database, name, partitionKeyPath string, throughput *int32) error {
	client, err := a.sqlClient(sub.ID)
	if err != nil {
		return fmt.Errorf("failed to create SQL resources client: %w", err)
	}

	if _, err := client.GetSQLDatabase(ctx, account.ResourceGroup, account.Name, database, nil); err != nil {
		return wrapServiceError(err, fmt.Sprintf("database %q not reachable in account %q", database, account.Name))
	}

	params := armcosmos.SQLContainerCreateUpdateParameters{
		Location: to.Ptr(account.Location),
		Properties: &armcosmos.SQLContainerCreateUpdateProperties{
			Resource: &armcosmos.SQLContainerResource{
				ID: to.Ptr(name),
				PartitionKey: &armcosmos.ContainerPartitionKey{
					Paths: []*string{to.Ptr(partitionKeyPath)},
					Kind:  to.Ptr(armcosmos.PartitionKindHash),
				},
			},
		},
	}
	if throughput != nil {
		params.Properties.Options = &armcosmos.CreateUpdateOptions{Throughput: throughput}
	}

	poller, err := client.BeginCreateUpdateSQLContainer(ctx, account.ResourceGroup, account.Name, database, name, params, nil)
	if err != nil {
		return wrapServiceError(err, fmt.Sprintf("create-or-update rejected for container %q", name))
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return wrapServiceError(err, fmt.Sprintf("create-or-update failed for container %q", name))
	}

	a.logger.Debug().Str("account", account.Name).Str("database", database).Str("container", name).Msg("Control-plane container create completed.")
	return nil
}
