// Package cosmosgateway is an account-scoped gateway in front of Azure Cosmos
// DB: it resolves accounts, negotiates authentication with fallback, caches
// data-plane clients per account, and exposes item and container operations.
// Item CRUD and container reads go through the data-plane SDK; container
// creation goes through the control plane, which is the only surface in this
// deployment that can define containers.
package cosmosgateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

// Service is the composition root: one client cache shared by every gateway,
// one control-plane credential, one subscription resolver.
type Service struct {
	Items         *ItemGateway
	Containers    *ContainerGateway
	Databases     *DatabaseGateway
	Subscriptions subscriptions.Resolver

	clients *ClientCache
	logger  zerolog.Logger
}

// ServiceOptions configure the production service.
type ServiceOptions struct {
	// TenantID pins the control-plane credential to a tenant. Empty uses the
	// credential chain's default.
	TenantID string
}

// NewService wires the production service against Azure.
func NewService(_ context.Context, opts ServiceOptions, logger zerolog.Logger) (*Service, error) {
	credential, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{TenantID: opts.TenantID})
	if err != nil {
		return nil, fmt.Errorf("service: failed to build control-plane credential: %w", err)
	}

	resolver, err := NewARMAccountResolver(credential, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	admin, err := NewARMContainerAdministrator(credential, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	negotiator, err := NewAuthNegotiator(NewAzureClientFactory(), resolver, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	subResolver, err := subscriptions.NewARMResolver(credential, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	return NewServiceFromComponents(negotiator, resolver, admin, subResolver, logger)
}

// NewServiceFromComponents assembles a service from pre-built collaborators.
// Production wiring goes through NewService; tests inject doubles here.
func NewServiceFromComponents(negotiator ClientNegotiator, resolver AccountResolver, admin ContainerAdministrator, subResolver subscriptions.Resolver, logger zerolog.Logger) (*Service, error) {
	if subResolver == nil {
		return nil, errors.New("subscription resolver (subscriptions.Resolver interface) cannot be nil")
	}

	clients, err := NewClientCache(negotiator, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	items, err := NewItemGateway(clients, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	containers, err := NewContainerGateway(clients, admin, resolver, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	databases, err := NewDatabaseGateway(clients, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	return &Service{
		Items:         items,
		Containers:    containers,
		Databases:     databases,
		Subscriptions: subResolver,
		clients:       clients,
		logger:        logger.With().Str("component", "CosmosService").Logger(),
	}, nil
}

// ResolveTarget fills a Target from raw request fields, resolving the
// subscription identifier through the configured resolver.
func (s *Service) ResolveTarget(ctx context.Context, account, database, container, subscription string, auth AuthMode, tenantID string, retry *RetryPolicy) (Target, error) {
	if subscription == "" {
		return Target{}, newValidationError("subscription is required")
	}
	sub, err := s.Subscriptions.Resolve(ctx, subscription)
	if err != nil {
		return Target{}, fmt.Errorf("failed to resolve subscription %q: %w", subscription, err)
	}
	return Target{
		Account:      account,
		Database:     database,
		Container:    container,
		Subscription: sub,
		Auth:         auth,
		TenantID:     tenantID,
		Retry:        retry,
	}, nil
}

// Close disposes every cached client. Safe to call more than once.
func (s *Service) Close() error {
	return s.clients.Close()
}
