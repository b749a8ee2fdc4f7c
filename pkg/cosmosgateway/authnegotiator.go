package cosmosgateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

// authState models the negotiation explicitly: one primary attempt, at most
// one fallback, then terminal failure. There is no oscillation and no fallback
// from shared-key back to credential auth.
type authState int

const (
	tryPrimary authState = iota
	tryFallback
	authFailed
)

// connectRequest carries everything one negotiation attempt needs.
type connectRequest struct {
	accountName  string
	subscription subscriptions.Subscription
	tenantID     string
	retry        *RetryPolicy
}

// AuthNegotiator produces working data-plane clients. It is stateless and
// keeps no client references; the ClientCache owns whatever it returns.
type AuthNegotiator struct {
	factory  ClientFactory
	resolver AccountResolver
	logger   zerolog.Logger
}

// NewAuthNegotiator creates a negotiator from a client factory and an account
// resolver. The resolver is consulted only for shared-key attempts.
func NewAuthNegotiator(factory ClientFactory, resolver AccountResolver, logger zerolog.Logger) (*AuthNegotiator, error) {
	if factory == nil {
		return nil, errors.New("client factory (ClientFactory interface) cannot be nil")
	}
	if resolver == nil {
		return nil, errors.New("account resolver (AccountResolver interface) cannot be nil")
	}
	return &AuthNegotiator{
		factory:  factory,
		resolver: resolver,
		logger:   logger.With().Str("component", "AuthNegotiator").Logger(),
	}, nil
}

// CreateClient builds and validates a client for the account, trying the
// requested mode first. A credential attempt rejected with 401 or 403 is
// retried exactly once with shared-key auth; any other failure, or a failure
// after fallback, is terminal and surfaced as KindAuthFailure.
func (n *AuthNegotiator) CreateClient(ctx context.Context, accountName string, sub subscriptions.Subscription, mode AuthMode, tenantID string, retry *RetryPolicy) (DataPlaneClient, error) {
	if mode == "" {
		mode = AuthModeCredential
	}
	req := connectRequest{accountName: accountName, subscription: sub, tenantID: tenantID, retry: retry}
	log := n.logger.With().Str("account", accountName).Logger()

	state := tryPrimary
	var lastErr error
	for state != authFailed {
		client, err := n.connect(ctx, req, mode)
		if err == nil {
			if state == tryFallback {
				log.Warn().Msg("Credential auth rejected; connected with shared key fallback.")
			}
			return client, nil
		}
		lastErr = err

		if state == tryPrimary && mode == AuthModeCredential && IsUnauthorized(err) {
			log.Info().Int("status", StatusOf(err)).Msg("Credential auth rejected, attempting shared key fallback.")
			state = tryFallback
			mode = AuthModeSharedKey
			continue
		}
		state = authFailed
	}

	return nil, &OpError{
		Kind:    KindAuthFailure,
		Status:  StatusOf(lastErr),
		Message: fmt.Sprintf("authentication failed for account %q", accountName),
		cause:   lastErr,
	}
}

// connect performs one construct-and-validate cycle for a single mode.
func (n *AuthNegotiator) connect(ctx context.Context, req connectRequest, mode AuthMode) (DataPlaneClient, error) {
	opts := ClientFactoryOptions{Retry: req.retry}

	var client DataPlaneClient
	switch mode {
	case AuthModeSharedKey:
		account, err := n.resolver.Resolve(ctx, req.subscription, req.accountName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve account %q: %w", req.accountName, err)
		}
		key, err := n.resolver.PrimaryKey(ctx, req.subscription, account)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch primary key for account %q: %w", req.accountName, err)
		}
		client, err = n.factory.NewKeyClient(ctx, account.Endpoint, key, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to construct shared-key client: %w", err)
		}
	case AuthModeCredential:
		var err error
		client, err = n.factory.NewCredentialClient(ctx, accountEndpoint(req.accountName), req.tenantID, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to construct credential client: %w", err)
		}
	default:
		return nil, newValidationError("unknown auth mode %q", mode)
	}

	if err := client.Validate(ctx); err != nil {
		_ = client.Close()
		return nil, wrapServiceError(err, fmt.Sprintf("client validation failed for account %q", req.accountName))
	}
	return client, nil
}

// accountEndpoint derives the data-plane endpoint from the account name. The
// control-plane descriptor is the authority where one has been resolved; this
// template keeps credential auth free of a control-plane round-trip.
func accountEndpoint(accountName string) string {
	return fmt.Sprintf("https://%s.documents.azure.com:443/", accountName)
}
