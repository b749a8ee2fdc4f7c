package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cache"
)

const resolutionCacheGroup = "subscription"

// subscriptionLister is the narrow slice of the ARM subscriptions client the
// resolver uses, extracted so tests can substitute it.
type subscriptionLister interface {
	Get(ctx context.Context, subscriptionID string) (Subscription, error)
	List(ctx context.Context) ([]Subscription, error)
}

// ARMResolver resolves subscriptions through the Azure Resource Manager
// subscriptions API. Successful resolutions are cached for 15 minutes.
type ARMResolver struct {
	lister subscriptionLister
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewARMResolver creates a resolver backed by the ARM subscriptions client.
func NewARMResolver(credential azcore.TokenCredential, logger zerolog.Logger) (*ARMResolver, error) {
	client, err := armsubscriptions.NewClient(credential, nil)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: failed to create ARM client: %w", err)
	}
	return newARMResolver(&armSubscriptionLister{client: client}, logger), nil
}

func newARMResolver(lister subscriptionLister, logger zerolog.Logger) *ARMResolver {
	return &ARMResolver{
		lister: lister,
		cache:  cache.New(15 * time.Minute),
		logger: logger.With().Str("component", "SubscriptionResolver").Logger(),
	}
}

// Resolve returns the subscription for a UUID or display name. UUIDs are
// looked up directly; anything else is matched case-insensitively against
// display names after full enumeration.
func (r *ARMResolver) Resolve(ctx context.Context, nameOrID string) (Subscription, error) {
	if strings.TrimSpace(nameOrID) == "" {
		return Subscription{}, fmt.Errorf("subscriptions: name or ID is required")
	}

	key := cache.Key(resolutionCacheGroup, strings.ToLower(nameOrID))
	if cached, ok := r.cache.Get(key); ok {
		return cached.(Subscription), nil
	}

	sub, err := r.lookup(ctx, nameOrID)
	if err != nil {
		return Subscription{}, err
	}
	r.cache.Set(key, sub)
	r.logger.Debug().Str("subscription_id", sub.ID).Str("input", nameOrID).Msg("Resolved subscription.")
	return sub, nil
}

func (r *ARMResolver) lookup(ctx context.Context, nameOrID string) (Subscription, error) {
	if _, err := uuid.Parse(nameOrID); err == nil {
		sub, err := r.lister.Get(ctx, nameOrID)
		if err != nil {
			return Subscription{}, fmt.Errorf("subscriptions: failed to read subscription %q: %w", nameOrID, err)
		}
		return sub, nil
	}

	subs, err := r.lister.List(ctx)
	if err != nil {
		return Subscription{}, fmt.Errorf("subscriptions: failed to list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if strings.EqualFold(sub.Name, nameOrID) {
			return sub, nil
		}
	}
	return Subscription{}, fmt.Errorf("subscriptions: no subscription named %q: %w", nameOrID, ErrSubscriptionNotFound)
}

// armSubscriptionLister adapts the concrete ARM client to subscriptionLister.
type armSubscriptionLister struct {
	client *armsubscriptions.Client
}

func (l *armSubscriptionLister) Get(ctx context.Context, subscriptionID string) (Subscription, error) {
	resp, err := l.client.Get(ctx, subscriptionID, nil)
	if err != nil {
		return Subscription{}, err
	}
	return fromARM(&resp.Subscription), nil
}

func (l *armSubscriptionLister) List(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	pager := l.client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range page.Value {
			subs = append(subs, fromARM(s))
		}
	}
	return subs, nil
}

func fromARM(s *armsubscriptions.Subscription) Subscription {
	sub := Subscription{}
	if s.SubscriptionID != nil {
		sub.ID = *s.SubscriptionID
	}
	if s.DisplayName != nil {
		sub.Name = *s.DisplayName
	}
	if s.TenantID != nil {
		sub.TenantID = *s.TenantID
	}
	return sub
}
