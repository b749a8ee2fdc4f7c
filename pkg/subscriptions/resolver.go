// Package subscriptions resolves a subscription display name or ID into the
// handle the gateway's account resolution needs.
package subscriptions

import (
	"context"
	"errors"
)

// ErrSubscriptionNotFound is returned when no visible subscription matches the
// requested name or ID.
var ErrSubscriptionNotFound = errors.New("subscriptions: subscription not found")

// Subscription identifies one subscription. ID is the canonical UUID; Name is
// the display name it was resolved from, when known.
type Subscription struct {
	ID       string
	Name     string
	TenantID string
}

// Resolver turns a subscription display name or UUID into a Subscription.
type Resolver interface {
	Resolve(ctx context.Context, nameOrID string) (Subscription, error)
}
