package cosmosgateway_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cosmosgateway"
	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

type MockSubscriptionResolver struct{ mock.Mock }

func (m *MockSubscriptionResolver) Resolve(ctx context.Context, nameOrID string) (subscriptions.Subscription, error) {
	args := m.Called(ctx, nameOrID)
	return args.Get(0).(subscriptions.Subscription), args.Error(1)
}

func setupServiceTest(t *testing.T) (*cosmosgateway.Service, *MockSubscriptionResolver) {
	t.Helper()
	subResolver := new(MockSubscriptionResolver)
	negotiator := &stubNegotiator{results: []negotiationResult{{client: &fakeClient{items: newFakeItemHandle()}}}}
	service, err := cosmosgateway.NewServiceFromComponents(negotiator, new(MockAccountResolver), new(MockContainerAdministrator), subResolver, zerolog.Nop())
	require.NoError(t, err)
	return service, subResolver
}

func TestService_ResolveTarget(t *testing.T) {
	ctx := context.Background()
	service, subResolver := setupServiceTest(t)

	subResolver.On("Resolve", ctx, "Production").Return(testSub, nil).Once()

	target, err := service.ResolveTarget(ctx, "acct-1", "orders-db", "orders", "Production", cosmosgateway.AuthModeSharedKey, "tenant-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", target.Account)
	assert.Equal(t, testSub, target.Subscription)
	assert.Equal(t, cosmosgateway.AuthModeSharedKey, target.Auth)
	assert.Equal(t, "tenant-1", target.TenantID)
	subResolver.AssertExpectations(t)
}

func TestService_ResolveTargetRequiresSubscription(t *testing.T) {
	service, subResolver := setupServiceTest(t)

	_, err := service.ResolveTarget(context.Background(), "acct-1", "db", "", "", "", "", nil)
	require.Error(t, err)
	var opErr *cosmosgateway.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, cosmosgateway.KindValidation, opErr.Kind)
	subResolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestService_CloseIsSafeTwice(t *testing.T) {
	service, _ := setupServiceTest(t)
	require.NoError(t, service.Close())
	require.NoError(t, service.Close())
}

func TestService_GatewaysShareOneClientCache(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{items: newFakeItemHandle()}
	negotiator := &stubNegotiator{results: []negotiationResult{{client: client}}}
	service, err := cosmosgateway.NewServiceFromComponents(negotiator, new(MockAccountResolver), new(MockContainerAdministrator), new(MockSubscriptionResolver), zerolog.Nop())
	require.NoError(t, err)

	target := testTarget("acct-1")
	_, err = service.Items.Create(ctx, target, "o1", []byte(`{"id":"o1"}`))
	require.NoError(t, err)
	_, err = service.Items.Get(ctx, target, "o1", "o1")
	require.NoError(t, err)

	assert.Equal(t, 1, negotiator.callCount(), "item operations must share the cached client")
}
