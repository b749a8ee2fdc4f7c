package cosmosgateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/mock"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cosmosgateway"
	"github.com/illmade-knight/go-cosmos-agent/pkg/subscriptions"
)

var testSub = subscriptions.Subscription{ID: "11111111-2222-3333-4444-555555555555", Name: "test-sub"}

// respError fabricates a transport error carrying a numeric status, the way
// the SDK surfaces service failures.
func respError(status int, code string) error {
	return &azcore.ResponseError{StatusCode: status, ErrorCode: code}
}

// --- Mocks ---

type MockClientFactory struct{ mock.Mock }

func (m *MockClientFactory) NewCredentialClient(ctx context.Context, endpoint, tenantID string, opts cosmosgateway.ClientFactoryOptions) (cosmosgateway.DataPlaneClient, error) {
	args := m.Called(ctx, endpoint, tenantID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cosmosgateway.DataPlaneClient), args.Error(1)
}

func (m *MockClientFactory) NewKeyClient(ctx context.Context, endpoint, key string, opts cosmosgateway.ClientFactoryOptions) (cosmosgateway.DataPlaneClient, error) {
	args := m.Called(ctx, endpoint, key, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cosmosgateway.DataPlaneClient), args.Error(1)
}

type MockAccountResolver struct{ mock.Mock }

func (m *MockAccountResolver) Resolve(ctx context.Context, sub subscriptions.Subscription, accountName string) (*cosmosgateway.Account, error) {
	args := m.Called(ctx, sub, accountName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cosmosgateway.Account), args.Error(1)
}

func (m *MockAccountResolver) PrimaryKey(ctx context.Context, sub subscriptions.Subscription, account *cosmosgateway.Account) (string, error) {
	args := m.Called(ctx, sub, account)
	return args.String(0), args.Error(1)
}

type MockDataPlaneClient struct{ mock.Mock }

func (m *MockDataPlaneClient) Validate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *MockDataPlaneClient) Items(database, container string) cosmosgateway.ItemHandle {
	return m.Called(database, container).Get(0).(cosmosgateway.ItemHandle)
}
func (m *MockDataPlaneClient) Containers(database string) cosmosgateway.ContainerReader {
	return m.Called(database).Get(0).(cosmosgateway.ContainerReader)
}
func (m *MockDataPlaneClient) Databases() cosmosgateway.DatabaseReader {
	return m.Called().Get(0).(cosmosgateway.DatabaseReader)
}
func (m *MockDataPlaneClient) Close() error {
	return m.Called().Error(0)
}

type MockItemHandle struct{ mock.Mock }

func (m *MockItemHandle) Create(ctx context.Context, partitionKey string, body []byte) error {
	return m.Called(ctx, partitionKey, body).Error(0)
}
func (m *MockItemHandle) Upsert(ctx context.Context, partitionKey string, body []byte) error {
	return m.Called(ctx, partitionKey, body).Error(0)
}
func (m *MockItemHandle) Read(ctx context.Context, partitionKey, id string) ([]byte, error) {
	args := m.Called(ctx, partitionKey, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
func (m *MockItemHandle) Delete(ctx context.Context, partitionKey, id string) error {
	return m.Called(ctx, partitionKey, id).Error(0)
}

type MockContainerReader struct{ mock.Mock }

func (m *MockContainerReader) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockContainerReader) Read(ctx context.Context, name string) (*cosmosgateway.ContainerState, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cosmosgateway.ContainerState), args.Error(1)
}
func (m *MockContainerReader) ReadThroughput(ctx context.Context, name string) (*int32, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int32), args.Error(1)
}

type MockDatabaseReader struct{ mock.Mock }

func (m *MockDatabaseReader) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockContainerAdministrator struct{ mock.Mock }

func (m *MockContainerAdministrator) CreateContainer(ctx context.Context, sub subscriptions.Subscription, account *cosmosgateway.Account, database, name, partitionKeyPath string, throughput *int32) error {
	return m.Called(ctx, sub, account, database, name, partitionKeyPath, throughput).Error(0)
}

// stubNegotiator counts negotiations and hands out a fixed sequence of
// results, so cache tests can observe exactly how many negotiations happened.
type stubNegotiator struct {
	mu      sync.Mutex
	calls   int
	modes   []cosmosgateway.AuthMode
	results []negotiationResult
}

type negotiationResult struct {
	client cosmosgateway.DataPlaneClient
	err    error
}

func (s *stubNegotiator) CreateClient(_ context.Context, _ string, _ subscriptions.Subscription, mode cosmosgateway.AuthMode, _ string, _ *cosmosgateway.RetryPolicy) (cosmosgateway.DataPlaneClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes = append(s.modes, mode)
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	r := s.results[i]
	return r.client, r.err
}

func (s *stubNegotiator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeItemHandle is an in-memory container keyed by (partition key, id), used
// for the end-to-end scenario. Identity includes the partition key, matching
// the remote service's semantics.
type fakeItemHandle struct {
	mu    sync.Mutex
	items map[[2]string][]byte
}

func newFakeItemHandle() *fakeItemHandle {
	return &fakeItemHandle{items: make(map[[2]string][]byte)}
}

func (f *fakeItemHandle) key(pk string, body []byte) ([2]string, error) {
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return [2]string{}, err
	}
	return [2]string{pk, doc.ID}, nil
}

func (f *fakeItemHandle) Create(_ context.Context, partitionKey string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, err := f.key(partitionKey, body)
	if err != nil {
		return err
	}
	if _, exists := f.items[k]; exists {
		return respError(http.StatusConflict, "Conflict")
	}
	f.items[k] = append([]byte(nil), body...)
	return nil
}

func (f *fakeItemHandle) Upsert(_ context.Context, partitionKey string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, err := f.key(partitionKey, body)
	if err != nil {
		return err
	}
	f.items[k] = append([]byte(nil), body...)
	return nil
}

func (f *fakeItemHandle) Read(_ context.Context, partitionKey, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.items[[2]string{partitionKey, id}]
	if !ok {
		return nil, respError(http.StatusNotFound, "NotFound")
	}
	return body, nil
}

func (f *fakeItemHandle) Delete(_ context.Context, partitionKey, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := [2]string{partitionKey, id}
	if _, ok := f.items[k]; !ok {
		return respError(http.StatusNotFound, "NotFound")
	}
	delete(f.items, k)
	return nil
}

// fakeClient is a minimal DataPlaneClient wrapping a fakeItemHandle.
type fakeClient struct {
	items  *fakeItemHandle
	closed int
	mu     sync.Mutex
}

func (c *fakeClient) Validate(context.Context) error { return nil }
func (c *fakeClient) Items(_, _ string) cosmosgateway.ItemHandle {
	return c.items
}
func (c *fakeClient) Containers(string) cosmosgateway.ContainerReader { return nil }
func (c *fakeClient) Databases() cosmosgateway.DatabaseReader         { return nil }
func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}
func (c *fakeClient) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
