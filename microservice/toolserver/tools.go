package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cosmosgateway"
)

// targetInput is the shared addressing block of every tool call. Fields with
// configured defaults may be omitted by the agent.
type targetInput struct {
	Account      string `json:"account" jsonschema:"Cosmos DB account name"`
	Database     string `json:"database,omitempty" jsonschema:"database name; not needed for account-scoped tools"`
	Subscription string `json:"subscription,omitempty" jsonschema:"subscription name or ID; server default when omitted"`
	AuthMode     string `json:"authMode,omitempty" jsonschema:"credential or key; server default when omitted"`
}

type itemWriteInput struct {
	targetInput
	Container    string          `json:"container" jsonschema:"container name"`
	PartitionKey string          `json:"partitionKey" jsonschema:"partition key value of the item"`
	Item         json.RawMessage `json:"item" jsonschema:"the item as a JSON object with an id field"`
}

type itemKeyInput struct {
	targetInput
	Container    string `json:"container" jsonschema:"container name"`
	PartitionKey string `json:"partitionKey" jsonschema:"partition key value of the item"`
	ID           string `json:"id" jsonschema:"item id"`
}

type containerNameInput struct {
	targetInput
	Container string `json:"container" jsonschema:"container name"`
}

type createContainerInput struct {
	targetInput
	Container        string `json:"container" jsonschema:"name of the container to create"`
	PartitionKeyPath string `json:"partitionKeyPath" jsonschema:"partition key path, e.g. /tenantId"`
	Throughput       *int32 `json:"throughput,omitempty" jsonschema:"provisioned RU/s; omit for serverless or database throughput"`
}

type listOutput struct {
	Names []string `json:"names"`
}

type itemOutput struct {
	Item map[string]any `json:"item"`
}

func (a *App) registerTools() {
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_create_item",
		Description: "Create a new item in a container. Fails with a conflict if an item with the same id and partition key already exists.",
	}, a.handleCreateItem)

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_upsert_item",
		Description: "Create or replace an item in a container.",
	}, a.handleUpsertItem)

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_get_item",
		Description: "Read one item by id and partition key.",
	}, a.handleGetItem)

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_delete_item",
		Description: "Delete one item by id and partition key.",
	}, a.handleDeleteItem)

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_list_databases",
		Description: "List the databases of an account.",
	}, a.handleListDatabases)

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_list_containers",
		Description: "List the containers of a database.",
	}, a.handleListContainers)

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_get_container",
		Description: "Read a container's definition and provisioned throughput. Throughput is null for serverless containers.",
	}, a.handleGetContainer)

	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "cosmos_create_container",
		Description: "Create a container with a hash partition key, optionally with dedicated throughput. Goes through the management plane.",
	}, a.handleCreateContainer)
}

func (a *App) handleCreateItem(ctx context.Context, _ *mcp.CallToolRequest, in itemWriteInput) (*mcp.CallToolResult, *cosmosgateway.ItemOperationResult, error) {
	target, err := a.target(ctx, in.Account, in.Database, in.Container, in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	result, err := a.service.Items.Create(ctx, target, in.PartitionKey, in.Item)
	if err != nil {
		return nil, nil, err
	}
	return nil, result, nil
}

func (a *App) handleUpsertItem(ctx context.Context, _ *mcp.CallToolRequest, in itemWriteInput) (*mcp.CallToolResult, *cosmosgateway.ItemOperationResult, error) {
	target, err := a.target(ctx, in.Account, in.Database, in.Container, in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	result, err := a.service.Items.Upsert(ctx, target, in.PartitionKey, in.Item)
	if err != nil {
		return nil, nil, err
	}
	return nil, result, nil
}

func (a *App) handleGetItem(ctx context.Context, _ *mcp.CallToolRequest, in itemKeyInput) (*mcp.CallToolResult, *itemOutput, error) {
	target, err := a.target(ctx, in.Account, in.Database, in.Container, in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	body, err := a.service.Items.Get(ctx, target, in.PartitionKey, in.ID)
	if err != nil {
		return nil, nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("item %q is not a JSON object: %w", in.ID, err)
	}
	return nil, &itemOutput{Item: doc}, nil
}

func (a *App) handleDeleteItem(ctx context.Context, _ *mcp.CallToolRequest, in itemKeyInput) (*mcp.CallToolResult, *cosmosgateway.ItemOperationResult, error) {
	target, err := a.target(ctx, in.Account, in.Database, in.Container, in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	result, err := a.service.Items.Delete(ctx, target, in.PartitionKey, in.ID)
	if err != nil {
		return nil, nil, err
	}
	return nil, result, nil
}

func (a *App) handleListDatabases(ctx context.Context, _ *mcp.CallToolRequest, in targetInput) (*mcp.CallToolResult, *listOutput, error) {
	target, err := a.target(ctx, in.Account, in.Database, "", in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	names, err := a.service.Databases.List(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	return nil, &listOutput{Names: names}, nil
}

func (a *App) handleListContainers(ctx context.Context, _ *mcp.CallToolRequest, in targetInput) (*mcp.CallToolResult, *listOutput, error) {
	target, err := a.target(ctx, in.Account, in.Database, "", in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	names, err := a.service.Containers.List(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	return nil, &listOutput{Names: names}, nil
}

func (a *App) handleGetContainer(ctx context.Context, _ *mcp.CallToolRequest, in containerNameInput) (*mcp.CallToolResult, *cosmosgateway.ContainerDetails, error) {
	target, err := a.target(ctx, in.Account, in.Database, "", in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	details, err := a.service.Containers.Get(ctx, target, in.Container)
	if err != nil {
		return nil, nil, err
	}
	return nil, details, nil
}

func (a *App) handleCreateContainer(ctx context.Context, _ *mcp.CallToolRequest, in createContainerInput) (*mcp.CallToolResult, *cosmosgateway.ContainerOperationResult, error) {
	target, err := a.target(ctx, in.Account, in.Database, "", in.Subscription, in.AuthMode)
	if err != nil {
		return nil, nil, err
	}
	result, err := a.service.Containers.Create(ctx, target, in.Container, in.PartitionKeyPath, in.Throughput)
	if err != nil {
		return nil, nil, err
	}
	return nil, result, nil
}
