// Package toolserver exposes the cosmos gateway to a tool-calling agent over
// the Model Context Protocol. Each gateway operation is registered as one MCP
// tool; results are the gateway's JSON envelopes, and failures surface as tool
// errors carrying the gateway's status detail.
package toolserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cosmosgateway"
)

const serverVersion = "0.1.0"

// App is the running tool server: one MCP server over one gateway service.
type App struct {
	server  *mcp.Server
	service *cosmosgateway.Service
	config  *Config
	logger  zerolog.Logger
}

// NewApp creates the tool server and registers every tool.
func NewApp(ctx context.Context, cfg *Config, logger zerolog.Logger) (*App, error) {
	service, err := cosmosgateway.NewService(ctx, cosmosgateway.ServiceOptions{TenantID: cfg.TenantID}, logger)
	if err != nil {
		return nil, fmt.Errorf("toolserver: failed to create gateway service: %w", err)
	}
	return NewAppFromService(service, cfg, logger), nil
}

// NewAppFromService assembles the app around an existing service. Tests use
// this to inject a service built from doubles.
func NewAppFromService(service *cosmosgateway.Service, cfg *Config, logger zerolog.Logger) *App {
	app := &App{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "cosmos-gateway",
			Version: serverVersion,
		}, nil),
		service: service,
		config:  cfg,
		logger:  logger.With().Str("component", "ToolServer").Logger(),
	}
	app.registerTools()
	return app
}

// Run serves MCP over stdio until the context is cancelled or the transport
// closes, then disposes every cached client.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Str("version", serverVersion).Msg("Tool server starting on stdio.")
	defer func() {
		if err := a.service.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close gateway service cleanly.")
		}
	}()
	return a.server.Run(ctx, &mcp.StdioTransport{})
}

// target resolves the shared request fields of a tool call, applying the
// configured defaults for anything the agent omitted.
func (a *App) target(ctx context.Context, account, database, container, subscription, authMode string) (cosmosgateway.Target, error) {
	if subscription == "" {
		subscription = a.config.DefaultSubscription
	}
	if authMode == "" {
		authMode = a.config.DefaultAuthMode
	}
	return a.service.ResolveTarget(ctx, account, database, container, subscription,
		cosmosgateway.AuthMode(authMode), a.config.TenantID, a.config.RetryPolicy())
}
