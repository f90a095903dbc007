package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/cnosuke/mcp-finedata/config"
	"github.com/cnosuke/mcp-finedata/finedata"
	"github.com/cockroachdb/errors"
)

// NewMCPServer - Create an MCP server exposing the FineData tools backed by client
func NewMCPServer(client finedata.Client, name string, version string) *server.MCPServer {
	// Create custom hooks for logging
	hooks := &server.Hooks{}
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		zap.S().Errorw("MCP error occurred",
			"id", id,
			"method", method,
			"error", err,
		)
	})
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest) {
		zap.S().Infow("tool called",
			"id", id,
			"tool", message.Params.Name,
		)
	})

	zap.S().Debugw("creating MCP server",
		"name", name,
		"version", version,
	)
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithHooks(hooks),
		server.WithToolCapabilities(false),
	)

	RegisterAllTools(mcpServer, NewDispatcher(client))
	return mcpServer
}

// Run - Execute the MCP server over stdio until the client disconnects
func Run(cfg *config.Config, name string, version string, revision string) error {
	zap.S().Infow("starting FineData MCP server")

	// Format version string with revision if available
	versionString := version
	if revision != "" && revision != "xxx" {
		versionString = versionString + " (" + revision + ")"
	}

	client, err := finedata.NewHTTPClient(&finedata.Config{
		APIKey:    cfg.FineData.APIKey,
		BaseURL:   cfg.FineData.APIURL,
		Timeout:   cfg.FineData.Timeout,
		UserAgent: name + "/" + version,
	})
	if err != nil {
		zap.S().Errorw("failed to create FineData client", "error", err)
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			zap.S().Warnw("failed to close FineData client", "error", err)
		}
		zap.S().Infow("FineData MCP server stopped")
	}()

	mcpServer := NewMCPServer(client, name, versionString)

	// Start the server with stdio transport
	zap.S().Infow("starting MCP server")
	err = server.ServeStdio(mcpServer, server.WithErrorLogger(zap.NewStdLog(zap.L())))
	// A signal cancels the stdio listener; that is a normal shutdown.
	if err != nil && !errors.Is(err, context.Canceled) {
		zap.S().Errorw("failed to start server", "error", err)
		return errors.Wrap(err, "failed to start server")
	}

	// ServeStdio will block until the server is terminated
	zap.S().Infow("server shutting down")
	return nil
}
