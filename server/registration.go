package server

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RegisterAllTools - Register every FineData tool with the server
func RegisterAllTools(mcpServer *server.MCPServer, d *Dispatcher) {
	for _, tool := range Tools() {
		zap.S().Debugw("registering tool", "name", tool.Name)
		mcpServer.AddTool(tool, d.Handle)
	}
}
