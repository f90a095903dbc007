package server

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cnosuke/mcp-finedata/finedata"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, args Arguments) Outcome

// Dispatcher - Routes tool calls to their handlers
type Dispatcher struct {
	client finedata.Client
}

// NewDispatcher - Create a dispatcher backed by client
func NewDispatcher(client finedata.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) handlerFor(name ToolName) (handlerFunc, bool) {
	switch name {
	case ToolScrapeURL:
		return d.handleScrapeURL, true
	case ToolScrapeAsync:
		return d.handleScrapeAsync, true
	case ToolGetJobStatus:
		return d.handleGetJobStatus, true
	case ToolBatchScrape:
		return d.handleBatchScrape, true
	case ToolGetUsage:
		return d.handleGetUsage, true
	}
	return nil, false
}

// Call runs the named tool. It never panics and never returns a transport-level error:
// unknown tools and handler failures both come back as error outcomes.
func (d *Dispatcher) Call(ctx context.Context, name string, args Arguments) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("tool handler panicked",
				"tool", name,
				"panic", r,
				"stack", string(debug.Stack()))
			out = errorOutcomef("internal error while running %s: %s", name, fmt.Sprint(r))
		}
	}()

	handler, ok := d.handlerFor(ToolName(name))
	if !ok {
		zap.S().Warnw("unknown tool requested", "tool", name)
		return errorOutcomef("Unknown tool '%s'", name)
	}
	if args == nil {
		args = Arguments{}
	}

	out = handler(ctx, args)
	if err := out.Err(); err != nil {
		zap.S().Warnw("tool call failed", "tool", name, "error", err)
	}
	return out
}

// Handle adapts Call to the mcp-go tool handler signature.
func (d *Dispatcher) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return d.Call(ctx, request.Params.Name, Arguments(request.Params.Arguments)).Render(), nil
}
