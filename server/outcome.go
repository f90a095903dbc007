package server

import (
	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
)

// Outcome - Result of a tool handler, either text for the agent or an error.
// It is turned into MCP content only by Render.
type Outcome struct {
	text string
	err  error
}

func textOutcome(text string) Outcome {
	return Outcome{text: text}
}

func errorOutcome(err error) Outcome {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Outcome{err: err}
}

func errorOutcomef(format string, args ...any) Outcome {
	return Outcome{err: errors.Newf(format, args...)}
}

// Err returns the failure, or nil for a successful outcome.
func (o Outcome) Err() error {
	return o.err
}

// Text returns the text shown to the agent, including the "Error: " prefix for failures.
func (o Outcome) Text() string {
	if o.err != nil {
		return "Error: " + o.err.Error()
	}
	return o.text
}

// Render converts the outcome into a single text block.
func (o Outcome) Render() *mcp.CallToolResult {
	if o.err != nil {
		return mcp.NewToolResultError(o.Text())
	}
	return mcp.NewToolResultText(o.text)
}
