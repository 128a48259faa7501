package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/tools"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// bridgeTool adapts one tool discovered on an MCP server into this
// module's tools.Tool interface. Execution always goes through the
// same internal/executor.Executor dispatch path every built-in tool
// uses (spec.md §6); bridgeTool only needs to translate the call in
// and the result back out.
type bridgeTool struct {
	serverName   string
	originalName string
	name         string
	description  string
	schema       map[string]any
	client       *mcpclient.Client
	conn         *connection
}

func newBridgeTool(serverName, prefix string, mt mcpgo.Tool, client *mcpclient.Client, conn *connection) *bridgeTool {
	return &bridgeTool{
		serverName:   serverName,
		originalName: mt.Name,
		name:         "mcp_" + prefix + "_" + mt.Name,
		description:  mt.Description,
		schema:       convertSchema(mt.InputSchema),
		client:       client,
		conn:         conn,
	}
}

func (t *bridgeTool) Name() string { return t.name }

func (t *bridgeTool) Definition() model.ToolDefinition {
	schema := t.schema
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return model.ToolDefinition{
		Name:        t.name,
		Description: fmt.Sprintf("[mcp:%s] %s", t.serverName, t.description),
		Schema:      schema,
		BasePolicy:  model.PolicyPrompt,
		Mutating:    true,
	}
}

func (t *bridgeTool) Execute(ctx context.Context, args model.Args) (tools.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultToolTimeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.originalName
	req.Params.Arguments = map[string]any(args)

	resp, err := t.client.CallTool(ctx, req)
	if err != nil {
		return tools.Failuref("mcp %s: %v", t.originalName, err), nil
	}
	result := parseCallResult(resp)
	if result.IsError {
		return result, nil
	}
	if path, ok := affectedPath(args); ok {
		result.Data = tools.FileChangeData{Path: path, Kind: model.ChangeUpdate}
	}
	return result, nil
}

// affectedPath guesses which file an opaque MCP tool call touched by
// checking args for the parameter names filesystem-flavored MCP servers
// commonly use. The external tool's own content diff is never visible
// to us, so the reported FileChangeData carries no before/after text -
// it exists only to drive the executor's cache-invalidation path
// (spec.md §8), not to populate an accurate diff.
func affectedPath(args model.Args) (string, bool) {
	for _, key := range []string{"path", "file_path", "filepath", "file"} {
		if v, ok := args[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// parseCallResult converts an MCP CallToolResult into this module's
// tools.Result, collecting every text content block. Non-text content
// (images, embedded resources) is skipped without a trace; the turn
// loop has no image-bearing tool-result path yet.
func parseCallResult(resp *mcpgo.CallToolResult) tools.Result {
	var text string
	for _, block := range resp.Content {
		if tc, ok := block.(mcpgo.TextContent); ok {
			if text != "" {
				text += "\n"
			}
			text += tc.Text
		}
	}
	if resp.IsError {
		if text == "" {
			text = "mcp tool call reported an error"
		}
		return tools.Failuref("%s", text)
	}
	return tools.Success(text)
}

// convertSchema round-trips an MCP input schema through JSON to get a
// plain map[string]any, the shape model.ToolDefinition.Schema expects.
func convertSchema(schema mcpgo.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
