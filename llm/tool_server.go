package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/SamuelRCrider/piiguard-go/core"
	"github.com/SamuelRCrider/piiguard-go/utils"
)

// ToolServer exposes the guard as MCP tools so agent runtimes can scan and
// enforce without linking the engine
type ToolServer struct {
	guard *core.Guard
	mcp   *server.MCPServer
}

// NewToolServer registers the scan_object, apply_enforcement, inspect and
// policy_stats tools
func NewToolServer(guard *core.Guard, version string) *ToolServer {
	s := &ToolServer{
		guard: guard,
		mcp: server.NewMCPServer("piiguard", version,
			server.WithToolCapabilities(false),
		),
	}

	s.mcp.AddTool(mcp.NewTool("scan_object",
		mcp.WithDescription("Scan a JSON or text body for personal data and return the violations"),
		mcp.WithString("body", mcp.Required(), mcp.Description("JSON document or plain text to scan")),
		mcp.WithString("data_source", mcp.Description("Label such as request_body or response_body")),
		mcp.WithString("correlation_id", mcp.Description("Identifier copied onto every violation")),
	), s.handleScanObject)

	s.mcp.AddTool(mcp.NewTool("apply_enforcement",
		mcp.WithDescription("Decide allow, block or sanitize for a body given its violations"),
		mcp.WithString("body", mcp.Required(), mcp.Description("JSON document or plain text the violations were found in")),
		mcp.WithString("violations", mcp.Required(), mcp.Description("JSON array of violations from scan_object")),
		mcp.WithString("context", mcp.Description("request, response or test")),
	), s.handleApplyEnforcement)

	s.mcp.AddTool(mcp.NewTool("inspect",
		mcp.WithDescription("Scan and enforce in one step, recording the result in the audit trail"),
		mcp.WithString("body", mcp.Required(), mcp.Description("JSON document or plain text to inspect")),
		mcp.WithString("direction", mcp.Required(), mcp.Description("request or response")),
		mcp.WithString("correlation_id", mcp.Description("Identifier for the exchange")),
	), s.handleInspect)

	s.mcp.AddTool(mcp.NewTool("policy_stats",
		mcp.WithDescription("Summarize the loaded detection policy"),
	), s.handlePolicyStats)

	return s
}

// MCPServer returns the underlying MCP server
func (s *ToolServer) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the tools over stdin/stdout until the input closes
func (s *ToolServer) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *ToolServer) handleScanObject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, ok := stringArg(request, "body")
	if !ok {
		return toolError("body is required"), nil
	}
	source, _ := stringArg(request, "data_source")
	if source == "" {
		source = core.DirectionRequest.DataSource()
	}
	correlationID, _ := stringArg(request, "correlation_id")

	violations := s.guard.ScanObject(core.DecodeBody([]byte(body)), source, correlationID)
	if violations == nil {
		violations = []utils.Violation{}
	}
	return jsonResult(violations)
}

func (s *ToolServer) handleApplyEnforcement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, ok := stringArg(request, "body")
	if !ok {
		return toolError("body is required"), nil
	}
	raw, ok := stringArg(request, "violations")
	if !ok {
		return toolError("violations is required"), nil
	}

	var violations []utils.Violation
	if err := json.Unmarshal([]byte(raw), &violations); err != nil {
		return toolError(fmt.Sprintf("violations is not a JSON array of violations: %v", err)), nil
	}
	enforcementContext, _ := stringArg(request, "context")
	if enforcementContext == "" {
		enforcementContext = "test"
	}

	result := s.guard.ApplyEnforcement(core.DecodeBody([]byte(body)), violations, enforcementContext)
	return jsonResult(result)
}

func (s *ToolServer) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, ok := stringArg(request, "body")
	if !ok {
		return toolError("body is required"), nil
	}
	direction, _ := stringArg(request, "direction")
	switch core.Direction(direction) {
	case core.DirectionRequest, core.DirectionResponse:
	default:
		return toolError(fmt.Sprintf("direction must be request or response, got %q", direction)), nil
	}
	correlationID, _ := stringArg(request, "correlation_id")

	inspection := s.guard.Inspect(core.DecodeBody([]byte(body)), core.Direction(direction), correlationID)
	return jsonResult(inspection)
}

func (s *ToolServer) handlePolicyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.guard.Stats())
}

func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.Params.Arguments[name].(string)
	return v, ok
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func toolError(msg string) *mcp.CallToolResult {
	result := mcp.NewToolResultText(msg)
	result.IsError = true
	return result
}
