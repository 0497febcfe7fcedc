package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamuelRCrider/piiguard-go/core"
	"github.com/SamuelRCrider/piiguard-go/utils"
)

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolScanObject(t *testing.T) {
	s := NewToolServer(testGuard(core.ModeSanitize), "test")

	result, err := s.handleScanObject(context.Background(), callRequest(map[string]interface{}{
		"body":           `{"guest": {"passport": "A1234567"}}`,
		"correlation_id": "corr-1",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var violations []utils.Violation
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &violations))
	require.Len(t, violations, 1)
	assert.Equal(t, "guest.passport", violations[0].Path())
	assert.Equal(t, "request_body", violations[0].DataSource)
	assert.Equal(t, "corr-1", violations[0].CorrelationID)
}

func TestToolScanObjectClean(t *testing.T) {
	s := NewToolServer(testGuard(core.ModeSanitize), "test")

	result, err := s.handleScanObject(context.Background(), callRequest(map[string]interface{}{
		"body": "nothing personal",
	}))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestToolApplyEnforcement(t *testing.T) {
	s := NewToolServer(testGuard(core.ModeSanitize), "test")
	body := `{"message": "Card 4532015112830366"}`

	scan, err := s.handleScanObject(context.Background(), callRequest(map[string]interface{}{"body": body}))
	require.NoError(t, err)

	result, err := s.handleApplyEnforcement(context.Background(), callRequest(map[string]interface{}{
		"body":       body,
		"violations": resultText(t, scan),
	}))
	require.NoError(t, err)

	var enforcement core.EnforcementResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &enforcement))
	assert.True(t, enforcement.Modified)
	assert.Equal(t, "test", enforcement.Context)
	assert.Equal(t, map[string]any{"message": "Card ****************"}, enforcement.SanitizedData)
}

func TestToolInspect(t *testing.T) {
	s := NewToolServer(testGuard(core.ModeBlock), "test")

	result, err := s.handleInspect(context.Background(), callRequest(map[string]interface{}{
		"body":      "passport A1234567",
		"direction": "response",
	}))
	require.NoError(t, err)

	var inspection core.Inspection
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &inspection))
	assert.Equal(t, core.DirectionResponse, inspection.Direction)
	assert.True(t, inspection.Result.Blocked())
	assert.NotEmpty(t, inspection.CorrelationID)
}

func TestToolArgumentErrors(t *testing.T) {
	s := NewToolServer(testGuard(core.ModeBlock), "test")
	ctx := context.Background()

	result, err := s.handleScanObject(ctx, callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleApplyEnforcement(ctx, callRequest(map[string]interface{}{
		"body":       "x",
		"violations": "not json",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleInspect(ctx, callRequest(map[string]interface{}{
		"body":      "x",
		"direction": "sideways",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "sideways")
}

func TestToolPolicyStats(t *testing.T) {
	s := NewToolServer(testGuard(core.ModeWarn), "test")
	require.NotNil(t, s.MCPServer())

	result, err := s.handlePolicyStats(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var stats core.Stats
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &stats))
	assert.Equal(t, 2, stats.PatternCount)
	assert.Equal(t, "warn", stats.Mode)
	assert.Equal(t, []string{"financial", "identifier"}, stats.Categories)
}
