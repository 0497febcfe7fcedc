package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/SamuelRCrider/piiguard-go/core"
)

// Exchange records both inspections of one guarded call
type Exchange struct {
	RequestID string
	Request   core.Inspection
	Response  core.Inspection
	Duration  time.Duration
}

// ProcessBody guards one provider call. The body is validated, rate limited
// and inspected; a blocked body never leaves the process. The (possibly
// sanitized) body is sent to the MCP tool and the reply goes through the
// same inspection before it is returned.
func (a *GuardedAdapter) ProcessBody(ctx context.Context, body []byte) ([]byte, *Exchange, error) {
	requestID := generateRequestID()
	startTime := time.Now()
	exchange := &Exchange{RequestID: requestID}

	requestDetails := map[string]interface{}{
		"role":       a.config.Role,
		"body_bytes": len(body),
	}
	a.requestLog.LogRequest(requestID, requestDetails, "minimal")

	if err := a.validator.ValidateRequest(string(body)); err != nil {
		return nil, exchange, a.fail(newGuardError(ErrorCategoryValidation, err, requestID, nil))
	}

	if a.rateLimiter != nil {
		status := a.rateLimiter.CheckLimit(a.config.Role)
		if status.Limited {
			return nil, exchange, a.fail(newGuardError(ErrorCategoryRateLimit,
				fmt.Errorf("rate limit exceeded: %d requests (limit: %d)", status.Count, a.config.RequestsPerMinute),
				requestID,
				map[string]interface{}{
					"current_count": status.Count,
					"limit":         a.config.RequestsPerMinute,
					"reset_time":    status.ResetTime.Format(time.RFC3339),
				}))
		}
		requestDetails["rate_limit_count"] = status.Count
	}

	exchange.Request = a.guard.Inspect(core.DecodeBody(body), core.DirectionRequest, requestID)
	if err := a.blocked(exchange.Request, requestID); err != nil {
		return nil, exchange, err
	}

	requestDetails["violations"] = len(exchange.Request.Violations)
	requestDetails["sanitized"] = exchange.Request.Result.Modified
	a.requestLog.LogRequest(requestID, requestDetails, "standard")

	output, err := a.callTool(ctx, requestID, exchange.Request.Result.SanitizedData)
	if err != nil {
		return nil, exchange, err
	}

	if err := a.validator.ValidateResponse(output); err != nil {
		return nil, exchange, a.fail(newGuardError(ErrorCategoryValidation,
			fmt.Errorf("response rejected: %w", err), requestID, nil))
	}

	exchange.Response = a.guard.Inspect(core.DecodeBody([]byte(output)), core.DirectionResponse, requestID)
	if err := a.blocked(exchange.Response, requestID); err != nil {
		return nil, exchange, err
	}

	out, err := encodeBody(exchange.Response.Result.SanitizedData)
	if err != nil {
		return nil, exchange, a.fail(newGuardError(ErrorCategorySystem,
			fmt.Errorf("failed to encode response: %w", err), requestID, nil))
	}

	exchange.Duration = time.Since(startTime)
	a.requestLog.LogResponse(requestID, map[string]interface{}{
		"violations":        len(exchange.Response.Violations),
		"sanitized":         exchange.Response.Result.Modified,
		"output_bytes":      len(out),
		"output_tokens_est": estimateTokens(string(out)),
	}, exchange.Duration, "standard")

	return out, exchange, nil
}

// Process sends a single input to the provider and returns the guarded output
func (a *GuardedAdapter) Process(ctx context.Context, input string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": a.config.Model,
		"input": input,
	})
	if err != nil {
		return "", err
	}

	out, _, err := a.ProcessBody(ctx, body)
	if err != nil {
		return "", err
	}
	return outputText(out), nil
}

// blocked turns a blocking inspection into a GuardError
func (a *GuardedAdapter) blocked(inspection core.Inspection, requestID string) error {
	if !inspection.Result.Blocked() {
		return nil
	}

	reason := "PII detected"
	if inspection.Result.BlockReason != nil {
		reason = *inspection.Result.BlockReason
	}
	types := make([]string, 0, len(inspection.Violations))
	for _, v := range inspection.Violations {
		types = append(types, v.Type)
	}

	return a.fail(newGuardError(ErrorCategoryBlocked,
		fmt.Errorf("%s body blocked: %s", inspection.Direction, reason),
		requestID,
		map[string]interface{}{
			"direction":       string(inspection.Direction),
			"violation_types": types,
			"applied_actions": inspection.Result.AppliedActions,
		}))
}

// callTool forwards payload to the provider tool with retries and returns
// the concatenated text content of the result
func (a *GuardedAdapter) callTool(ctx context.Context, requestID string, payload any) (string, error) {
	params := map[string]interface{}{
		"body":        payload,
		"model":       a.config.Model,
		"temperature": a.config.Temperature,
		"max_tokens":  a.config.MaxTokens,
		"request_id":  requestID,
	}
	for k, v := range a.config.ExtraParams {
		params[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	request := mcp.CallToolRequest{}
	request.Params.Name = a.config.ToolName
	request.Params.Arguments = params

	var (
		result    *mcp.CallToolResult
		err       error
		lastError error
	)
	for attempt := 0; attempt <= a.config.RetryCount; attempt++ {
		if attempt > 0 {
			backoffTime := a.config.RetryBackoff * time.Duration(1<<(attempt-1))
			a.requestLog.LogRequest(requestID, map[string]interface{}{
				"retry_attempt":  attempt,
				"backoff_ms":     backoffTime.Milliseconds(),
				"previous_error": lastError.Error(),
			}, "verbose")

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				return "", a.fail(newGuardError(ErrorCategoryTimeout,
					fmt.Errorf("MCP call timeout or canceled: %w", ctx.Err()), requestID, nil))
			}
		}

		result, err = a.client.CallTool(ctx, request)
		lastError = err
		if err == nil {
			break
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", a.fail(newGuardError(ErrorCategoryTimeout,
				fmt.Errorf("MCP call timeout or canceled: %w", err), requestID, nil))
		}
	}

	if err != nil {
		return "", a.fail(newGuardError(categorizeError(err),
			fmt.Errorf("MCP call failed after %d attempts: %w", a.config.RetryCount+1, err),
			requestID, nil))
	}

	var output strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			output.WriteString(textContent.Text)
		}
	}

	if result.IsError {
		return "", a.fail(newGuardError(ErrorCategoryModel,
			fmt.Errorf("MCP tool returned an error: %s", output.String()), requestID, nil))
	}
	return output.String(), nil
}
