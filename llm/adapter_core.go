package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/SamuelRCrider/piiguard-go/core"
)

// GuardedAdapter sits between a hotel workflow and an AI provider reached
// through an MCP tool. Every request body is inspected before it leaves and
// every response body is inspected before it is returned.
type GuardedAdapter struct {
	client toolCaller
	closer io.Closer
	guard  *core.Guard
	config MCPConfig

	rateLimiter   *RateLimiter
	requestLog    *RequestLogger
	validator     *BodyValidator
	errorReporter *ErrorReporter
}

var _ Adapter = (*GuardedAdapter)(nil)

// NewGuardedAdapter starts the MCP server at serverPath (or a discovered
// one) over stdio and wraps it with guard
func NewGuardedAdapter(ctx context.Context, guard *core.Guard, serverPath string, config *MCPConfig) (*GuardedAdapter, error) {
	serverConfig, err := GetMCPServerConfig(serverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to configure MCP server: %w", err)
	}

	mcpClient, err := client.NewStdioMCPClient(serverConfig.Path, serverConfig.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP stdio client: %w", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "piiguard",
		Version: "1.0.0",
	}
	if _, err := mcpClient.Initialize(ctx, initRequest); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	a := newGuardedAdapter(guard, mcpClient, config, slog.Default())
	a.closer = mcpClient

	slog.Info("Guarded MCP adapter initialized",
		"server", serverConfig.Path,
		"tool", a.config.ToolName,
		"rate_limit", a.config.RateLimitEnabled,
		"audit_level", a.config.AuditLevel)
	return a, nil
}

func newGuardedAdapter(guard *core.Guard, caller toolCaller, config *MCPConfig, logger *slog.Logger) *GuardedAdapter {
	cfg := withDefaults(config)

	var rateLimiter *RateLimiter
	if cfg.RateLimitEnabled {
		rateLimiter = NewRateLimiter(cfg.RequestsPerMinute, time.Minute)
	}

	return &GuardedAdapter{
		client:        caller,
		guard:         guard,
		config:        cfg,
		rateLimiter:   rateLimiter,
		requestLog:    NewRequestLogger(logger, cfg.AuditLevel),
		validator:     NewBodyValidator(cfg.RequestValidation, cfg.ResponseValidation),
		errorReporter: NewErrorReporter(logger),
	}
}

// Config returns the effective configuration
func (a *GuardedAdapter) Config() MCPConfig {
	return a.config
}

// Close stops the MCP server process
func (a *GuardedAdapter) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// ProcessSimplePrompt processes a simple system prompt + user prompt combination
func (a *GuardedAdapter) ProcessSimplePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	conv := &Conversation{
		Role: a.config.Role,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
		},
	}
	return a.ProcessConversation(ctx, conv, userPrompt)
}

// fail reports err and returns it
func (a *GuardedAdapter) fail(err GuardError) error {
	a.errorReporter.ReportError(err)
	return err
}
