// Package piiguard wires the GDPR guard in front of an MCP-reachable AI
// provider. Most callers only need New and Client.Run.
package piiguard

import (
	"context"
	"fmt"
	"os"

	"github.com/SamuelRCrider/piiguard-go/config"
	"github.com/SamuelRCrider/piiguard-go/core"
	"github.com/SamuelRCrider/piiguard-go/llm"
)

// Options configures a Client
type Options struct {
	// PolicyPath is a YAML or JSON policy file. Empty uses the embedded
	// hotel policy.
	PolicyPath string

	// ServerPath is the provider MCP server executable. Empty falls back to
	// MCP_SERVER_PATH and discovery.
	ServerPath string

	// MCP overrides the adapter configuration. Nil uses DefaultMCPConfig.
	MCP *llm.MCPConfig

	// Audit enables the audit trail when non-nil
	Audit *core.AuditConfig
}

// Client is a Guard plus a guarded adapter
type Client struct {
	guard   *core.Guard
	adapter *llm.GuardedAdapter
	audit   *core.AuditLogger
}

// ConfigureMCPServer sets the MCP server used when Options.ServerPath is empty
func ConfigureMCPServer(serverPath string) {
	os.Setenv("MCP_SERVER_PATH", serverPath)
}

// NewGuard builds a guard from policyPath, or from the embedded default
// policy when policyPath is empty. Unlike core.NewGuard it reports an
// unusable policy file instead of falling back.
func NewGuard(policyPath string, opts ...core.GuardOption) (*core.Guard, error) {
	if policyPath == "" {
		doc, err := config.DefaultPolicyDocument()
		if err != nil {
			return nil, fmt.Errorf("failed to parse default policy: %w", err)
		}
		return core.NewGuardWithPolicy(doc, opts...), nil
	}

	if _, err := core.LoadPolicyDocument(policyPath); err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return core.NewGuard(policyPath, opts...), nil
}

// New loads the policy, opens the audit trail and starts the MCP adapter
func New(ctx context.Context, opts Options) (*Client, error) {
	var guardOpts []core.GuardOption
	var audit *core.AuditLogger
	if opts.Audit != nil {
		var err error
		audit, err = core.NewAuditLogger(*opts.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		guardOpts = append(guardOpts, core.WithAuditLogger(audit))
	}

	guard, err := NewGuard(opts.PolicyPath, guardOpts...)
	if err != nil {
		closeAudit(audit)
		return nil, err
	}

	adapter, err := llm.NewGuardedAdapter(ctx, guard, opts.ServerPath, opts.MCP)
	if err != nil {
		closeAudit(audit)
		return nil, fmt.Errorf("failed to initialize MCP adapter: %w", err)
	}

	return &Client{guard: guard, adapter: adapter, audit: audit}, nil
}

// Guard returns the client's guard
func (c *Client) Guard() *core.Guard {
	return c.guard
}

// Adapter returns the client's guarded adapter
func (c *Client) Adapter() *llm.GuardedAdapter {
	return c.adapter
}

// Run sends input through the guarded pipeline
func (c *Client) Run(ctx context.Context, input string) (string, error) {
	output, err := c.adapter.Process(ctx, input)
	if err != nil {
		return "", fmt.Errorf("guarded processing failed: %w", err)
	}
	return output, nil
}

// RunConversation sends a new user message within conv
func (c *Client) RunConversation(ctx context.Context, conv *llm.Conversation, userMessage string) (string, error) {
	output, err := c.adapter.ProcessConversation(ctx, conv, userMessage)
	if err != nil {
		return "", fmt.Errorf("guarded conversation processing failed: %w", err)
	}
	return output, nil
}

// RunSimplePrompt sends a system prompt plus a user prompt
func (c *Client) RunSimplePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	output, err := c.adapter.ProcessSimplePrompt(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("guarded simple prompt processing failed: %w", err)
	}
	return output, nil
}

// Close stops the MCP server and flushes the audit trail
func (c *Client) Close() error {
	err := c.adapter.Close()
	if aerr := closeAudit(c.audit); err == nil {
		err = aerr
	}
	return err
}

func closeAudit(audit *core.AuditLogger) error {
	if audit == nil {
		return nil
	}
	return audit.Close()
}
