package llm

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCPConfig holds configuration for guarded MCP interactions
type MCPConfig struct {
	ToolName     string                 // The MCP tool that reaches the AI provider
	Model        string                 // Model name (e.g., "gpt-4", "claude-3")
	Temperature  float64                // Controls randomness (0.0-1.0)
	MaxTokens    int                    // Maximum tokens to generate
	ExtraParams  map[string]interface{} // Any additional model parameters
	Timeout      time.Duration          // Context timeout for calls
	RetryCount   int                    // Number of retries on failure
	RetryBackoff time.Duration          // Backoff duration between retries

	// Role identifies the calling workflow; it keys rate limiting
	Role string

	RateLimitEnabled   bool             // Enable rate limiting
	RequestsPerMinute  int              // Max requests per minute (for rate limiting)
	AuditLevel         string           // Request logging level: "minimal", "standard", "verbose"
	RequestValidation  ValidationConfig // Request body validation settings
	ResponseValidation ValidationConfig // Response body validation settings
}

// ValidationConfig holds body validation settings
type ValidationConfig struct {
	Enabled            bool // Whether to validate the body
	MaxLength          int  // Maximum body length in bytes
	RequireJSON        bool // Whether the body must be valid JSON
	DisallowCodeBlocks bool // Whether to reject markdown code fences
	DisallowURLs       bool // Whether to reject bodies containing URLs
}

// Conversation represents a sequence of messages
type Conversation struct {
	Messages []Message
	Role     string
}

// NewConversation creates an empty conversation for role
func NewConversation(role string) *Conversation {
	return &Conversation{Role: role, Messages: []Message{}}
}

// AddSystemMessage appends a system message
func (c *Conversation) AddSystemMessage(content string) {
	c.Messages = append(c.Messages, Message{Role: "system", Content: content})
}

// AddUserMessage appends a user message
func (c *Conversation) AddUserMessage(content string) {
	c.Messages = append(c.Messages, Message{Role: "user", Content: content})
}

// AddAssistantMessage appends an assistant message
func (c *Conversation) AddAssistantMessage(content string) {
	c.Messages = append(c.Messages, Message{Role: "assistant", Content: content})
}

// Message represents a single message in a conversation
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Adapter is a guarded path to an AI provider
type Adapter interface {
	// ProcessBody inspects a raw request body, forwards it and inspects the reply
	ProcessBody(ctx context.Context, body []byte) ([]byte, *Exchange, error)

	// Process sends a single input and returns the guarded output
	Process(ctx context.Context, input string) (string, error)

	// ProcessConversation processes a conversation with a new user message
	ProcessConversation(ctx context.Context, conv *Conversation, newUserMessage string) (string, error)

	// ProcessSimplePrompt processes a simple system prompt + user prompt combination
	ProcessSimplePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// toolCaller is the part of the MCP client the adapter needs
type toolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// RateLimitStatus contains rate limit check results
type RateLimitStatus struct {
	Limited   bool
	Count     int
	ResetTime time.Time
}
