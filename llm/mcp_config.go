package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MCPServerConfig describes how to reach the provider-facing MCP server
type MCPServerConfig struct {
	// Path to the MCP server executable
	Path string

	// Extra environment entries ("KEY=value") for the server process
	Env []string
}

// DiscoverMCPServers lists candidate MCP servers from the environment and
// common install locations
func DiscoverMCPServers() ([]MCPServerConfig, error) {
	var servers []MCPServerConfig

	if serverPath := os.Getenv("MCP_SERVER_PATH"); serverPath != "" {
		servers = append(servers, MCPServerConfig{Path: serverPath})
	}

	// MCP_SERVERS is a comma-separated list
	if serverList := os.Getenv("MCP_SERVERS"); serverList != "" {
		for _, server := range strings.Split(serverList, ",") {
			if server = strings.TrimSpace(server); server != "" {
				servers = append(servers, MCPServerConfig{Path: server})
			}
		}
	}

	commonPaths := []string{
		"./mcp-server",
		filepath.Join(os.Getenv("HOME"), ".local/bin/mcp-server"),
		"/usr/local/bin/mcp-server",
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			servers = append(servers, MCPServerConfig{Path: path})
		}
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("no MCP servers discovered; please set MCP_SERVER_PATH or MCP_SERVERS")
	}
	return servers, nil
}

// GetMCPServerConfig returns the server to use. An explicit serverPath takes
// precedence over discovery.
func GetMCPServerConfig(serverPath string) (*MCPServerConfig, error) {
	if strings.HasPrefix(serverPath, "http://") || strings.HasPrefix(serverPath, "https://") {
		return nil, fmt.Errorf("HTTP transport not supported, use a stdio MCP server")
	}
	if serverPath != "" {
		return &MCPServerConfig{Path: serverPath}, nil
	}

	servers, err := DiscoverMCPServers()
	if err != nil {
		return nil, err
	}
	return &servers[0], nil
}

// DefaultMCPConfig returns the defaults, overridden by MCP_TOOL_NAME,
// MCP_MODEL and MCP_TIMEOUT when set
func DefaultMCPConfig() *MCPConfig {
	config := &MCPConfig{
		ToolName:          "llm.chat",
		Model:             "default",
		Temperature:       0.7,
		MaxTokens:         1024,
		Timeout:           30 * time.Second,
		RetryCount:        2,
		RetryBackoff:      500 * time.Millisecond,
		Role:              "default",
		RequestsPerMinute: 60,
		AuditLevel:        "standard",
	}

	if toolName := os.Getenv("MCP_TOOL_NAME"); toolName != "" {
		config.ToolName = toolName
	}
	if model := os.Getenv("MCP_MODEL"); model != "" {
		config.Model = model
	}
	if timeout := os.Getenv("MCP_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Timeout = d
		} else if secs, err := strconv.Atoi(timeout); err == nil {
			config.Timeout = time.Duration(secs) * time.Second
		}
	}
	return config
}

// withDefaults fills the zero-valued fields of config. A nil config yields
// DefaultMCPConfig.
func withDefaults(config *MCPConfig) MCPConfig {
	defaults := DefaultMCPConfig()
	if config == nil {
		return *defaults
	}

	out := *config
	if out.ToolName == "" {
		out.ToolName = defaults.ToolName
	}
	if out.Model == "" {
		out.Model = defaults.Model
	}
	if out.Timeout == 0 {
		out.Timeout = defaults.Timeout
	}
	if out.RetryBackoff == 0 {
		out.RetryBackoff = defaults.RetryBackoff
	}
	if out.Role == "" {
		out.Role = defaults.Role
	}
	if out.RateLimitEnabled && out.RequestsPerMinute == 0 {
		out.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if out.AuditLevel == "" {
		out.AuditLevel = defaults.AuditLevel
	}
	if out.RequestValidation.Enabled && out.RequestValidation.MaxLength == 0 {
		out.RequestValidation.MaxLength = 16384 // 16KB
	}
	if out.ResponseValidation.Enabled && out.ResponseValidation.MaxLength == 0 {
		out.ResponseValidation.MaxLength = 65536 // 64KB
	}
	return out
}
