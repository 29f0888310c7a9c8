package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/openscholar/scholarship-agent/internal/config"
	"github.com/openscholar/scholarship-agent/internal/logger"
)

// mcpCaller is the subset of the MCP client the adapter needs; it keeps
// the provider mockable in tests.
type mcpCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCP exposes a search tool hosted on an MCP server as a search adapter.
// The tool receives {"query": ...} and is expected to return either a
// JSON array of {title,url,snippet} objects or plain text.
type MCP struct {
	client mcpCaller
	tool   string
}

// NewMCP connects to the configured MCP server and initializes it.
func NewMCP(cfg config.MCPConfig) (*MCP, error) {
	if cfg.URL == "" || cfg.Tool == "" {
		return nil, fmt.Errorf("mcp search: url and tool are required")
	}

	var (
		mcpC *client.Client
		err  error
	)
	switch cfg.Type {
	case "sse":
		mcpC, err = client.NewSSEMCPClient(cfg.URL)
	case "streamable_http", "":
		mcpC, err = client.NewStreamableHttpClient(cfg.URL)
	default:
		return nil, fmt.Errorf("mcp search: unsupported client type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("mcp search: create client: %w", err)
	}

	ctx := context.Background()
	if err := mcpC.Start(ctx); err != nil {
		if cerr := mcpC.Close(); cerr != nil {
			logger.L.Warn("mcp client close error after start failure", "error", cerr)
		}
		return nil, fmt.Errorf("mcp search: start transport: %w", err)
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{Capabilities: mcp.ClientCapabilities{}},
	}
	if _, err := mcpC.Initialize(ctx, initReq); err != nil {
		if cerr := mcpC.Close(); cerr != nil {
			logger.L.Warn("mcp client close error after init failure", "error", cerr)
		}
		return nil, fmt.Errorf("mcp search: initialize: %w", err)
	}
	logger.L.Info("mcp search provider initialized", "url", cfg.URL, "tool", cfg.Tool)

	return &MCP{client: mcpC, tool: cfg.Tool}, nil
}

// Search calls the configured tool and decodes its text content.
func (m *MCP) Search(ctx context.Context, query string) ([]Result, error) {
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      m.tool,
			Arguments: map[string]any{"query": query},
		},
	}
	res, err := m.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty tool result", ErrUnavailable)
	}

	text := ""
	for _, item := range res.Content {
		if tc, ok := item.(mcp.TextContent); ok {
			text = tc.Text
			break
		}
	}
	if res.IsError {
		if text == "" {
			text = "tool execution failed without detail"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, text)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: tool returned no text content", ErrUnavailable)
	}

	var results []Result
	if err := json.Unmarshal([]byte(text), &results); err == nil {
		return results, nil
	}
	// Plain-text tools still yield one usable snippet.
	return []Result{{Title: "Search result", Snippet: text}}, nil
}

// Close releases the MCP client.
func (m *MCP) Close() error {
	return m.client.Close()
}
