package mcp

import (
	"context"
	"encoding/json"
)

// ToolInfo describes a tool discovered from an MCP server.
type ToolInfo struct {
	// Name is the tool's name as reported by the server.
	Name string

	// Description is a human-readable description of the tool.
	Description string

	// InputSchema is the raw JSON schema for the tool's input.
	InputSchema json.RawMessage
}

// Transport is the interface for communicating with an MCP server.
type Transport interface {
	// Connect establishes the connection and performs the MCP handshake.
	Connect(ctx context.Context) error

	// ListTools discovers available tools from the server.
	ListTools(ctx context.Context) ([]ToolInfo, error)

	// CallTool invokes a tool on the server by name with raw JSON arguments.
	// Returns the tool's text output and whether the server flagged it as
	// an error.
	CallTool(ctx context.Context, name string, args json.RawMessage) (string, bool, error)

	// Close tears down the connection and releases resources.
	Close() error
}

// NewTransport creates a Transport for the given ServerConfig.
// Returns ErrInvalidConfig if the config is not valid.
func NewTransport(cfg ServerConfig) (Transport, error) {
	switch cfg.Transport {
	case TransportStdio, "":
		return NewStdioTransport(cfg)
	default:
		return nil, ErrInvalidConfig
	}
}
