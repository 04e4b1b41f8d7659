// Package mcp provides an MCP (Model Context Protocol) client for connecting
// to external tool servers over stdio. It bridges remote MCP tools into the
// agent's local ToolRegistry so the agent loop can call them transparently.
package mcp

// TransportType identifies the MCP transport protocol.
type TransportType string

const (
	// TransportStdio communicates via a subprocess's stdin/stdout.
	TransportStdio TransportType = "stdio"
)

// ServerConfig describes how to connect to a single MCP server.
type ServerConfig struct {
	// Command is the executable to spawn.
	Command string

	// Args are command-line arguments for the subprocess.
	Args []string

	// Env are extra environment variables for the subprocess, merged over
	// the parent process environment.
	Env map[string]string

	// Transport selects the communication protocol. Empty defaults to stdio.
	Transport TransportType
}
