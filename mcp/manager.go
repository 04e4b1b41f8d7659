package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// serverConn represents an active connection to a single MCP server.
type serverConn struct {
	name      string
	transport Transport
	tools     []ToolInfo
}

// Manager manages connections to multiple MCP servers and exposes their
// tools under namespaced names.
type Manager struct {
	configs map[string]ServerConfig

	mu      sync.RWMutex
	servers map[string]*serverConn
	bridged map[string]BridgedTool // keyed by full name
}

// NewManager creates a Manager from the given server configurations.
// Call Connect to establish the connections.
func NewManager(configs map[string]ServerConfig) *Manager {
	return &Manager{
		configs: configs,
		servers: make(map[string]*serverConn),
		bridged: make(map[string]BridgedTool),
	}
}

// Connect establishes connections to all configured servers and discovers
// their tools. A failure on any server tears down the ones already connected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, cfg := range m.configs {
		transport, err := NewTransport(cfg)
		if err != nil {
			m.closeLocked()
			return fmt.Errorf("mcp: server %q: %w", name, err)
		}
		if err := transport.Connect(ctx); err != nil {
			m.closeLocked()
			return fmt.Errorf("mcp: server %q: %w", name, err)
		}

		tools, err := transport.ListTools(ctx)
		if err != nil {
			_ = transport.Close()
			m.closeLocked()
			return fmt.Errorf("mcp: server %q: %w", name, err)
		}

		m.servers[name] = &serverConn{name: name, transport: transport, tools: tools}
		for _, tool := range tools {
			bt := BridgedTool{
				ServerName:  name,
				ToolName:    tool.Name,
				FullName:    BridgeToolName(name, tool.Name),
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			}
			m.bridged[bt.FullName] = bt
		}
	}
	return nil
}

// BridgedTools returns all discovered tools across all connected servers.
func (m *Manager) BridgedTools() []BridgedTool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tools := make([]BridgedTool, 0, len(m.bridged))
	for _, bt := range m.bridged {
		tools = append(tools, bt)
	}
	return tools
}

// CallToolRaw invokes a bridged tool by its full namespaced name.
func (m *Manager) CallToolRaw(ctx context.Context, fullName string, args json.RawMessage) (string, bool, error) {
	m.mu.RLock()
	bt, ok := m.bridged[fullName]
	var conn *serverConn
	if ok {
		conn = m.servers[bt.ServerName]
	}
	m.mu.RUnlock()

	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrToolNotFound, fullName)
	}
	if conn == nil {
		return "", false, fmt.Errorf("%w: %s", ErrServerNotFound, bt.ServerName)
	}
	return conn.transport.CallTool(ctx, bt.ToolName, args)
}

// ServerNames returns the names of all connected servers.
func (m *Manager) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	return names
}

// Close disconnects from all servers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

func (m *Manager) closeLocked() {
	for _, sc := range m.servers {
		_ = sc.transport.Close()
	}
	m.servers = make(map[string]*serverConn)
	m.bridged = make(map[string]BridgedTool)
}
