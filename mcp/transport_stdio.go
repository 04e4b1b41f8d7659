package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// StdioTransport implements Transport for subprocess-based MCP servers.
// It speaks newline-delimited JSON-RPC 2.0 over the subprocess's
// stdin/stdout. A single reader goroutine owns stdout and dispatches
// responses to in-flight calls by request ID, so calls may overlap and a
// cancelled call never leaves a stale reader behind.
type StdioTransport struct {
	config ServerConfig

	cmd   *exec.Cmd
	stdin io.WriteCloser

	nextID atomic.Int64

	mu        sync.Mutex // guards pending, connected, readErr, and writes
	pending   map[int64]chan rpcResponse
	connected bool
	readErr   error // set when the reader goroutine exits
}

var _ Transport = (*StdioTransport)(nil)

// NewStdioTransport creates a StdioTransport from the given config.
// Returns ErrInvalidConfig if Command is empty.
func NewStdioTransport(cfg ServerConfig) (*StdioTransport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("%w: stdio transport requires command", ErrInvalidConfig)
	}
	return &StdioTransport{config: cfg}, nil
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Connect spawns the subprocess and performs the MCP initialize handshake.
func (t *StdioTransport) Connect(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.config.Command, t.config.Args...)
	cmd.Env = os.Environ()
	for k, v := range t.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("mcp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("mcp: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("mcp: start %s: %w", t.config.Command, err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.pending = make(map[int64]chan rpcResponse)
	t.connected = true

	go t.readLoop(bufio.NewReader(stdout))

	_, err = t.call(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "gatekit-go",
			"version": "0.1.0",
		},
	})
	if err != nil {
		_ = t.Close()
		return fmt.Errorf("mcp: initialize: %w", err)
	}

	if err := t.notify("notifications/initialized", nil); err != nil {
		_ = t.Close()
		return fmt.Errorf("mcp: initialized notification: %w", err)
	}

	return nil
}

// readLoop is the only reader of the subprocess's stdout. It routes each
// response to the call waiting on its ID and skips notifications and lines
// that are not JSON-RPC messages. On read error it fails all in-flight calls.
func (t *StdioTransport) readLoop(stdout *bufio.Reader) {
	for {
		line, err := stdout.ReadBytes('\n')
		if err != nil {
			t.mu.Lock()
			t.readErr = err
			for id, ch := range t.pending {
				close(ch)
				delete(t.pending, id)
			}
			t.mu.Unlock()
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue // not a JSON-RPC message we understand
		}
		if resp.ID == nil {
			continue // server-initiated notification
		}

		t.mu.Lock()
		ch, ok := t.pending[*resp.ID]
		if ok {
			delete(t.pending, *resp.ID)
		}
		t.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// ListTools sends tools/list and parses the discovered tools.
func (t *StdioTransport) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := t.call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("mcp: tools/list response: %w", err)
	}

	tools := make([]ToolInfo, 0, len(parsed.Tools))
	for _, tool := range parsed.Tools {
		tools = append(tools, ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return tools, nil
}

// CallTool sends tools/call and extracts the text content of the response.
func (t *StdioTransport) CallTool(ctx context.Context, name string, args json.RawMessage) (string, bool, error) {
	arguments := json.RawMessage(`{}`)
	if len(args) > 0 {
		arguments = args
	}

	result, err := t.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": arguments,
	})
	if err != nil {
		return "", false, err
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return "", false, fmt.Errorf("mcp: tools/call response: %w", err)
	}

	var b strings.Builder
	for _, c := range parsed.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String(), parsed.IsError, nil
}

// Close shuts down the subprocess: stdin is closed to signal EOF, then the
// process is killed if it has not already exited. The reader goroutine exits
// on the resulting read error and fails any in-flight calls.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false
	t.mu.Unlock()

	if t.stdin != nil {
		_ = t.stdin.Close()
	}
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
		_ = t.cmd.Wait()
	}
	return nil
}

// call sends a request and blocks until the matching response arrives or the
// context is cancelled. Cancellation removes the call's pending entry; the
// reader keeps running and later responses for abandoned IDs are dropped.
func (t *StdioTransport) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := t.nextID.Add(1)
	ch := make(chan rpcResponse, 1)

	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil, ErrNotConnected
	}
	if t.readErr != nil {
		err := t.readErr
		t.mu.Unlock()
		return nil, fmt.Errorf("mcp: read response: %w", err)
	}
	t.pending[id] = ch
	err := t.send(rpcRequest{Jsonrpc: "2.0", ID: &id, Method: method, Params: params})
	t.mu.Unlock()
	if err != nil {
		t.dropPending(id)
		return nil, err
	}

	select {
	case <-ctx.Done():
		t.dropPending(id)
		return nil, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			t.mu.Lock()
			err := t.readErr
			t.mu.Unlock()
			return nil, fmt.Errorf("mcp: read response: %w", err)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("mcp: %s failed: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	}
}

func (t *StdioTransport) dropPending(id int64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// notify sends a request without an ID and does not wait for a response.
func (t *StdioTransport) notify(method string, params any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return ErrNotConnected
	}
	return t.send(rpcRequest{Jsonrpc: "2.0", Method: method, Params: params})
}

// send writes a newline-terminated JSON-RPC frame. Callers hold t.mu.
func (t *StdioTransport) send(req rpcRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("mcp: marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := t.stdin.Write(data); err != nil {
		return fmt.Errorf("mcp: write request: %w", err)
	}
	return nil
}
