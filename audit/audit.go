// Package audit records tool activity and approval decisions as structured
// log entries. A [Recorder] exposes hook matchers that plug into an agent via
// WithHooks, so every tool call, denial, and approval request ends up in the
// log with the session it belongs to.
package audit

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/gatekit/gatekit-go/hook"
)

// Recorder logs agent activity through slog.
type Recorder struct {
	logger *slog.Logger
	closer io.Closer // non-nil when the recorder owns the output file
}

// New creates a Recorder writing through the given logger.
// A nil logger uses slog.Default().
func New(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

// NewFile creates a Recorder that appends JSON lines to the given path.
func NewFile(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	handler := slog.NewJSONHandler(f, nil)
	return &Recorder{logger: slog.New(handler), closer: f}, nil
}

// Matchers returns the hook matchers that feed the recorder. Register them
// on an agent with WithHooks.
func (r *Recorder) Matchers() []hook.Matcher {
	return []hook.Matcher{
		{Event: hook.SessionStart, Hooks: []hook.Func{r.onSessionStart}},
		{Event: hook.SessionEnd, Hooks: []hook.Func{r.onSessionEnd}},
		{Event: hook.PreToolUse, Hooks: []hook.Func{r.onPreToolUse}},
		{Event: hook.ToolResult, Hooks: []hook.Func{r.onToolResult}},
		{Event: hook.ApprovalRequest, Hooks: []hook.Func{r.onApprovalRequest}},
	}
}

// Close closes the underlying log file, if the recorder owns one.
func (r *Recorder) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Recorder) onSessionStart(ctx context.Context, in *hook.Input) (*hook.Result, error) {
	r.logger.InfoContext(ctx, "session started", "session_id", in.SessionID)
	return nil, nil
}

func (r *Recorder) onSessionEnd(ctx context.Context, in *hook.Input) (*hook.Result, error) {
	r.logger.InfoContext(ctx, "session ended", "session_id", in.SessionID)
	return nil, nil
}

func (r *Recorder) onPreToolUse(ctx context.Context, in *hook.Input) (*hook.Result, error) {
	r.logger.InfoContext(ctx, "tool call",
		"session_id", in.SessionID,
		"tool", in.ToolName,
		"input", string(in.ToolInput))
	return nil, nil
}

func (r *Recorder) onToolResult(ctx context.Context, in *hook.Input) (*hook.Result, error) {
	if in.IsError {
		r.logger.WarnContext(ctx, "tool failed",
			"session_id", in.SessionID,
			"tool", in.ToolName,
			"output", in.ToolOutput)
		return nil, nil
	}
	r.logger.InfoContext(ctx, "tool succeeded",
		"session_id", in.SessionID,
		"tool", in.ToolName)
	return nil, nil
}

func (r *Recorder) onApprovalRequest(ctx context.Context, in *hook.Input) (*hook.Result, error) {
	r.logger.InfoContext(ctx, "approval requested",
		"session_id", in.SessionID,
		"tool", in.ToolName,
		"input", string(in.ToolInput))
	return nil, nil
}
