// Package hook defines public types for the agent hook system.
//
// Hooks let users register callbacks that fire before/after tool execution
// and at session boundaries. The [Matcher] type binds a set of [Func]
// callbacks to a specific [Event] and an optional tool-name regex pattern.
// A PreToolUse hook can block a tool or rewrite its input; an
// ApprovalRequest hook can veto an Ask decision before the approver sees it.
package hook

import (
	"context"
	"encoding/json"
	"time"
)

// Event identifies when a hook fires.
type Event string

const (
	PreToolUse         Event = "PreToolUse"
	PostToolUse        Event = "PostToolUse"
	PostToolUseFailure Event = "PostToolUseFailure"
	ToolResult         Event = "ToolResult"
	ApprovalRequest    Event = "ApprovalRequest"
	Stop               Event = "Stop"
	SessionStart       Event = "SessionStart"
	SessionEnd         Event = "SessionEnd"
	UserPromptSubmit   Event = "UserPromptSubmit"
)

// Input is passed to hook functions.
type Input struct {
	SessionID string
	Event     Event
	ToolName  string          // Tool-related events.
	ToolInput json.RawMessage // PreToolUse, PostToolUse, PostToolUseFailure, ToolResult, ApprovalRequest.
	ToolOutput string         // PostToolUse, ToolResult.
	ToolError  error          // PostToolUseFailure, ToolResult.
	IsError    bool           // ToolResult.

	// UserPromptSubmit hook
	Prompt string // The user's prompt text.
}

// Result is returned by hook functions. A zero value means "no action".
type Result struct {
	Block        bool            // If true, blocks the tool from executing.
	Reason       string          // Human-readable reason for blocking.
	UpdatedInput json.RawMessage // If non-nil, replaces the tool input (PreToolUse only).
}

// Func is the signature for hook callbacks.
type Func func(ctx context.Context, input *Input) (*Result, error)

// Matcher defines which events a set of hooks should fire for.
type Matcher struct {
	Event   Event         // Which event to match.
	Pattern string        // Regex pattern for tool name (empty = match all).
	Hooks   []Func        // Functions to call (in order).
	Timeout time.Duration // Max time for all hooks in this matcher (0 = 30s default).
}
