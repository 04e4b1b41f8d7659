// Package engine contains the core agent execution loop.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// MessageStreamer abstracts the Anthropic Messages API so the loop can be tested
// with a mock. Production code passes the real client.Messages.NewStreaming.
type MessageStreamer interface {
	NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

// messageServiceAdapter wraps the real anthropic.MessageService to implement MessageStreamer.
type messageServiceAdapter struct {
	svc *anthropic.MessageService
}

func (a *messageServiceAdapter) NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	return a.svc.NewStreaming(ctx, params)
}

// NewMessageStreamer wraps a real anthropic.MessageService as a MessageStreamer.
func NewMessageStreamer(svc *anthropic.MessageService) MessageStreamer {
	return &messageServiceAdapter{svc: svc}
}

// ToolExecutor executes a tool by name with raw JSON input.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input json.RawMessage) (content string, isError bool, err error)
	ListForAPI() []anthropic.ToolUnionParam
}

// EventSink receives events from the loop. The loop calls these methods instead
// of importing root package event types, breaking the import cycle.
type EventSink interface {
	OnSystem(sessionID string, model anthropic.Model)
	OnStream(delta string)
	OnAssistant(msg anthropic.Message)
	OnApproval(toolName string, approved bool)
	OnResult(info ResultInfo)
}

// HookPreToolResult is the result of running pre-tool-use hooks.
type HookPreToolResult struct {
	Block        bool
	Reason       string
	UpdatedInput json.RawMessage
}

// HookRunner executes hooks at various points in the agent loop.
// Nil means no hooks.
type HookRunner interface {
	RunPreToolUse(ctx context.Context, sessionID, toolName string, input json.RawMessage) (*HookPreToolResult, error)
	RunPostToolUse(ctx context.Context, sessionID, toolName string, input json.RawMessage, output string) error
	RunPostToolFailure(ctx context.Context, sessionID, toolName string, input json.RawMessage, toolErr error) error
	RunToolResult(ctx context.Context, sessionID, toolName string, input json.RawMessage, output string, isError bool) error
	RunApprovalRequest(ctx context.Context, sessionID, toolName string, input json.RawMessage) (*HookPreToolResult, error)
	RunStop(ctx context.Context, sessionID string) error
	RunSessionStart(ctx context.Context, sessionID string) error
	RunSessionEnd(ctx context.Context, sessionID string) error
	RunUserPromptSubmit(ctx context.Context, sessionID, prompt string) error
}

// Gate evaluates whether a tool is allowed to execute.
// Nil means all tools are allowed.
type Gate interface {
	Check(ctx context.Context, toolName string, input json.RawMessage) (int, error) // 0=allow, 1=deny, 2=ask
}

// Approver settles an "ask" decision with a human (or a stand-in).
// Nil means unsettled asks are denied.
type Approver interface {
	Approve(ctx context.Context, toolName string, input json.RawMessage) (bool, error)
}

// ResultInfo contains the data for a result event.
type ResultInfo struct {
	Subtype                  string
	SessionID                string
	IsError                  bool
	NumTurns                 int
	DurationMs               int64
	InputTokens              int64
	OutputTokens             int64
	CacheReadInputTokens     int64
	CacheCreationInputTokens int64
	Errors                   []string
}

// LoopConfig holds everything the agent loop needs to execute.
type LoopConfig struct {
	Streamer  MessageStreamer
	Tools     ToolExecutor
	Model     anthropic.Model
	MaxTokens int
	MaxTurns  int

	// Messages is the mutable message history. The loop appends to it.
	Messages *[]anthropic.MessageParam

	// SystemPrompt is prepended to every API call as a system message.
	SystemPrompt []anthropic.TextBlockParam

	SessionID string
	Sink      EventSink

	// Hooks runs user-defined functions at key points. Nil = no hooks.
	Hooks HookRunner

	// Gate checks tool access before execution. Nil = all tools allowed.
	Gate Gate

	// Approver settles Ask decisions from the Gate. Nil = asks are denied.
	Approver Approver
}

// RunLoop is the core agent execution loop. It runs in the calling goroutine
// and calls Sink methods to emit events. The caller is responsible for
// channel management.
func RunLoop(ctx context.Context, cfg LoopConfig) {
	startTime := time.Now()
	var usage ResultInfo

	cfg.Sink.OnSystem(cfg.SessionID, cfg.Model)

	if cfg.Hooks != nil {
		_ = cfg.Hooks.RunSessionStart(ctx, cfg.SessionID)
		// SessionEnd fires on every exit path.
		defer func() { _ = cfg.Hooks.RunSessionEnd(ctx, cfg.SessionID) }()
	}

	turns := 0

	fail := func(errs ...string) {
		cfg.Sink.OnResult(ResultInfo{
			Subtype:                  "error_during_execution",
			SessionID:                cfg.SessionID,
			IsError:                  true,
			NumTurns:                 turns,
			DurationMs:               time.Since(startTime).Milliseconds(),
			InputTokens:              usage.InputTokens,
			OutputTokens:             usage.OutputTokens,
			CacheReadInputTokens:     usage.CacheReadInputTokens,
			CacheCreationInputTokens: usage.CacheCreationInputTokens,
			Errors:                   errs,
		})
	}

	for {
		if ctx.Err() != nil {
			fail(ctx.Err().Error())
			return
		}

		params := anthropic.MessageNewParams{
			Model:     cfg.Model,
			MaxTokens: int64(cfg.MaxTokens),
			Messages:  *cfg.Messages,
		}
		if len(cfg.SystemPrompt) > 0 {
			params.System = cfg.SystemPrompt
		}
		if tools := cfg.Tools.ListForAPI(); len(tools) > 0 {
			params.Tools = tools
		}

		stream := cfg.Streamer.NewStreaming(ctx, params)
		msg := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				stream.Close()
				fail(fmt.Sprintf("accumulate error: %s", err.Error()))
				return
			}
			if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				cfg.Sink.OnStream(event.Delta.Text)
			}
		}
		if err := stream.Err(); err != nil {
			stream.Close()
			fail(fmt.Sprintf("stream error: %s", err.Error()))
			return
		}
		stream.Close()

		usage.InputTokens += msg.Usage.InputTokens
		usage.OutputTokens += msg.Usage.OutputTokens
		usage.CacheReadInputTokens += msg.Usage.CacheReadInputTokens
		usage.CacheCreationInputTokens += msg.Usage.CacheCreationInputTokens

		cfg.Sink.OnAssistant(msg)
		*cfg.Messages = append(*cfg.Messages, msg.ToParam())

		switch msg.StopReason {
		case anthropic.StopReasonToolUse:
			toolResults := processToolUse(ctx, cfg, msg.Content)
			*cfg.Messages = append(*cfg.Messages,
				anthropic.NewUserMessage(toolResults...))

		case anthropic.StopReasonMaxTokens:
			runStopHooks(ctx, cfg)
			cfg.Sink.OnResult(ResultInfo{
				Subtype:                  "error_max_turns",
				SessionID:                cfg.SessionID,
				IsError:                  true,
				NumTurns:                 turns + 1,
				DurationMs:               time.Since(startTime).Milliseconds(),
				InputTokens:              usage.InputTokens,
				OutputTokens:             usage.OutputTokens,
				CacheReadInputTokens:     usage.CacheReadInputTokens,
				CacheCreationInputTokens: usage.CacheCreationInputTokens,
				Errors:                   []string{"max_tokens reached"},
			})
			return

		default:
			// end_turn and anything unrecognized finish the run.
			runStopHooks(ctx, cfg)
			cfg.Sink.OnResult(ResultInfo{
				Subtype:                  "success",
				SessionID:                cfg.SessionID,
				NumTurns:                 turns + 1,
				DurationMs:               time.Since(startTime).Milliseconds(),
				InputTokens:              usage.InputTokens,
				OutputTokens:             usage.OutputTokens,
				CacheReadInputTokens:     usage.CacheReadInputTokens,
				CacheCreationInputTokens: usage.CacheCreationInputTokens,
			})
			return
		}

		turns++

		if cfg.MaxTurns > 0 && turns >= cfg.MaxTurns {
			runStopHooks(ctx, cfg)
			cfg.Sink.OnResult(ResultInfo{
				Subtype:                  "error_max_turns",
				SessionID:                cfg.SessionID,
				IsError:                  true,
				NumTurns:                 turns,
				DurationMs:               time.Since(startTime).Milliseconds(),
				InputTokens:              usage.InputTokens,
				OutputTokens:             usage.OutputTokens,
				CacheReadInputTokens:     usage.CacheReadInputTokens,
				CacheCreationInputTokens: usage.CacheCreationInputTokens,
				Errors:                   []string{"max turns reached"},
			})
			return
		}
	}
}

// runStopHooks runs Stop hooks if a HookRunner is configured.
func runStopHooks(ctx context.Context, cfg LoopConfig) {
	if cfg.Hooks != nil {
		_ = cfg.Hooks.RunStop(ctx, cfg.SessionID)
	}
}

// processToolUse executes each tool_use block with hook and approval integration.
func processToolUse(ctx context.Context, cfg LoopConfig, content []anthropic.ContentBlockUnion) []anthropic.ContentBlockParamUnion {
	var results []anthropic.ContentBlockParamUnion

	for _, block := range content {
		if block.Type != "tool_use" {
			continue
		}

		toolUse := block.AsToolUse()
		toolInput := json.RawMessage(toolUse.Input)

		// 1. Run PreToolUse hooks — may block or modify input.
		if cfg.Hooks != nil {
			hookResult, err := cfg.Hooks.RunPreToolUse(ctx, cfg.SessionID, toolUse.Name, toolInput)
			if err != nil {
				results = append(results,
					anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("hook error: %s", err.Error()), true))
				continue
			}
			if hookResult != nil {
				if hookResult.Block {
					reason := hookResult.Reason
					if reason == "" {
						reason = "blocked by hook"
					}
					results = append(results,
						anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("tool blocked: %s", reason), true))
					continue
				}
				if hookResult.UpdatedInput != nil {
					toolInput = hookResult.UpdatedInput
				}
			}
		}

		// 2. Approval gate — may deny outright or require a human decision.
		if cfg.Gate != nil {
			decision, err := cfg.Gate.Check(ctx, toolUse.Name, toolInput)
			if err != nil {
				results = append(results,
					anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("approval error: %s", err.Error()), true))
				continue
			}
			switch decision {
			case 1: // Deny
				results = append(results, cancelledResult(toolUse.ID, toolUse.Name, "denied by approval policy"))
				continue
			case 2: // Ask
				approved, reason := settleAsk(ctx, cfg, toolUse.Name, toolInput)
				cfg.Sink.OnApproval(toolUse.Name, approved)
				if !approved {
					results = append(results, cancelledResult(toolUse.ID, toolUse.Name, reason))
					continue
				}
			}
		}

		// 3. Execute tool.
		text, isError, err := cfg.Tools.Execute(ctx, toolUse.Name, toolInput)
		if err != nil {
			// Tool not found or other registry error.
			if cfg.Hooks != nil {
				_ = cfg.Hooks.RunPostToolFailure(ctx, cfg.SessionID, toolUse.Name, toolInput, err)
			}
			results = append(results,
				anthropic.NewToolResultBlock(toolUse.ID, fmt.Sprintf("error: %s", err.Error()), true))
			continue
		}

		// 4. Run PostToolUse or PostToolFailure hooks.
		if cfg.Hooks != nil {
			if isError {
				_ = cfg.Hooks.RunPostToolFailure(ctx, cfg.SessionID, toolUse.Name, toolInput, fmt.Errorf("%s", text))
			} else {
				_ = cfg.Hooks.RunPostToolUse(ctx, cfg.SessionID, toolUse.Name, toolInput, text)
			}
		}

		results = append(results,
			anthropic.NewToolResultBlock(toolUse.ID, text, isError))

		// 5. ToolResult hook fires for every execution regardless of outcome.
		if cfg.Hooks != nil {
			_ = cfg.Hooks.RunToolResult(ctx, cfg.SessionID, toolUse.Name, toolInput, text, isError)
		}
	}

	return results
}

// settleAsk resolves an Ask decision. ApprovalRequest hooks run first and can
// veto; otherwise the configured Approver decides. A gate that asks with
// nobody to answer fails closed.
func settleAsk(ctx context.Context, cfg LoopConfig, toolName string, input json.RawMessage) (bool, string) {
	if cfg.Hooks != nil {
		hookResult, err := cfg.Hooks.RunApprovalRequest(ctx, cfg.SessionID, toolName, input)
		if err != nil {
			return false, fmt.Sprintf("approval hook error: %s", err.Error())
		}
		if hookResult != nil && hookResult.Block {
			reason := hookResult.Reason
			if reason == "" {
				reason = "denied by approval hook"
			}
			return false, reason
		}
	}

	if cfg.Approver != nil {
		approved, err := cfg.Approver.Approve(ctx, toolName, input)
		if err != nil {
			return false, fmt.Sprintf("approver error: %s", err.Error())
		}
		if !approved {
			return false, "denied by human reviewer"
		}
		return true, ""
	}

	return false, "approval required but no approver configured"
}

// cancelledResult builds the tool result for a blocked sensitive operation.
// The wording tells the model no side effects happened.
func cancelledResult(toolUseID, toolName, reason string) anthropic.ContentBlockParamUnion {
	return anthropic.NewToolResultBlock(toolUseID,
		fmt.Sprintf("operation cancelled: %s (%s); no changes were made", toolName, reason), true)
}
