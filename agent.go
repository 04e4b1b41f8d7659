package gatekit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/gatekit/gatekit-go/approval"
	"github.com/gatekit/gatekit-go/conversation"
	"github.com/gatekit/gatekit-go/internal/config"
	"github.com/gatekit/gatekit-go/internal/engine"
	"github.com/gatekit/gatekit-go/internal/hookrunner"
	"github.com/gatekit/gatekit-go/runctx"
)

// Agent is a stateless execution engine that holds configuration, tools,
// approval policy, and hooks. The same Agent can be safely shared across
// multiple goroutines and Clients.
type Agent struct {
	apiClient *anthropic.Client
	tools     *ToolRegistry
	opts      agentOptions
}

// NewAgent creates a new Agent with the given options.
// The Agent is stateless — it does not hold any session or conversation history.
func NewAgent(opts ...AgentOption) *Agent {
	// Capture user-set values before applying defaults
	var userSet agentOptions
	for _, fn := range opts {
		fn(&userSet)
	}

	resolved := resolveOptions(opts)

	// Apply settings overrides from JSON config files.
	// User-explicit options take precedence over file-based settings.
	if len(resolved.settingSources) > 0 {
		settings, err := config.LoadSettings(resolved.settingSources...)
		if err == nil {
			applySettings(&resolved, settings, &userSet)
		}
	}

	client := anthropic.NewClient()

	return &Agent{
		apiClient: &client,
		tools:     NewToolRegistry(),
		opts:      resolved,
	}
}

// applySettings merges loaded settings into resolved options.
// Options set explicitly via WithXxx take precedence over settings files.
// We check against zero values to detect whether the user set an explicit option.
func applySettings(o *agentOptions, s *config.Settings, userSet *agentOptions) {
	if userSet.model == "" && s.Model != "" {
		o.model = anthropic.Model(s.Model)
	}
	if userSet.systemPrompt == "" && s.SystemPrompt != "" {
		o.systemPrompt = s.SystemPrompt
	}
	if userSet.maxTurns == 0 && s.MaxTurns > 0 {
		o.maxTurns = s.MaxTurns
	}
	if userSet.approvalMode == approval.ModeDefault && s.ApprovalMode != "" {
		switch s.ApprovalMode {
		case "alwaysAsk":
			o.approvalMode = approval.ModeAlwaysAsk
		case "bypass":
			o.approvalMode = approval.ModeBypass
		}
	}
	if len(userSet.approvalRules) == 0 && len(s.ApprovalRules) > 0 {
		o.approvalRules = rulesFromSettings(s.ApprovalRules)
	}
	if userSet.store == nil && s.ConversationDir != "" {
		if fs, err := conversation.NewFileStore(s.ConversationDir); err == nil {
			o.store = fs
		}
	}
}

// rulesFromSettings converts file-based rule definitions into approval.Rules.
// Unknown decisions default to ask rather than allow.
func rulesFromSettings(defs []config.ApprovalRule) []approval.Rule {
	rules := make([]approval.Rule, 0, len(defs))
	for _, d := range defs {
		r := approval.Rule{Pattern: d.Pattern}
		switch d.Decision {
		case "allow":
			r.Decision = approval.Allow
		case "deny":
			r.Decision = approval.Deny
		default:
			r.Decision = approval.Ask
		}
		if d.ThresholdField != "" {
			r.Threshold = &approval.Threshold{Field: d.ThresholdField, Max: d.ThresholdMax}
		}
		rules = append(rules, r)
	}
	return rules
}

// Tools returns the agent's tool registry for registering custom tools.
func (a *Agent) Tools() *ToolRegistry {
	return a.tools
}

// Run starts a single-shot agent execution with a new session.
// Returns an AgentStream for iterating over events.
func (a *Agent) Run(ctx context.Context, prompt string) *AgentStream {
	return a.RunWithSession(ctx, NewSession(), prompt)
}

// RunWithSession starts an agent execution using an existing session.
// The session's message history is preserved and extended.
func (a *Agent) RunWithSession(ctx context.Context, session *Session, prompt string) *AgentStream {
	if a.opts.runCtx != nil {
		ctx = AttachRunContext(ctx, a.opts.runCtx)
	}
	ctx = WithSessionID(ctx, session.ID)

	var runner *hookrunner.Runner
	if len(a.opts.matchers) > 0 {
		runner, _ = hookrunner.New(a.opts.matchers)
	}
	if runner != nil {
		_ = runner.RunUserPromptSubmit(ctx, session.ID, prompt)
	}

	session.Messages = append(session.Messages,
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
	session.Metadata.Model = a.opts.model

	eventCh := make(chan Event, a.opts.streamBufferSize)
	stream := newStream(eventCh, session)

	cfg := engine.LoopConfig{
		Streamer:  engine.NewMessageStreamer(&a.apiClient.Messages),
		Tools:     &toolExecutorAdapter{registry: a.tools},
		Model:     a.opts.model,
		MaxTokens: a.opts.maxOutputTokens,
		MaxTurns:  a.opts.maxTurns,
		Messages:  &session.Messages,
		SessionID: session.ID,
		Sink:      &channelSink{ch: eventCh, session: session},
	}

	// The run context is rendered fresh on every run so tools that mutate it
	// are reflected in the next system prompt.
	systemPrompt := a.opts.systemPrompt
	if a.opts.runCtx != nil {
		if section := a.opts.runCtx.PromptSection(); section != "" {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += section
		}
	}
	if systemPrompt != "" {
		cfg.SystemPrompt = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	// Wire hooks
	if runner != nil {
		cfg.Hooks = &hookRunnerAdapter{runner: runner}
	}

	// Wire approval gate
	if a.opts.approvalMode != approval.ModeDefault || len(a.opts.approvalRules) > 0 {
		gate := approval.NewGate(a.opts.approvalMode, a.opts.approvalRules, nil)
		cfg.Gate = &gateAdapter{gate: gate}
	}

	// Wire approver: a queue takes precedence over a plain callback.
	switch {
	case a.opts.queue != nil:
		cfg.Approver = &approverAdapter{fn: a.opts.queue.Func()}
	case a.opts.approver != nil:
		cfg.Approver = &approverAdapter{fn: a.opts.approver}
	}

	go func() {
		defer close(eventCh)
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			eventCh <- &ResultEvent{
				Subtype:   "error_during_execution",
				SessionID: session.ID,
				IsError:   true,
				Result:    "error: " + ErrMissingCredential.Error(),
				Errors:    []string{ErrMissingCredential.Error()},
			}
			return
		}
		engine.RunLoop(ctx, cfg)
	}()

	return stream
}

// Model returns the configured model.
func (a *Agent) Model() anthropic.Model {
	return a.opts.model
}

// RunContext returns the configured per-run context, or nil if none was set.
func (a *Agent) RunContext() *runctx.Context {
	return a.opts.runCtx
}

// toolExecutorAdapter wraps ToolRegistry to implement engine.ToolExecutor.
type toolExecutorAdapter struct {
	registry *ToolRegistry
}

func (t *toolExecutorAdapter) Execute(ctx context.Context, name string, input json.RawMessage) (string, bool, error) {
	result, err := t.registry.Execute(ctx, name, input)
	if err != nil {
		return "", false, err
	}
	text := extractTextFromBlocks(result.Content)
	return text, result.IsError, nil
}

func (t *toolExecutorAdapter) ListForAPI() []anthropic.ToolUnionParam {
	return t.registry.ListForAPI()
}

// extractTextFromBlocks extracts text from content block param unions.
func extractTextFromBlocks(blocks []anthropic.ContentBlockParamUnion) string {
	for _, b := range blocks {
		if b.OfText != nil {
			return b.OfText.Text
		}
	}
	return ""
}

// channelSink implements engine.EventSink by sending events to a channel.
// It also folds usage and turn counts back into the session metadata.
type channelSink struct {
	ch      chan Event
	session *Session
}

func (s *channelSink) OnSystem(sessionID string, model anthropic.Model) {
	s.ch <- &SystemEvent{SessionID: sessionID, Model: model}
}

func (s *channelSink) OnStream(delta string) {
	s.ch <- &StreamEvent{Delta: delta}
}

func (s *channelSink) OnAssistant(msg anthropic.Message) {
	s.ch <- &AssistantEvent{Message: msg}
}

func (s *channelSink) OnApproval(toolName string, approved bool) {
	s.ch <- &ApprovalEvent{ToolName: toolName, Approved: approved}
}

func (s *channelSink) OnResult(info engine.ResultInfo) {
	usage := Usage{
		InputTokens:              info.InputTokens,
		OutputTokens:             info.OutputTokens,
		CacheReadInputTokens:     info.CacheReadInputTokens,
		CacheCreationInputTokens: info.CacheCreationInputTokens,
	}

	if s.session != nil {
		s.session.recordRun(usage, info.NumTurns)
	}

	s.ch <- &ResultEvent{
		Subtype:    info.Subtype,
		SessionID:  info.SessionID,
		IsError:    info.IsError,
		NumTurns:   info.NumTurns,
		Usage:      usage,
		DurationMs: info.DurationMs,
		Result:     extractResultText(info),
		Errors:     info.Errors,
	}
}

func extractResultText(info engine.ResultInfo) string {
	if len(info.Errors) > 0 {
		return fmt.Sprintf("error: %s", info.Errors[0])
	}
	return ""
}

// hookRunnerAdapter wraps hookrunner.Runner to implement engine.HookRunner.
type hookRunnerAdapter struct {
	runner *hookrunner.Runner
}

func (h *hookRunnerAdapter) RunPreToolUse(ctx context.Context, sessionID, toolName string, input json.RawMessage) (*engine.HookPreToolResult, error) {
	result, err := h.runner.RunPreToolUse(ctx, sessionID, toolName, input)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return &engine.HookPreToolResult{
		Block:        result.Block,
		Reason:       result.Reason,
		UpdatedInput: result.UpdatedInput,
	}, nil
}

func (h *hookRunnerAdapter) RunPostToolUse(ctx context.Context, sessionID, toolName string, input json.RawMessage, output string) error {
	return h.runner.RunPostToolUse(ctx, sessionID, toolName, input, output)
}

func (h *hookRunnerAdapter) RunPostToolFailure(ctx context.Context, sessionID, toolName string, input json.RawMessage, toolErr error) error {
	return h.runner.RunPostToolFailure(ctx, sessionID, toolName, input, toolErr)
}

func (h *hookRunnerAdapter) RunToolResult(ctx context.Context, sessionID, toolName string, input json.RawMessage, output string, isError bool) error {
	return h.runner.RunToolResult(ctx, sessionID, toolName, input, output, isError)
}

func (h *hookRunnerAdapter) RunApprovalRequest(ctx context.Context, sessionID, toolName string, input json.RawMessage) (*engine.HookPreToolResult, error) {
	result, err := h.runner.RunApprovalRequest(ctx, sessionID, toolName, input)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return &engine.HookPreToolResult{
		Block:  result.Block,
		Reason: result.Reason,
	}, nil
}

func (h *hookRunnerAdapter) RunStop(ctx context.Context, sessionID string) error {
	return h.runner.RunStop(ctx, sessionID)
}

func (h *hookRunnerAdapter) RunSessionStart(ctx context.Context, sessionID string) error {
	return h.runner.RunSessionStart(ctx, sessionID)
}

func (h *hookRunnerAdapter) RunSessionEnd(ctx context.Context, sessionID string) error {
	return h.runner.RunSessionEnd(ctx, sessionID)
}

func (h *hookRunnerAdapter) RunUserPromptSubmit(ctx context.Context, sessionID, prompt string) error {
	return h.runner.RunUserPromptSubmit(ctx, sessionID, prompt)
}

// gateAdapter wraps approval.Gate to implement engine.Gate.
type gateAdapter struct {
	gate *approval.Gate
}

func (g *gateAdapter) Check(ctx context.Context, toolName string, input json.RawMessage) (int, error) {
	decision, err := g.gate.Check(ctx, toolName, input)
	if err != nil {
		return 0, err
	}
	return int(decision), nil
}

// approverAdapter wraps an approval.Func to implement engine.Approver.
type approverAdapter struct {
	fn approval.Func
}

func (a *approverAdapter) Approve(ctx context.Context, toolName string, input json.RawMessage) (bool, error) {
	decision, err := a.fn(ctx, toolName, input)
	if err != nil {
		return false, err
	}
	return decision == approval.Allow, nil
}
