package gatekit

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/gatekit/gatekit-go/approval"
	"github.com/gatekit/gatekit-go/conversation"
	"github.com/gatekit/gatekit-go/hook"
	"github.com/gatekit/gatekit-go/runctx"
)

// AgentOption configures an Agent via the functional options pattern.
type AgentOption func(*agentOptions)

// agentOptions holds all configurable fields set via AgentOption functions.
type agentOptions struct {
	model            anthropic.Model
	maxOutputTokens  int
	maxTurns         int
	systemPrompt     string
	streamBufferSize int
	settingSources   []string

	approvalMode  approval.Mode
	approvalRules []approval.Rule
	approver      approval.Func
	queue         *approval.Queue

	store    conversation.Store
	runCtx   *runctx.Context
	matchers []hook.Matcher
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (o *agentOptions) applyDefaults() {
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.maxOutputTokens == 0 {
		o.maxOutputTokens = DefaultMaxOutputTokens
	}
	if o.streamBufferSize == 0 {
		o.streamBufferSize = DefaultStreamBufferSize
	}
}

// resolveOptions applies all option functions and fills defaults.
func resolveOptions(opts []AgentOption) agentOptions {
	var o agentOptions
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// --- Model ---

// WithModel sets the Claude model to use.
// Use constants from anthropic-sdk-go, e.g. anthropic.ModelClaudeSonnet4_5.
func WithModel(model anthropic.Model) AgentOption {
	return func(o *agentOptions) { o.model = model }
}

// WithMaxOutputTokens sets the maximum output tokens per response.
func WithMaxOutputTokens(tokens int) AgentOption {
	return func(o *agentOptions) { o.maxOutputTokens = tokens }
}

// WithMaxTurns sets the maximum number of agent loop turns (0 = unlimited).
func WithMaxTurns(n int) AgentOption {
	return func(o *agentOptions) { o.maxTurns = n }
}

// WithSystemPrompt sets the system prompt sent with every API call.
func WithSystemPrompt(prompt string) AgentOption {
	return func(o *agentOptions) { o.systemPrompt = prompt }
}

// WithStreamBufferSize sets the event channel buffer size.
func WithStreamBufferSize(n int) AgentOption {
	return func(o *agentOptions) { o.streamBufferSize = n }
}

// WithSettingSources loads configuration from JSON settings files. Later
// sources override earlier ones; explicit WithXxx options override both.
func WithSettingSources(paths ...string) AgentOption {
	return func(o *agentOptions) { o.settingSources = append(o.settingSources, paths...) }
}

// --- Approval ---

// WithApprovalMode sets the approval mode for unmatched tools.
func WithApprovalMode(mode approval.Mode) AgentOption {
	return func(o *agentOptions) { o.approvalMode = mode }
}

// WithApprovalRules sets the rules the approval gate evaluates per tool call.
// Rules are checked in deny > ask > allow order regardless of slice order.
func WithApprovalRules(rules ...approval.Rule) AgentOption {
	return func(o *agentOptions) { o.approvalRules = append(o.approvalRules, rules...) }
}

// WithApprover sets the function that settles Ask decisions, typically a
// console prompt or a queue. Without one, asks are denied.
func WithApprover(fn approval.Func) AgentOption {
	return func(o *agentOptions) { o.approver = fn }
}

// WithApprovalQueue routes Ask decisions through an interruption queue. The
// agent loop parks on the queue until Approve or Deny is called from another
// goroutine. Overrides WithApprover.
func WithApprovalQueue(q *approval.Queue) AgentOption {
	return func(o *agentOptions) { o.queue = q }
}

// --- Conversation ---

// WithConversationStore sets the store used by SaveConversation and
// ContinueConversation. Without one, conversation operations return
// ErrNoConversation.
func WithConversationStore(s conversation.Store) AgentOption {
	return func(o *agentOptions) { o.store = s }
}

// --- Context ---

// WithRunContext attaches a per-run context whose fields are rendered into
// the system prompt on every run. Tools can also read and mutate it via
// RunContextFrom.
func WithRunContext(rc *runctx.Context) AgentOption {
	return func(o *agentOptions) { o.runCtx = rc }
}

// --- Hooks ---

// WithHooks registers hook matchers. Multiple calls accumulate.
func WithHooks(matchers ...hook.Matcher) AgentOption {
	return func(o *agentOptions) { o.matchers = append(o.matchers, matchers...) }
}
