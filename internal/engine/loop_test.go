package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekit/gatekit-go/internal/engine"
)

// fakeDecoder feeds canned SSE events into ssestream.Stream, standing in for
// a live API response body.
type fakeDecoder struct {
	events []ssestream.Event
	idx    int
}

func (d *fakeDecoder) Next() bool {
	if d.idx < len(d.events) {
		d.idx++
		return true
	}
	return false
}

func (d *fakeDecoder) Event() ssestream.Event { return d.events[d.idx-1] }
func (d *fakeDecoder) Close() error           { return nil }
func (d *fakeDecoder) Err() error             { return nil }

// fakeStreamer returns one scripted stream per API round trip.
type fakeStreamer struct {
	scripts [][]ssestream.Event
	calls   int
}

func (f *fakeStreamer) NewStreaming(_ context.Context, _ anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	script := f.scripts[f.calls]
	f.calls++
	return ssestream.NewStream[anthropic.MessageStreamEventUnion](&fakeDecoder{events: script}, nil)
}

func sse(typ, data string) ssestream.Event {
	return ssestream.Event{Type: typ, Data: []byte(data)}
}

// toolUseTurn scripts an assistant turn that calls a single tool.
func toolUseTurn(toolName, inputJSON string) []ssestream.Event {
	return []ssestream.Event{
		sse("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5","content":[],"stop_reason":null,"usage":{"input_tokens":7,"output_tokens":0}}}`),
		sse("content_block_start", fmt.Sprintf(`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":%q,"input":{}}}`, toolName)),
		sse("content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":%q}}`, inputJSON)),
		sse("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":12}}`),
		sse("message_stop", `{"type":"message_stop"}`),
	}
}

// endTurn scripts an assistant turn that answers in text and stops.
func endTurn(text string) []ssestream.Event {
	return []ssestream.Event{
		sse("message_start", `{"type":"message_start","message":{"id":"msg_2","type":"message","role":"assistant","model":"claude-sonnet-4-5","content":[],"stop_reason":null,"usage":{"input_tokens":9,"output_tokens":0}}}`),
		sse("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		sse("content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, text)),
		sse("content_block_stop", `{"type":"content_block_stop","index":0}`),
		sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":5}}`),
		sse("message_stop", `{"type":"message_stop"}`),
	}
}

type recordedApproval struct {
	Tool     string
	Approved bool
}

// recordingSink captures everything the loop emits.
type recordingSink struct {
	deltas    []string
	approvals []recordedApproval
	result    *engine.ResultInfo
}

func (s *recordingSink) OnSystem(string, anthropic.Model) {}
func (s *recordingSink) OnStream(delta string)            { s.deltas = append(s.deltas, delta) }
func (s *recordingSink) OnAssistant(anthropic.Message)    {}

func (s *recordingSink) OnApproval(tool string, approved bool) {
	s.approvals = append(s.approvals, recordedApproval{Tool: tool, Approved: approved})
}

func (s *recordingSink) OnResult(info engine.ResultInfo) { s.result = &info }

// fakeExecutor records executions and returns a fixed result.
type fakeExecutor struct {
	executed []string
	inputs   []json.RawMessage
	output   string
}

func (e *fakeExecutor) Execute(_ context.Context, name string, input json.RawMessage) (string, bool, error) {
	e.executed = append(e.executed, name)
	e.inputs = append(e.inputs, input)
	return e.output, false, nil
}

func (e *fakeExecutor) ListForAPI() []anthropic.ToolUnionParam { return nil }

type fixedGate struct{ decision int }

func (g fixedGate) Check(context.Context, string, json.RawMessage) (int, error) {
	return g.decision, nil
}

type fakeApprover struct {
	approve bool
	called  bool
}

func (a *fakeApprover) Approve(context.Context, string, json.RawMessage) (bool, error) {
	a.called = true
	return a.approve, nil
}

// stubHooks implements engine.HookRunner; unset functions are no-ops.
type stubHooks struct {
	pre         func(tool string, input json.RawMessage) (*engine.HookPreToolResult, error)
	approvalReq func(tool string) (*engine.HookPreToolResult, error)
}

func (h *stubHooks) RunPreToolUse(_ context.Context, _, tool string, input json.RawMessage) (*engine.HookPreToolResult, error) {
	if h.pre == nil {
		return nil, nil
	}
	return h.pre(tool, input)
}

func (h *stubHooks) RunApprovalRequest(_ context.Context, _, tool string, _ json.RawMessage) (*engine.HookPreToolResult, error) {
	if h.approvalReq == nil {
		return nil, nil
	}
	return h.approvalReq(tool)
}

func (h *stubHooks) RunPostToolUse(context.Context, string, string, json.RawMessage, string) error {
	return nil
}

func (h *stubHooks) RunPostToolFailure(context.Context, string, string, json.RawMessage, error) error {
	return nil
}

func (h *stubHooks) RunToolResult(context.Context, string, string, json.RawMessage, string, bool) error {
	return nil
}

func (h *stubHooks) RunStop(context.Context, string) error              { return nil }
func (h *stubHooks) RunSessionStart(context.Context, string) error      { return nil }
func (h *stubHooks) RunSessionEnd(context.Context, string) error        { return nil }
func (h *stubHooks) RunUserPromptSubmit(context.Context, string, string) error { return nil }

func baseConfig(streamer *fakeStreamer, exec *fakeExecutor, sink *recordingSink, messages *[]anthropic.MessageParam) engine.LoopConfig {
	return engine.LoopConfig{
		Streamer:  streamer,
		Tools:     exec,
		Model:     anthropic.ModelClaudeSonnet4_5,
		MaxTokens: 1024,
		Messages:  messages,
		SessionID: "sess_test",
		Sink:      sink,
	}
}

// toolResultText digs the tool_result text out of the user message the loop
// appended after processing tool calls.
func toolResultText(t *testing.T, messages []anthropic.MessageParam) (string, bool) {
	t.Helper()
	last := messages[len(messages)-1]
	require.NotEmpty(t, last.Content)
	block := last.Content[0].OfToolResult
	require.NotNil(t, block, "expected a tool_result block")
	require.NotEmpty(t, block.Content)
	return block.Content[0].OfText.Text, block.IsError.Value
}

func TestRunLoopDeniedToolGetsCancelledResult(t *testing.T) {
	streamer := &fakeStreamer{scripts: [][]ssestream.Event{
		toolUseTurn("delete_user_account", `{"user_id":"u1"}`),
		endTurn("Understood, the account was not touched."),
	}}
	exec := &fakeExecutor{output: "should not run"}
	sink := &recordingSink{}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("delete my account")),
	}

	cfg := baseConfig(streamer, exec, sink, &messages)
	cfg.Gate = fixedGate{decision: 1}

	engine.RunLoop(context.Background(), cfg)

	assert.Empty(t, exec.executed, "denied tool must not execute")

	// assistant tool_use + appended user tool_result + final assistant turn
	text, isError := toolResultText(t, messages[:3])
	assert.True(t, isError)
	assert.Equal(t, "operation cancelled: delete_user_account (denied by approval policy); no changes were made", text)

	require.NotNil(t, sink.result)
	assert.Equal(t, "success", sink.result.Subtype)
	assert.Equal(t, 2, sink.result.NumTurns)
}

func TestRunLoopAskWithoutApproverFailsClosed(t *testing.T) {
	streamer := &fakeStreamer{scripts: [][]ssestream.Event{
		toolUseTurn("process_refund", `{"amount":250}`),
		endTurn("The refund was not processed."),
	}}
	exec := &fakeExecutor{}
	sink := &recordingSink{}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("refund $250")),
	}

	cfg := baseConfig(streamer, exec, sink, &messages)
	cfg.Gate = fixedGate{decision: 2}

	engine.RunLoop(context.Background(), cfg)

	assert.Empty(t, exec.executed)
	require.Len(t, sink.approvals, 1)
	assert.False(t, sink.approvals[0].Approved)

	text, isError := toolResultText(t, messages[:3])
	assert.True(t, isError)
	assert.Contains(t, text, "approval required but no approver configured")
}

func TestRunLoopAskSettledByApprover(t *testing.T) {
	streamer := &fakeStreamer{scripts: [][]ssestream.Event{
		toolUseTurn("process_refund", `{"amount":250}`),
		endTurn("Refund processed."),
	}}
	exec := &fakeExecutor{output: "refund issued"}
	sink := &recordingSink{}
	approver := &fakeApprover{approve: true}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("refund $250")),
	}

	cfg := baseConfig(streamer, exec, sink, &messages)
	cfg.Gate = fixedGate{decision: 2}
	cfg.Approver = approver

	engine.RunLoop(context.Background(), cfg)

	assert.True(t, approver.called)
	assert.Equal(t, []string{"process_refund"}, exec.executed)
	require.Len(t, sink.approvals, 1)
	assert.Equal(t, recordedApproval{Tool: "process_refund", Approved: true}, sink.approvals[0])

	require.NotNil(t, sink.result)
	assert.Equal(t, "success", sink.result.Subtype)
	assert.Equal(t, int64(7+9), sink.result.InputTokens)
	assert.Equal(t, int64(12+5), sink.result.OutputTokens)
}

func TestRunLoopApprovalHookVetoesBeforeApprover(t *testing.T) {
	streamer := &fakeStreamer{scripts: [][]ssestream.Event{
		toolUseTurn("send_bulk_email", `{"recipient_count":500}`),
		endTurn("No emails were sent."),
	}}
	exec := &fakeExecutor{}
	sink := &recordingSink{}
	approver := &fakeApprover{approve: true}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("email everyone")),
	}

	cfg := baseConfig(streamer, exec, sink, &messages)
	cfg.Gate = fixedGate{decision: 2}
	cfg.Approver = approver
	cfg.Hooks = &stubHooks{
		approvalReq: func(string) (*engine.HookPreToolResult, error) {
			return &engine.HookPreToolResult{Block: true, Reason: "blast radius too large"}, nil
		},
	}

	engine.RunLoop(context.Background(), cfg)

	assert.False(t, approver.called, "veto must short-circuit the approver")
	assert.Empty(t, exec.executed)

	text, isError := toolResultText(t, messages[:3])
	assert.True(t, isError)
	assert.Contains(t, text, "blast radius too large")
}

func TestRunLoopPreToolHookRewritesInput(t *testing.T) {
	streamer := &fakeStreamer{scripts: [][]ssestream.Event{
		toolUseTurn("process_refund", `{"amount":250}`),
		endTurn("Done."),
	}}
	exec := &fakeExecutor{output: "ok"}
	sink := &recordingSink{}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("refund")),
	}

	cfg := baseConfig(streamer, exec, sink, &messages)
	cfg.Hooks = &stubHooks{
		pre: func(_ string, _ json.RawMessage) (*engine.HookPreToolResult, error) {
			return &engine.HookPreToolResult{UpdatedInput: json.RawMessage(`{"amount":50}`)}, nil
		},
	}

	engine.RunLoop(context.Background(), cfg)

	require.Len(t, exec.inputs, 1)
	assert.JSONEq(t, `{"amount":50}`, string(exec.inputs[0]))
}

func TestRunLoopMaxTurns(t *testing.T) {
	streamer := &fakeStreamer{scripts: [][]ssestream.Event{
		toolUseTurn("list_all_conversations", `{}`),
	}}
	exec := &fakeExecutor{output: "No saved conversations found."}
	sink := &recordingSink{}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("loop forever")),
	}

	cfg := baseConfig(streamer, exec, sink, &messages)
	cfg.MaxTurns = 1

	engine.RunLoop(context.Background(), cfg)

	require.NotNil(t, sink.result)
	assert.Equal(t, "error_max_turns", sink.result.Subtype)
	assert.True(t, sink.result.IsError)
	assert.Equal(t, []string{"max turns reached"}, sink.result.Errors)
	assert.Equal(t, 1, streamer.calls, "no further API calls after the limit")
}

func TestRunLoopStreamsTextDeltas(t *testing.T) {
	streamer := &fakeStreamer{scripts: [][]ssestream.Event{
		endTurn("Hello there"),
	}}
	sink := &recordingSink{}
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("hi")),
	}

	engine.RunLoop(context.Background(), baseConfig(streamer, &fakeExecutor{}, sink, &messages))

	assert.Equal(t, "Hello there", strings.Join(sink.deltas, ""))
	require.NotNil(t, sink.result)
	assert.Equal(t, "success", sink.result.Subtype)
	assert.False(t, sink.result.IsError)
}
