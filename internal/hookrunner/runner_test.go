package hookrunner_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekit/gatekit-go/hook"
	"github.com/gatekit/gatekit-go/internal/hookrunner"
)

func TestRunnerMatchesByEvent(t *testing.T) {
	var preCalls, postCalls int

	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PreToolUse, Hooks: []hook.Func{
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				preCalls++
				return nil, nil
			},
		}},
		{Event: hook.PostToolUse, Hooks: []hook.Func{
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				postCalls++
				return nil, nil
			},
		}},
	})
	require.NoError(t, err)

	_, err = runner.RunPreToolUse(context.Background(), "sess", "process_refund", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, preCalls)
	assert.Equal(t, 0, postCalls)

	require.NoError(t, runner.RunPostToolUse(context.Background(), "sess", "process_refund", nil, "ok"))
	assert.Equal(t, 1, postCalls)
}

func TestRunnerPatternFiltersTools(t *testing.T) {
	var calls []string

	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PreToolUse, Pattern: "^delete_", Hooks: []hook.Func{
			func(_ context.Context, in *hook.Input) (*hook.Result, error) {
				calls = append(calls, in.ToolName)
				return nil, nil
			},
		}},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = runner.RunPreToolUse(ctx, "sess", "delete_user_account", nil)
	_, _ = runner.RunPreToolUse(ctx, "sess", "get_weather", nil)

	assert.Equal(t, []string{"delete_user_account"}, calls)
}

func TestRunnerInvalidPattern(t *testing.T) {
	_, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PreToolUse, Pattern: "[invalid"},
	})
	assert.Error(t, err)
}

func TestRunnerBlockStopsChain(t *testing.T) {
	var secondRan bool

	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PreToolUse, Hooks: []hook.Func{
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				return &hook.Result{Block: true, Reason: "forbidden"}, nil
			},
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				secondRan = true
				return nil, nil
			},
		}},
	})
	require.NoError(t, err)

	res, err := runner.RunPreToolUse(context.Background(), "sess", "process_refund", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Block)
	assert.Equal(t, "forbidden", res.Reason)
	assert.False(t, secondRan, "hooks after a block do not run")
}

func TestRunnerLastUpdatedInputWins(t *testing.T) {
	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PreToolUse, Hooks: []hook.Func{
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				return &hook.Result{UpdatedInput: json.RawMessage(`{"v":1}`)}, nil
			},
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				return &hook.Result{UpdatedInput: json.RawMessage(`{"v":2}`)}, nil
			},
		}},
	})
	require.NoError(t, err)

	res, err := runner.RunPreToolUse(context.Background(), "sess", "process_refund", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.JSONEq(t, `{"v":2}`, string(res.UpdatedInput))
}

func TestRunnerNoMatchReturnsNil(t *testing.T) {
	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PostToolUse, Hooks: []hook.Func{
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				return &hook.Result{Block: true}, nil
			},
		}},
	})
	require.NoError(t, err)

	res, err := runner.RunPreToolUse(context.Background(), "sess", "anything", nil)
	require.NoError(t, err)
	assert.Nil(t, res, "no matching hooks means no result")
}

func TestRunnerHookErrorPropagates(t *testing.T) {
	boom := errors.New("hook exploded")
	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PreToolUse, Hooks: []hook.Func{
			func(_ context.Context, _ *hook.Input) (*hook.Result, error) {
				return nil, boom
			},
		}},
	})
	require.NoError(t, err)

	_, err = runner.RunPreToolUse(context.Background(), "sess", "process_refund", nil)
	assert.ErrorIs(t, err, boom)
}

func TestRunnerTimeout(t *testing.T) {
	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.PreToolUse, Timeout: 10 * time.Millisecond, Hooks: []hook.Func{
			func(ctx context.Context, _ *hook.Input) (*hook.Result, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Second):
					return nil, nil
				}
			},
		}},
	})
	require.NoError(t, err)

	_, err = runner.RunPreToolUse(context.Background(), "sess", "slow_tool", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunnerApprovalRequestAndInputFields(t *testing.T) {
	var got *hook.Input

	runner, err := hookrunner.New([]hook.Matcher{
		{Event: hook.ApprovalRequest, Hooks: []hook.Func{
			func(_ context.Context, in *hook.Input) (*hook.Result, error) {
				got = in
				return nil, nil
			},
		}},
	})
	require.NoError(t, err)

	input := json.RawMessage(`{"amount":250}`)
	_, err = runner.RunApprovalRequest(context.Background(), "sess_1", "process_refund", input)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "sess_1", got.SessionID)
	assert.Equal(t, hook.ApprovalRequest, got.Event)
	assert.Equal(t, "process_refund", got.ToolName)
	assert.JSONEq(t, `{"amount":250}`, string(got.ToolInput))
}
