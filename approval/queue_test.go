package approval_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekit/gatekit-go/approval"
)

func TestQueueApproveFlow(t *testing.T) {
	q := approval.NewQueue()

	p := q.Request("process_refund", json.RawMessage(`{"amount":250}`), "over limit")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, approval.StatusPending, p.Status)

	require.NoError(t, q.Approve(p.ID, "alice", "verified with customer"))

	d, err := q.Wait(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.Allow, d)

	got, err := q.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, got.Status)
	assert.Equal(t, "alice", got.DecidedBy)
	assert.False(t, got.DecidedAt.IsZero())
}

func TestQueueDenyFlow(t *testing.T) {
	q := approval.NewQueue()

	p := q.Request("delete_user_account", nil, "")
	require.NoError(t, q.Deny(p.ID, "bob", "not authorized"))

	d, err := q.Wait(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.Deny, d)
}

func TestQueueWaitParksUntilDecided(t *testing.T) {
	q := approval.NewQueue()
	p := q.Request("send_bulk_email", nil, "")

	decided := make(chan approval.Decision, 1)
	go func() {
		d, _ := q.Wait(context.Background(), p.ID)
		decided <- d
	}()

	select {
	case <-decided:
		t.Fatal("Wait returned before a decision was made")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Approve(p.ID, "alice", ""))

	select {
	case d := <-decided:
		assert.Equal(t, approval.Allow, d)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the decision")
	}
}

func TestQueueContextCancelDenies(t *testing.T) {
	q := approval.NewQueue()
	p := q.Request("process_refund", nil, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	d, err := q.Wait(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.Deny, d)
}

func TestQueueResolveIdempotent(t *testing.T) {
	q := approval.NewQueue()
	p := q.Request("process_refund", nil, "")

	require.NoError(t, q.Approve(p.ID, "alice", ""))
	require.NoError(t, q.Approve(p.ID, "alice", ""), "repeating the same decision is a no-op")

	err := q.Deny(p.ID, "bob", "")
	require.Error(t, err, "flipping a settled decision fails")
	assert.Contains(t, err.Error(), "already approved")
}

func TestQueueUnknownRequest(t *testing.T) {
	q := approval.NewQueue()

	_, err := q.Wait(context.Background(), "nope")
	assert.Error(t, err)

	assert.Error(t, q.Approve("nope", "alice", ""))

	_, err = q.Get("nope")
	assert.Error(t, err)
}

func TestQueueInterruptionsOldestFirst(t *testing.T) {
	q := approval.NewQueue()

	first := q.Request("process_refund", nil, "")
	second := q.Request("send_bulk_email", nil, "")
	third := q.Request("delete_user_account", nil, "")

	require.NoError(t, q.Approve(second.ID, "alice", ""))

	pending := q.Interruptions()
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, third.ID, pending[1].ID)
}

func TestQueueOnRequestCallback(t *testing.T) {
	q := approval.NewQueue()

	var seen []string
	q.OnRequest = func(p approval.Pending) {
		seen = append(seen, p.ToolName)
	}

	q.Request("process_refund", nil, "")
	q.Request("send_bulk_email", nil, "")

	assert.Equal(t, []string{"process_refund", "send_bulk_email"}, seen)
}

func TestQueueFunc(t *testing.T) {
	q := approval.NewQueue()

	q.OnRequest = func(p approval.Pending) {
		// Simulate a reviewer deciding from another goroutine.
		go func() {
			_ = q.Approve(p.ID, "reviewer", "fine")
		}()
	}

	d, err := q.Func()(context.Background(), "process_refund", json.RawMessage(`{"amount":500}`))
	require.NoError(t, err)
	assert.Equal(t, approval.Allow, d)
}
