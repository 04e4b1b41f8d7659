package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a pending approval.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Pending is a recorded approval request awaiting a decision.
type Pending struct {
	ID           string          `json:"id"`
	ToolName     string          `json:"tool_name"`
	Input        json.RawMessage `json:"input,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	RequestedAt  time.Time       `json:"requested_at"`
	Status       Status          `json:"status"`
	DecidedBy    string          `json:"decided_by,omitempty"`
	DecideReason string          `json:"decide_reason,omitempty"`
	DecidedAt    time.Time       `json:"decided_at,omitzero"`
}

// Queue records approval requests and lets another goroutine (or, after a
// snapshot round-trip, another process) decide them. A run that hits an Ask
// decision parks on [Queue.Wait] instead of blocking on a terminal read.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*Pending
	done    map[string]chan struct{} // closed when the entry is decided

	// OnRequest, if set, is called with each new request. The Pending is a
	// copy; resolve through the queue, not by mutating it.
	OnRequest func(p Pending)
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		entries: make(map[string]*Pending),
		done:    make(map[string]chan struct{}),
	}
}

// Request records a new pending approval and returns a copy of it.
func (q *Queue) Request(toolName string, input json.RawMessage, reason string) Pending {
	p := &Pending{
		ID:          uuid.NewString(),
		ToolName:    toolName,
		Input:       append(json.RawMessage(nil), input...),
		Reason:      reason,
		RequestedAt: time.Now(),
		Status:      StatusPending,
	}

	q.mu.Lock()
	q.entries[p.ID] = p
	q.done[p.ID] = make(chan struct{})
	q.mu.Unlock()

	if q.OnRequest != nil {
		q.OnRequest(*p)
	}
	return *p
}

// Wait blocks until the request is decided or the context ends. A context
// cancellation counts as a denial.
func (q *Queue) Wait(ctx context.Context, id string) (Decision, error) {
	q.mu.Lock()
	ch, ok := q.done[id]
	q.mu.Unlock()
	if !ok {
		return Deny, fmt.Errorf("approval: unknown request %s", id)
	}

	select {
	case <-ch:
	case <-ctx.Done():
		return Deny, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.entries[id].Status == StatusApproved {
		return Allow, nil
	}
	return Deny, nil
}

// Approve marks a pending request approved.
func (q *Queue) Approve(id, decidedBy, reason string) error {
	return q.resolve(id, StatusApproved, decidedBy, reason)
}

// Deny marks a pending request denied.
func (q *Queue) Deny(id, decidedBy, reason string) error {
	return q.resolve(id, StatusDenied, decidedBy, reason)
}

func (q *Queue) resolve(id string, status Status, decidedBy, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.entries[id]
	if !ok {
		return fmt.Errorf("approval: unknown request %s", id)
	}
	if p.Status != StatusPending {
		// Idempotent: repeating the same decision is a no-op.
		if p.Status == status {
			return nil
		}
		return fmt.Errorf("approval: request %s already %s", id, p.Status)
	}

	p.Status = status
	p.DecidedBy = decidedBy
	p.DecideReason = reason
	p.DecidedAt = time.Now()
	close(q.done[id])
	return nil
}

// Get returns a copy of the request with the given ID.
func (q *Queue) Get(id string) (Pending, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.entries[id]
	if !ok {
		return Pending{}, fmt.Errorf("approval: unknown request %s", id)
	}
	return *p, nil
}

// Interruptions returns copies of all requests still awaiting a decision,
// oldest first.
func (q *Queue) Interruptions() []Pending {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Pending
	for _, p := range q.entries {
		if p.Status == StatusPending {
			out = append(out, *p)
		}
	}
	sortPending(out)
	return out
}

// Func returns an approval callback that records a request and parks until
// it is decided. Wire it into a Gate (or the SDK's approver option) to get
// interrupt-style approvals instead of a blocking prompt.
func (q *Queue) Func() Func {
	return func(ctx context.Context, toolName string, input json.RawMessage) (Decision, error) {
		p := q.Request(toolName, input, "")
		return q.Wait(ctx, p.ID)
	}
}

func sortPending(ps []Pending) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].RequestedAt.Before(ps[j].RequestedAt)
	})
}
