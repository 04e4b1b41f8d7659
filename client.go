package gatekit

import (
	"context"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/gatekit/gatekit-go/approval"
	"github.com/gatekit/gatekit-go/conversation"
)

// Client is a stateful session container that wraps an Agent.
// It maintains conversation history across multiple Query calls and can
// persist it through a conversation.Store.
type Client struct {
	agent   *Agent
	session *Session
	store   conversation.Store

	mu     sync.Mutex
	cancel context.CancelFunc // cancel for current Query
}

// NewClient creates a new Client with its own Agent configured by the given options.
func NewClient(opts ...AgentOption) *Client {
	agent := NewAgent(opts...)
	return &Client{
		agent:   agent,
		session: NewSession(),
		store:   agent.opts.store,
	}
}

// Query sends a prompt to the agent within the client's ongoing session.
// The session history is automatically maintained across calls.
func (c *Client) Query(ctx context.Context, prompt string) *AgentStream {
	c.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	session := c.session
	c.mu.Unlock()

	return c.agent.RunWithSession(ctx, session, prompt)
}

// Interrupt cancels the currently running Query, if any.
func (c *Client) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// SaveConversation persists the current session under the given conversation
// ID. An existing record keeps its creation time and context snapshots; only
// the messages, metadata, and update time are replaced.
func (c *Client) SaveConversation(ctx context.Context, conversationID string) error {
	if c.store == nil {
		return ErrNoConversation
	}

	c.mu.Lock()
	rec := c.session.ToRecord(conversationID)
	c.mu.Unlock()

	if existing, err := c.store.Load(ctx, conversationID); err == nil {
		rec.CreatedAt = existing.CreatedAt
		rec.Contexts = existing.Contexts
	}

	return c.store.Save(ctx, rec)
}

// AppendContext records a context snapshot (user name plus topic) on the
// named conversation, creating the record if it does not exist yet.
func (c *Client) AppendContext(ctx context.Context, conversationID, userName, topic string) (*conversation.Record, error) {
	if c.store == nil {
		return nil, ErrNoConversation
	}
	return conversation.AppendContext(ctx, c.store, conversationID, userName, topic)
}

// Resume loads a conversation from the store and replaces the current session.
// Requires a store to be configured via WithConversationStore.
func (c *Client) Resume(ctx context.Context, conversationID string) error {
	if c.store == nil {
		return ErrNoConversation
	}
	rec, err := c.store.Load(ctx, conversationID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = SessionFromRecord(rec)
	c.mu.Unlock()
	return nil
}

// ContinueLatest loads the most recently updated conversation from the store.
func (c *Client) ContinueLatest(ctx context.Context) error {
	if c.store == nil {
		return ErrNoConversation
	}
	records, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNoConversations
	}

	latest := records[0]
	for _, rec := range records[1:] {
		if rec.UpdatedAt.After(latest.UpdatedAt) {
			latest = rec
		}
	}

	c.mu.Lock()
	c.session = SessionFromRecord(latest)
	c.mu.Unlock()
	return nil
}

// Fork creates a new Client that shares the same Agent but has a cloned session.
func (c *Client) Fork() *Client {
	c.mu.Lock()
	cloned := c.session.Clone()
	c.mu.Unlock()

	return &Client{
		agent:   c.agent,
		session: cloned,
		store:   c.store,
	}
}

// SetModel updates the agent's model for subsequent queries.
func (c *Client) SetModel(model anthropic.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agent.opts.model = model
}

// SetApprovalMode updates the approval mode for subsequent queries.
func (c *Client) SetApprovalMode(mode approval.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agent.opts.approvalMode = mode
}

// Session returns the client's current session.
func (c *Client) Session() *Session {
	return c.session
}

// Agent returns the underlying Agent.
func (c *Client) Agent() *Agent {
	return c.agent
}

// Close persists the session under its own ID (if a store is configured) and
// releases resources.
func (c *Client) Close() error {
	if c.store != nil {
		return c.SaveConversation(context.Background(), c.session.ID)
	}
	return nil
}
