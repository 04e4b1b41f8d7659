// Package conversation persists conversation records across process
// restarts. A record is keyed by a caller-chosen identifier and accumulates
// context snapshots — who was talking and about what — plus, optionally, the
// full message history of the run that produced it.
//
// Three backends are provided: [FileStore] (one JSON file per record),
// [MemoryStore] (process-local), and [BoltStore] (single-file bbolt
// database). All implement [Store].
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrNotFound is returned when loading or deleting an unknown conversation
// identifier.
var ErrNotFound = errors.New("conversation: not found")

// Snapshot is a single saved context entry within a conversation.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	UserName  string    `json:"user_name"`
	Topic     string    `json:"topic"`
}

// Meta carries optional summary statistics for the run that produced the
// record.
type Meta struct {
	Model     string `json:"model,omitempty"`
	TotalCost string `json:"total_cost,omitempty"`
	NumTurns  int    `json:"num_turns,omitempty"`
}

// Record is a persisted conversation. One record per identifier; snapshots
// are ordered oldest first.
type Record struct {
	ConversationID string                   `json:"conversation_id"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Contexts       []Snapshot               `json:"contexts"`
	Messages       []anthropic.MessageParam `json:"messages,omitempty"`
	Meta           Meta                     `json:"meta,omitzero"`
}

// NewRecord creates an empty record for the given identifier with the
// creation clock started.
func NewRecord(id string) *Record {
	now := time.Now()
	return &Record{
		ConversationID: id,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Append adds a context snapshot and bumps the update timestamp.
func (r *Record) Append(userName, topic string) {
	now := time.Now()
	r.Contexts = append(r.Contexts, Snapshot{
		Timestamp: now,
		UserName:  userName,
		Topic:     topic,
	})
	r.UpdatedAt = now
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	contexts := make([]Snapshot, len(r.Contexts))
	copy(contexts, r.Contexts)

	var msgs []anthropic.MessageParam
	if r.Messages != nil {
		msgs = make([]anthropic.MessageParam, len(r.Messages))
		copy(msgs, r.Messages)
	}

	return &Record{
		ConversationID: r.ConversationID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Contexts:       contexts,
		Messages:       msgs,
		Meta:           r.Meta,
	}
}

// Store is the interface for conversation persistence backends.
type Store interface {
	// Save writes a record, replacing any existing record with the same
	// identifier.
	Save(ctx context.Context, record *Record) error

	// Load returns the record for an identifier, or ErrNotFound.
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes the record for an identifier, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns all stored records, in unspecified order.
	List(ctx context.Context) ([]*Record, error)
}

// AppendContext loads the record for id (creating a fresh one if absent),
// appends a snapshot, saves the result, and returns the updated record.
// This is the save-or-create flow a "save this conversation" tool wants.
func AppendContext(ctx context.Context, s Store, id, userName, topic string) (*Record, error) {
	rec, err := s.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		rec = NewRecord(id)
	} else if err != nil {
		return nil, err
	}

	rec.Append(userName, topic)
	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
