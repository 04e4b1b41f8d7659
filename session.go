package gatekit

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"

	"github.com/gatekit/gatekit-go/conversation"
)

// Session holds the conversation state for a single agent run or multi-turn client.
type Session struct {
	ID        string
	Messages  []anthropic.MessageParam
	Metadata  SessionMeta
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionMeta contains summary statistics for a session.
type SessionMeta struct {
	Model    anthropic.Model
	Cost     decimal.Decimal
	Tokens   Usage
	NumTurns int
}

// NewSession creates a new empty session.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        generateID(PrefixSession),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// recordRun folds the usage of a finished run into the session metadata.
func (s *Session) recordRun(u Usage, numTurns int) {
	s.Metadata.Tokens.InputTokens += u.InputTokens
	s.Metadata.Tokens.OutputTokens += u.OutputTokens
	s.Metadata.Tokens.CacheReadInputTokens += u.CacheReadInputTokens
	s.Metadata.Tokens.CacheCreationInputTokens += u.CacheCreationInputTokens
	s.Metadata.NumTurns += numTurns
	s.Metadata.Cost = s.Metadata.Cost.Add(costFor(s.Metadata.Model, u))
	s.UpdatedAt = time.Now()
}

// Clone creates a deep copy of the session with a new ID and timestamp.
// The message history is copied so the original session is not affected.
func (s *Session) Clone() *Session {
	msgs := make([]anthropic.MessageParam, len(s.Messages))
	copy(msgs, s.Messages)

	now := time.Now()
	return &Session{
		ID:        generateID(PrefixSession),
		Messages:  msgs,
		Metadata:  s.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ToRecord converts the session into a conversation record stored under the
// given identifier. The message history and metadata are carried along.
func (s *Session) ToRecord(id string) *conversation.Record {
	msgs := make([]anthropic.MessageParam, len(s.Messages))
	copy(msgs, s.Messages)

	return &conversation.Record{
		ConversationID: id,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      time.Now(),
		Messages:       msgs,
		Meta: conversation.Meta{
			Model:     string(s.Metadata.Model),
			TotalCost: s.Metadata.Cost.String(),
			NumTurns:  s.Metadata.NumTurns,
		},
	}
}

// SessionFromRecord rebuilds a session from a persisted conversation record.
// The record's identifier becomes the session ID so a resumed session maps
// back to the same record on the next save.
func SessionFromRecord(rec *conversation.Record) *Session {
	msgs := make([]anthropic.MessageParam, len(rec.Messages))
	copy(msgs, rec.Messages)

	cost, err := decimal.NewFromString(rec.Meta.TotalCost)
	if err != nil {
		cost = decimal.Zero
	}

	return &Session{
		ID:       rec.ConversationID,
		Messages: msgs,
		Metadata: SessionMeta{
			Model:    anthropic.Model(rec.Meta.Model),
			Cost:     cost,
			NumTurns: rec.Meta.NumTurns,
		},
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
