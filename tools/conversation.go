// Package tools provides ready-made agent tools for conversation persistence
// and user context management. Register them on an agent's registry with
// [RegisterConversation] and [RegisterContext].
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	gatekit "github.com/gatekit/gatekit-go"
	"github.com/gatekit/gatekit-go/conversation"
)

// SaveContextInput defines the input for the save_conversation_context tool.
type SaveContextInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"required,description=Unique identifier for this conversation"`
	UserName       string `json:"user_name" jsonschema:"required,description=Name of the user"`
	Topic          string `json:"topic" jsonschema:"required,description=Main topic of conversation"`
}

// SaveContextTool appends a context snapshot to a stored conversation,
// creating the record on first save.
type SaveContextTool struct {
	Store conversation.Store
}

var _ gatekit.Tool[SaveContextInput] = (*SaveContextTool)(nil)

func (t *SaveContextTool) Name() string { return "save_conversation_context" }
func (t *SaveContextTool) Description() string {
	return "Save conversation context (user name and topic) to persistent storage"
}

func (t *SaveContextTool) Execute(ctx context.Context, input SaveContextInput) (*gatekit.ToolResult, error) {
	if input.ConversationID == "" {
		return gatekit.ErrorResult("conversation_id is required"), nil
	}

	rec, err := conversation.AppendContext(ctx, t.Store, input.ConversationID, input.UserName, input.Topic)
	if err != nil {
		return gatekit.ErrorResult(fmt.Sprintf("failed to save conversation: %s", err.Error())), nil
	}

	return gatekit.TextResult(fmt.Sprintf(
		"Context saved for conversation %q\n  User: %s\n  Topic: %s\n  Total contexts: %d",
		input.ConversationID, input.UserName, input.Topic, len(rec.Contexts))), nil
}

// LoadContextInput defines the input for the load_conversation_context tool.
type LoadContextInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"required,description=Identifier of the conversation to load"`
}

// LoadContextTool loads a stored conversation and renders its history.
type LoadContextTool struct {
	Store conversation.Store
}

var _ gatekit.Tool[LoadContextInput] = (*LoadContextTool)(nil)

func (t *LoadContextTool) Name() string { return "load_conversation_context" }
func (t *LoadContextTool) Description() string {
	return "Load previous conversation context from persistent storage"
}

func (t *LoadContextTool) Execute(ctx context.Context, input LoadContextInput) (*gatekit.ToolResult, error) {
	rec, err := t.Store.Load(ctx, input.ConversationID)
	if err != nil {
		return gatekit.ErrorResult(fmt.Sprintf(
			"no conversation found with ID %q; use save_conversation_context to create one",
			input.ConversationID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Loaded conversation %q\n", rec.ConversationID)
	fmt.Fprintf(&b, "  Created: %s\n", rec.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Last updated: %s\n", rec.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Total contexts: %d\n", len(rec.Contexts))

	if len(rec.Contexts) > 0 {
		b.WriteString("\nPrevious contexts:\n")
		for i, snap := range rec.Contexts {
			fmt.Fprintf(&b, "  %d. %s - %s (%s)\n",
				i+1, snap.UserName, snap.Topic, snap.Timestamp.Format(time.RFC3339))
		}
	}

	return gatekit.TextResult(b.String()), nil
}

// ListConversationsInput is empty: the tool takes no arguments.
type ListConversationsInput struct{}

// ListConversationsTool lists all stored conversations.
type ListConversationsTool struct {
	Store conversation.Store
}

var _ gatekit.Tool[ListConversationsInput] = (*ListConversationsTool)(nil)

func (t *ListConversationsTool) Name() string        { return "list_all_conversations" }
func (t *ListConversationsTool) Description() string { return "List all saved conversations" }

func (t *ListConversationsTool) Execute(ctx context.Context, _ ListConversationsInput) (*gatekit.ToolResult, error) {
	records, err := t.Store.List(ctx)
	if err != nil {
		return gatekit.ErrorResult(fmt.Sprintf("failed to list conversations: %s", err.Error())), nil
	}
	if len(records) == 0 {
		return gatekit.TextResult("No saved conversations found."), nil
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ConversationID < records[j].ConversationID
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d conversation(s):\n\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&b, "- %s\n    Contexts: %d\n    Last updated: %s\n",
			rec.ConversationID, len(rec.Contexts), rec.UpdatedAt.Format(time.RFC3339))
	}
	return gatekit.TextResult(b.String()), nil
}

// DeleteConversationInput defines the input for the delete_conversation tool.
type DeleteConversationInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"required,description=Identifier of the conversation to delete"`
}

// DeleteConversationTool removes a stored conversation.
type DeleteConversationTool struct {
	Store conversation.Store
}

var _ gatekit.Tool[DeleteConversationInput] = (*DeleteConversationTool)(nil)

func (t *DeleteConversationTool) Name() string { return "delete_conversation" }
func (t *DeleteConversationTool) Description() string {
	return "Delete a conversation and its history"
}

func (t *DeleteConversationTool) Execute(ctx context.Context, input DeleteConversationInput) (*gatekit.ToolResult, error) {
	if err := t.Store.Delete(ctx, input.ConversationID); err != nil {
		return gatekit.ErrorResult(fmt.Sprintf("conversation %q not found", input.ConversationID)), nil
	}
	return gatekit.TextResult(fmt.Sprintf("Deleted conversation %q", input.ConversationID)), nil
}

// RegisterConversation registers all conversation persistence tools backed by
// the given store.
func RegisterConversation(r *gatekit.ToolRegistry, store conversation.Store) {
	gatekit.RegisterTool(r, &SaveContextTool{Store: store})
	gatekit.RegisterTool(r, &LoadContextTool{Store: store})
	gatekit.RegisterTool(r, &ListConversationsTool{Store: store})
	gatekit.RegisterTool(r, &DeleteConversationTool{Store: store})
}
