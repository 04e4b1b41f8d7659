package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	gatekit "github.com/gatekit/gatekit-go"
	"github.com/gatekit/gatekit-go/runctx"
)

// contextFrom resolves the run context for a tool call: an explicitly bound
// Context wins, otherwise the one attached to the run via AttachRunContext.
func contextFrom(ctx context.Context, bound *runctx.Context) *runctx.Context {
	if bound != nil {
		return bound
	}
	return gatekit.RunContextFrom(ctx)
}

const noContextMsg = "no user context set; use set_user_context first"

// SetUserInput defines the input for the set_user_context tool.
type SetUserInput struct {
	UserID   string `json:"user_id" jsonschema:"required,description=Unique user identifier"`
	UserName string `json:"user_name" jsonschema:"required,description=User's display name"`
	Language string `json:"language,omitempty" jsonschema:"description=Preferred language (default en)"`
}

// SetUserTool initializes the user identity on the run context.
type SetUserTool struct {
	Context *runctx.Context // optional; falls back to the run's context
}

var _ gatekit.Tool[SetUserInput] = (*SetUserTool)(nil)

func (t *SetUserTool) Name() string { return "set_user_context" }
func (t *SetUserTool) Description() string {
	return "Set the user context (identity and language) for the current session"
}

func (t *SetUserTool) Execute(ctx context.Context, input SetUserInput) (*gatekit.ToolResult, error) {
	rc := contextFrom(ctx, t.Context)
	if rc == nil {
		return gatekit.ErrorResult("no run context attached to this session"), nil
	}

	lang := input.Language
	if lang == "" {
		lang = "en"
	}

	rc.SetUser(input.UserID, input.UserName)
	rc.SetPreference("language", lang)

	return gatekit.TextResult(fmt.Sprintf(
		"User context initialized:\n  User ID: %s\n  Name: %s\n  Language: %s\n  Session started: %s",
		input.UserID, input.UserName, lang, rc.StartedAt().Format(time.RFC3339))), nil
}

// GetUserInfoInput is empty: the tool reads everything from the run context.
type GetUserInfoInput struct{}

// GetUserInfoTool reports the current user identity and session duration.
type GetUserInfoTool struct {
	Context *runctx.Context
}

var _ gatekit.Tool[GetUserInfoInput] = (*GetUserInfoTool)(nil)

func (t *GetUserInfoTool) Name() string { return "get_user_info" }
func (t *GetUserInfoTool) Description() string {
	return "Get current user information from the session context"
}

func (t *GetUserInfoTool) Execute(ctx context.Context, _ GetUserInfoInput) (*gatekit.ToolResult, error) {
	rc := contextFrom(ctx, t.Context)
	if rc == nil || rc.UserID() == "" {
		return gatekit.ErrorResult(noContextMsg), nil
	}

	lang := rc.Preference("language")
	if lang == "" {
		lang = "unknown"
	}

	return gatekit.TextResult(fmt.Sprintf(
		"Current user information:\n  ID: %s\n  Name: %s\n  Language: %s\n  Session duration: %s",
		rc.UserID(), rc.UserName(), lang, rc.Duration())), nil
}

// UpdatePreferenceInput defines the input for the update_preference tool.
type UpdatePreferenceInput struct {
	Key   string `json:"key" jsonschema:"required,description=Preference key (e.g. theme or timezone)"`
	Value string `json:"value" jsonschema:"required,description=Preference value"`
}

// UpdatePreferenceTool sets a preference key on the run context.
type UpdatePreferenceTool struct {
	Context *runctx.Context
}

var _ gatekit.Tool[UpdatePreferenceInput] = (*UpdatePreferenceTool)(nil)

func (t *UpdatePreferenceTool) Name() string        { return "update_preference" }
func (t *UpdatePreferenceTool) Description() string { return "Update a user preference in context" }

func (t *UpdatePreferenceTool) Execute(ctx context.Context, input UpdatePreferenceInput) (*gatekit.ToolResult, error) {
	rc := contextFrom(ctx, t.Context)
	if rc == nil || rc.UserID() == "" {
		return gatekit.ErrorResult(noContextMsg), nil
	}

	rc.SetPreference(input.Key, input.Value)

	prefs := rc.Preferences()
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Preference updated:\n  %s: %s\n  All preferences:\n", input.Key, input.Value)
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s: %s\n", k, prefs[k])
	}
	return gatekit.TextResult(b.String()), nil
}

// ClearContextInput is empty: the tool takes no arguments.
type ClearContextInput struct{}

// ClearContextTool wipes the run context back to its initial state.
type ClearContextTool struct {
	Context *runctx.Context
}

var _ gatekit.Tool[ClearContextInput] = (*ClearContextTool)(nil)

func (t *ClearContextTool) Name() string        { return "clear_user_context" }
func (t *ClearContextTool) Description() string { return "Clear all user context data" }

func (t *ClearContextTool) Execute(ctx context.Context, _ ClearContextInput) (*gatekit.ToolResult, error) {
	rc := contextFrom(ctx, t.Context)
	if rc == nil {
		return gatekit.ErrorResult("no run context attached to this session"), nil
	}

	old := rc.UserName()
	if old == "" {
		old = "unknown"
	}
	rc.Clear()

	return gatekit.TextResult(fmt.Sprintf("User context cleared for %s", old)), nil
}

// AddNoteInput defines the input for the add_session_note tool.
type AddNoteInput struct {
	Note string `json:"note" jsonschema:"required,description=Free-text note to attach to the session"`
}

// AddNoteTool appends a timestamped note to the run context.
type AddNoteTool struct {
	Context *runctx.Context
}

var _ gatekit.Tool[AddNoteInput] = (*AddNoteTool)(nil)

func (t *AddNoteTool) Name() string        { return "add_session_note" }
func (t *AddNoteTool) Description() string { return "Add a timestamped note to the current session" }

func (t *AddNoteTool) Execute(ctx context.Context, input AddNoteInput) (*gatekit.ToolResult, error) {
	rc := contextFrom(ctx, t.Context)
	if rc == nil {
		return gatekit.ErrorResult("no run context attached to this session"), nil
	}

	count := rc.AddNote(input.Note)
	return gatekit.TextResult(fmt.Sprintf("Note added (total notes: %d)", count)), nil
}

// SessionInfoInput is empty: the tool takes no arguments.
type SessionInfoInput struct{}

// SessionInfoTool summarizes the session: identity, duration, and notes.
type SessionInfoTool struct {
	Context *runctx.Context
}

var _ gatekit.Tool[SessionInfoInput] = (*SessionInfoTool)(nil)

func (t *SessionInfoTool) Name() string        { return "get_session_info" }
func (t *SessionInfoTool) Description() string { return "Get a summary of the current session" }

func (t *SessionInfoTool) Execute(ctx context.Context, _ SessionInfoInput) (*gatekit.ToolResult, error) {
	rc := contextFrom(ctx, t.Context)
	if rc == nil {
		return gatekit.ErrorResult("no run context attached to this session"), nil
	}

	var b strings.Builder
	b.WriteString("Session summary:\n")
	fmt.Fprintf(&b, "  User: %s (id: %s)\n", rc.UserName(), rc.UserID())
	fmt.Fprintf(&b, "  Started: %s\n", rc.StartedAt().Format(time.RFC3339))
	fmt.Fprintf(&b, "  Duration: %s\n", rc.Duration())

	notes := rc.Notes()
	fmt.Fprintf(&b, "  Notes: %d\n", len(notes))
	for i, n := range notes {
		fmt.Fprintf(&b, "    %d. %s (%s)\n", i+1, n.Text, n.Timestamp.Format(time.RFC3339))
	}
	return gatekit.TextResult(b.String()), nil
}

// RegisterContext registers all user context tools. Pass a Context to bind
// the tools to it, or nil to have them use the run's attached context.
func RegisterContext(r *gatekit.ToolRegistry, rc *runctx.Context) {
	gatekit.RegisterTool(r, &SetUserTool{Context: rc})
	gatekit.RegisterTool(r, &GetUserInfoTool{Context: rc})
	gatekit.RegisterTool(r, &UpdatePreferenceTool{Context: rc})
	gatekit.RegisterTool(r, &ClearContextTool{Context: rc})
	gatekit.RegisterTool(r, &AddNoteTool{Context: rc})
	gatekit.RegisterTool(r, &SessionInfoTool{Context: rc})
}
