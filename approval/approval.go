// Package approval decides whether a tool call may proceed before it
// executes. A [Gate] combines a default [Mode], declarative [Rule]s (glob
// patterns with optional numeric thresholds), and an optional user callback.
// When the outcome is [Ask], the caller resolves it with a human decision:
// synchronously via [ConsolePrompter], or asynchronously via [Queue], which
// records a pending approval that can be serialized and decided later.
package approval

import (
	"context"
	"encoding/json"
)

// Decision represents the outcome of an approval check.
type Decision int

const (
	Allow Decision = iota // Tool execution is permitted
	Deny                  // Tool execution is blocked
	Ask                   // A human should be prompted for confirmation
)

// String returns the lowercase name of the decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Ask:
		return "ask"
	}
	return "unknown"
}

// Mode controls the default behavior for tools no rule matches.
type Mode int

const (
	ModeDefault   Mode = iota // unmatched tools are allowed
	ModeAlwaysAsk             // unmatched tools require confirmation
	ModeBypass                // everything is allowed, rules included
)

// Func is a user-provided approval callback. It receives the tool name and
// its raw JSON input and returns a Decision.
type Func func(ctx context.Context, toolName string, input json.RawMessage) (Decision, error)

// Gate evaluates whether a tool call may proceed.
type Gate struct {
	mode       Mode
	rules      []Rule
	canUseTool Func // optional callback, overrides rules and mode
}

// NewGate creates a Gate with the given mode, rules, and optional callback.
func NewGate(mode Mode, rules []Rule, canUseTool Func) *Gate {
	return &Gate{mode: mode, rules: rules, canUseTool: canUseTool}
}

// Check evaluates whether the named tool with the given input is allowed.
func (g *Gate) Check(ctx context.Context, toolName string, input json.RawMessage) (Decision, error) {
	// A user callback takes precedence over everything else.
	if g.canUseTool != nil {
		return g.canUseTool(ctx, toolName, input)
	}

	if g.mode == ModeBypass {
		return Allow, nil
	}

	if d, matched := MatchRules(g.rules, toolName, input); matched {
		return d, nil
	}

	if g.mode == ModeAlwaysAsk {
		return Ask, nil
	}
	return Allow, nil
}

// Mode returns the current mode.
func (g *Gate) Mode() Mode {
	return g.mode
}

// SetMode updates the mode.
func (g *Gate) SetMode(mode Mode) {
	g.mode = mode
}
