package approval

import (
	"encoding/json"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
)

// Threshold restricts a rule to inputs whose numeric field exceeds a limit.
// The field is a gjson path into the tool input, so nested fields work
// ("payment.amount").
type Threshold struct {
	Field string  // path into the tool input JSON
	Max   float64 // rule applies only when field value > Max
}

// Rule is a declarative approval rule. Pattern is a doublestar glob matched
// against the tool name ("delete_*", "mcp__fs__*"). A nil Threshold makes
// the rule unconditional; a non-nil one limits it to inputs over the limit.
type Rule struct {
	Pattern   string
	Decision  Decision
	Threshold *Threshold
}

// Matches reports whether the rule applies to the given tool call.
func (r Rule) Matches(toolName string, input json.RawMessage) bool {
	ok, err := doublestar.Match(r.Pattern, toolName)
	if err != nil || !ok {
		return false
	}
	if r.Threshold == nil {
		return true
	}
	v := gjson.GetBytes(input, r.Threshold.Field)
	return v.Exists() && v.Float() > r.Threshold.Max
}

// MatchRules evaluates rules against a tool call.
// Combination order: deny rules, then ask rules, then allow rules.
// Returns (decision, matched). If no rule matches, matched is false.
func MatchRules(rules []Rule, toolName string, input json.RawMessage) (Decision, bool) {
	var hasAsk, hasAllow bool

	for _, r := range rules {
		if !r.Matches(toolName, input) {
			continue
		}
		switch r.Decision {
		case Deny:
			return Deny, true
		case Ask:
			hasAsk = true
		case Allow:
			hasAllow = true
		}
	}

	if hasAsk {
		return Ask, true
	}
	if hasAllow {
		return Allow, true
	}
	return Allow, false
}

// AlwaysAsk builds unconditional Ask rules for the named tools — the
// "critical operations always need a human" list.
func AlwaysAsk(toolNames ...string) []Rule {
	rules := make([]Rule, 0, len(toolNames))
	for _, name := range toolNames {
		rules = append(rules, Rule{Pattern: name, Decision: Ask})
	}
	return rules
}

// AskOver builds an Ask rule that fires only when a numeric input field
// exceeds max — "refunds over $100", "emails to more than 10 recipients".
func AskOver(pattern, field string, max float64) Rule {
	return Rule{
		Pattern:   pattern,
		Decision:  Ask,
		Threshold: &Threshold{Field: field, Max: max},
	}
}
