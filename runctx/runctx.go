// Package runctx carries request-scoped user context into tool
// implementations. Instead of a process-wide mutable map, callers build a
// [Context], attach it to a run, and tools read it back out — one Context
// per logical session, isolated from every other session.
package runctx

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Note is a timestamped free-text annotation attached to a session.
type Note struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Context holds the request-scoped data for a single logical session.
// It is safe for concurrent use.
type Context struct {
	mu          sync.RWMutex
	userID      string
	userName    string
	role        string
	preferences map[string]string
	notes       []Note
	startedAt   time.Time
}

// New creates a Context for the given user with the session clock started.
func New(userID, userName string) *Context {
	return &Context{
		userID:      userID,
		userName:    userName,
		preferences: make(map[string]string),
		startedAt:   time.Now(),
	}
}

// UserID returns the user identifier.
func (c *Context) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// UserName returns the user's display name.
func (c *Context) UserName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userName
}

// SetUser replaces the user identity.
func (c *Context) SetUser(userID, userName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.userName = userName
}

// Role returns the user's role ("user", "admin", ...). Empty if unset.
func (c *Context) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// SetRole sets the user's role.
func (c *Context) SetRole(role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// Preference returns the value for a preference key, or "" if unset.
func (c *Context) Preference(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preferences[key]
}

// SetPreference sets a preference key to a value.
func (c *Context) SetPreference(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferences[key] = value
}

// Preferences returns a copy of all preferences.
func (c *Context) Preferences() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.preferences))
	for k, v := range c.preferences {
		out[k] = v
	}
	return out
}

// AddNote appends a timestamped note and returns the new note count.
func (c *Context) AddNote(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, Note{Text: text, Timestamp: time.Now()})
	return len(c.notes)
}

// Notes returns a copy of all notes in insertion order.
func (c *Context) Notes() []Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Note, len(c.notes))
	copy(out, c.notes)
	return out
}

// StartedAt returns when the session clock started.
func (c *Context) StartedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startedAt
}

// Duration returns the elapsed session time formatted as "{m}m {s}s".
func (c *Context) Duration() string {
	c.mu.RLock()
	start := c.startedAt
	c.mu.RUnlock()

	d := time.Since(start)
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// PromptSection renders the context as a text block suitable for appending
// to a system prompt. Returns "" when no identity is set.
func (c *Context) PromptSection() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.userID == "" && c.userName == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("Current user context:\n")
	fmt.Fprintf(&b, "- Name: %s (id: %s)\n", c.userName, c.userID)
	if c.role != "" {
		fmt.Fprintf(&b, "- Role: %s\n", c.role)
	}
	if len(c.preferences) > 0 {
		keys := make([]string, 0, len(c.preferences))
		for k := range c.preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("- Preferences:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s: %s\n", k, c.preferences[k])
		}
	}
	return b.String()
}

// Clear resets identity, preferences, and notes, keeping the Context usable.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = ""
	c.userName = ""
	c.role = ""
	c.preferences = make(map[string]string)
	c.notes = nil
	c.startedAt = time.Now()
}
