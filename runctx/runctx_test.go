package runctx_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekit/gatekit-go/runctx"
)

func TestContextIdentity(t *testing.T) {
	c := runctx.New("user_123", "Alice")

	assert.Equal(t, "user_123", c.UserID())
	assert.Equal(t, "Alice", c.UserName())
	assert.False(t, c.StartedAt().IsZero())

	c.SetUser("user_456", "Bob")
	assert.Equal(t, "user_456", c.UserID())
	assert.Equal(t, "Bob", c.UserName())

	c.SetRole("admin")
	assert.Equal(t, "admin", c.Role())
}

func TestContextPreferences(t *testing.T) {
	c := runctx.New("user_123", "Alice")

	assert.Empty(t, c.Preference("theme"))

	c.SetPreference("theme", "dark")
	c.SetPreference("language", "en")
	assert.Equal(t, "dark", c.Preference("theme"))

	prefs := c.Preferences()
	assert.Len(t, prefs, 2)

	// The returned map is a copy.
	prefs["theme"] = "light"
	assert.Equal(t, "dark", c.Preference("theme"))
}

func TestContextNotes(t *testing.T) {
	c := runctx.New("user_123", "Alice")

	assert.Equal(t, 1, c.AddNote("first"))
	assert.Equal(t, 2, c.AddNote("second"))

	notes := c.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "first", notes[0].Text)
	assert.Equal(t, "second", notes[1].Text)
	assert.False(t, notes[0].Timestamp.IsZero())
}

func TestContextDurationFormat(t *testing.T) {
	c := runctx.New("user_123", "Alice")
	assert.Regexp(t, `^\d+m \d+s$`, c.Duration())
}

func TestContextClear(t *testing.T) {
	c := runctx.New("user_123", "Alice")
	c.SetRole("admin")
	c.SetPreference("theme", "dark")
	c.AddNote("remember this")

	c.Clear()

	assert.Empty(t, c.UserID())
	assert.Empty(t, c.UserName())
	assert.Empty(t, c.Role())
	assert.Empty(t, c.Preferences())
	assert.Empty(t, c.Notes())

	// Still usable after a clear.
	c.SetUser("user_789", "Carol")
	assert.Equal(t, "Carol", c.UserName())
}

func TestContextPromptSection(t *testing.T) {
	c := runctx.New("user_123", "Alice")
	c.SetRole("admin")
	c.SetPreference("language", "en")
	c.SetPreference("theme", "dark")

	section := c.PromptSection()
	assert.Contains(t, section, "Alice")
	assert.Contains(t, section, "user_123")
	assert.Contains(t, section, "admin")
	assert.Contains(t, section, "language: en")
	assert.Contains(t, section, "theme: dark")
}

func TestContextPromptSectionEmptyWithoutIdentity(t *testing.T) {
	c := runctx.New("", "")
	assert.Empty(t, c.PromptSection())
}

func TestContextConcurrentAccess(t *testing.T) {
	c := runctx.New("user_123", "Alice")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SetPreference("theme", "dark")
			c.AddNote("note")
			_ = c.Preferences()
			_ = c.PromptSection()
		}()
	}
	wg.Wait()

	assert.Len(t, c.Notes(), 10)
}

func TestRegistryIsolatesSessions(t *testing.T) {
	r := runctx.NewRegistry()

	alice := r.Create("sess_a", "user_1", "Alice")
	bob := r.Create("sess_b", "user_2", "Bob")

	alice.SetPreference("theme", "dark")

	got, err := r.Get("sess_b")
	require.NoError(t, err)
	assert.Same(t, bob, got)
	assert.Empty(t, got.Preference("theme"), "sessions do not share state")

	assert.Equal(t, 2, r.Len())
}

func TestRegistryActiveSession(t *testing.T) {
	r := runctx.NewRegistry()

	_, err := r.Active()
	assert.Error(t, err)

	r.Create("sess_a", "user_1", "Alice")
	bob := r.Create("sess_b", "user_2", "Bob")

	active, err := r.Active()
	require.NoError(t, err)
	assert.Same(t, bob, active, "latest Create is active")

	require.NoError(t, r.Activate("sess_a"))
	active, err = r.Active()
	require.NoError(t, err)
	assert.Equal(t, "Alice", active.UserName())

	assert.Error(t, r.Activate("sess_missing"))
}

func TestRegistryRemove(t *testing.T) {
	r := runctx.NewRegistry()
	r.Create("sess_a", "user_1", "Alice")

	r.Remove("sess_a")
	assert.Equal(t, 0, r.Len())

	_, err := r.Get("sess_a")
	assert.Error(t, err)

	_, err = r.Active()
	assert.Error(t, err, "removing the active session clears the active mark")
}
