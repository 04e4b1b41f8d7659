package runctx

import (
	"fmt"
	"sync"
)

// Registry maps session keys to their Contexts. It supports hosting multiple
// logical sessions in one process, each isolated under its own key.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Context
	active   string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Context),
	}
}

// Create registers a new Context under the given session key and marks it
// active. An existing Context under the same key is replaced.
func (r *Registry) Create(sessionKey, userID, userName string) *Context {
	c := New(userID, userName)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionKey] = c
	r.active = sessionKey
	return c
}

// Get returns the Context for a session key.
func (r *Registry) Get(sessionKey string) (*Context, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.sessions[sessionKey]
	if !ok {
		return nil, fmt.Errorf("runctx: no session %q", sessionKey)
	}
	return c, nil
}

// Active returns the most recently created or activated Context.
func (r *Registry) Active() (*Context, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return nil, fmt.Errorf("runctx: no active session")
	}
	c, ok := r.sessions[r.active]
	if !ok {
		return nil, fmt.Errorf("runctx: no active session")
	}
	return c, nil
}

// Activate marks an existing session as active.
func (r *Registry) Activate(sessionKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionKey]; !ok {
		return fmt.Errorf("runctx: no session %q", sessionKey)
	}
	r.active = sessionKey
	return nil
}

// Remove deletes a session. Removing the active session clears the active mark.
func (r *Registry) Remove(sessionKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionKey)
	if r.active == sessionKey {
		r.active = ""
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
