package gatekit

import "errors"

// Sentinel errors returned by the agent loop and client operations.
var (
	ErrNoConversation    = errors.New("gatekit: no conversation store configured")
	ErrNoConversations   = errors.New("gatekit: store contains no conversations")
	ErrMissingCredential = errors.New("gatekit: ANTHROPIC_API_KEY is not set (export ANTHROPIC_API_KEY=sk-... to fix)")
)
