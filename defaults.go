package gatekit

import "github.com/anthropics/anthropic-sdk-go"

// Model and output defaults.
const (
	// DefaultModel is the default Claude model used when no model is specified.
	DefaultModel = anthropic.ModelClaudeSonnet4_5

	// DefaultMaxOutputTokens is the default maximum output tokens per response.
	DefaultMaxOutputTokens = 16_384

	// DefaultMaxTurns is the default max turns (0 = unlimited).
	DefaultMaxTurns = 0

	// DefaultStreamBufferSize is the default channel buffer size for streaming events.
	DefaultStreamBufferSize = 64
)
