package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saveInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"required,description=Unique identifier for this conversation"`
	UserName       string `json:"user_name" jsonschema:"required,description=Name of the user"`
	Topic          string `json:"topic" jsonschema:"required,description=Main topic of conversation"`
}

type refundInput struct {
	OrderID string  `json:"order_id" jsonschema:"required,description=Order ID"`
	Amount  float64 `json:"amount" jsonschema:"required,description=Refund amount in USD"`
	Reason  string  `json:"reason,omitempty" jsonschema:"description=Reason for refund"`
}

type optionalNumbers struct {
	Key    string `json:"key" jsonschema:"required"`
	Offset *int   `json:"offset,omitempty" jsonschema:"description=Entries to skip"`
	DryRun bool   `json:"dry_run,omitempty"`
}

func TestGenerateRequiredAndDescriptions(t *testing.T) {
	schema := Generate[saveInput]()

	props, ok := schema.Properties.(map[string]any)
	require.True(t, ok, "Properties should be map[string]any")

	id, ok := props["conversation_id"].(map[string]any)
	require.True(t, ok, "conversation_id should exist")
	assert.Equal(t, "string", id["type"])
	assert.Equal(t, "Unique identifier for this conversation", id["description"])

	assert.Contains(t, schema.Required, "conversation_id")
	assert.Contains(t, schema.Required, "user_name")
	assert.Contains(t, schema.Required, "topic")
}

func TestGenerateNumericAndOptional(t *testing.T) {
	schema := Generate[refundInput]()

	assert.Contains(t, schema.Required, "order_id")
	assert.Contains(t, schema.Required, "amount")
	assert.NotContains(t, schema.Required, "reason")

	props, ok := schema.Properties.(map[string]any)
	require.True(t, ok)

	amount, ok := props["amount"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", amount["type"])
}

func TestGeneratePointerAndBool(t *testing.T) {
	schema := Generate[optionalNumbers]()

	props, ok := schema.Properties.(map[string]any)
	require.True(t, ok)

	_, hasOffset := props["offset"]
	assert.True(t, hasOffset, "offset should be in properties")

	dry, ok := props["dry_run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boolean", dry["type"])
}

func TestGenerateJSONRoundtrip(t *testing.T) {
	data, err := GenerateJSON[saveInput]()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, "object", m["type"])
	assert.NotNil(t, m["properties"])
	assert.NotNil(t, m["required"])
}
