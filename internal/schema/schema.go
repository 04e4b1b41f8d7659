// Package schema derives Anthropic tool input schemas from Go struct types.
package schema

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// Generate produces an anthropic.ToolInputSchemaParam from a Go struct type T,
// using json and jsonschema struct tags.
func Generate[T any]() anthropic.ToolInputSchemaParam {
	var zero T
	reflected := jsonschema.Reflect(&zero)
	root := rootSchema(reflected)

	return anthropic.ToolInputSchemaParam{
		Properties: convertProperties(root),
		Required:   root.Required,
	}
}

// GenerateJSON returns the schema for T as raw JSON bytes.
func GenerateJSON[T any]() (json.RawMessage, error) {
	return json.Marshal(Generate[T]())
}

// rootSchema resolves the schema for the reflected type. invopop/jsonschema
// emits a $ref to $defs for struct types, so the real object schema lives in
// the definitions map.
func rootSchema(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Ref != "" && s.Definitions != nil {
		for _, def := range s.Definitions {
			if def.Type == "object" {
				return def
			}
		}
	}
	return s
}

// convertProperties flattens the ordered property map into the plain
// map[string]any the Anthropic API expects.
func convertProperties(s *jsonschema.Schema) map[string]any {
	if s.Properties == nil {
		return nil
	}
	props := make(map[string]any)
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		props[pair.Key] = convertProperty(pair.Value)
	}
	return props
}

func convertProperty(s *jsonschema.Schema) map[string]any {
	m := make(map[string]any)

	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Default != nil {
		m["default"] = s.Default
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}

	// Nullable (pointer) fields come back as anyOf [T, null]; surface T.
	if len(s.AnyOf) > 0 {
		for _, sub := range s.AnyOf {
			if sub.Type != "null" && sub.Type != "" {
				m["type"] = sub.Type
				break
			}
		}
	}

	if s.Properties != nil {
		m["type"] = "object"
		m["properties"] = convertProperties(s)
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	}

	if s.Items != nil {
		m["items"] = convertProperty(s.Items)
	}

	return m
}
