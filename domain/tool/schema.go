package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Schema wraps a JSON Schema document.
type Schema struct {
	raw json.RawMessage
}

// NewSchema creates a schema from raw JSON.
func NewSchema(raw json.RawMessage) Schema {
	return Schema{raw: raw}
}

// EmptySchema returns a schema for a tool that takes no arguments.
func EmptySchema() Schema {
	return Schema{raw: json.RawMessage(`{"type":"object","properties":{}}`)}
}

// Property is one argument of an object schema.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
	Default     any       `json:"default,omitempty"`
}

// String returns a string property.
func String(desc string) Property {
	return Property{Type: "string", Description: desc}
}

// Enum returns a string property limited to values.
func Enum(desc string, values ...string) Property {
	return Property{Type: "string", Description: desc, Enum: values}
}

// Integer returns an integer property.
func Integer(desc string) Property {
	return Property{Type: "integer", Description: desc}
}

// Object returns a free-form object property.
func Object(desc string) Property {
	return Property{Type: "object", Description: desc}
}

// Array returns an array property with the given item type.
func Array(desc string, items Property) Property {
	return Property{Type: "array", Description: desc, Items: &items}
}

// ObjectSchema returns a schema for an object with the given properties.
func ObjectSchema(properties map[string]Property, required ...string) Schema {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return Schema{raw: raw}
}

// Raw returns the underlying JSON schema.
func (s Schema) Raw() json.RawMessage {
	return s.raw
}

// Summary renders the schema's arguments as "name (type, required): desc"
// lines for tool descriptions.
func (s Schema) Summary() string {
	var doc struct {
		Properties map[string]Property `json:"properties"`
		Required   []string            `json:"required"`
	}
	if err := json.Unmarshal(s.raw, &doc); err != nil || len(doc.Properties) == 0 {
		return ""
	}

	required := make(map[string]bool, len(doc.Required))
	for _, r := range doc.Required {
		required[r] = true
	}
	names := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		p := doc.Properties[name]
		kind := p.Type
		if required[name] {
			kind += ", required"
		}
		fmt.Fprintf(&b, "- %s (%s)", name, kind)
		if p.Description != "" {
			b.WriteString(": " + p.Description)
		}
		if len(p.Enum) > 0 {
			b.WriteString(" One of: " + strings.Join(p.Enum, ", ") + ".")
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.raw == nil {
		return []byte("{}"), nil
	}
	return s.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

// DecodeInput unmarshals tool arguments into T. Empty input and JSON null
// decode to the zero value. Unknown fields are rejected so misspelled
// arguments surface as errors.
func DecodeInput[T any](input json.RawMessage) (T, error) {
	var v T
	input = bytes.TrimSpace(input)
	if len(input) == 0 || bytes.Equal(input, []byte("null")) {
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return v, nil
}
