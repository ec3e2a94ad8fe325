package query

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Descriptor is the normalized form of a requested database operation.
// It is what the read-only guard evaluates and what connectors execute.
type Descriptor struct {
	// Backend selects the connector.
	Backend Backend `json:"backend"`

	// Statement is the raw SQL text for SQL backends, or the original shell
	// text for MongoDB requests that arrived as a string.
	Statement string `json:"statement,omitempty"`

	// Mongo is the structured MongoDB operation. Nil means the request could
	// not be understood as one.
	Mongo *MongoOperation `json:"mongo,omitempty"`
}

// MongoOperation describes a single MongoDB command against one collection.
// Document-valued fields hold extended JSON so key order and BSON types
// survive until the connector decodes them.
type MongoOperation struct {
	Name       string          `json:"operation"`
	Collection string          `json:"collection,omitempty"`
	Filter     json.RawMessage `json:"filter,omitempty"`
	Pipeline   json.RawMessage `json:"pipeline,omitempty"`
	Field      string          `json:"field,omitempty"`
	Projection json.RawMessage `json:"projection,omitempty"`
	Sort       json.RawMessage `json:"sort,omitempty"`
	Limit      int64           `json:"limit,omitempty"`
}

// NewSQLDescriptor builds a descriptor for a SQL backend. Blank statements
// are accepted here; the guard rejects them with a descriptive reason.
func NewSQLDescriptor(backend Backend, statement string) (Descriptor, error) {
	if !backend.IsSQL() {
		return Descriptor{}, invalid("backend %s does not accept SQL", backend)
	}
	return Descriptor{Backend: backend, Statement: statement}, nil
}

// NewMongoDescriptor validates the shape of a MongoDB operation and wraps it
// in a descriptor.
func NewMongoDescriptor(op MongoOperation) (Descriptor, error) {
	op.Name = strings.TrimSpace(op.Name)
	op.Collection = strings.TrimSpace(op.Collection)

	if op.Limit < 0 {
		return Descriptor{}, invalid("limit must not be negative")
	}
	if err := checkDocument("filter", op.Filter); err != nil {
		return Descriptor{}, err
	}
	if err := checkDocument("projection", op.Projection); err != nil {
		return Descriptor{}, err
	}
	if err := checkDocument("sort", op.Sort); err != nil {
		return Descriptor{}, err
	}
	if err := checkPipeline(op.Pipeline); err != nil {
		return Descriptor{}, err
	}

	op.Filter = normalizeRaw(op.Filter)
	op.Projection = normalizeRaw(op.Projection)
	op.Sort = normalizeRaw(op.Sort)
	op.Pipeline = normalizeRaw(op.Pipeline)

	return Descriptor{Backend: MongoDB, Mongo: &op}, nil
}

// checkDocument ensures raw is absent, null or a JSON object.
func checkDocument(name string, raw json.RawMessage) error {
	raw = normalizeRaw(raw)
	if raw == nil {
		return nil
	}
	if !json.Valid(raw) || raw[0] != '{' {
		return invalid("%s must be a JSON object", name)
	}
	return nil
}

// checkPipeline ensures raw is absent, null or a JSON array of objects.
func checkPipeline(raw json.RawMessage) error {
	raw = normalizeRaw(raw)
	if raw == nil {
		return nil
	}
	var stages []json.RawMessage
	if err := json.Unmarshal(raw, &stages); err != nil {
		return invalid("pipeline must be a JSON array of stages")
	}
	for i, stage := range stages {
		stage = bytes.TrimSpace(stage)
		if len(stage) == 0 || stage[0] != '{' {
			return invalid("pipeline stage %d must be a JSON object", i+1)
		}
	}
	return nil
}

// normalizeRaw trims whitespace and maps JSON null to nil.
func normalizeRaw(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}
