package mongodb

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// decodeDocument parses extended JSON into an ordered document. An absent
// document decodes to an empty filter.
func decodeDocument(raw json.RawMessage) (bson.D, error) {
	if len(raw) == 0 {
		return bson.D{}, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrInvalidDescriptor, err)
	}
	return doc, nil
}

// decodePipeline parses an extended JSON array of stages.
func decodePipeline(raw json.RawMessage) (mongo.Pipeline, error) {
	if len(raw) == 0 {
		return mongo.Pipeline{}, nil
	}
	wrapped := make([]byte, 0, len(raw)+16)
	wrapped = append(wrapped, `{"pipeline":`...)
	wrapped = append(wrapped, raw...)
	wrapped = append(wrapped, '}')

	var doc struct {
		Pipeline []bson.D `bson:"pipeline"`
	}
	if err := bson.UnmarshalExtJSON(wrapped, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrInvalidDescriptor, err)
	}
	return mongo.Pipeline(doc.Pipeline), nil
}

// convertDocuments renders documents as relaxed extended JSON maps. Columns
// list field names in first-seen order.
func convertDocuments(docs []bson.Raw) ([]string, []query.Row, error) {
	var columns []string
	seen := make(map[string]bool)
	rows := make([]query.Row, 0, len(docs))

	for _, doc := range docs {
		elems, err := doc.Elements()
		if err != nil {
			return nil, nil, err
		}
		for _, e := range elems {
			if key := e.Key(); !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}

		ext, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return nil, nil, err
		}
		var row query.Row
		if err := json.Unmarshal(ext, &row); err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// jsonValue converts a single driver value, as returned by Distinct, into
// its relaxed extended JSON form.
func jsonValue(v any) (any, error) {
	ext, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		V any `json:"v"`
	}
	if err := json.Unmarshal(ext, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.V, nil
}
