package guard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// readOperations are the MongoDB commands the guard admits, keyed by their
// lower-cased name.
var readOperations = map[string]bool{
	"find":                   true,
	"findone":                true,
	"aggregate":              true,
	"count":                  true,
	"countdocuments":         true,
	"estimateddocumentcount": true,
	"distinct":               true,
	"listcollections":        true,
}

var writeOperations = map[string]bool{
	"insertone":         true,
	"insertmany":        true,
	"insert":            true,
	"updateone":         true,
	"updatemany":        true,
	"update":            true,
	"replaceone":        true,
	"deleteone":         true,
	"deletemany":        true,
	"remove":            true,
	"findoneandupdate":  true,
	"findoneandreplace": true,
	"findoneanddelete":  true,
	"bulkwrite":         true,
	"save":              true,
	"drop":              true,
	"dropdatabase":      true,
	"createcollection":  true,
	"createindex":       true,
	"createindexes":     true,
	"dropindex":         true,
	"dropindexes":       true,
	"renamecollection":  true,
	"mapreduce":         true,
}

// forbiddenOperators are rejected at any depth of a filter, projection,
// sort or pipeline.
var forbiddenOperators = map[string]string{
	"$out":               "write stage",
	"$merge":             "write stage",
	"$where":             "server-side JavaScript operator",
	"$function":          "server-side JavaScript operator",
	"$accumulator":       "server-side JavaScript operator",
	"$currentop":         "cluster introspection stage",
	"$listsessions":      "cluster introspection stage",
	"$listlocalsessions": "cluster introspection stage",
}

func evaluateMongo(op *query.MongoOperation) Verdict {
	if op == nil || strings.TrimSpace(op.Name) == "" {
		return Reject(ReasonEmpty)
	}

	name := strings.ToLower(strings.TrimSpace(op.Name))
	if writeOperations[name] {
		return Reject("write operation %s is not permitted", op.Name)
	}
	if !readOperations[name] {
		return Reject("operation %s is not a read operation", op.Name)
	}
	if name != "listcollections" && strings.TrimSpace(op.Collection) == "" {
		return Reject(ReasonEmpty)
	}
	if name == "distinct" && strings.TrimSpace(op.Field) == "" {
		return Reject(ReasonEmpty)
	}

	for _, doc := range []json.RawMessage{op.Filter, op.Pipeline, op.Projection, op.Sort} {
		if len(doc) == 0 {
			continue
		}
		v, ok := decodeDocument(doc)
		if !ok {
			return Reject(ReasonEmpty)
		}
		if key, kind, found := findForbidden(v); found {
			return Reject("%s %s is not permitted", kind, key)
		}
	}
	return Allow()
}

// findForbidden walks a decoded JSON value depth-first. Object keys are
// visited in sorted order so the reported operator is deterministic.
func findForbidden(v any) (string, string, bool) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if kind, ok := forbiddenOperators[strings.ToLower(k)]; ok {
				return k, kind, true
			}
			if key, kind, found := findForbidden(t[k]); found {
				return key, kind, true
			}
		}
	case []any:
		for _, item := range t {
			if key, kind, found := findForbidden(item); found {
				return key, kind, true
			}
		}
	}
	return "", "", false
}

// decodeDocument decodes a single JSON value and reports false when it is
// malformed, followed by trailing data, or has an object with a repeated key.
// The driver keeps every duplicate when building BSON, so a map that keeps
// only the last one would hide operators from the walk.
func decodeDocument(doc []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}

var errDuplicateKey = errors.New("duplicate key")

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := make(map[string]any)
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := kt.(string)
			if _, seen := obj[key]; seen {
				return nil, errDuplicateKey
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		var arr []any
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}
