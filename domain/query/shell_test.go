package query_test

import (
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

func TestParseMongoShell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantOp     string
		collection string
		filter     string
		sort       string
		field      string
		limit      int64
	}{
		{name: "show collections", input: "show collections", wantOp: "listCollections"},
		{name: "show tables", input: "SHOW  TABLES;", wantOp: "listCollections"},
		{name: "collection names", input: "db.getCollectionNames()", wantOp: "listCollections"},
		{name: "bare find", input: "db.users.find()", wantOp: "find", collection: "users"},
		{
			name:       "find with filter sort limit",
			input:      `db.users.find({"age": {"$gt": 30}}).sort({"age": -1}).limit(5)`,
			wantOp:     "find",
			collection: "users",
			filter:     `{"age": {"$gt": 30}}`,
			sort:       `{"age": -1}`,
			limit:      5,
		},
		{
			name:       "relaxed keys and quotes",
			input:      `db.users.find({status: 'active'})`,
			wantOp:     "find",
			collection: "users",
			filter:     `{"status": "active"}`,
		},
		{
			name:       "object id",
			input:      `db.users.findOne({_id: ObjectId("507f1f77bcf86cd799439011")})`,
			wantOp:     "findOne",
			collection: "users",
			filter:     `{"_id": {"$oid":"507f1f77bcf86cd799439011"}}`,
		},
		{
			name:       "find count",
			input:      `db.orders.find({"paid": true}).count()`,
			wantOp:     "countDocuments",
			collection: "orders",
			filter:     `{"paid": true}`,
		},
		{
			name:       "distinct",
			input:      `db.orders.distinct("status")`,
			wantOp:     "distinct",
			collection: "orders",
			field:      "status",
		},
		{
			name:       "get collection",
			input:      `db.getCollection("audit.log").find()`,
			wantOp:     "find",
			collection: "audit.log",
		},
		{
			name:       "write method is still parsed",
			input:      `db.users.deleteMany({})`,
			wantOp:     "deleteMany",
			collection: "users",
			filter:     `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := query.ParseMongoShell(tt.input)
			if d.Backend != query.MongoDB {
				t.Errorf("Backend = %v", d.Backend)
			}
			if d.Mongo == nil {
				t.Fatalf("ParseMongoShell(%q) produced no operation", tt.input)
			}
			op := d.Mongo
			if op.Name != tt.wantOp {
				t.Errorf("Name = %q, want %q", op.Name, tt.wantOp)
			}
			if op.Collection != tt.collection {
				t.Errorf("Collection = %q, want %q", op.Collection, tt.collection)
			}
			assertJSON(t, "Filter", op.Filter, tt.filter)
			assertJSON(t, "Sort", op.Sort, tt.sort)
			if op.Field != tt.field {
				t.Errorf("Field = %q, want %q", op.Field, tt.field)
			}
			if op.Limit != tt.limit {
				t.Errorf("Limit = %d, want %d", op.Limit, tt.limit)
			}
		})
	}
}

func TestParseMongoShell_Unparseable(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"hello",
		"db.users",
		"db.users.find(",
		"db.users.find({a: })",
		"db.users.find().forEach(printjson)",
		"db.users.find({x: someVar})",
		"db.users.find().limit(abc)",
	}

	for _, input := range inputs {
		d := query.ParseMongoShell(input)
		if d.Mongo != nil {
			t.Errorf("ParseMongoShell(%q) = %+v, want no operation", input, d.Mongo)
		}
	}
}

func assertJSON(t *testing.T, field string, got json.RawMessage, want string) {
	t.Helper()

	if want == "" {
		if got != nil {
			t.Errorf("%s = %s, want nil", field, got)
		}
		return
	}

	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("%s is not valid JSON: %s", field, got)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("bad want JSON: %s", want)
	}
	gb, _ := json.Marshal(g)
	wb, _ := json.Marshal(w)
	if string(gb) != string(wb) {
		t.Errorf("%s = %s, want %s", field, gb, wb)
	}
}
