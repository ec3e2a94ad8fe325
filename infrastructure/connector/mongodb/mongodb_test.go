package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
	"github.com/felixgeelhaar/dbmcp/domain/query"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	c := domainconfig.Defaults()
	c.MongoDB.URI = "mongodb://localhost:27017"
	c.MongoDB.Database = "app"

	cfg := FromConfig(c)
	if cfg.URI != "mongodb://localhost:27017" || cfg.Database != "app" {
		t.Errorf("FromConfig() = %+v", cfg)
	}
	if cfg.ConnectTimeout != 10*time.Second || cfg.MaxRows != 500 {
		t.Errorf("FromConfig() = %+v", cfg)
	}
}

func TestConnector_InvalidURI(t *testing.T) {
	t.Parallel()

	c := New(Config{URI: "not-a-uri", Database: "app"})
	if c.Backend() != query.MongoDB {
		t.Errorf("Backend() = %s", c.Backend())
	}
	if _, err := c.Connect(context.Background()); !query.IsConnectorError(err) {
		t.Fatalf("Connect() error = %v, want connector error", err)
	}
}

func TestDecodeDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr bool
	}{
		{name: "absent", raw: "", wantLen: 0},
		{name: "simple", raw: `{"age": {"$gt": 21}, "name": "ada"}`, wantLen: 2},
		{name: "extended json", raw: `{"_id": {"$oid": "507f1f77bcf86cd799439011"}}`, wantLen: 1},
		{name: "malformed", raw: `{"age": `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := decodeDocument(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, query.ErrInvalidDescriptor) {
					t.Fatalf("decodeDocument() error = %v, want ErrInvalidDescriptor", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeDocument() error = %v", err)
			}
			if len(doc) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(doc), tt.wantLen)
			}
		})
	}
}

func TestDecodeDocument_ObjectID(t *testing.T) {
	t.Parallel()

	doc, err := decodeDocument(json.RawMessage(`{"_id": {"$oid": "507f1f77bcf86cd799439011"}}`))
	if err != nil {
		t.Fatalf("decodeDocument() error = %v", err)
	}
	if _, ok := doc[0].Value.(primitive.ObjectID); !ok {
		t.Errorf("_id decoded as %T, want ObjectID", doc[0].Value)
	}
}

func TestDecodePipeline(t *testing.T) {
	t.Parallel()

	p, err := decodePipeline(json.RawMessage(`[{"$match": {"status": "A"}}, {"$group": {"_id": "$cust_id", "total": {"$sum": "$amount"}}}]`))
	if err != nil {
		t.Fatalf("decodePipeline() error = %v", err)
	}
	if len(p) != 2 {
		t.Fatalf("len = %d, want 2", len(p))
	}
	if p[0][0].Key != "$match" || p[1][0].Key != "$group" {
		t.Errorf("stage order lost: %v", p)
	}

	if p, err := decodePipeline(nil); err != nil || len(p) != 0 {
		t.Errorf("decodePipeline(nil) = %v, %v", p, err)
	}
	if _, err := decodePipeline(json.RawMessage(`[{"$match": `)); !errors.Is(err, query.ErrInvalidDescriptor) {
		t.Errorf("decodePipeline(malformed) error = %v", err)
	}
}

func TestConvertDocuments(t *testing.T) {
	t.Parallel()

	oid, _ := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
	first, _ := bson.Marshal(bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "ada"}})
	second, _ := bson.Marshal(bson.D{{Key: "name", Value: "grace"}, {Key: "age", Value: int32(85)}})

	columns, rows, err := convertDocuments([]bson.Raw{first, second})
	if err != nil {
		t.Fatalf("convertDocuments() error = %v", err)
	}

	wantCols := []string{"_id", "name", "age"}
	if len(columns) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", columns, wantCols)
	}
	for i := range wantCols {
		if columns[i] != wantCols[i] {
			t.Errorf("columns[%d] = %s, want %s", i, columns[i], wantCols[i])
		}
	}

	id, ok := rows[0]["_id"].(map[string]any)
	if !ok || id["$oid"] != "507f1f77bcf86cd799439011" {
		t.Errorf("_id = %#v", rows[0]["_id"])
	}
	if rows[1]["age"] != float64(85) {
		t.Errorf("age = %#v, want 85", rows[1]["age"])
	}
}

func TestJSONValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "string", in: "a", want: "a"},
		{name: "int32", in: int32(7), want: float64(7)},
		{name: "bool", in: true, want: true},
		{name: "null", in: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := jsonValue(tt.in)
			if err != nil {
				t.Fatalf("jsonValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("jsonValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestHandle_FetchLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		maxRows   int
		requested int64
		want      int64
	}{
		{maxRows: 500, requested: 0, want: 501},
		{maxRows: 500, requested: 10, want: 10},
		{maxRows: 500, requested: 1000, want: 501},
		{maxRows: 0, requested: 0, want: 0},
		{maxRows: 0, requested: 5, want: 5},
	}

	for _, tt := range tests {
		h := &handle{maxRows: tt.maxRows}
		if got := h.fetchLimit(tt.requested); got != tt.want {
			t.Errorf("fetchLimit(%d) with max %d = %d, want %d", tt.requested, tt.maxRows, got, tt.want)
		}
	}
}
