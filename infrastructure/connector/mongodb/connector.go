package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// Connector opens one MongoDB client per call.
type Connector struct {
	cfg Config
}

// New creates a MongoDB connector.
func New(cfg Config) *Connector {
	return &Connector{cfg: cfg}
}

// Backend implements query.Connector.
func (c *Connector) Backend() query.Backend {
	return query.MongoDB
}

// Connect implements query.Connector. The client is limited to a single
// pooled connection and disconnected by Close.
func (c *Connector) Connect(ctx context.Context) (query.Handle, error) {
	opts := options.Client().
		ApplyURI(c.cfg.URI).
		SetAppName("dbmcp").
		SetMaxPoolSize(1)
	if c.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(c.cfg.ConnectTimeout).
			SetServerSelectionTimeout(c.cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, query.NewConnectorError(query.MongoDB, "connect", err)
	}
	return &handle{
		client:  client,
		db:      client.Database(c.cfg.Database),
		maxRows: c.cfg.MaxRows,
	}, nil
}

type handle struct {
	client  *mongo.Client
	db      *mongo.Database
	maxRows int
}

func (h *handle) ListTables(ctx context.Context) ([]string, error) {
	names, err := h.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, query.NewConnectorError(query.MongoDB, "list collections", err)
	}
	sort.Strings(names)
	return names, nil
}

// Execute runs a guarded read operation.
func (h *handle) Execute(ctx context.Context, d query.Descriptor) (query.Result, error) {
	op := d.Mongo
	if d.Backend != query.MongoDB || op == nil {
		return query.Result{}, query.ErrUnsupportedOperation
	}

	filter, err := decodeDocument(op.Filter)
	if err != nil {
		return query.Result{}, err
	}
	coll := h.db.Collection(op.Collection)

	switch strings.ToLower(op.Name) {
	case "find":
		return h.find(ctx, coll, op, filter)
	case "findone":
		return h.findOne(ctx, coll, op, filter)
	case "aggregate":
		return h.aggregate(ctx, coll, op)
	case "count", "countdocuments":
		opts := options.Count()
		if op.Limit > 0 {
			opts.SetLimit(op.Limit)
		}
		n, err := coll.CountDocuments(ctx, filter, opts)
		if err != nil {
			return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
		}
		return query.CountResult(query.MongoDB, n), nil
	case "estimateddocumentcount":
		n, err := coll.EstimatedDocumentCount(ctx)
		if err != nil {
			return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
		}
		return query.CountResult(query.MongoDB, n), nil
	case "distinct":
		values, err := coll.Distinct(ctx, op.Field, filter)
		if err != nil {
			return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
		}
		converted := make([]any, 0, len(values))
		for _, v := range values {
			jv, err := jsonValue(v)
			if err != nil {
				return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
			}
			converted = append(converted, jv)
		}
		return query.ValuesResult(query.MongoDB, op.Field, converted, h.maxRows), nil
	case "listcollections":
		names, err := h.ListTables(ctx)
		if err != nil {
			return query.Result{}, err
		}
		return query.ValuesResult(query.MongoDB, "name", names, h.maxRows), nil
	default:
		return query.Result{}, fmt.Errorf("%w: %s", query.ErrUnsupportedOperation, op.Name)
	}
}

func (h *handle) find(ctx context.Context, coll *mongo.Collection, op *query.MongoOperation, filter bson.D) (query.Result, error) {
	opts := options.Find()
	if err := applyShape(op, opts); err != nil {
		return query.Result{}, err
	}
	if limit := h.fetchLimit(op.Limit); limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
	}
	return h.collect(ctx, cursor, op)
}

func (h *handle) findOne(ctx context.Context, coll *mongo.Collection, op *query.MongoOperation, filter bson.D) (query.Result, error) {
	opts := options.FindOne()
	projection, err := decodeDocument(op.Projection)
	if err != nil {
		return query.Result{}, err
	}
	sortDoc, err := decodeDocument(op.Sort)
	if err != nil {
		return query.Result{}, err
	}
	if projection != nil {
		opts.SetProjection(projection)
	}
	if sortDoc != nil {
		opts.SetSort(sortDoc)
	}

	raw, err := coll.FindOne(ctx, filter, opts).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return query.NewResult(query.MongoDB, nil, nil, 0), nil
	}
	if err != nil {
		return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
	}

	columns, rows, err := convertDocuments([]bson.Raw{raw})
	if err != nil {
		return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
	}
	return query.NewResult(query.MongoDB, columns, rows, 0), nil
}

func (h *handle) aggregate(ctx context.Context, coll *mongo.Collection, op *query.MongoOperation) (query.Result, error) {
	pipeline, err := decodePipeline(op.Pipeline)
	if err != nil {
		return query.Result{}, err
	}
	if limit := h.fetchLimit(op.Limit); limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
	}
	return h.collect(ctx, cursor, op)
}

// fetchLimit asks for one document past the cap so truncation is visible.
func (h *handle) fetchLimit(requested int64) int64 {
	if h.maxRows <= 0 {
		return requested
	}
	ceiling := int64(h.maxRows) + 1
	if requested > 0 && requested < ceiling {
		return requested
	}
	return ceiling
}

func (h *handle) collect(ctx context.Context, cursor *mongo.Cursor, op *query.MongoOperation) (query.Result, error) {
	defer func() { _ = cursor.Close(ctx) }()

	var docs []bson.Raw
	for cursor.Next(ctx) {
		docs = append(docs, append(bson.Raw(nil), cursor.Current...))
	}
	if err := cursor.Err(); err != nil {
		return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
	}

	columns, rows, err := convertDocuments(docs)
	if err != nil {
		return query.Result{}, query.NewConnectorError(query.MongoDB, op.Name, err)
	}
	return query.NewResult(query.MongoDB, columns, rows, h.maxRows), nil
}

func (h *handle) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}

func applyShape(op *query.MongoOperation, opts *options.FindOptions) error {
	projection, err := decodeDocument(op.Projection)
	if err != nil {
		return err
	}
	sortDoc, err := decodeDocument(op.Sort)
	if err != nil {
		return err
	}
	if projection != nil {
		opts.SetProjection(projection)
	}
	if sortDoc != nil {
		opts.SetSort(sortDoc)
	}
	return nil
}
