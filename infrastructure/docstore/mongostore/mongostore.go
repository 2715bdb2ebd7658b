// Package mongostore is the MongoDB docstore backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoID = "_id"

// Database serves the collections declared by schemas out of one mongo
// database.
type Database struct {
	db      *mongo.Database
	schemas map[string]docstore.Schema
}

// New wraps db.
func New(db *mongo.Database, schemas ...docstore.Schema) *Database {
	m := make(map[string]docstore.Schema, len(schemas))
	for _, s := range schemas {
		m[s.Collection] = s
	}
	return &Database{db: db, schemas: m}
}

func (d *Database) Collection(name string) (docstore.Collection, error) {
	s, ok := d.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrUnknownCollection, name)
	}
	return &Collection{coll: d.db.Collection(name), schema: s}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.Client().Ping(ctx, readpref.Primary())
}

func (d *Database) Close(ctx context.Context) error {
	return d.db.Client().Disconnect(ctx)
}

// Drop removes every declared collection.
func (d *Database) Drop(ctx context.Context) error {
	for name := range d.schemas {
		if err := d.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}

// Collection adapts a mongo collection.
type Collection struct {
	coll   *mongo.Collection
	schema docstore.Schema
}

func (c *Collection) Schema() docstore.Schema {
	return c.schema
}

func (c *Collection) Find(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	opts := options.Find()

	if len(q.Sort) > 0 {
		sort := make(bson.D, 0, len(q.Sort)+1)
		for _, s := range q.Sort {
			dir := 1
			if s.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: fieldName(s.Field), Value: dir})
		}
		sort = append(sort, bson.E{Key: mongoID, Value: 1})
		opts.SetSort(sort)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if len(q.Projection) > 0 {
		proj := bson.D{}
		for _, f := range q.Projection {
			proj = append(proj, bson.E{Key: fieldName(f), Value: 1})
		}
		opts.SetProjection(proj)
	}

	cur, err := c.coll.Find(ctx, buildFilter(q.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := make([]docstore.Document, len(raw))
	for i, m := range raw {
		out[i] = fromBSON(m)
	}
	return out, nil
}

func (c *Collection) Count(ctx context.Context, filter []docstore.Condition) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (c *Collection) Insert(ctx context.Context, doc docstore.Document) (docstore.Document, error) {
	doc = docstore.PrepareInsert(doc)
	if _, err := c.coll.InsertOne(ctx, toBSON(doc)); err != nil {
		return nil, handleError(err)
	}
	return doc, nil
}

func (c *Collection) FindByID(ctx context.Context, id string) (docstore.Document, error) {
	var m bson.M
	if err := c.coll.FindOne(ctx, bson.M{mongoID: id}).Decode(&m); err != nil {
		return nil, handleError(err)
	}
	return fromBSON(m), nil
}

func (c *Collection) UpdateByID(ctx context.Context, id string, patch docstore.Document) (docstore.Document, error) {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range patch {
		if k == docstore.KeyID {
			continue
		}
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = toValue(v)
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return c.FindByID(ctx, id)
	}

	var m bson.M
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := c.coll.FindOneAndUpdate(ctx, bson.M{mongoID: id}, update, opts).Decode(&m); err != nil {
		return nil, handleError(err)
	}
	return fromBSON(m), nil
}

func (c *Collection) DeleteByID(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{mongoID: id})
	if err != nil {
		return handleError(err)
	}
	if res.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter []docstore.Condition) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, buildFilter(filter))
	if err != nil {
		return 0, handleError(err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates a unique index per unique field and a 2dsphere
// index on the geo field.
func (c *Collection) EnsureIndexes(ctx context.Context) error {
	var models []mongo.IndexModel
	for _, f := range c.schema.Unique {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: fieldName(f), Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	if c.schema.GeoField != "" {
		models = append(models, mongo.IndexModel{
			Keys: bson.D{{Key: c.schema.GeoField, Value: "2dsphere"}},
		})
	}
	models = append(models, mongo.IndexModel{
		Keys: bson.D{{Key: docstore.KeyCreatedAt, Value: -1}},
	})

	if _, err := c.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", c.schema.Collection, err)
	}
	return nil
}

func handleError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return docstore.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", docstore.ErrDuplicate, err)
	}
	return err
}

func fieldName(f string) string {
	if f == docstore.KeyID {
		return mongoID
	}
	return f
}

// buildFilter translates conditions into a mongo filter document. Clauses
// are ANDed so several comparisons on one field never overwrite each other.
func buildFilter(filter []docstore.Condition) bson.M {
	if len(filter) == 0 {
		return bson.M{}
	}

	clauses := make(bson.A, 0, len(filter))
	for _, c := range filter {
		clauses = append(clauses, clause(c))
	}
	if len(clauses) == 1 {
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

func clause(c docstore.Condition) bson.M {
	field := fieldName(c.Field)

	switch c.Op {
	case docstore.OpEq:
		return bson.M{field: toValue(c.Value)}
	case docstore.OpIn:
		values, _ := c.Value.([]any)
		arr := make(bson.A, len(values))
		for i, v := range values {
			arr[i] = toValue(v)
		}
		return bson.M{field: bson.M{"$in": arr}}
	case docstore.OpWithin:
		circle, _ := c.Value.(docstore.Circle)
		return bson.M{field: bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{circle.Lng, circle.Lat}, circle.Radius},
		}}}
	}
	return bson.M{field: bson.M{"$" + string(c.Op): toValue(c.Value)}}
}

func toBSON(doc docstore.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[fieldName(k)] = toValue(v)
	}
	return out
}

func toValue(v any) any {
	switch t := v.(type) {
	case docstore.Document:
		m := make(bson.M, len(t))
		for k, e := range t {
			m[k] = toValue(e)
		}
		return m
	case map[string]any:
		return toValue(docstore.Document(t))
	case []any:
		arr := make(bson.A, len(t))
		for i, e := range t {
			arr[i] = toValue(e)
		}
		return arr
	case []docstore.Document:
		arr := make(bson.A, len(t))
		for i, e := range t {
			arr[i] = toValue(e)
		}
		return arr
	case time.Time:
		return t.UTC()
	}
	return v
}

func fromBSON(m bson.M) docstore.Document {
	out := make(docstore.Document, len(m))
	for k, v := range m {
		if k == mongoID {
			k = docstore.KeyID
		}
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromNested(t)
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return fromNested(m)
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromValue(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.ObjectID:
		return t.Hex()
	}
	return v
}

func fromNested(m bson.M) docstore.Document {
	out := make(docstore.Document, len(m))
	for k, v := range m {
		out[k] = fromValue(v)
	}
	return out
}
