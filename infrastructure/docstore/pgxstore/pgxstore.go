// Package pgxstore is the PostgreSQL docstore backend. Every collection is a
// slice of one JSONB table; times are stored as fixed width UTC strings so
// that text order is time order.
package pgxstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/postgresdb"
)

const table = "documents"

// Database serves the collections declared by schemas out of the documents
// table.
type Database struct {
	pool    *pgxpool.Pool
	schemas map[string]docstore.Schema
}

// New wraps pool.
func New(pool *pgxpool.Pool, schemas ...docstore.Schema) *Database {
	m := make(map[string]docstore.Schema, len(schemas))
	for _, s := range schemas {
		m[s.Collection] = s
	}
	return &Database{pool: pool, schemas: m}
}

func (d *Database) Collection(name string) (docstore.Collection, error) {
	s, ok := d.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrUnknownCollection, name)
	}
	return &Collection{pool: d.pool, schema: s}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return postgresdb.StatusCheck(ctx, d.pool)
}

func (d *Database) Close(ctx context.Context) error {
	d.pool.Close()
	return nil
}

// Drop removes every document of the declared collections.
func (d *Database) Drop(ctx context.Context) error {
	names := make([]string, 0, len(d.schemas))
	for name := range d.schemas {
		names = append(names, name)
	}
	_, err := d.pool.Exec(ctx, "DELETE FROM "+table+" WHERE collection = ANY(@names)", pgx.NamedArgs{"names": names})
	return err
}

// Collection is one collection of the documents table.
type Collection struct {
	pool   *pgxpool.Pool
	schema docstore.Schema
}

func (c *Collection) Schema() docstore.Schema {
	return c.schema
}

func (c *Collection) Find(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	data := pgx.NamedArgs{}
	var buf bytes.Buffer
	buf.WriteString("SELECT doc FROM " + table)

	w, err := c.where(q.Filter, data)
	if err != nil {
		return nil, err
	}
	w.Write(&buf)

	terms := make([]postgresdb.OrderTerm, 0, len(q.Sort))
	for i, s := range q.Sort {
		name := fmt.Sprintf("s%d", i)
		data[name] = pathOf(s.Field)
		dir := postgresdb.ASC
		if s.Desc {
			dir = postgresdb.DESC
		}
		terms = append(terms, postgresdb.OrderTerm{Expr: "(doc #> @" + name + ")", Direction: dir})
	}
	if err := postgresdb.AddOrderByClause(&buf, terms, "id"); err != nil {
		return nil, err
	}
	postgresdb.AddLimitOffsetClause(&buf, data, q.Limit, q.Skip)

	rows, err := c.pool.Query(ctx, buf.String(), data)
	if err != nil {
		return nil, fmt.Errorf("find: %w", postgresdb.HandlePgError(err))
	}
	raw, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	out := make([]docstore.Document, 0, len(raw))
	for _, b := range raw {
		doc, err := c.decode(b)
		if err != nil {
			return nil, err
		}
		if len(q.Projection) > 0 {
			doc = docstore.Project(doc, q.Projection)
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *Collection) Count(ctx context.Context, filter []docstore.Condition) (int64, error) {
	data := pgx.NamedArgs{}
	var buf bytes.Buffer
	buf.WriteString("SELECT count(*) FROM " + table)

	w, err := c.where(filter, data)
	if err != nil {
		return 0, err
	}
	w.Write(&buf)

	var n int64
	if err := c.pool.QueryRow(ctx, buf.String(), data).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", postgresdb.HandlePgError(err))
	}
	return n, nil
}

func (c *Collection) Insert(ctx context.Context, doc docstore.Document) (docstore.Document, error) {
	doc = docstore.PrepareInsert(doc)
	body, err := encode(doc)
	if err != nil {
		return nil, err
	}
	created, _ := docstore.Time(doc, docstore.KeyCreatedAt)

	const q = `
	INSERT INTO documents (collection, id, doc, created_at)
	VALUES (@collection, @id, @doc, @created_at)`

	_, err = c.pool.Exec(ctx, q, pgx.NamedArgs{
		"collection": c.schema.Collection,
		"id":         doc.ID(),
		"doc":        body,
		"created_at": created,
	})
	if err != nil {
		return nil, handleError(err)
	}
	return doc, nil
}

func (c *Collection) FindByID(ctx context.Context, id string) (docstore.Document, error) {
	const q = `SELECT doc FROM documents WHERE collection = @collection AND id = @id`

	var b []byte
	err := c.pool.QueryRow(ctx, q, pgx.NamedArgs{"collection": c.schema.Collection, "id": id}).Scan(&b)
	if err != nil {
		return nil, handleError(err)
	}
	return c.decode(b)
}

// UpdateByID merges patch under a row lock.
func (c *Collection) UpdateByID(ctx context.Context, id string, patch docstore.Document) (docstore.Document, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	args := pgx.NamedArgs{"collection": c.schema.Collection, "id": id}

	var b []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM documents WHERE collection = @collection AND id = @id FOR UPDATE`, args).Scan(&b)
	if err != nil {
		return nil, handleError(err)
	}
	doc, err := c.decode(b)
	if err != nil {
		return nil, err
	}

	for k, v := range patch {
		if k == docstore.KeyID {
			continue
		}
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}

	body, err := encode(doc)
	if err != nil {
		return nil, err
	}
	args["doc"] = body
	if _, err := tx.Exec(ctx, `UPDATE documents SET doc = @doc WHERE collection = @collection AND id = @id`, args); err != nil {
		return nil, handleError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return c.decode(body)
}

func (c *Collection) DeleteByID(ctx context.Context, id string) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM documents WHERE collection = @collection AND id = @id`,
		pgx.NamedArgs{"collection": c.schema.Collection, "id": id})
	if err != nil {
		return handleError(err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter []docstore.Condition) (int64, error) {
	data := pgx.NamedArgs{}
	var buf bytes.Buffer
	buf.WriteString("DELETE FROM " + table)

	w, err := c.where(filter, data)
	if err != nil {
		return 0, err
	}
	w.Write(&buf)

	tag, err := c.pool.Exec(ctx, buf.String(), data)
	if err != nil {
		return 0, handleError(err)
	}
	return tag.RowsAffected(), nil
}

// EnsureIndexes creates a partial unique index per unique field.
func (c *Collection) EnsureIndexes(ctx context.Context) error {
	for _, field := range c.schema.Unique {
		name := strings.NewReplacer(".", "_", "-", "_").Replace(
			fmt.Sprintf("documents_%s_%s_key", c.schema.Collection, field))
		quoted, err := postgresdb.QuoteIdentifier(name)
		if err != nil {
			return fmt.Errorf("index name: %w", err)
		}

		q := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s ((doc #>> %s)) WHERE collection = %s",
			quoted, table, literal("{"+strings.ReplaceAll(field, ".", ",")+"}"), literal(c.schema.Collection),
		)
		if _, err := c.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

func (c *Collection) where(filter []docstore.Condition, data pgx.NamedArgs) (*postgresdb.Where, error) {
	w := &postgresdb.Where{}
	w.Add("collection = @collection")
	data["collection"] = c.schema.Collection

	for i, cond := range filter {
		pred, err := c.predicate(i, cond, data)
		if err != nil {
			return nil, err
		}
		w.Add(pred)
	}
	return w, nil
}

func (c *Collection) predicate(i int, cond docstore.Condition, data pgx.NamedArgs) (string, error) {
	f := fmt.Sprintf("f%d", i)
	v := fmt.Sprintf("v%d", i)
	data[f] = pathOf(cond.Field)
	field := "(doc #> @" + f + ")"
	kind, _ := c.schema.Kind(cond.Field)

	switch cond.Op {
	case docstore.OpEq:
		b, err := json.Marshal(encodeValue(cond.Value))
		if err != nil {
			return "", err
		}
		if kind == docstore.KindStrings {
			b, _ = json.Marshal([]any{encodeValue(cond.Value)})
			data[v] = b
			return field + " @> @" + v + "::jsonb", nil
		}
		data[v] = b
		return field + " = @" + v + "::jsonb", nil

	case docstore.OpIn:
		values, _ := cond.Value.([]any)
		if kind == docstore.KindStrings {
			strs := make([]string, 0, len(values))
			for _, e := range values {
				strs = append(strs, fmt.Sprint(e))
			}
			data[v] = strs
			return field + " ?| @" + v + "::text[]", nil
		}
		enc := make([]any, len(values))
		for j, e := range values {
			enc[j] = encodeValue(e)
		}
		b, err := json.Marshal(enc)
		if err != nil {
			return "", err
		}
		data[v] = b
		return "@" + v + "::jsonb @> " + field, nil

	case docstore.OpWithin:
		circle, ok := cond.Value.(docstore.Circle)
		if !ok {
			return "", fmt.Errorf("%w: within needs a circle", docstore.ErrInvalidQuery)
		}
		lng, lat, rad := v+"lng", v+"lat", v+"rad"
		data[lng], data[lat], data[rad] = circle.Lng, circle.Lat, circle.Radius
		plng := "(" + field + " -> 'coordinates' ->> 0)::float8"
		plat := "(" + field + " -> 'coordinates' ->> 1)::float8"
		return fmt.Sprintf(
			"(jsonb_typeof(%[1]s) = 'object' AND 2 * asin(least(1, sqrt("+
				"power(sin(radians(%[3]s - @%[5]s::float8) / 2), 2) + "+
				"cos(radians(@%[5]s::float8)) * cos(radians(%[3]s)) * "+
				"power(sin(radians(%[2]s - @%[4]s::float8) / 2), 2)))) <= @%[6]s::float8)",
			field, plng, plat, lng, lat, rad,
		), nil
	}

	sqlOp, ok := map[docstore.Op]string{
		docstore.OpGt:  ">",
		docstore.OpGte: ">=",
		docstore.OpLt:  "<",
		docstore.OpLte: "<=",
	}[cond.Op]
	if !ok {
		return "", fmt.Errorf("%w: unsupported operator %q", docstore.ErrInvalidQuery, cond.Op)
	}
	b, err := json.Marshal(encodeValue(cond.Value))
	if err != nil {
		return "", err
	}
	data[v] = b
	return fmt.Sprintf("(jsonb_typeof(%[1]s) = jsonb_typeof(@%[2]s::jsonb) AND %[1]s %[3]s @%[2]s::jsonb)", field, v, sqlOp), nil
}

func (c *Collection) decode(b []byte) (docstore.Document, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc := toDocument(m)

	fields := append(c.schema.TimeFields(), docstore.KeyCreatedAt)
	for _, f := range fields {
		raw, ok := docstore.Lookup(doc, f)
		if !ok {
			continue
		}
		if t, ok := docstore.ToTime(raw); ok {
			setPath(doc, f, t)
		}
	}
	return doc, nil
}

func toDocument(m map[string]any) docstore.Document {
	out := make(docstore.Document, len(m))
	for k, v := range m {
		out[k] = fromJSON(v)
	}
	return out
}

func fromJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return toDocument(t)
	case []any:
		for i, e := range t {
			t[i] = fromJSON(e)
		}
		return t
	}
	return v
}

func setPath(doc docstore.Document, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(docstore.Document)
		if !ok {
			return
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func encode(doc docstore.Document) ([]byte, error) {
	b, err := json.Marshal(encodeValue(doc))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(docstore.TimeLayout)
	case docstore.Document:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = encodeValue(e)
		}
		return m
	case map[string]any:
		return encodeValue(docstore.Document(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = encodeValue(e)
		}
		return out
	case []docstore.Document:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = encodeValue(e)
		}
		return out
	}
	return v
}

func pathOf(field string) []string {
	return strings.Split(field, ".")
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func handleError(err error) error {
	err = postgresdb.HandlePgError(err)
	switch {
	case errors.Is(err, postgresdb.ErrDBNotFound):
		return docstore.ErrNotFound
	case errors.Is(err, postgresdb.ErrDBDuplicatedEntry):
		return fmt.Errorf("%w: %v", docstore.ErrDuplicate, err)
	}
	return err
}
