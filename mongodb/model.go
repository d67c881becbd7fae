// Package mongodb implements restquery.Model on top of the official MongoDB
// driver. Populate is resolved with one $in lookup per relation.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/smarter-day/restquery"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Model is a MongoDB collection exposed as a restquery.Model.
type Model struct {
	coll *mongo.Collection
	refs map[string]string
}

// NewModel wraps coll.
func NewModel(coll *mongo.Collection) *Model {
	return &Model{coll: coll, refs: make(map[string]string)}
}

// Ref declares that field holds ObjectIDs of documents in the target
// collection of the same database.
func (m *Model) Ref(field, target string) *Model {
	m.refs[field] = target
	return m
}

// FindOne implements restquery.Model.
func (m *Model) FindOne(p *restquery.Predicate) restquery.QueryHandle {
	return &Query{model: m, filter: Filter(p), single: true}
}

// Find implements restquery.Model.
func (m *Model) Find(p *restquery.Predicate) restquery.QueryHandle {
	return &Query{model: m, filter: Filter(p)}
}

// Filter renders p for the driver, converting hex string identifiers in
// IDField clauses to ObjectIDs.
func Filter(p *restquery.Predicate) bson.D {
	d := p.BSON()
	for i, e := range d {
		if e.Key == restquery.IDField {
			d[i].Value = objectIDs(e.Value)
		}
	}
	return d
}

func objectIDs(v any) any {
	switch t := v.(type) {
	case string:
		if oid, err := bson.ObjectIDFromHex(t); err == nil {
			return oid
		}
	case bson.A:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = objectIDs(item)
		}
		return out
	case bson.D:
		out := make(bson.D, len(t))
		for i, e := range t {
			out[i] = bson.E{Key: e.Key, Value: objectIDs(e.Value)}
		}
		return out
	}
	return v
}

// Projection converts a space-delimited projection into a driver document.
func Projection(projection string) bson.D {
	include, exclude := restquery.ProjectionFields(projection)
	out := make(bson.D, 0, len(include)+len(exclude))
	for _, f := range include {
		out = append(out, bson.E{Key: f, Value: 1})
	}
	for _, f := range exclude {
		out = append(out, bson.E{Key: f, Value: 0})
	}
	return out
}

type populateSpec struct {
	relation string
	fields   string
}

// Query is a deferred MongoDB query.
type Query struct {
	model      *Model
	filter     bson.D
	single     bool
	projection bson.D
	populate   []populateSpec
	sort       bson.D
	limit      int64
	skip       int64
}

func (q *Query) Select(projection string) restquery.QueryHandle {
	q.projection = Projection(projection)
	return q
}

func (q *Query) Populate(relation string, fields string) restquery.QueryHandle {
	q.populate = append(q.populate, populateSpec{relation: relation, fields: fields})
	return q
}

func (q *Query) Sort(spec restquery.SortSpec) restquery.QueryHandle {
	q.sort = spec.BSON()
	return q
}

func (q *Query) Limit(n int) restquery.QueryHandle {
	q.limit = int64(n)
	return q
}

func (q *Query) Skip(n int) restquery.QueryHandle {
	q.skip = int64(n)
	return q
}

// Exec runs the query. Driver errors are returned unchanged.
func (q *Query) Exec(ctx context.Context) ([]restquery.Document, error) {
	docs, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range q.populate {
		if err := q.model.populate(ctx, docs, p); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (q *Query) fetch(ctx context.Context) ([]restquery.Document, error) {
	if q.single {
		opts := options.FindOne()
		if len(q.projection) > 0 {
			opts.SetProjection(q.projection)
		}
		var doc bson.M
		err := q.model.coll.FindOne(ctx, q.filter, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []restquery.Document{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []restquery.Document{restquery.Document(doc)}, nil
	}

	opts := options.Find()
	if len(q.projection) > 0 {
		opts.SetProjection(q.projection)
	}
	if len(q.sort) > 0 {
		opts.SetSort(q.sort)
	}
	if q.limit != 0 {
		opts.SetLimit(q.limit)
	}
	if q.skip != 0 {
		opts.SetSkip(q.skip)
	}
	cursor, err := q.model.coll.Find(ctx, q.filter, opts)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}
	docs := make([]restquery.Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, restquery.Document(d))
	}
	return docs, nil
}

// populate replaces the references held in p.relation with the documents
// they point to. Dangling references become nil, or are dropped from arrays.
func (m *Model) populate(ctx context.Context, docs []restquery.Document, p populateSpec) error {
	target, ok := m.refs[p.relation]
	if !ok {
		return fmt.Errorf("mongodb: no reference declared for %s.%s", m.coll.Name(), p.relation)
	}

	var ids bson.A
	for _, doc := range docs {
		ids = append(ids, refList(doc[p.relation])...)
	}
	if len(ids) == 0 {
		return nil
	}

	opts := options.Find()
	if p.fields != "" {
		opts.SetProjection(Projection(p.fields))
	}
	coll := m.coll.Database().Collection(target)
	cursor, err := coll.Find(ctx, bson.D{{Key: restquery.IDField, Value: bson.D{{Key: "$in", Value: ids}}}}, opts)
	if err != nil {
		return err
	}
	var related []bson.M
	if err := cursor.All(ctx, &related); err != nil {
		return err
	}
	byID := make(map[string]restquery.Document, len(related))
	for _, r := range related {
		byID[refKey(r[restquery.IDField])] = restquery.Document(r)
	}

	for _, doc := range docs {
		v, ok := doc[p.relation]
		if !ok {
			continue
		}
		if _, isList := v.(bson.A); isList {
			out := bson.A{}
			for _, ref := range refList(v) {
				if r, ok := byID[refKey(ref)]; ok {
					out = append(out, r)
				}
			}
			doc[p.relation] = out
			continue
		}
		if r, ok := byID[refKey(v)]; ok {
			doc[p.relation] = r
		} else {
			doc[p.relation] = nil
		}
	}
	return nil
}

func refList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case bson.A:
		return t
	case []any:
		return t
	}
	return []any{objectIDs(v)}
}

func refKey(v any) string {
	if oid, ok := v.(bson.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(v)
}
