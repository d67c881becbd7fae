// Package memdb is an in-memory document store implementing restquery.Model.
// It evaluates compiled predicates with restquery's matcher and resolves
// references between collections for Populate.
package memdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/smarter-day/restquery"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store holds named collections.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collectionData
}

type collectionData struct {
	docs []restquery.Document
	refs map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{collections: make(map[string]*collectionData)}
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &collectionData{refs: make(map[string]string)}
	}
	return &Collection{store: s, name: name}
}

// Collection is a handle on one collection of a Store.
type Collection struct {
	store *Store
	name  string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Ref declares that field holds identifiers of documents in target, so that
// Populate(field, ...) can resolve them.
func (c *Collection) Ref(field, target string) *Collection {
	c.store.Collection(target)
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.collections[c.name].refs[field] = target
	return c
}

// Insert stores docs, assigning a new ObjectID hex string to documents that
// have no IDField. It returns the identifiers in input order.
func (c *Collection) Insert(docs ...restquery.Document) ([]string, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	data := c.store.collections[c.name]

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		stored := copyDoc(doc)
		id, ok := stored[restquery.IDField]
		if !ok || id == nil || id == "" {
			id = bson.NewObjectID().Hex()
			stored[restquery.IDField] = id
		}
		idStr, ok := id.(string)
		if !ok {
			return ids, fmt.Errorf("memdb: %s must be a string, got %T", restquery.IDField, id)
		}
		if findByID(data.docs, idStr) != nil {
			return ids, fmt.Errorf("memdb: duplicate %s %q in %s", restquery.IDField, idStr, c.name)
		}
		data.docs = append(data.docs, stored)
		ids = append(ids, idStr)
	}
	return ids, nil
}

// All returns copies of every document in insertion order.
func (c *Collection) All() []restquery.Document {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	data := c.store.collections[c.name]
	out := make([]restquery.Document, 0, len(data.docs))
	for _, d := range data.docs {
		out = append(out, copyDoc(d))
	}
	return out
}

// FindOne implements restquery.Model.
func (c *Collection) FindOne(p *restquery.Predicate) restquery.QueryHandle {
	return &Query{coll: c, predicate: p, single: true}
}

// Find implements restquery.Model.
func (c *Collection) Find(p *restquery.Predicate) restquery.QueryHandle {
	return &Query{coll: c, predicate: p}
}

type populateSpec struct {
	relation string
	fields   string
}

// Query is a deferred in-memory query. Configuration methods modify and
// return the same Query.
type Query struct {
	coll       *Collection
	predicate  *restquery.Predicate
	single     bool
	projection string
	populate   []populateSpec
	sort       restquery.SortSpec
	limit      int
	skip       int
}

func (q *Query) Select(projection string) restquery.QueryHandle {
	q.projection = projection
	return q
}

func (q *Query) Populate(relation string, fields string) restquery.QueryHandle {
	q.populate = append(q.populate, populateSpec{relation: relation, fields: fields})
	return q
}

func (q *Query) Sort(spec restquery.SortSpec) restquery.QueryHandle {
	q.sort = spec
	return q
}

// Limit caps the result size; zero or less means no limit.
func (q *Query) Limit(n int) restquery.QueryHandle {
	q.limit = n
	return q
}

// Skip drops the first n matches; a negative n is treated as zero.
func (q *Query) Skip(n int) restquery.QueryHandle {
	q.skip = n
	return q
}

// Exec runs the query against a consistent snapshot of the store.
func (q *Query) Exec(ctx context.Context) ([]restquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := q.coll.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := s.collections[q.coll.name]

	var matched []restquery.Document
	for _, doc := range data.docs {
		if q.predicate.Match(doc) {
			matched = append(matched, doc)
		}
	}

	if len(q.sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return q.less(matched[i], matched[j])
		})
	}

	if q.single {
		if len(matched) > 1 {
			matched = matched[:1]
		}
	} else {
		if skip := max(q.skip, 0); skip < len(matched) {
			matched = matched[skip:]
		} else {
			matched = nil
		}
		if q.limit > 0 && q.limit < len(matched) {
			matched = matched[:q.limit]
		}
	}

	out := make([]restquery.Document, 0, len(matched))
	for _, doc := range matched {
		out = append(out, restquery.Project(copyDoc(doc), q.projection))
	}

	for _, p := range q.populate {
		target, ok := data.refs[p.relation]
		if !ok {
			return nil, fmt.Errorf("memdb: no reference declared for %s.%s", q.coll.name, p.relation)
		}
		related := s.collections[target]
		for _, doc := range out {
			if v, ok := doc[p.relation]; ok {
				doc[p.relation] = resolve(related.docs, v, p.fields)
			}
		}
	}
	return out, nil
}

func (q *Query) less(a, b restquery.Document) bool {
	for _, f := range q.sort {
		va, _ := restquery.Lookup(a, f.Field)
		vb, _ := restquery.Lookup(b, f.Field)
		c := restquery.CompareValues(va, vb)
		if c == 0 {
			continue
		}
		if f.Direction < 0 {
			return c > 0
		}
		return c < 0
	}
	return false
}

// resolve replaces an identifier, or a list of identifiers, with the
// referenced documents. Dangling references resolve to nil, or are dropped
// from lists.
func resolve(docs []restquery.Document, v any, fields string) any {
	lookup := func(ref any) restquery.Document {
		id, ok := ref.(string)
		if !ok {
			if oid, isOID := ref.(bson.ObjectID); isOID {
				id = oid.Hex()
			} else {
				return nil
			}
		}
		if d := findByID(docs, id); d != nil {
			return restquery.Project(copyDoc(d), fields)
		}
		return nil
	}

	switch refs := v.(type) {
	case []any:
		out := make([]any, 0, len(refs))
		for _, r := range refs {
			if d := lookup(r); d != nil {
				out = append(out, d)
			}
		}
		return out
	case []string:
		out := make([]any, 0, len(refs))
		for _, r := range refs {
			if d := lookup(r); d != nil {
				out = append(out, d)
			}
		}
		return out
	}
	if d := lookup(v); d != nil {
		return d
	}
	return nil
}

func findByID(docs []restquery.Document, id string) restquery.Document {
	for _, d := range docs {
		if s, ok := d[restquery.IDField].(string); ok && strings.EqualFold(s, id) {
			return d
		}
	}
	return nil
}

// copyDoc copies doc and every nested document or array, so stored data is
// never shared with callers.
func copyDoc(doc restquery.Document) restquery.Document {
	out := make(restquery.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case restquery.Document:
		return copyDoc(t)
	case bson.M:
		return bson.M(copyDoc(restquery.Document(t)))
	case bson.D:
		out := make(bson.D, len(t))
		for i, e := range t {
			out[i] = bson.E{Key: e.Key, Value: copyValue(e.Value)}
		}
		return out
	case bson.A:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []restquery.Document:
		out := make([]restquery.Document, len(t))
		for i, d := range t {
			out[i] = copyDoc(d)
		}
		return out
	}
	return v
}
