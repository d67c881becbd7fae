// Package firestoredb implements restquery.Model on Cloud Firestore.
//
// Filters, sort, projection and pagination are pushed down to Firestore.
// Pattern filters ("~", "!~") have no Firestore equivalent and fail at Exec
// with ErrUnsupportedClause. Populate reads referenced documents by ID from
// the declared target collection.
package firestoredb

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/smarter-day/restquery"
)

type modelOptions struct {
	conn       IConnection
	collection string
	refs       map[string]string
}

// Model is a Firestore collection exposed as a restquery.Model.
type Model struct {
	options modelOptions
}

// NewModel returns a Model over the named collection.
func NewModel(conn IConnection, collection string) *Model {
	return &Model{
		options: modelOptions{
			conn:       conn,
			collection: collection,
			refs:       make(map[string]string),
		},
	}
}

// ModelFor returns a Model whose collection is derived from a struct type.
func ModelFor(conn IConnection, model interface{}) (*Model, error) {
	name, err := CollectionName(model)
	if err != nil {
		return nil, err
	}
	return NewModel(conn, name), nil
}

// CollectionName derives the collection name from the model's type name.
// A CollectionName() string method on the model takes precedence; otherwise
// the lowercased type name plus "s" is used.
func CollectionName(model interface{}) (string, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return "", fmt.Errorf("no model set")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", fmt.Errorf("model must be a struct or pointer to a struct")
	}

	method := reflect.New(t).MethodByName("CollectionName")
	if method.IsValid() && method.Type().NumIn() == 0 && method.Type().NumOut() == 1 && method.Type().Out(0).Kind() == reflect.String {
		return method.Call(nil)[0].String(), nil
	}
	return strings.ToLower(t.Name()) + "s", nil
}

// Name returns the collection name.
func (m *Model) Name() string {
	return m.options.collection
}

// Ref declares that field holds document IDs of the target collection.
func (m *Model) Ref(field, target string) *Model {
	m.options.refs[field] = target
	return m
}

// WithTransaction returns a Model whose reads join tx.
func (m *Model) WithTransaction(tx *firestore.Transaction) *Model {
	newInstance := &Model{
		options: m.options,
	}
	newInstance.options.conn = NewConnection(m.options.conn.GetClient()).SetTransaction(tx)
	return newInstance
}

func (m *Model) collectionRef() *firestore.CollectionRef {
	return m.options.conn.GetClient().Collection(m.options.collection)
}

// FindOne implements restquery.Model.
func (m *Model) FindOne(p *restquery.Predicate) restquery.QueryHandle {
	return &Query{model: m, predicate: p, single: true}
}

// Find implements restquery.Model.
func (m *Model) Find(p *restquery.Predicate) restquery.QueryHandle {
	return &Query{model: m, predicate: p}
}

// Insert stores doc (a restquery.Document or a struct with firestore tags).
// A document without IDField gets a generated ID, which is returned and, for
// struct pointers, written back to the ID field.
func (m *Model) Insert(ctx context.Context, doc interface{}) (string, error) {
	if err := m.options.conn.Validate(); err != nil {
		return "", err
	}
	data, err := ToDocument(doc)
	if err != nil {
		return "", err
	}

	id, _ := data[restquery.IDField].(string)
	docRef := m.collectionRef().NewDoc()
	if id != "" {
		docRef = m.collectionRef().Doc(id)
	}
	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k != restquery.IDField {
			fields[k] = v
		}
	}

	if m.options.conn.HasTransaction() {
		err = m.options.conn.GetTransaction().Set(docRef, fields)
	} else {
		_, err = docRef.Set(ctx, fields)
	}
	if err != nil {
		return "", err
	}
	setIDField(doc, docRef.ID)
	return docRef.ID, nil
}

type populateSpec struct {
	relation string
	fields   string
}

// Query is a deferred Firestore query.
type Query struct {
	model      *Model
	predicate  *restquery.Predicate
	single     bool
	projection string
	populate   []populateSpec
	order      []OrderClause
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
	q.order = orderClauses(spec)
	return q
}

func (q *Query) Limit(n int) restquery.QueryHandle {
	q.limit = n
	return q
}

func (q *Query) Skip(n int) restquery.QueryHandle {
	q.skip = n
	return q
}

// Exec runs the query. Firestore errors are returned unchanged.
func (q *Query) Exec(ctx context.Context) ([]restquery.Document, error) {
	conn := q.model.options.conn
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	c, ok := conn.(*Connection)
	if !ok {
		c = NewConnection(conn.GetClient(), conn.GetTransaction())
	}

	var snaps []*firestore.DocumentSnapshot
	if id, ok := q.primaryKey(); ok {
		snap, err := c.get(ctx, q.model.collectionRef().Doc(id))
		if IsNotFoundError(err) {
			return []restquery.Document{}, nil
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	} else {
		fq, skip, err := q.build()
		if err != nil {
			return nil, err
		}
		if skip {
			return []restquery.Document{}, nil
		}
		if snaps, err = c.documents(ctx, fq); err != nil {
			return nil, err
		}
	}

	docs := make([]restquery.Document, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		docs = append(docs, restquery.Project(snapshotDocument(snap), q.projection))
	}

	for _, p := range q.populate {
		if err := q.model.populate(ctx, c, docs, p); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// primaryKey reports whether the query is a plain lookup by document ID.
func (q *Query) primaryKey() (string, bool) {
	if !q.single || q.predicate == nil || q.predicate.Or != nil || len(q.predicate.Clauses) != 1 {
		return "", false
	}
	c := q.predicate.Clauses[0]
	id, ok := c.Value.(string)
	return id, ok && c.Field == restquery.IDField && c.Op == restquery.OpEq && id != ""
}

// build translates the query. skip is set when it cannot match anything.
func (q *Query) build() (firestore.Query, bool, error) {
	coll := q.model.collectionRef()
	fq := coll.Query

	pl, err := translate(coll, q.predicate)
	if err != nil {
		return fq, false, err
	}
	if pl.empty {
		return fq, true, nil
	}
	fq = pl.apply(fq)

	if include, _ := restquery.ProjectionFields(q.projection); len(include) > 0 {
		fq = fq.Select(include...)
	}
	for _, o := range q.order {
		fq = fq.OrderBy(o.Field, o.Direction)
	}

	if q.single {
		return fq.Limit(1), false, nil
	}
	if q.skip > 0 {
		fq = fq.Offset(q.skip)
	}
	if q.limit > 0 {
		fq = fq.Limit(q.limit)
	}
	return fq, false, nil
}

func (m *Model) populate(ctx context.Context, c *Connection, docs []restquery.Document, p populateSpec) error {
	target, ok := m.options.refs[p.relation]
	if !ok {
		return fmt.Errorf("firestoredb: no reference declared for %s.%s", m.options.collection, p.relation)
	}
	coll := c.GetClient().Collection(target)

	var refs []*firestore.DocumentRef
	seen := make(map[string]bool)
	for _, doc := range docs {
		for _, id := range refIDs(doc[p.relation]) {
			if !seen[id] {
				seen[id] = true
				refs = append(refs, coll.Doc(id))
			}
		}
	}
	if len(refs) == 0 {
		return nil
	}

	snaps, err := c.getAll(ctx, refs)
	if err != nil {
		return err
	}
	byID := make(map[string]restquery.Document, len(snaps))
	for _, snap := range snaps {
		if snap.Exists() {
			byID[snap.Ref.ID] = restquery.Project(snapshotDocument(snap), p.fields)
		}
	}

	for _, doc := range docs {
		v, ok := doc[p.relation]
		if !ok {
			continue
		}
		if _, isList := v.([]interface{}); isList {
			out := make([]interface{}, 0)
			for _, id := range refIDs(v) {
				if r, ok := byID[id]; ok {
					out = append(out, r)
				}
			}
			doc[p.relation] = out
			continue
		}
		ids := refIDs(v)
		if len(ids) == 1 && byID[ids[0]] != nil {
			doc[p.relation] = byID[ids[0]]
		} else {
			doc[p.relation] = nil
		}
	}
	return nil
}

// refIDs extracts document IDs from a string, a *DocumentRef, or a list of
// either.
func refIDs(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case *firestore.DocumentRef:
		if t != nil {
			return []string{t.ID}
		}
	case []interface{}:
		var out []string
		for _, item := range t {
			out = append(out, refIDs(item)...)
		}
		return out
	}
	return nil
}

func snapshotDocument(snap *firestore.DocumentSnapshot) restquery.Document {
	doc := restquery.Document(snap.Data())
	doc[restquery.IDField] = snap.Ref.ID
	return doc
}
