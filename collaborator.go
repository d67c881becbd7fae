package restquery

import "context"

// IDField is the primary key field of every document.
const IDField = "_id"

// Document is a decoded store document.
type Document = map[string]any

// Model is the per-collection entry point of a document store.
type Model interface {
	// FindOne starts a query for at most one document.
	FindOne(p *Predicate) QueryHandle
	// Find starts a collection query; a nil predicate matches every document.
	Find(p *Predicate) QueryHandle
}

// QueryHandle is a deferred store query. Configuration methods return the
// handle so calls can be chained; nothing touches the store until Exec.
type QueryHandle interface {
	// Select restricts returned fields to a space-delimited projection.
	// Fields prefixed with "-" are excluded instead.
	Select(projection string) QueryHandle
	// Populate replaces the references held in relation with the referenced
	// documents, restricted to the space-delimited fields when non-empty.
	Populate(relation string, fields string) QueryHandle
	Sort(spec SortSpec) QueryHandle
	Limit(n int) QueryHandle
	Skip(n int) QueryHandle
	Exec(ctx context.Context) ([]Document, error)
}

// Callback receives the outcome of an executed query exactly once.
type Callback func(err error, docs []Document)
