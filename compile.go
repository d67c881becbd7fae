package restquery

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CompiledQuery is the validated, store-independent form of a request. It is
// built fresh for every call and consumed by Apply.
type CompiledQuery struct {
	// Single marks a single-document lookup; Sort and Window are unused then.
	Single     bool
	Predicate  *Predicate
	Projection string
	Relations  []EmbedEntry
	Sort       SortSpec
	Window     Window
}

// Compile validates opts and produces a CompiledQuery. A non-empty id makes it
// a single-document lookup by primary key, or by opts.Indifier when set. An
// empty, non-nil Indifier matches any document.
// Filters are only compiled for collection queries.
func Compile(id string, opts QueryOptions) (*CompiledQuery, error) {
	q := &CompiledQuery{Single: id != ""}

	if q.Single {
		if opts.Indifier != nil {
			q.Predicate = Equals(opts.Indifier)
		} else {
			q.Predicate = ByID(id)
		}
	} else if len(opts.Filters) > 0 {
		p, err := CompilePredicate(opts.Filters)
		if err != nil {
			return nil, err
		}
		q.Predicate = p
	}

	q.Projection = CompileProjection(opts.Fields, opts.ExtraFields)
	q.Relations = CompileEmbeds(opts.Embed)

	if !q.Single {
		terms := opts.Sort
		if terms == nil {
			terms = []SortTerm{}
		}
		q.Sort = CompileSort(terms)
		q.Window = ResolvePagination(opts.Pagination.Page, opts.Pagination.Size)
	}
	return q, nil
}

// Apply acquires a handle from m and configures it. The returned handle has
// not been executed.
func (q *CompiledQuery) Apply(m Model) QueryHandle {
	var h QueryHandle
	if q.Single {
		h = m.FindOne(q.Predicate)
	} else {
		h = m.Find(q.Predicate)
	}

	if q.Projection != "" {
		h = h.Select(q.Projection)
	}
	for _, r := range q.Relations {
		h = h.Populate(r.Relation, r.FieldList())
	}

	// sort and paginate collections only
	if !q.Single {
		if len(q.Sort) > 0 {
			h = h.Sort(q.Sort)
		}
		h = h.Limit(q.Window.Limit).Skip(q.Window.Skip)
	}
	return h
}

// BSON describes the compiled query as a MongoDB-style document, suitable for
// logging or printing as extended JSON.
func (q *CompiledQuery) BSON() bson.D {
	op := "find"
	if q.Single {
		op = "findOne"
	}
	out := bson.D{
		{Key: "op", Value: op},
		{Key: "filter", Value: q.Predicate.BSON()},
	}
	if q.Projection != "" {
		out = append(out, bson.E{Key: "projection", Value: q.Projection})
	}
	if len(q.Relations) > 0 {
		populate := bson.A{}
		for _, r := range q.Relations {
			entry := bson.D{{Key: "path", Value: r.Relation}}
			if len(r.Fields) > 0 {
				entry = append(entry, bson.E{Key: "select", Value: r.FieldList()})
			}
			populate = append(populate, entry)
		}
		out = append(out, bson.E{Key: "populate", Value: populate})
	}
	if !q.Single {
		if len(q.Sort) > 0 {
			out = append(out, bson.E{Key: "sort", Value: q.Sort.BSON()})
		}
		out = append(out,
			bson.E{Key: "limit", Value: q.Window.Limit},
			bson.E{Key: "skip", Value: q.Window.Skip},
		)
	}
	return out
}

// Execute runs h and reports its outcome to cb exactly once. Store errors are
// passed through unchanged.
func Execute(ctx context.Context, h QueryHandle, cb Callback) {
	docs, err := h.Exec(ctx)
	cb(err, docs)
}
