package restquery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// IFilter defines the query entry points bound to one collection.
type IFilter interface {
	WithModel(model Model) IFilter
	GetModel() Model
	One(id string, opts QueryOptions) (QueryHandle, error)
	Many(opts QueryOptions) (QueryHandle, error)
	OneWithCallback(ctx context.Context, id string, opts QueryOptions, cb Callback) error
	ManyWithCallback(ctx context.Context, opts QueryOptions, cb Callback) error
	Call(ctx context.Context, args ...any) (QueryHandle, error)
}

type filterOptions struct {
	model  Model
	logger *slog.Logger
}

// Option configures a Filter.
type Option func(*filterOptions)

// WithLogger sets the logger used for compiled query and execution events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *filterOptions) {
		o.logger = logger
	}
}

// Filter compiles query options against a Model.
type Filter struct {
	options filterOptions
}

// New initializes a Filter bound to model.
func New(model Model, opts ...Option) IFilter {
	o := filterOptions{model: model}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Filter{options: o}
}

// WithModel returns a new Filter instance bound to model.
func (f *Filter) WithModel(model Model) IFilter {
	newInstance := &Filter{
		options: f.options,
	}
	newInstance.options.model = model
	return newInstance
}

// GetModel returns the Model the Filter is bound to.
func (f *Filter) GetModel() Model {
	return f.options.model
}

// One builds a single-document lookup. The returned handle is not executed.
func (f *Filter) One(id string, opts QueryOptions) (QueryHandle, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: identifier cannot be empty", ErrInvalidInput)
	}
	return f.build(id, opts)
}

// Many builds a collection lookup. The returned handle is not executed.
func (f *Filter) Many(opts QueryOptions) (QueryHandle, error) {
	return f.build("", opts)
}

// OneWithCallback builds and executes a single-document lookup. Validation
// errors are returned directly and cb is not called for them.
func (f *Filter) OneWithCallback(ctx context.Context, id string, opts QueryOptions, cb Callback) error {
	h, err := f.One(id, opts)
	if err != nil {
		return err
	}
	f.execute(ctx, h, cb)
	return nil
}

// ManyWithCallback builds and executes a collection lookup. Validation errors
// are returned directly and cb is not called for them.
func (f *Filter) ManyWithCallback(ctx context.Context, opts QueryOptions, cb Callback) error {
	h, err := f.Many(opts)
	if err != nil {
		return err
	}
	f.execute(ctx, h, cb)
	return nil
}

// Call accepts the positional shapes older clients use:
//
//	Call(ctx)
//	Call(ctx, cb)
//	Call(ctx, idOrConditions)
//	Call(ctx, idOrConditions, cb)
//	Call(ctx, id, conditions)
//	Call(ctx, id, conditions, cb)
//
// With fewer than three arguments a first argument that is not a document
// identifier is taken as the conditions. When a callback is given the query
// is executed and the returned handle is nil.
func (f *Filter) Call(ctx context.Context, args ...any) (QueryHandle, error) {
	var first, conditions any
	var cb Callback
	switch len(args) {
	case 3:
		c, ok := asCallback(args[2])
		if !ok && args[2] != nil {
			return nil, fmt.Errorf("%w: callback must be a function, got %T", ErrInvalidInput, args[2])
		}
		cb = c
		fallthrough
	case 2:
		conditions = args[1]
		fallthrough
	case 1:
		first = args[0]
	case 0:
	default:
		return nil, fmt.Errorf("%w: too many arguments (%d)", ErrInvalidInput, len(args))
	}

	if len(args) < 3 {
		if c, ok := asCallback(first); ok {
			cb, first, conditions = c, nil, nil
		} else if c, ok := asCallback(conditions); ok {
			cb, conditions = c, nil
		}
		if isConditions(first) {
			first, conditions = nil, first
		}
	}

	id, opts, err := resolveExplicit(first, conditions)
	if err != nil {
		return nil, err
	}

	h, err := f.build(id, opts)
	if err != nil {
		return nil, err
	}
	if cb == nil {
		return h, nil
	}
	f.execute(ctx, h, cb)
	return nil, nil
}

// ResolveTarget decides whether v names a document or describes a
// collection query. A document identifier becomes id; nil and "" mean an
// unfiltered collection query; anything else is parsed as conditions.
func ResolveTarget(v any) (id string, opts QueryOptions, err error) {
	if isConditions(v) {
		opts, err = toOptions(v)
		return "", opts, err
	}
	if s, ok := v.(string); ok {
		return s, QueryOptions{}, nil
	}
	return "", QueryOptions{}, nil
}

// isConditions reports whether a leading positional argument must be read
// as conditions rather than as a document identifier.
func isConditions(v any) bool {
	return v != nil && v != "" && !IsDocumentIdentifier(v)
}

func resolveExplicit(first, conditions any) (string, QueryOptions, error) {
	var id string
	switch v := first.(type) {
	case nil:
	case string:
		id = v
	default:
		return "", QueryOptions{}, fmt.Errorf("%w: identifier must be a string, got %T", ErrInvalidInput, first)
	}
	opts, err := toOptions(conditions)
	return id, opts, err
}

func toOptions(v any) (QueryOptions, error) {
	switch c := v.(type) {
	case nil:
		return QueryOptions{}, nil
	case QueryOptions:
		return c, nil
	case *QueryOptions:
		if c == nil {
			return QueryOptions{}, nil
		}
		return *c, nil
	case map[string]any:
		return ParseOptions(c)
	}
	return QueryOptions{}, fmt.Errorf("%w: expected document identifier or conditions, got %T", ErrInvalidInput, v)
}

func asCallback(v any) (Callback, bool) {
	switch c := v.(type) {
	case Callback:
		return c, c != nil
	case func(error, []Document):
		return c, c != nil
	}
	return nil, false
}

func (f *Filter) build(id string, opts QueryOptions) (QueryHandle, error) {
	q, err := Compile(id, opts)
	if err != nil {
		f.options.logger.Debug("query options rejected", "error", err)
		return nil, err
	}
	f.options.logger.Debug("compiled query",
		"single", q.Single,
		"filter", q.Predicate.BSON(),
		"projection", q.Projection,
		"relations", len(q.Relations),
		"limit", q.Window.Limit,
		"skip", q.Window.Skip,
	)
	if f.options.model == nil {
		return nil, fmt.Errorf("no model set, call New(model) first")
	}
	return q.Apply(f.options.model), nil
}

func (f *Filter) execute(ctx context.Context, h QueryHandle, cb Callback) {
	Execute(ctx, h, func(err error, docs []Document) {
		if err != nil {
			f.options.logger.Warn("query execution failed", "error", err)
		} else {
			f.options.logger.Debug("query executed", "documents", len(docs))
		}
		cb(err, docs)
	})
}
