package restquery

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// QueryOptions is the client-supplied description of a list or detail
// request. The zero value requests every field of the first page of 30
// documents in store order.
type QueryOptions struct {
	Fields      []string       `json:"fields,omitempty" yaml:"fields,omitempty"`
	Pagination  Pagination     `json:"pagination" yaml:"pagination"`
	Filters     []FilterClause `json:"filters,omitempty" yaml:"filters,omitempty"`
	Sort        []SortTerm     `json:"sort,omitempty" yaml:"sort,omitempty"`
	Embed       []string       `json:"embed,omitempty" yaml:"embed,omitempty"`
	ExtraFields []string       `json:"extraFields,omitempty" yaml:"extraFields,omitempty"`
	// Indifier, when set, replaces the primary key match of a single
	// document lookup. The key keeps the historical spelling clients send.
	Indifier Document `json:"indifier,omitempty" yaml:"indifier,omitempty"`
}

// DecodeOptionsJSON parses a JSON options object.
func DecodeOptionsJSON(data []byte) (QueryOptions, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return QueryOptions{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return ParseOptions(raw)
}

// DecodeOptionsYAML parses a YAML options document.
func DecodeOptionsYAML(data []byte) (QueryOptions, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return QueryOptions{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return ParseOptions(raw)
}

// ParseOptions converts loosely shaped client input, as produced by a JSON or
// YAML decoder, into QueryOptions. Missing keys keep their zero value.
func ParseOptions(raw map[string]any) (QueryOptions, error) {
	var opts QueryOptions
	if raw == nil {
		return opts, nil
	}

	if v, ok := present(raw, "fields"); ok {
		fields, err := stringSlice(v)
		if err != nil {
			return opts, fmt.Errorf("fields: %w", err)
		}
		opts.Fields = fields
	}

	if v, ok := present(raw, "extraFields"); ok {
		// Anything but an array of strings is treated as no extra fields.
		opts.ExtraFields, _ = stringSlice(v)
	}

	if v, ok := present(raw, "pagination"); ok {
		p, err := parsePagination(v)
		if err != nil {
			return opts, err
		}
		opts.Pagination = p
	}

	if v, ok := present(raw, "filters"); ok {
		items, ok := arrayValue(v)
		if !ok {
			return opts, fmt.Errorf("%w: filters must be an array", ErrInvalidInput)
		}
		for i, item := range items {
			clause, err := parseFilterClause(item)
			if err != nil {
				return opts, fmt.Errorf("filters[%d]: %w", i, err)
			}
			opts.Filters = append(opts.Filters, clause)
		}
	}

	if v, ok := present(raw, "sort"); ok {
		items, ok := arrayValue(v)
		if !ok {
			return opts, fmt.Errorf("%w: sort must be an array", ErrInvalidInput)
		}
		opts.Sort = make([]SortTerm, 0, len(items))
		for i, item := range items {
			term, err := sortTermFromValue(item)
			if err != nil {
				return opts, fmt.Errorf("sort[%d]: %w", i, err)
			}
			opts.Sort = append(opts.Sort, term)
		}
	}

	if v, ok := present(raw, "embed"); ok {
		paths, err := stringSlice(v)
		if err != nil {
			return opts, fmt.Errorf("%w: expected array of docs to populate", ErrInvalidInput)
		}
		opts.Embed = paths
	}

	if v, ok := present(raw, "indifier"); ok {
		m, ok := asMap(v)
		if !ok {
			return opts, fmt.Errorf("%w: indifier must be an object", ErrInvalidInput)
		}
		opts.Indifier = m
	}

	return opts, nil
}

// present treats a nil value the same as a missing key.
func present(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	return v, ok && v != nil
}

func parsePagination(v any) (Pagination, error) {
	m, ok := asMap(v)
	if !ok {
		return Pagination{}, fmt.Errorf("%w: pagination must be an object", ErrInvalidInput)
	}
	var p Pagination
	if page, ok := present(m, "page"); ok {
		n, ok := integerValue(page)
		if !ok {
			return p, fmt.Errorf("%w: pagination.page must be an integer", ErrInvalidInput)
		}
		p.Page = n
	}
	if size, ok := present(m, "size"); ok {
		n, ok := integerValue(size)
		if !ok {
			return p, fmt.Errorf("%w: pagination.size must be an integer", ErrInvalidInput)
		}
		p.Size = n
	}
	return p, nil
}

func parseFilterClause(v any) (FilterClause, error) {
	m, ok := asMap(v)
	if !ok {
		return FilterClause{}, fmt.Errorf("%w: filter must be an object", ErrInvalidInput)
	}
	key, ok := m["key"].(string)
	if !ok {
		return FilterClause{}, fmt.Errorf("%w: filter key must be a string", ErrInvalidInput)
	}
	op, ok := m["operator"].(string)
	if !ok {
		return FilterClause{}, fmt.Errorf("%w: filter operator must be a string", ErrInvalidInput)
	}
	return FilterClause{Key: key, Operator: op, Value: m["value"]}, nil
}
