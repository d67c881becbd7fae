package restquery

import (
	"fmt"
	"strings"
)

// EmbedEntry describes one relation to load alongside the result documents.
// A nil Fields loads every field of the related documents.
type EmbedEntry struct {
	Relation string
	Fields   []string
}

// FieldList returns the space-joined field restriction, or "" for all fields.
func (e EmbedEntry) FieldList() string {
	return strings.Join(e.Fields, " ")
}

// CompileEmbeds groups dotted relation paths ("permissions.name") by relation,
// keeping the order in which relations are first seen. A bare path
// ("permissions") loads the whole relation and wins over any dotted path for
// the same relation, wherever it appears.
func CompileEmbeds(paths []string) []EmbedEntry {
	entries := make([]EmbedEntry, 0, len(paths))
	index := make(map[string]int, len(paths))
	bare := make(map[string]bool, len(paths))

	for _, path := range paths {
		relation, field, dotted := strings.Cut(path, ".")
		i, seen := index[relation]
		if !seen {
			i = len(entries)
			index[relation] = i
			entries = append(entries, EmbedEntry{Relation: relation})
		}
		if !dotted {
			bare[relation] = true
			entries[i].Fields = nil
			continue
		}
		if bare[relation] {
			continue
		}
		entries[i].Fields = append(entries[i].Fields, field)
	}
	return entries
}

// CompileEmbedsValue is CompileEmbeds for untyped input, as decoded from JSON.
func CompileEmbedsValue(v any) ([]EmbedEntry, error) {
	paths, err := stringSlice(v)
	if err != nil {
		return nil, fmt.Errorf("%w: expected array of docs to populate", ErrInvalidInput)
	}
	return CompileEmbeds(paths), nil
}

func stringSlice(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string, got %T", ErrInvalidInput, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected array, got %T", ErrInvalidInput, v)
	}
}
