package restquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptionsJSON(t *testing.T) {
	opts, err := DecodeOptionsJSON([]byte(`{
		"fields": ["name", "points"],
		"pagination": {"page": 2, "size": 5},
		"filters": [
			{"key": "points", "operator": ">=", "value": 10},
			{"key": "name", "operator": "in", "value": ["a", "b"]}
		],
		"sort": ["-points", {"name": "asc"}],
		"embed": ["permissions.name"],
		"extraFields": ["created"],
		"indifier": {"slug": "admin"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "points"}, opts.Fields)
	assert.Equal(t, Pagination{Page: 2, Size: 5}, opts.Pagination)
	assert.Equal(t, []FilterClause{
		{Key: "points", Operator: ">=", Value: float64(10)},
		{Key: "name", Operator: "in", Value: []any{"a", "b"}},
	}, opts.Filters)
	assert.Equal(t, []SortTerm{SortBy("-points"), SortKey("name", "asc")}, opts.Sort)
	assert.Equal(t, []string{"permissions.name"}, opts.Embed)
	assert.Equal(t, []string{"created"}, opts.ExtraFields)
	assert.Equal(t, Document{"slug": "admin"}, opts.Indifier)
}

func TestDecodeOptionsYAML(t *testing.T) {
	opts, err := DecodeOptionsYAML([]byte(`
fields: [name]
pagination:
  page: 3
filters:
  - key: points
    operator: between
    value: [1, 10]
sort:
  - points: desc
embed: [permissions]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, opts.Fields)
	assert.Equal(t, Pagination{Page: 3}, opts.Pagination)
	require.Len(t, opts.Filters, 1)
	assert.Equal(t, "between", opts.Filters[0].Operator)
	assert.Equal(t, SortSpec{{"points", -1}}, CompileSort(opts.Sort))
	assert.Equal(t, []string{"permissions"}, opts.Embed)
}

func TestParseOptions(t *testing.T) {
	t.Run("nil input", func(t *testing.T) {
		opts, err := ParseOptions(nil)
		require.NoError(t, err)
		assert.Equal(t, QueryOptions{}, opts)
	})

	t.Run("null values count as missing", func(t *testing.T) {
		opts, err := ParseOptions(map[string]any{"fields": nil, "embed": nil, "sort": nil})
		require.NoError(t, err)
		assert.Nil(t, opts.Fields)
		assert.Nil(t, opts.Embed)
		assert.Nil(t, opts.Sort)
	})

	t.Run("extra fields that are not an array are ignored", func(t *testing.T) {
		opts, err := ParseOptions(map[string]any{"extraFields": "name"})
		require.NoError(t, err)
		assert.Nil(t, opts.ExtraFields)
	})

	errorCases := map[string]map[string]any{
		"embed not an array":      {"embed": "permissions"},
		"fields not an array":     {"fields": "name"},
		"filters not an array":    {"filters": map[string]any{"key": "a"}},
		"filter not an object":    {"filters": []any{"a"}},
		"filter key missing":      {"filters": []any{map[string]any{"operator": "=="}}},
		"filter operator missing": {"filters": []any{map[string]any{"key": "a"}}},
		"pagination not object":   {"pagination": 3},
		"page not integer":        {"pagination": map[string]any{"page": 1.5}},
		"size not integer":        {"pagination": map[string]any{"size": "ten"}},
		"sort not an array":       {"sort": "-name"},
		"sort term invalid":       {"sort": []any{3}},
		"indifier not an object":  {"indifier": "admin"},
	}
	for name, raw := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOptions(raw)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeOptionsJSON([]byte(`{"fields": [`))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
