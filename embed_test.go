package restquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileEmbeds(t *testing.T) {
	t.Run("distinct relations keep order", func(t *testing.T) {
		got := CompileEmbeds([]string{"permissions", "owner", "tags"})
		assert.Equal(t, []EmbedEntry{
			{Relation: "permissions"},
			{Relation: "owner"},
			{Relation: "tags"},
		}, got)
	})

	t.Run("dotted paths accumulate per relation", func(t *testing.T) {
		got := CompileEmbeds([]string{"permissions.name", "owner.email", "permissions.active"})
		assert.Equal(t, []EmbedEntry{
			{Relation: "permissions", Fields: []string{"name", "active"}},
			{Relation: "owner", Fields: []string{"email"}},
		}, got)
	})

	t.Run("only the first dot splits", func(t *testing.T) {
		got := CompileEmbeds([]string{"owner.address.city"})
		assert.Equal(t, []EmbedEntry{{Relation: "owner", Fields: []string{"address.city"}}}, got)
	})

	t.Run("bare entry wins after dotted", func(t *testing.T) {
		got := CompileEmbeds([]string{"permissions.name", "permissions"})
		assert.Equal(t, []EmbedEntry{{Relation: "permissions"}}, got)
	})

	t.Run("bare entry wins before dotted", func(t *testing.T) {
		got := CompileEmbeds([]string{"permissions", "permissions.name"})
		require.Len(t, got, 1)
		assert.Nil(t, got[0].Fields)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, CompileEmbeds(nil))
	})
}

func TestEmbedEntryFieldList(t *testing.T) {
	assert.Equal(t, "", EmbedEntry{Relation: "owner"}.FieldList())
	assert.Equal(t, "name active", EmbedEntry{Relation: "p", Fields: []string{"name", "active"}}.FieldList())
}

func TestCompileEmbedsValue(t *testing.T) {
	got, err := CompileEmbedsValue([]any{"permissions.name"})
	require.NoError(t, err)
	assert.Equal(t, []EmbedEntry{{Relation: "permissions", Fields: []string{"name"}}}, got)

	_, err = CompileEmbedsValue("permissions")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = CompileEmbedsValue(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = CompileEmbedsValue([]any{"permissions", 3})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
