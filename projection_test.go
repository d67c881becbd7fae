package restquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileProjection(t *testing.T) {
	assert.Equal(t, "", CompileProjection(nil, nil))
	assert.Equal(t, "name description", CompileProjection([]string{"name", "description"}, nil))
	assert.Equal(t, "name active", CompileProjection(nil, []string{"name", "active"}))
	assert.Equal(t, "name points name", CompileProjection([]string{"name", "points"}, []string{"name"}),
		"duplicates are kept")
}

func TestProjectionFields(t *testing.T) {
	include, exclude := ProjectionFields("name  -description points -")
	assert.Equal(t, []string{"name", "points"}, include)
	assert.Equal(t, []string{"description"}, exclude)
}

func TestProject(t *testing.T) {
	doc := Document{"_id": "a", "name": "admin", "points": 3, "meta": Document{"x": 1}}

	t.Run("no projection", func(t *testing.T) {
		assert.Equal(t, doc, Project(doc, ""))
	})

	t.Run("include keeps id", func(t *testing.T) {
		assert.Equal(t, Document{"_id": "a", "name": "admin"}, Project(doc, "name"))
	})

	t.Run("nested include keeps top level field", func(t *testing.T) {
		assert.Equal(t, Document{"_id": "a", "meta": Document{"x": 1}}, Project(doc, "meta.x"))
	})

	t.Run("exclude", func(t *testing.T) {
		assert.Equal(t, Document{"_id": "a", "name": "admin", "meta": Document{"x": 1}}, Project(doc, "-points"))
	})

	t.Run("does not modify input", func(t *testing.T) {
		Project(doc, "-name")
		assert.Contains(t, doc, "name")
	})
}
