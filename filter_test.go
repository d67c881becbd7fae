package restquery_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/smarter-day/restquery"
	"github.com/smarter-day/restquery/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const roleID = "507f1f77bcf86cd799439011"

var noPredicate *restquery.Predicate

// expectCollection registers the calls every collection query makes.
func expectCollection(m *mocks.MockModel, q *mocks.MockQuery, p *restquery.Predicate, limit, skip int) {
	m.On("Find", p).Return(q).Once()
	q.On("Limit", limit).Return(q).Once()
	q.On("Skip", skip).Return(q).Once()
}

func TestFilterMany(t *testing.T) {
	m, q := new(mocks.MockModel), new(mocks.MockQuery)
	pred, err := restquery.CompilePredicate([]restquery.FilterClause{{Key: "points", Operator: ">=", Value: 10}})
	require.NoError(t, err)

	expectCollection(m, q, pred, 5, 5)
	q.On("Select", "name points").Return(q).Once()
	q.On("Populate", "permissions", "name").Return(q).Once()
	q.On("Populate", "owner", "").Return(q).Once()
	q.On("Sort", restquery.SortSpec{{Field: "points", Direction: -1}}).Return(q).Once()

	f := restquery.New(m)
	h, err := f.Many(restquery.QueryOptions{
		Fields:     []string{"name", "points"},
		Pagination: restquery.Pagination{Page: 2, Size: 5},
		Filters:    []restquery.FilterClause{{Key: "points", Operator: ">=", Value: 10}},
		Sort:       []restquery.SortTerm{restquery.SortBy("-points")},
		Embed:      []string{"permissions.name", "owner"},
	})
	require.NoError(t, err)
	assert.Equal(t, q, h)

	m.AssertExpectations(t)
	q.AssertExpectations(t)
	q.AssertNotCalled(t, "Exec", mock.Anything)
}

func TestFilterManyDefaults(t *testing.T) {
	m, q := new(mocks.MockModel), new(mocks.MockQuery)
	expectCollection(m, q, noPredicate, 30, 0)

	h, err := restquery.New(m).Many(restquery.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, q, h)

	q.AssertNotCalled(t, "Select", mock.Anything)
	q.AssertNotCalled(t, "Sort", mock.Anything)
	q.AssertNotCalled(t, "Populate", mock.Anything, mock.Anything)
	q.AssertExpectations(t)
}

func TestFilterOne(t *testing.T) {
	m, q := new(mocks.MockModel), new(mocks.MockQuery)
	m.On("FindOne", restquery.ByID(roleID)).Return(q).Once()
	q.On("Select", "name").Return(q).Once()
	q.On("Populate", "permissions", "").Return(q).Once()

	h, err := restquery.New(m).One(roleID, restquery.QueryOptions{
		Fields:     []string{"name"},
		Embed:      []string{"permissions"},
		Sort:       []restquery.SortTerm{restquery.SortBy("name")},
		Pagination: restquery.Pagination{Page: 3, Size: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, q, h)

	m.AssertExpectations(t)
	q.AssertExpectations(t)
	q.AssertNotCalled(t, "Sort", mock.Anything)
	q.AssertNotCalled(t, "Limit", mock.Anything)
	q.AssertNotCalled(t, "Skip", mock.Anything)
}

func TestFilterOneIndifier(t *testing.T) {
	m, q := new(mocks.MockModel), new(mocks.MockQuery)
	m.On("FindOne", restquery.Equals(restquery.Document{"slug": "admin"})).Return(q).Once()

	_, err := restquery.New(m).One(roleID, restquery.QueryOptions{Indifier: restquery.Document{"slug": "admin"}})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestFilterOneRequiresIdentifier(t *testing.T) {
	m := new(mocks.MockModel)
	_, err := restquery.New(m).One("", restquery.QueryOptions{})
	assert.ErrorIs(t, err, restquery.ErrInvalidInput)
	m.AssertNotCalled(t, "FindOne", mock.Anything)
}

func TestFilterValidationNeverReachesModel(t *testing.T) {
	m := new(mocks.MockModel)
	f := restquery.New(m)

	_, err := f.Many(restquery.QueryOptions{Filters: []restquery.FilterClause{{Key: "x", Operator: "bogus", Value: 1}}})
	assert.ErrorIs(t, err, restquery.ErrUnsupportedOperator)

	called := false
	err = f.ManyWithCallback(context.Background(), restquery.QueryOptions{
		Filters: []restquery.FilterClause{{Key: "x", Operator: "in", Value: 1}},
	}, func(error, []restquery.Document) { called = true })
	assert.ErrorIs(t, err, restquery.ErrInvalidInput)
	assert.False(t, called, "validation errors are returned, not passed to the callback")

	m.AssertNotCalled(t, "Find", mock.Anything)
}

func TestFilterManyWithCallback(t *testing.T) {
	ctx := context.Background()
	docs := []restquery.Document{{"_id": roleID, "name": "admin"}}

	t.Run("result", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		expectCollection(m, q, noPredicate, 30, 0)
		q.On("Exec", ctx).Return(docs, nil).Once()

		calls := 0
		err := restquery.New(m).ManyWithCallback(ctx, restquery.QueryOptions{}, func(err error, got []restquery.Document) {
			calls++
			assert.NoError(t, err)
			assert.Equal(t, docs, got)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		q.AssertExpectations(t)
	})

	t.Run("store error passes through", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		storeErr := errors.New("connection reset")
		expectCollection(m, q, noPredicate, 30, 0)
		q.On("Exec", ctx).Return(nil, storeErr).Once()

		calls := 0
		err := restquery.New(m).ManyWithCallback(ctx, restquery.QueryOptions{}, func(err error, got []restquery.Document) {
			calls++
			assert.Same(t, storeErr, err)
			assert.Nil(t, got)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestFilterOneWithCallback(t *testing.T) {
	ctx := context.Background()
	m, q := new(mocks.MockModel), new(mocks.MockQuery)
	m.On("FindOne", restquery.ByID(roleID)).Return(q).Once()
	q.On("Exec", ctx).Return([]restquery.Document{{"_id": roleID}}, nil).Once()

	var got []restquery.Document
	err := restquery.New(m).OneWithCallback(ctx, roleID, restquery.QueryOptions{}, func(err error, docs []restquery.Document) {
		require.NoError(t, err)
		got = docs
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFilterCall(t *testing.T) {
	ctx := context.Background()
	var cb restquery.Callback = func(error, []restquery.Document) {}

	t.Run("no arguments", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		expectCollection(m, q, noPredicate, 30, 0)
		h, err := restquery.New(m).Call(ctx)
		require.NoError(t, err)
		assert.Equal(t, q, h)
	})

	t.Run("callback only", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		expectCollection(m, q, noPredicate, 30, 0)
		q.On("Exec", ctx).Return([]restquery.Document{}, nil).Once()

		called := false
		h, err := restquery.New(m).Call(ctx, func(err error, docs []restquery.Document) { called = true })
		require.NoError(t, err)
		assert.Nil(t, h)
		assert.True(t, called)
	})

	t.Run("identifier", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		m.On("FindOne", restquery.ByID(roleID)).Return(q).Once()
		h, err := restquery.New(m).Call(ctx, roleID)
		require.NoError(t, err)
		assert.Equal(t, q, h)
	})

	t.Run("identifier and callback", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		m.On("FindOne", restquery.ByID(roleID)).Return(q).Once()
		q.On("Exec", ctx).Return([]restquery.Document{}, nil).Once()
		h, err := restquery.New(m).Call(ctx, roleID, cb)
		require.NoError(t, err)
		assert.Nil(t, h)
		q.AssertExpectations(t)
	})

	t.Run("untyped conditions", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		expectCollection(m, q, noPredicate, 2, 2)
		q.On("Select", "name").Return(q).Once()
		h, err := restquery.New(m).Call(ctx, map[string]any{
			"fields":     []any{"name"},
			"pagination": map[string]any{"page": 2, "size": 2},
		})
		require.NoError(t, err)
		assert.Equal(t, q, h)
		q.AssertExpectations(t)
	})

	t.Run("conditions and callback", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		expectCollection(m, q, noPredicate, 30, 0)
		q.On("Exec", ctx).Return([]restquery.Document{}, nil).Once()
		_, err := restquery.New(m).Call(ctx, restquery.QueryOptions{}, cb)
		require.NoError(t, err)
		q.AssertExpectations(t)
	})

	t.Run("identifier and conditions", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		m.On("FindOne", restquery.ByID(roleID)).Return(q).Once()
		q.On("Select", "name").Return(q).Once()
		_, err := restquery.New(m).Call(ctx, roleID, &restquery.QueryOptions{Fields: []string{"name"}})
		require.NoError(t, err)
		q.AssertExpectations(t)
	})

	t.Run("leading conditions replace second argument", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		expectCollection(m, q, noPredicate, 30, 0)
		q.On("Select", "first").Return(q).Once()
		_, err := restquery.New(m).Call(ctx,
			restquery.QueryOptions{Fields: []string{"first"}},
			restquery.QueryOptions{Fields: []string{"second"}},
		)
		require.NoError(t, err)
		q.AssertExpectations(t)
	})

	t.Run("three arguments", func(t *testing.T) {
		m, q := new(mocks.MockModel), new(mocks.MockQuery)
		m.On("FindOne", restquery.ByID(roleID)).Return(q).Once()
		q.On("Exec", ctx).Return([]restquery.Document{}, nil).Once()
		_, err := restquery.New(m).Call(ctx, roleID, restquery.QueryOptions{}, cb)
		require.NoError(t, err)
		q.AssertExpectations(t)
	})

	t.Run("invalid shapes", func(t *testing.T) {
		m := new(mocks.MockModel)
		f := restquery.New(m)

		_, err := f.Call(ctx, 42)
		assert.ErrorIs(t, err, restquery.ErrInvalidInput)
		_, err = f.Call(ctx, "not-an-id")
		assert.ErrorIs(t, err, restquery.ErrInvalidInput)
		_, err = f.Call(ctx, roleID, restquery.QueryOptions{}, "not a callback")
		assert.ErrorIs(t, err, restquery.ErrInvalidInput)
		_, err = f.Call(ctx, 1, 2, 3, 4)
		assert.ErrorIs(t, err, restquery.ErrInvalidInput)

		m.AssertNotCalled(t, "Find", mock.Anything)
		m.AssertNotCalled(t, "FindOne", mock.Anything)
	})
}

func TestResolveTarget(t *testing.T) {
	id, opts, err := restquery.ResolveTarget(roleID)
	require.NoError(t, err)
	assert.Equal(t, roleID, id)
	assert.Equal(t, restquery.QueryOptions{}, opts)

	id, opts, err = restquery.ResolveTarget(map[string]any{"fields": []any{"name"}})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, []string{"name"}, opts.Fields)

	id, _, err = restquery.ResolveTarget(nil)
	require.NoError(t, err)
	assert.Empty(t, id)

	id, _, err = restquery.ResolveTarget("")
	require.NoError(t, err)
	assert.Empty(t, id)

	_, _, err = restquery.ResolveTarget("admin")
	assert.ErrorIs(t, err, restquery.ErrInvalidInput)
}

func TestFilterWithModel(t *testing.T) {
	first, second := new(mocks.MockModel), new(mocks.MockModel)
	f := restquery.New(first)
	g := f.WithModel(second)

	assert.Equal(t, first, f.GetModel())
	assert.Equal(t, second, g.GetModel())
}

func TestFilterWithoutModel(t *testing.T) {
	_, err := restquery.New(nil).Many(restquery.QueryOptions{})
	assert.Error(t, err)
}

func TestFilterLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	m, q := new(mocks.MockModel), new(mocks.MockQuery)
	expectCollection(m, q, noPredicate, 30, 0)
	_, err := restquery.New(m, restquery.WithLogger(logger)).Many(restquery.QueryOptions{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"compiled query"`)

	buf.Reset()
	_, err = restquery.New(m, restquery.WithLogger(logger)).Many(restquery.QueryOptions{
		Filters: []restquery.FilterClause{{Key: "x", Operator: "bogus"}},
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "query options rejected")
}
