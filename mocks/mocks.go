// Package mocks provides testify mocks for the restquery collaborator
// interfaces.
//
// Example usage:
//
//	q := new(mocks.MockQuery)
//	m := new(mocks.MockModel)
//	m.On("Find", mock.Anything).Return(q)
//	q.On("Limit", 30).Return(q)
//	q.On("Skip", 0).Return(q)
package mocks

import (
	"context"

	"github.com/smarter-day/restquery"
	"github.com/stretchr/testify/mock"
)

// MockModel is a mock implementation of restquery.Model.
type MockModel struct {
	mock.Mock
}

// FindOne starts a single-document query
func (m *MockModel) FindOne(p *restquery.Predicate) restquery.QueryHandle {
	args := m.Called(p)
	return args.Get(0).(restquery.QueryHandle)
}

// Find starts a collection query
func (m *MockModel) Find(p *restquery.Predicate) restquery.QueryHandle {
	args := m.Called(p)
	return args.Get(0).(restquery.QueryHandle)
}

// MockQuery is a mock implementation of restquery.QueryHandle.
type MockQuery struct {
	mock.Mock
}

// Select sets the projection
func (m *MockQuery) Select(projection string) restquery.QueryHandle {
	args := m.Called(projection)
	return args.Get(0).(restquery.QueryHandle)
}

// Populate loads a relation
func (m *MockQuery) Populate(relation string, fields string) restquery.QueryHandle {
	args := m.Called(relation, fields)
	return args.Get(0).(restquery.QueryHandle)
}

// Sort sets the sort order
func (m *MockQuery) Sort(spec restquery.SortSpec) restquery.QueryHandle {
	args := m.Called(spec)
	return args.Get(0).(restquery.QueryHandle)
}

// Limit sets the maximum number of documents
func (m *MockQuery) Limit(n int) restquery.QueryHandle {
	args := m.Called(n)
	return args.Get(0).(restquery.QueryHandle)
}

// Skip sets the offset
func (m *MockQuery) Skip(n int) restquery.QueryHandle {
	args := m.Called(n)
	return args.Get(0).(restquery.QueryHandle)
}

// Exec runs the query
func (m *MockQuery) Exec(ctx context.Context) ([]restquery.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]restquery.Document), args.Error(1)
}
