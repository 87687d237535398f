// Package projectquery is the query-building engine of the project listing.
//
// A Registry holds the filter fields and columns available to one query
// session: a process-wide static catalogue plus fields synthesized from the
// live catalog content (one per tracker, role or function). A Query compiles
// a FilterSet built against that registry into a predicate handed to the
// store collaborator.
package projectquery

import (
	"github.com/arthur-debert/projectquery/types"
)

// Registry is an ordered, indexed catalogue of filter fields and columns
type Registry struct {
	fields      []types.FilterField
	fieldIndex  map[string]int
	columns     []types.ColumnSpec
	columnIndex map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		fieldIndex:  make(map[string]int),
		columnIndex: make(map[string]int),
	}
}

// RegisterStatic adds a declared field. Registering an id twice is a no-op:
// the first registration wins. It reports whether the field was added.
func (r *Registry) RegisterStatic(field types.FilterField) bool {
	if _, exists := r.fieldIndex[field.ID]; exists {
		return false
	}
	r.fieldIndex[field.ID] = len(r.fields)
	r.fields = append(r.fields, field)
	return true
}

// RegisterStaticColumn adds a declared column, first registration wins
func (r *Registry) RegisterStaticColumn(column types.ColumnSpec) bool {
	if _, exists := r.columnIndex[column.ID]; exists {
		return false
	}
	r.columnIndex[column.ID] = len(r.columns)
	r.columns = append(r.columns, column)
	return true
}

// RegisterDynamic adds one field per item, in the order of items.
//
// Factories are expected to produce distinct ids. When they do not, the
// later field replaces the earlier one at its original position; callers
// must not rely on this.
func RegisterDynamic[T any](r *Registry, items []T, factory func(T) types.FilterField) {
	for _, item := range items {
		field := factory(item)
		if i, exists := r.fieldIndex[field.ID]; exists {
			r.fields[i] = field
			continue
		}
		r.fieldIndex[field.ID] = len(r.fields)
		r.fields = append(r.fields, field)
	}
}

// RegisterDynamicColumns adds one column per item, like RegisterDynamic
func RegisterDynamicColumns[T any](r *Registry, items []T, factory func(T) types.ColumnSpec) {
	for _, item := range items {
		column := factory(item)
		if i, exists := r.columnIndex[column.ID]; exists {
			r.columns[i] = column
			continue
		}
		r.columnIndex[column.ID] = len(r.columns)
		r.columns = append(r.columns, column)
	}
}

// AllFields returns the fields in registration order
func (r *Registry) AllFields() []types.FilterField {
	return append([]types.FilterField(nil), r.fields...)
}

// AllColumns returns the columns in registration order
func (r *Registry) AllColumns() []types.ColumnSpec {
	return append([]types.ColumnSpec(nil), r.columns...)
}

// Field returns a field by id
func (r *Registry) Field(id string) (types.FilterField, bool) {
	i, ok := r.fieldIndex[id]
	if !ok {
		return types.FilterField{}, false
	}
	return r.fields[i], true
}

// Column returns a column by id
func (r *Registry) Column(id string) (types.ColumnSpec, bool) {
	i, ok := r.columnIndex[id]
	if !ok {
		return types.ColumnSpec{}, false
	}
	return r.columns[i], true
}

// ColumnsFor resolves column ids, failing on the first unknown one
func (r *Registry) ColumnsFor(ids []string) ([]types.ColumnSpec, error) {
	columns := make([]types.ColumnSpec, 0, len(ids))
	for _, id := range ids {
		column, ok := r.Column(id)
		if !ok {
			return nil, &types.UnknownColumnError{Column: id}
		}
		columns = append(columns, column)
	}
	return columns, nil
}
