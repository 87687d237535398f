package projectquery

import (
	"github.com/arthur-debert/projectquery/projectquery/query"
	"github.com/arthur-debert/projectquery/types"
)

// FilterSet is the insertion ordered set of conditions of a query. Each
// condition is validated against the registry when it is added.
type FilterSet struct {
	fields  query.FieldLookup
	order   []string
	entries map[string]query.Filter
}

// NewFilterSet creates an empty filter set validating against fields
func NewFilterSet(fields query.FieldLookup) *FilterSet {
	return &FilterSet{
		fields:  fields,
		entries: make(map[string]query.Filter),
	}
}

// Add validates and stores a condition. Adding a field that is already
// present replaces its condition and keeps its position.
func (fs *FilterSet) Add(fieldID, operator string, values ...string) error {
	field, err := query.ResolveField(fs.fields, fieldID)
	if err != nil {
		return err
	}
	op, err := types.ParseOperator(operator)
	if err != nil {
		return err
	}
	cleaned, err := query.ValidateFor(field, op, values)
	if err != nil {
		return err
	}

	if _, exists := fs.entries[fieldID]; !exists {
		fs.order = append(fs.order, fieldID)
	}
	fs.entries[fieldID] = query.Filter{Field: fieldID, Operator: op, Values: cleaned}
	return nil
}

// Remove drops the condition of a field
func (fs *FilterSet) Remove(fieldID string) {
	if _, exists := fs.entries[fieldID]; !exists {
		return
	}
	delete(fs.entries, fieldID)
	for i, id := range fs.order {
		if id == fieldID {
			fs.order = append(fs.order[:i], fs.order[i+1:]...)
			break
		}
	}
}

// Has reports whether the field is constrained
func (fs *FilterSet) Has(fieldID string) bool {
	_, ok := fs.entries[fieldID]
	return ok
}

// Get returns the condition of a field
func (fs *FilterSet) Get(fieldID string) (query.Filter, bool) {
	f, ok := fs.entries[fieldID]
	return f, ok
}

// Values returns the values of a field's condition, nil when unconstrained
func (fs *FilterSet) Values(fieldID string) []string {
	return fs.entries[fieldID].Values
}

// Len returns the number of conditions
func (fs *FilterSet) Len() int {
	return len(fs.order)
}

// Filters returns the conditions in insertion order
func (fs *FilterSet) Filters() []query.Filter {
	filters := make([]query.Filter, 0, len(fs.order))
	for _, id := range fs.order {
		filters = append(filters, fs.entries[id])
	}
	return filters
}
