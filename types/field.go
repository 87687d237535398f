package types

import (
	"context"
	"encoding/json"
)

// FieldType is the value domain of a filter field
type FieldType string

const (
	FieldList     FieldType = "list"
	FieldDate     FieldType = "date"
	FieldDatePast FieldType = "date_past"
	FieldText     FieldType = "text"
	FieldInteger  FieldType = "integer"
	FieldTree     FieldType = "tree"
)

// IsDate reports whether values of this type are dates
func (t FieldType) IsDate() bool {
	return t == FieldDate || t == FieldDatePast
}

// ValuePair is one selectable value of a list filter
type ValuePair struct {
	Label string
	Value string
}

// MarshalJSON encodes the pair as a two element [label, value] array,
// which is the shape filter widgets expect.
func (p ValuePair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Label, p.Value})
}

// MarshalYAML uses the same [label, value] shape as MarshalJSON
func (p ValuePair) MarshalYAML() (interface{}, error) {
	return []string{p.Label, p.Value}, nil
}

// ValueSource lazily provides the selectable values of a filter.
// It is only called when the values are actually rendered.
type ValueSource func(ctx context.Context) ([]ValuePair, error)

// ValueFinder resolves values that are present in a filter but missing
// from the field's value list (e.g. remote fields).
type ValueFinder func(ctx context.Context, missing []string) ([]ValuePair, error)

// FilterField is a named, typed dimension a query can be constrained by
type FilterField struct {
	// ID is unique within a registry
	ID   string
	Type FieldType
	Name string

	// Remote fields only expose their values when they are part of the filter
	Remote bool

	// Operators restricts the operators allowed for this field.
	// Nil means the default operators of Type.
	Operators []Operator

	Values     ValueSource
	FindValues ValueFinder

	// Group is the label used to group this field in filter selectors.
	// Empty means ungrouped.
	Group string

	// IDValues fields take entity ids as list values. Keywords are the
	// symbolic values accepted besides ids ("me").
	IDValues bool
	Keywords []string

	// Column is the SQL expression compared by simple attribute filters
	Column string

	// Source identifies the entity a synthesized field was generated from
	Source Source
}

// AllowedOperators returns the operators accepted by the field
func (f FilterField) AllowedOperators() []Operator {
	if f.Operators != nil {
		return f.Operators
	}
	return DefaultOperators(f.Type)
}

// Allows reports whether op may be used with the field
func (f FilterField) Allows(op Operator) bool {
	for _, allowed := range f.AllowedOperators() {
		if allowed == op {
			return true
		}
	}
	return false
}
