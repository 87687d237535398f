// Package query validates filter conditions against the operator grammar and
// compiles them into SQL predicate fragments.
package query

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/projectquery/types"
)

// Validate checks the value count of an operator independently of any field
func Validate(op types.Operator, values []string) error {
	if !op.Known() {
		return &types.UnknownOperatorError{Operator: string(op)}
	}
	min, max := op.Arity()
	return checkArity("", op, len(compact(values)), min, max)
}

// ValidateFor checks op and values against a field and returns the values
// with blank entries removed
func ValidateFor(field types.FilterField, op types.Operator, values []string) ([]string, error) {
	if !op.Known() {
		return nil, &types.UnknownOperatorError{Operator: string(op)}
	}
	if !field.Allows(op) {
		return nil, &types.UnsupportedOperatorError{Field: field.ID, Operator: op}
	}

	cleaned := compact(values)
	min, max := Arity(field.Type, op)
	if err := checkArity(field.ID, op, len(cleaned), min, max); err != nil {
		return nil, err
	}

	want := ValueTypeFor(field.Type, op)
	if want == types.ValueList && field.IDValues {
		want = types.ValueInteger
	}
	var invalid []string
	for _, v := range cleaned {
		if slices.Contains(field.Keywords, v) {
			continue
		}
		switch want {
		case types.ValueDate:
			if _, err := ParseDateAt(v, time.Now()); err != nil {
				invalid = append(invalid, v)
			}
		case types.ValueInteger:
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				invalid = append(invalid, v)
			}
		}
	}
	if len(invalid) > 0 {
		return nil, &types.InvalidFilterValueError{Field: field.ID, Values: invalid, Want: want}
	}

	return cleaned, nil
}

// ValueTypeFor refines the value type of an operator for a field type.
// Comparison operators take dates on date fields and integers on integer fields.
func ValueTypeFor(t types.FieldType, op types.Operator) types.ValueType {
	switch op {
	case types.OpEqual, types.OpNotEqual, types.OpGreaterOrEqual, types.OpLessOrEqual, types.OpBetween:
		switch {
		case t.IsDate():
			return types.ValueDate
		case t == types.FieldInteger:
			return types.ValueInteger
		}
	}
	return op.ValueType()
}

// Arity refines the value count of an operator for a field type.
// Equality on dates and integers compares against a single value.
func Arity(t types.FieldType, op types.Operator) (min, max int) {
	min, max = op.Arity()
	if op == types.OpEqual || op == types.OpNotEqual {
		if t.IsDate() || t == types.FieldInteger {
			max = 1
		}
	}
	return min, max
}

func checkArity(field string, op types.Operator, got, min, max int) error {
	if got < min || (max != types.Unbounded && got > max) {
		return &types.InvalidOperatorArityError{Field: field, Operator: op, Got: got, Min: min, Max: max}
	}
	return nil
}

// compact drops blank values, which HTML forms send for valueless operators
func compact(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			result = append(result, strings.TrimSpace(v))
		}
	}
	return result
}
