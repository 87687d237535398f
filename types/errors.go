package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is the root cause of every caller input rejection.
// Controllers can match it to decide whether to drop a filter or column
// or to reject the request.
var ErrValidation = errors.New("validation failed")

var (
	ErrUnknownFilterField   = fmt.Errorf("%w: unknown filter field", ErrValidation)
	ErrUnknownDynamicField  = fmt.Errorf("%w: unknown dynamic field", ErrValidation)
	ErrUnknownColumn        = fmt.Errorf("%w: unknown column", ErrValidation)
	ErrUnknownOperator      = fmt.Errorf("%w: unknown operator", ErrValidation)
	ErrUnsupportedOperator  = fmt.Errorf("%w: unsupported operator", ErrValidation)
	ErrInvalidOperatorArity = fmt.Errorf("%w: invalid operator arity", ErrValidation)
	ErrInvalidFilterValue   = fmt.Errorf("%w: invalid filter value", ErrValidation)
)

// UnknownFilterFieldError is returned for ids that resolve to no field
type UnknownFilterFieldError struct {
	Field string
}

func (e *UnknownFilterFieldError) Error() string {
	return fmt.Sprintf("unknown filter field %q", e.Field)
}

func (e *UnknownFilterFieldError) Unwrap() error { return ErrUnknownFilterField }

// UnknownDynamicFieldError is returned for synthesized ids whose suffix
// is not a valid entity id
type UnknownDynamicFieldError struct {
	Field string
}

func (e *UnknownDynamicFieldError) Error() string {
	return fmt.Sprintf("unknown dynamic field %q", e.Field)
}

func (e *UnknownDynamicFieldError) Unwrap() error { return ErrUnknownDynamicField }

// UnknownColumnError is returned for column ids that are not registered
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

func (e *UnknownColumnError) Unwrap() error { return ErrUnknownColumn }

// UnknownOperatorError is returned for tokens outside the grammar
type UnknownOperatorError struct {
	Operator string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

func (e *UnknownOperatorError) Unwrap() error { return ErrUnknownOperator }

// UnsupportedOperatorError is returned when an operator is not allowed for a field
type UnsupportedOperatorError struct {
	Field    string
	Operator Operator
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not supported for filter %q", e.Operator, e.Field)
}

func (e *UnsupportedOperatorError) Unwrap() error { return ErrUnsupportedOperator }

// InvalidOperatorArityError is returned when the value count does not
// match what the operator accepts
type InvalidOperatorArityError struct {
	Field    string
	Operator Operator
	Got      int
	Min      int
	Max      int
}

func (e *InvalidOperatorArityError) Error() string {
	var want string
	switch {
	case e.Max == Unbounded:
		want = fmt.Sprintf("at least %d", e.Min)
	case e.Min == e.Max:
		want = fmt.Sprintf("exactly %d", e.Min)
	default:
		want = fmt.Sprintf("between %d and %d", e.Min, e.Max)
	}
	if e.Field == "" {
		return fmt.Sprintf("operator %q takes %s value(s), got %d", e.Operator, want, e.Got)
	}
	return fmt.Sprintf("operator %q on filter %q takes %s value(s), got %d", e.Operator, e.Field, want, e.Got)
}

func (e *InvalidOperatorArityError) Unwrap() error { return ErrInvalidOperatorArity }

// InvalidFilterValueError is returned when a value does not parse as the
// type the operator expects
type InvalidFilterValueError struct {
	Field  string
	Values []string
	Want   ValueType
}

func (e *InvalidFilterValueError) Error() string {
	return fmt.Sprintf("filter %q: invalid %s value(s) %s", e.Field, e.Want, strings.Join(e.Values, ", "))
}

func (e *InvalidFilterValueError) Unwrap() error { return ErrInvalidFilterValue }
