package types

// Operator is a comparison operator of the filter grammar
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!"
	OpNone           Operator = "!*"
	OpAny            Operator = "*"
	OpContains       Operator = "~"
	OpNotContains    Operator = "!~"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpBetween        Operator = "><"

	// Relative date operators taking a number of days
	OpLessThanDaysAgo Operator = ">t-"
	OpMoreThanDaysAgo Operator = "<t-"
	OpDaysAgo         Operator = "t-"

	// Relative date operators without values
	OpToday        Operator = "t"
	OpYesterday    Operator = "ld"
	OpThisWeek     Operator = "w"
	OpLastWeek     Operator = "lw"
	OpLastTwoWeeks Operator = "l2w"
	OpThisMonth    Operator = "m"
	OpLastMonth    Operator = "lm"
	OpThisYear     Operator = "y"
)

// operatorAliases maps accepted input spellings to canonical operators
var operatorAliases = map[string]Operator{
	"!=": OpNotEqual,
}

// ValueType describes what values an operator consumes
type ValueType int

const (
	ValueNone ValueType = iota
	ValueSingle
	ValueList
	ValueDate
	ValueInteger
)

func (v ValueType) String() string {
	switch v {
	case ValueNone:
		return "none"
	case ValueSingle:
		return "single"
	case ValueList:
		return "list"
	case ValueDate:
		return "date"
	case ValueInteger:
		return "integer"
	default:
		return "unknown"
	}
}

// Unbounded is the maximum value count of operators accepting any number of values
const Unbounded = -1

type operatorSpec struct {
	label     string
	valueType ValueType
	min, max  int
}

var operatorSpecs = map[Operator]operatorSpec{
	OpEqual:           {"is", ValueList, 1, Unbounded},
	OpNotEqual:        {"is not", ValueList, 1, Unbounded},
	OpNone:            {"none", ValueNone, 0, 0},
	OpAny:             {"any", ValueNone, 0, 0},
	OpContains:        {"contains", ValueSingle, 1, 1},
	OpNotContains:     {"doesn't contain", ValueSingle, 1, 1},
	OpGreaterOrEqual:  {">=", ValueSingle, 1, 1},
	OpLessOrEqual:     {"<=", ValueSingle, 1, 1},
	OpBetween:         {"between", ValueSingle, 2, 2},
	OpLessThanDaysAgo: {"less than days ago", ValueInteger, 1, 1},
	OpMoreThanDaysAgo: {"more than days ago", ValueInteger, 1, 1},
	OpDaysAgo:         {"days ago", ValueInteger, 1, 1},
	OpToday:           {"today", ValueNone, 0, 0},
	OpYesterday:       {"yesterday", ValueNone, 0, 0},
	OpThisWeek:        {"this week", ValueNone, 0, 0},
	OpLastWeek:        {"last week", ValueNone, 0, 0},
	OpLastTwoWeeks:    {"last 2 weeks", ValueNone, 0, 0},
	OpThisMonth:       {"this month", ValueNone, 0, 0},
	OpLastMonth:       {"last month", ValueNone, 0, 0},
	OpThisYear:        {"this year", ValueNone, 0, 0},
}

// operatorsByType lists, in display order, the operators of each field type
var operatorsByType = map[FieldType][]Operator{
	FieldList: {OpEqual, OpNotEqual},
	FieldTree: {OpEqual, OpNotEqual},
	FieldText: {OpContains, OpNotContains, OpEqual, OpNotEqual, OpNone, OpAny},
	FieldInteger: {
		OpEqual, OpGreaterOrEqual, OpLessOrEqual, OpBetween, OpNone, OpAny,
	},
	FieldDate: {
		OpEqual, OpGreaterOrEqual, OpLessOrEqual, OpBetween,
		OpLessThanDaysAgo, OpMoreThanDaysAgo, OpDaysAgo,
		OpToday, OpYesterday, OpThisWeek, OpLastWeek, OpLastTwoWeeks,
		OpThisMonth, OpLastMonth, OpThisYear, OpNone, OpAny,
	},
	FieldDatePast: {
		OpEqual, OpGreaterOrEqual, OpLessOrEqual, OpBetween,
		OpLessThanDaysAgo, OpMoreThanDaysAgo, OpDaysAgo,
		OpToday, OpYesterday, OpThisWeek, OpLastWeek, OpLastTwoWeeks,
		OpThisMonth, OpLastMonth, OpThisYear, OpNone, OpAny,
	},
}

// ParseOperator returns the canonical operator for an input token
func ParseOperator(token string) (Operator, error) {
	if op, ok := operatorAliases[token]; ok {
		return op, nil
	}
	op := Operator(token)
	if _, ok := operatorSpecs[op]; !ok {
		return "", &UnknownOperatorError{Operator: token}
	}
	return op, nil
}

// Known reports whether the operator belongs to the grammar
func (o Operator) Known() bool {
	_, ok := operatorSpecs[o]
	return ok
}

// Label is the human readable name of the operator
func (o Operator) Label() string {
	return operatorSpecs[o].label
}

// ValueType returns the kind of values the operator consumes,
// independently of the field it is applied to
func (o Operator) ValueType() ValueType {
	spec, ok := operatorSpecs[o]
	if !ok {
		return ValueNone
	}
	return spec.valueType
}

// Arity returns the minimum and maximum value count of the operator.
// A max of Unbounded means any number of values.
func (o Operator) Arity() (min, max int) {
	spec := operatorSpecs[o]
	return spec.min, spec.max
}

// IsRelativeDate reports whether the operator resolves against the current date
func (o Operator) IsRelativeDate() bool {
	switch o {
	case OpLessThanDaysAgo, OpMoreThanDaysAgo, OpDaysAgo,
		OpToday, OpYesterday, OpThisWeek, OpLastWeek, OpLastTwoWeeks,
		OpThisMonth, OpLastMonth, OpThisYear:
		return true
	}
	return false
}

// DefaultOperators returns the operators of a field type
func DefaultOperators(t FieldType) []Operator {
	return operatorsByType[t]
}
