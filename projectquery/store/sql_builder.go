package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// SQLBuilder wraps squirrel to provide safe SQL generation
type SQLBuilder struct {
	sq sq.StatementBuilderType
}

// NewSQLBuilder creates a new SQL builder
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Select starts a SELECT statement
func (b *SQLBuilder) Select(columns ...string) sq.SelectBuilder {
	return b.sq.Select(columns...)
}

// BuildInsert builds a safe INSERT query
func (b *SQLBuilder) BuildInsert(table string, columns []string, values []interface{}) (string, []interface{}, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("no columns specified for insert")
	}
	if len(columns) != len(values) {
		return "", nil, fmt.Errorf("column count (%d) does not match value count (%d)", len(columns), len(values))
	}

	return b.sq.Insert(table).Columns(columns...).Values(values...).ToSql()
}

// BuildSelectCount builds a COUNT query over the rows matching where
func (b *SQLBuilder) BuildSelectCount(table string, where sq.Sqlizer) (string, []interface{}, error) {
	return b.sq.Select("COUNT(*)").From(table).Where(where).ToSql()
}

// BuildMax builds a query returning the greatest value of column, or ""
// when the table is empty
func (b *SQLBuilder) BuildMax(table, column string) (string, []interface{}, error) {
	return b.sq.Select(fmt.Sprintf("COALESCE(MAX(%s), '')", column)).From(table).ToSql()
}
