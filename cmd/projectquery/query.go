package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/projectquery/projectquery"
)

// queryFlags are the listing flags shared by list and export
type queryFlags struct {
	filters []string
	columns []string
	sort    []string
	page    int
}

func (qf *queryFlags) register(cmd *cobra.Command) {
	// StringArray: filter values are comma separated inside a single flag
	cmd.Flags().StringArrayVar(&qf.filters, "filter", nil, "Filter condition \"<field> <operator> [value,value...]\" (repeatable)")
	cmd.Flags().StringSliceVar(&qf.columns, "columns", nil, "Columns to render (default name,identifier,short_description)")
	cmd.Flags().StringSliceVar(&qf.sort, "sort", nil, "Sort columns as column[:asc|desc]")
}

// filterSpec is a parsed --filter flag
type filterSpec struct {
	Field    string
	Operator string
	Values   []string
}

// parseFilter splits "<field> <operator> [values]"; values are comma
// separated and may contain spaces ("updated_on >= 20 days ago")
func parseFilter(spec string) (filterSpec, error) {
	fields := strings.Fields(spec)
	if len(fields) < 2 {
		return filterSpec{}, NewFilterError("parse filter", spec, "expected a field and an operator")
	}
	f := filterSpec{Field: fields[0], Operator: fields[1]}

	rest := strings.TrimSpace(spec)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, f.Field))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, f.Operator))
	if rest != "" {
		for _, v := range strings.Split(rest, ",") {
			f.Values = append(f.Values, strings.TrimSpace(v))
		}
	}
	return f, nil
}

// parseSort splits "column[:direction]"
func parseSort(spec string) projectquery.SortCriterion {
	column, direction, _ := strings.Cut(strings.TrimSpace(spec), ":")
	return projectquery.SortCriterion{Column: column, Direction: direction}
}

// apply configures the query from the flags
func (qf *queryFlags) apply(q *projectquery.Query) error {
	for _, spec := range qf.filters {
		f, err := parseFilter(spec)
		if err != nil {
			return err
		}
		if err := q.Filters().Add(f.Field, f.Operator, f.Values...); err != nil {
			return err
		}
	}

	if len(qf.columns) > 0 {
		if err := q.SetColumns(qf.columns); err != nil {
			return err
		}
	}

	if len(qf.sort) > 0 {
		criteria := make([]projectquery.SortCriterion, 0, len(qf.sort))
		for _, spec := range qf.sort {
			criteria = append(criteria, parseSort(spec))
		}
		if err := q.SetSort(criteria...); err != nil {
			return err
		}
	}
	return nil
}
