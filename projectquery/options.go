package projectquery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arthur-debert/projectquery/types"
)

// filterNames overrides the field name shown in filter widgets
var filterNames = map[string]string{
	FieldID:       "Project",
	FieldMemberID: "Member",
}

// FilterOption describes a filter control
type FilterOption struct {
	Type   types.FieldType   `json:"type" yaml:"type"`
	Name   string            `json:"name" yaml:"name"`
	Remote bool              `json:"remote,omitempty" yaml:"remote,omitempty"`
	Values []types.ValuePair `json:"values,omitempty" yaml:"values,omitempty"`
}

// AvailableFilters describes every field of the session for filter widgets.
//
// Remote fields only carry values when they are part of the filter set.
// Filter values missing from a field's value list are looked up through
// the field's FindValues.
func (q *Query) AvailableFilters(ctx context.Context) (map[string]FilterOption, error) {
	result := make(map[string]FilterOption, len(q.registry.fields))

	for _, field := range q.registry.fields {
		opt := FilterOption{Type: field.Type, Name: field.Name, Remote: field.Remote}
		if name, ok := filterNames[field.ID]; ok {
			opt.Name = name
		}

		if field.Values != nil && (q.filters.Has(field.ID) || !field.Remote) {
			values, err := field.Values(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to load values of filter %q: %w", field.ID, err)
			}
			opt.Values = values

			if missing := missingValues(values, q.filters.Values(field.ID)); len(missing) > 0 && field.FindValues != nil {
				found, err := field.FindValues(ctx, missing)
				if err != nil {
					return nil, fmt.Errorf("failed to find values of filter %q: %w", field.ID, err)
				}
				opt.Values = append(opt.Values, found...)
			}
		}

		result[field.ID] = opt
	}

	return result, nil
}

// AvailableFiltersJSON serializes AvailableFilters
func (q *Query) AvailableFiltersJSON(ctx context.Context) ([]byte, error) {
	filters, err := q.AvailableFilters(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(filters)
}

func missingValues(known []types.ValuePair, selected []string) []string {
	listed := make(map[string]bool, len(known))
	for _, pair := range known {
		listed[pair.Value] = true
	}
	var missing []string
	for _, v := range selected {
		if v != "" && !listed[v] {
			missing = append(missing, v)
		}
	}
	return missing
}

// OptionGroup is a labelled group of a filter selector. The first group
// returned by GroupedFilterOptions has no label and holds ungrouped fields.
type OptionGroup struct {
	Label   string
	Options []types.ValuePair
}

// GroupedFilterOptions lists the fields for a filter selector, grouping
// fields that declare a Group under its label
func (q *Query) GroupedFilterOptions() []OptionGroup {
	groups := []OptionGroup{{}}
	index := map[string]int{"": 0}

	for _, field := range q.registry.fields {
		i, ok := index[field.Group]
		if !ok {
			i = len(groups)
			index[field.Group] = i
			groups = append(groups, OptionGroup{Label: field.Group})
		}
		groups[i].Options = append(groups[i].Options, types.ValuePair{Label: field.Name, Value: field.ID})
	}

	return groups
}
