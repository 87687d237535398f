package format

import (
	"time"

	"github.com/arthur-debert/projectquery/projectquery/query"
	"github.com/arthur-debert/projectquery/types"
)

// Date layouts of rendered values
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = query.TimestampLayout
)

// BaseFormatter renders the columns the Formatter does not handle itself
type BaseFormatter interface {
	Render(column types.ColumnSpec, p types.Project) string
	ExportValue(column types.ColumnSpec, p types.Project) any
}

// ProjectFormatter is the default BaseFormatter, reading project attributes
type ProjectFormatter struct{}

// Render implements BaseFormatter
func (ProjectFormatter) Render(column types.ColumnSpec, p types.Project) string {
	switch column.ID {
	case types.ColumnCreatedOn:
		return formatTime(p.CreatedOn, DateLayout)
	case types.ColumnUpdatedOn:
		return formatTime(p.UpdatedOn, DateLayout)
	}
	return attribute(column, p)
}

// ExportValue implements BaseFormatter
func (ProjectFormatter) ExportValue(column types.ColumnSpec, p types.Project) any {
	switch column.ID {
	case types.ColumnCreatedOn:
		return formatTime(p.CreatedOn, TimestampLayout)
	case types.ColumnUpdatedOn:
		return formatTime(p.UpdatedOn, TimestampLayout)
	}
	return attribute(column, p)
}

func attribute(column types.ColumnSpec, p types.Project) string {
	switch column.ID {
	case types.ColumnName:
		return p.Name
	case types.ColumnIdentifier:
		return p.Identifier
	case types.ColumnStatus:
		return p.Status.String()
	case types.ColumnShortDescription:
		return p.ShortDescription()
	case types.ColumnDescription:
		return p.Description
	case types.ColumnIsPublic:
		if p.IsPublic {
			return "yes"
		}
		return "no"
	case types.ColumnParent:
		return p.ParentName
	}
	return ""
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}
