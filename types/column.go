package types

// ColumnSpec is a renderable projection of a project record
type ColumnSpec struct {
	ID      string
	Caption string

	// SortExpr is the SQL expression used to sort by this column.
	// Empty means the column is not sortable.
	SortExpr     string
	DefaultOrder string

	Groupable bool
	Inline    bool

	// Source is the entity a synthesized column was generated from.
	// It is only used to look up the caption.
	Source Source
}

// Sortable reports whether the column can be sorted on
func (c ColumnSpec) Sortable() bool {
	return c.SortExpr != ""
}

// Title returns the caption shown in headers
func (c ColumnSpec) Title() string {
	if c.Caption != "" {
		return c.Caption
	}
	if c.Source.Name != "" {
		return c.Source.Name
	}
	return c.ID
}

// Static column ids
const (
	ColumnName             = "name"
	ColumnIdentifier       = "identifier"
	ColumnStatus           = "status"
	ColumnShortDescription = "short_description"
	ColumnDescription      = "description"
	ColumnIsPublic         = "is_public"
	ColumnParent           = "parent"
	ColumnCreatedOn        = "created_on"
	ColumnUpdatedOn        = "updated_on"
	ColumnActivity         = "activity"
	ColumnIssues           = "issues"
	ColumnRole             = "role"
	ColumnMembers          = "members"
	ColumnUsers            = "users"
	ColumnOrganizations    = "organizations"
)
