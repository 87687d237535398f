package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/projectquery/types"
)

// DefaultOrder sorts projects by name when the caller gives no order
const DefaultOrder = "projects.name"

// FindOptions controls ordering and paging of FindWhere
type FindOptions struct {
	// OrderBy holds ORDER BY terms such as "projects.updated_on DESC"
	OrderBy []string
	// Limit of 0 means no limit
	Limit  uint64
	Offset uint64
}

var projectColumns = []string{
	"projects.id",
	"projects.name",
	"projects.identifier",
	"projects.description",
	"projects.status",
	"projects.is_public",
	"projects.parent_id",
	"parent.name",
	"projects.created_on",
	"projects.updated_on",
}

// FindWhere returns the projects matching where. A nil where matches every project.
func (s *Store) FindWhere(ctx context.Context, where sq.Sqlizer, opts FindOptions) ([]types.Project, error) {
	q := s.builder.Select(projectColumns...).
		From("projects").
		LeftJoin("projects parent ON parent.id = projects.parent_id")
	if where != nil {
		q = q.Where(where)
	}

	order := append([]string{}, opts.OrderBy...)
	if len(order) == 0 {
		order = append(order, DefaultOrder)
	}
	q = q.OrderBy(append(order, "projects.id")...)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit).Offset(opts.Offset)
	}

	sqlText, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build project query: %w", err)
	}

	var projects []types.Project
	err = s.queryRows(ctx, "find projects", sqlText, args, func(rows *sql.Rows) error {
		var (
			p           types.Project
			identifier  sql.NullString
			description sql.NullString
			parentID    sql.NullInt64
			parentName  sql.NullString
			createdOn   sql.NullString
			updatedOn   sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &identifier, &description, &p.Status, &p.IsPublic,
			&parentID, &parentName, &createdOn, &updatedOn); err != nil {
			return err
		}
		p.Identifier = identifier.String
		p.Description = description.String
		p.ParentID = parentID.Int64
		p.ParentName = parentName.String
		p.CreatedOn = parseTimestamp(createdOn)
		p.UpdatedOn = parseTimestamp(updatedOn)
		projects = append(projects, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return projects, nil
}

// Count returns the number of projects matching where
func (s *Store) Count(ctx context.Context, where sq.Sqlizer) (int, error) {
	if where == nil {
		where = sq.And{}
	}
	sqlText, args, err := s.builder.BuildSelectCount("projects", where)
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	s.logQuery("count projects", sqlText, args)

	var count int
	if err := s.db.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}
