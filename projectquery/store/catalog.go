package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/projectquery/types"
)

// Trackers lists the trackers by position
func (s *Store) Trackers(ctx context.Context) ([]types.Tracker, error) {
	sqlText, args, err := s.builder.Select("id", "name", "position").
		From("trackers").
		OrderBy("position", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var trackers []types.Tracker
	err = s.queryRows(ctx, "list trackers", sqlText, args, func(rows *sql.Rows) error {
		var t types.Tracker
		if err := rows.Scan(&t.ID, &t.Name, &t.Position); err != nil {
			return err
		}
		trackers = append(trackers, t)
		return nil
	})
	return trackers, err
}

// Roles lists the roles by position, builtin ones included
func (s *Store) Roles(ctx context.Context) ([]types.Role, error) {
	sqlText, args, err := s.builder.Select("id", "name", "position", "builtin").
		From("roles").
		OrderBy("position", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var roles []types.Role
	err = s.queryRows(ctx, "list roles", sqlText, args, func(rows *sql.Rows) error {
		var r types.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Position, &r.Builtin); err != nil {
			return err
		}
		roles = append(roles, r)
		return nil
	})
	return roles, err
}

// Functions lists the membership functions by position
func (s *Store) Functions(ctx context.Context) ([]types.Function, error) {
	sqlText, args, err := s.builder.Select("id", "name", "position").
		From("functions").
		OrderBy("position", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var functions []types.Function
	err = s.queryRows(ctx, "list functions", sqlText, args, func(rows *sql.Rows) error {
		var f types.Function
		if err := rows.Scan(&f.ID, &f.Name, &f.Position); err != nil {
			return err
		}
		functions = append(functions, f)
		return nil
	})
	return functions, err
}

// Organizations lists the whole organization tree
func (s *Store) Organizations(ctx context.Context) ([]types.Organization, error) {
	sqlText, args, err := s.builder.Select("id", "name", "parent_id", "direction", "updated_at").
		From("organizations").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var orgs []types.Organization
	err = s.queryRows(ctx, "list organizations", sqlText, args, func(rows *sql.Rows) error {
		var (
			o         types.Organization
			parentID  sql.NullInt64
			updatedAt sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.Name, &parentID, &o.Direction, &updatedAt); err != nil {
			return err
		}
		o.ParentID = parentID.Int64
		o.UpdatedAt = parseTimestamp(updatedAt)
		orgs = append(orgs, o)
		return nil
	})
	return orgs, err
}

var principalColumns = []string{
	"users.id", "users.type", "users.login", "users.firstname", "users.lastname",
	"users.status", "users.organization_id",
}

func scanPrincipal(rows *sql.Rows) (types.Principal, error) {
	var (
		p     types.Principal
		orgID sql.NullInt64
	)
	if err := rows.Scan(&p.ID, &p.Type, &p.Login, &p.Firstname, &p.Lastname, &p.Status, &orgID); err != nil {
		return p, err
	}
	p.OrganizationID = orgID.Int64
	return p, nil
}

// MemberUsers lists the active users that are a member of at least one
// project, sorted by name
func (s *Store) MemberUsers(ctx context.Context) ([]types.Principal, error) {
	sqlText, args, err := s.builder.Select(principalColumns...).
		Distinct().
		From("users").
		Join("members ON members.user_id = users.id").
		Where(sq.Eq{"users.type": string(types.PrincipalUser)}).
		Where(sq.Eq{"users.status": int(types.StatusActive)}).
		Where("members.project_id IN (SELECT id FROM projects)").
		ToSql()
	if err != nil {
		return nil, err
	}

	users, err := s.principals(ctx, "list member users", sqlText, args)
	if err != nil {
		return nil, err
	}
	sortPrincipals(users)
	return users, nil
}

// Principals returns the principals with the given ids, sorted by name
func (s *Store) Principals(ctx context.Context, ids []int64) ([]types.Principal, error) {
	sqlText, args, err := s.builder.Select(principalColumns...).
		From("users").
		Where(sq.Eq{"users.id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}

	principals, err := s.principals(ctx, "find principals", sqlText, args)
	if err != nil {
		return nil, err
	}
	sortPrincipals(principals)
	return principals, nil
}

func (s *Store) principals(ctx context.Context, operation, sqlText string, args []interface{}) ([]types.Principal, error) {
	var result []types.Principal
	err := s.queryRows(ctx, operation, sqlText, args, func(rows *sql.Rows) error {
		p, err := scanPrincipal(rows)
		if err != nil {
			return err
		}
		result = append(result, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func sortPrincipals(ps []types.Principal) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := strings.ToLower(ps[i].Name()), strings.ToLower(ps[j].Name())
		if a != b {
			return a < b
		}
		return ps[i].ID < ps[j].ID
	})
}

// ActorRoles returns, per project, the names of the roles the actor holds
func (s *Store) ActorRoles(ctx context.Context, actor types.Actor) (map[int64][]string, error) {
	result := make(map[int64][]string)
	if !actor.LoggedIn() {
		return result, nil
	}

	sqlText, args, err := s.builder.Select("members.project_id", "roles.name").
		From("members").
		Join("member_roles ON member_roles.member_id = members.id").
		Join("roles ON roles.id = member_roles.role_id").
		Where(sq.Eq{"members.user_id": actor.ID}).
		OrderBy("members.project_id", "roles.position", "roles.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	err = s.queryRows(ctx, "list actor roles", sqlText, args, func(rows *sql.Rows) error {
		var (
			projectID int64
			name      string
		)
		if err := rows.Scan(&projectID, &name); err != nil {
			return err
		}
		result[projectID] = append(result[projectID], name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships of actor %d: %w", actor.ID, err)
	}
	return result, nil
}
