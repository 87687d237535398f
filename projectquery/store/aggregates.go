package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/types"
)

// ActivityExpr is the SQL expression of a project's latest activity: the
// creation of its most recent issue, or its own last update
const ActivityExpr = "COALESCE((SELECT MAX(issues.created_on) FROM issues WHERE issues.project_id = projects.id), projects.updated_on)"

// freshnessColumns whitelists the columns Freshness may probe, since the
// names are interpolated into SQL
var freshnessColumns = map[string]map[string]bool{
	"members":       {"created_on": true},
	"organizations": {"updated_at": true},
	"projects":      {"updated_on": true, "created_on": true},
	"issues":        {"created_on": true, "closed_on": true},
}

// Freshness returns a cache probe yielding the latest value of table.column
func (s *Store) Freshness(table, column string) cache.Probe {
	return cache.ProbeFunc(func(ctx context.Context) (string, error) {
		return s.MaxTimestamp(ctx, table, column)
	})
}

// MaxTimestamp returns the greatest value of table.column, "" for an empty table
func (s *Store) MaxTimestamp(ctx context.Context, table, column string) (string, error) {
	if !freshnessColumns[table][column] {
		return "", fmt.Errorf("column %s.%s is not a freshness column", table, column)
	}

	sqlText, args, err := s.builder.BuildMax(table, column)
	if err != nil {
		return "", err
	}
	s.logQuery("max timestamp", sqlText, args)

	var value sql.NullString
	if err := s.db.QueryRowContext(ctx, sqlText, args...).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to read max %s.%s: %w", table, column, err)
	}
	return value.String, nil
}

// ProjectMembers returns, per project, the user ids of its members in
// membership order
func (s *Store) ProjectMembers(ctx context.Context) (map[int64][]int64, error) {
	sqlText, args, err := s.builder.Select("members.project_id", "members.user_id").
		From("members").
		OrderBy("members.project_id", "members.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	result := make(map[int64][]int64)
	err = s.queryRows(ctx, "list project members", sqlText, args, func(rows *sql.Rows) error {
		var projectID, userID int64
		if err := rows.Scan(&projectID, &userID); err != nil {
			return err
		}
		result[projectID] = append(result[projectID], userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ProjectOrganizations returns, per project, the distinct organizations its
// member users belong to
func (s *Store) ProjectOrganizations(ctx context.Context) (map[int64][]int64, error) {
	sqlText, args, err := s.builder.Select("members.project_id", "users.organization_id").
		Distinct().
		From("members").
		Join("users ON users.id = members.user_id").
		Where(sq.NotEq{"users.organization_id": nil}).
		OrderBy("members.project_id", "users.organization_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	result := make(map[int64][]int64)
	err = s.queryRows(ctx, "list project organizations", sqlText, args, func(rows *sql.Rows) error {
		var projectID, orgID int64
		if err := rows.Scan(&projectID, &orgID); err != nil {
			return err
		}
		result[projectID] = append(result[projectID], orgID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// OrganizationsByRole returns, per project and role, the organizations of
// the members holding that role
func (s *Store) OrganizationsByRole(ctx context.Context) (map[int64]map[int64][]int64, error) {
	return s.organizationsBy(ctx, "member_roles", "role_id")
}

// OrganizationsByFunction returns, per project and function, the
// organizations of the members holding that function
func (s *Store) OrganizationsByFunction(ctx context.Context) (map[int64]map[int64][]int64, error) {
	return s.organizationsBy(ctx, "member_functions", "function_id")
}

func (s *Store) organizationsBy(ctx context.Context, joinTable, key string) (map[int64]map[int64][]int64, error) {
	keyColumn := joinTable + "." + key
	sqlText, args, err := s.builder.Select("members.project_id", keyColumn, "organizations.id").
		From("organizations").
		Join("users ON users.organization_id = organizations.id").
		Join("members ON members.user_id = users.id").
		Join(joinTable+" ON "+joinTable+".member_id = members.id").
		GroupBy("members.project_id", keyColumn, "organizations.id").
		OrderBy("members.project_id", keyColumn, "organizations.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	result := make(map[int64]map[int64][]int64)
	err = s.queryRows(ctx, "list organizations by "+key, sqlText, args, func(rows *sql.Rows) error {
		var projectID, keyID, orgID int64
		if err := rows.Scan(&projectID, &keyID, &orgID); err != nil {
			return err
		}
		if result[projectID] == nil {
			result[projectID] = make(map[int64][]int64)
		}
		result[projectID][keyID] = append(result[projectID][keyID], orgID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LastIssueDates returns, per project and tracker, the creation date of the
// most recent issue
func (s *Store) LastIssueDates(ctx context.Context) (map[int64]map[int64]time.Time, error) {
	sqlText, args, err := s.builder.Select("issues.project_id", "issues.tracker_id", "MAX(issues.created_on)").
		From("issues").
		GroupBy("issues.project_id", "issues.tracker_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	result := make(map[int64]map[int64]time.Time)
	err = s.queryRows(ctx, "list last issue dates", sqlText, args, func(rows *sql.Rows) error {
		var (
			projectID, trackerID int64
			last                 sql.NullString
		)
		if err := rows.Scan(&projectID, &trackerID, &last); err != nil {
			return err
		}
		if result[projectID] == nil {
			result[projectID] = make(map[int64]time.Time)
		}
		result[projectID][trackerID] = parseTimestamp(last)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LatestActivity returns the latest activity date of every project, as
// defined by ActivityExpr
func (s *Store) LatestActivity(ctx context.Context) (map[int64]time.Time, error) {
	sqlText, args, err := s.builder.Select("projects.id", ActivityExpr).
		From("projects").
		ToSql()
	if err != nil {
		return nil, err
	}

	result := make(map[int64]time.Time)
	err = s.queryRows(ctx, "list latest activity", sqlText, args, func(rows *sql.Rows) error {
		var (
			projectID int64
			latest    sql.NullString
		)
		if err := rows.Scan(&projectID, &latest); err != nil {
			return err
		}
		if t := parseTimestamp(latest); !t.IsZero() {
			result[projectID] = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IssueCounts returns the open and closed issue counts of every project
// having issues
func (s *Store) IssueCounts(ctx context.Context) (map[int64]types.IssueCounts, error) {
	sqlText, args, err := s.builder.Select(
		"issues.project_id",
		"SUM(CASE WHEN issues.closed_on IS NULL THEN 1 ELSE 0 END)",
		"SUM(CASE WHEN issues.closed_on IS NULL THEN 0 ELSE 1 END)",
	).
		From("issues").
		GroupBy("issues.project_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	result := make(map[int64]types.IssueCounts)
	err = s.queryRows(ctx, "count issues", sqlText, args, func(rows *sql.Rows) error {
		var (
			projectID int64
			counts    types.IssueCounts
		)
		if err := rows.Scan(&projectID, &counts.Open, &counts.Closed); err != nil {
			return err
		}
		result[projectID] = counts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
