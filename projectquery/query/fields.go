package query

import (
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/projectquery/types"
)

// MeValue is the member filter value standing for the current actor
const MeValue = "me"

// memberPrincipalTypes are the principal types counted by organization filters
var memberPrincipalTypes = []string{string(types.PrincipalUser), string(types.PrincipalAnonymous)}

// compileAttribute compiles a condition on a plain column of the projects table
func compileAttribute(env Env, field types.FilterField, op types.Operator, values []string) (sq.Sqlizer, error) {
	col := field.Column

	switch op {
	case types.OpNone:
		return sq.Eq{col: nil}, nil
	case types.OpAny:
		return sq.NotEq{col: nil}, nil
	}

	switch {
	case field.Type.IsDate():
		return datePredicate(col, op, values, env.Now)
	case field.Type == types.FieldInteger:
		return integerPredicate(field, op, values)
	}

	switch op {
	case types.OpEqual:
		return sq.Eq{col: values}, nil
	case types.OpNotEqual:
		return sq.Or{sq.Eq{col: nil}, sq.NotEq{col: values}}, nil
	case types.OpContains:
		return sq.Expr(col+` LIKE ? ESCAPE '\'`, likePattern(values[0])), nil
	case types.OpNotContains:
		return sq.Or{sq.Eq{col: nil}, sq.Expr(col+` NOT LIKE ? ESCAPE '\'`, likePattern(values[0]))}, nil
	}

	return nil, &types.UnsupportedOperatorError{Field: field.ID, Operator: op}
}

// datePredicate compiles a date operator against a timestamp column
func datePredicate(col string, op types.Operator, values []string, now time.Time) (sq.Sqlizer, error) {
	switch op {
	case types.OpNone:
		return sq.Eq{col: nil}, nil
	case types.OpAny:
		return sq.NotEq{col: nil}, nil
	}

	r, err := ResolveDateRange(op, values, now)
	if err != nil {
		return nil, err
	}

	and := sq.And{}
	if r.From != nil {
		and = append(and, sq.GtOrEq{col: StoreTime(*r.From)})
	}
	if r.To != nil {
		and = append(and, sq.LtOrEq{col: StoreTime(*r.To)})
	}
	return and, nil
}

func integerPredicate(field types.FilterField, op types.Operator, values []string) (sq.Sqlizer, error) {
	nums, err := parseIDs(field, values)
	if err != nil {
		return nil, err
	}
	col := field.Column

	switch op {
	case types.OpEqual:
		return sq.Eq{col: nums[0]}, nil
	case types.OpNotEqual:
		return sq.Or{sq.Eq{col: nil}, sq.NotEq{col: nums[0]}}, nil
	case types.OpGreaterOrEqual:
		return sq.GtOrEq{col: nums[0]}, nil
	case types.OpLessOrEqual:
		return sq.LtOrEq{col: nums[0]}, nil
	case types.OpBetween:
		return sq.And{sq.GtOrEq{col: nums[0]}, sq.LtOrEq{col: nums[1]}}, nil
	}

	return nil, &types.UnsupportedOperatorError{Field: field.ID, Operator: op}
}

// compileMember keeps the projects that include ALL the selected members
func compileMember(env Env, field types.FilterField, op types.Operator, values []string) (sq.Sqlizer, error) {
	resolved := make([]string, 0, len(values))
	for _, v := range values {
		if v != MeValue {
			resolved = append(resolved, v)
			continue
		}
		if env.Actor.LoggedIn() {
			resolved = append(resolved, strconv.FormatInt(env.Actor.ID, 10))
		}
	}

	ids, err := parseIDs(field, resolved)
	if err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)

	members := sq.Select("members.project_id").
		From("members").
		Join(ProjectsTable+" ON members.project_id = "+ProjectID).
		Where(sq.Eq{"members.user_id": ids}).
		GroupBy("members.project_id").
		Having("COUNT(DISTINCT members.user_id) = ?", len(ids))

	return containment(op, members), nil
}

// compileOrganizationTree keeps the projects with an unlocked member belonging
// to one of the selected organizations or any organization below them
func compileOrganizationTree(env Env, field types.FilterField, op types.Operator, values []string) (sq.Sqlizer, error) {
	ids, err := parseIDs(field, values)
	if err != nil {
		return nil, err
	}

	roots := sq.Select("t.id").From("organizations t").Where(sq.Eq{"t.id": ids})
	tree := sq.Expr(
		"WITH RECURSIVE org_tree(id) AS (? UNION SELECT t.id FROM organizations t JOIN org_tree ON t.parent_id = org_tree.id) SELECT id FROM org_tree",
		roots,
	)

	members := sq.Select("members.project_id").
		From("members").
		Join("users ON users.id = members.user_id").
		Where(sq.Eq{"users.type": memberPrincipalTypes}).
		Where(sq.NotEq{"users.status": int(types.StatusLocked)}).
		Where(sq.Expr("users.organization_id IN (?)", tree))

	return containment(op, members), nil
}

// compileOrganization keeps the projects with a member directly attached to
// one of the selected organizations
func compileOrganization(env Env, field types.FilterField, op types.Operator, values []string) (sq.Sqlizer, error) {
	ids, err := parseIDs(field, values)
	if err != nil {
		return nil, err
	}

	members := sq.Select("members.project_id").
		Distinct().
		From("members").
		Join("users ON users.id = members.user_id").
		Where(sq.Eq{"users.type": memberPrincipalTypes}).
		Where(sq.Eq{"users.organization_id": ids})

	return containment(op, members), nil
}

// compileTrackerDate compiles a date condition on the date of the most
// recent issue of the field's tracker in each project.
//
// "none" means no issue row matches, so it is compiled as "any" with the
// containment flipped rather than as a null check.
func compileTrackerDate(env Env, field types.FilterField, op types.Operator, values []string) (sq.Sqlizer, error) {
	negate := false
	if op == types.OpNone {
		op = types.OpAny
		negate = true
	}

	lastIssues := sq.Select("issues.project_id", "MAX(issues.created_on) AS last_issue_date").
		From("issues").
		Where(sq.Eq{"issues.tracker_id": field.Source.ID}).
		GroupBy("issues.project_id")

	dateCond, err := datePredicate("last_issues.last_issue_date", op, values, env.Now)
	if err != nil {
		return nil, err
	}

	projects := sq.Select("last_issues.project_id").
		FromSelect(lastIssues, "last_issues").
		Where(dateCond)

	if negate {
		return sq.Expr(ProjectID+" NOT IN (?)", projects), nil
	}
	return sq.Expr(ProjectID+" IN (?)", projects), nil
}

// containment wraps a subquery of project ids, negated for "is not"
func containment(op types.Operator, projects sq.SelectBuilder) sq.Sqlizer {
	if op == types.OpNotEqual {
		return sq.Expr(ProjectID+" NOT IN (?)", projects)
	}
	return sq.Expr(ProjectID+" IN (?)", projects)
}

func parseIDs(field types.FilterField, values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	var invalid []string
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			invalid = append(invalid, v)
			continue
		}
		ids = append(ids, id)
	}
	if len(invalid) > 0 {
		return nil, &types.InvalidFilterValueError{Field: field.ID, Values: invalid, Want: types.ValueInteger}
	}
	return ids, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}
