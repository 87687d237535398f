package projectquery

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/projectquery/query"
	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/types"
)

// Static filter ids
const (
	FieldStatus        = "status"
	FieldID            = "id"
	FieldName          = "name"
	FieldDescription   = "description"
	FieldIsPublic      = "is_public"
	FieldParentID      = "parent_id"
	FieldCreatedOn     = "created_on"
	FieldMemberID      = "member_id"
	FieldUpdatedOn     = "updated_on"
	FieldOrganizations = "organizations"
	FieldOrganization  = "organization"
)

// IssuesGroup is the selector group of the per tracker date fields
const IssuesGroup = "Issues"

// MeLabel is the caption of the member value standing for the actor
const MeLabel = "<< me >>"

var (
	staticOnce          sync.Once
	staticFields        []types.FilterField
	staticColumns       []types.ColumnSpec
	organizationFields  []types.FilterField
	organizationColumns []types.ColumnSpec
)

// staticCatalogue builds the declared fields and columns once per process.
// They must not be mutated; values are bound per session.
func staticCatalogue() {
	staticOnce.Do(func() {
		staticFields = []types.FilterField{
			{ID: FieldStatus, Type: types.FieldList, Name: "Status", Column: "projects.status", IDValues: true},
			{ID: FieldID, Type: types.FieldList, Name: "Project", Column: query.ProjectID, Remote: true, IDValues: true},
			{ID: FieldName, Type: types.FieldText, Name: "Name", Column: "projects.name"},
			{ID: FieldDescription, Type: types.FieldText, Name: "Description", Column: "projects.description"},
			{ID: FieldIsPublic, Type: types.FieldList, Name: "Public", Column: "projects.is_public"},
			{ID: FieldParentID, Type: types.FieldList, Name: "Subproject of", Column: "projects.parent_id", Remote: true, IDValues: true},
			{ID: FieldCreatedOn, Type: types.FieldDatePast, Name: "Created", Column: "projects.created_on"},
			{ID: FieldMemberID, Type: types.FieldList, Name: "Members", IDValues: true, Keywords: []string{query.MeValue}},
			{ID: FieldUpdatedOn, Type: types.FieldDatePast, Name: "Updated", Column: "projects.updated_on"},
		}
		organizationFields = []types.FilterField{
			{ID: FieldOrganizations, Type: types.FieldTree, Name: "Organizations", IDValues: true},
			{ID: FieldOrganization, Type: types.FieldList, Name: "Organization", IDValues: true},
		}

		staticColumns = []types.ColumnSpec{
			{ID: types.ColumnName, Caption: "Name", SortExpr: "projects.name", Groupable: false},
			{ID: types.ColumnIdentifier, Caption: "Identifier", SortExpr: "projects.identifier"},
			{ID: types.ColumnStatus, Caption: "Status", SortExpr: "projects.status", Groupable: true},
			{ID: types.ColumnShortDescription, Caption: "Description"},
			{ID: types.ColumnIsPublic, Caption: "Public", SortExpr: "projects.is_public", Groupable: true},
			{ID: types.ColumnParent, Caption: "Subproject of", SortExpr: "parent.name", Groupable: true},
			{ID: types.ColumnCreatedOn, Caption: "Created", SortExpr: "projects.created_on", DefaultOrder: "desc"},
			{ID: types.ColumnUpdatedOn, Caption: "Updated", SortExpr: "projects.updated_on", DefaultOrder: "desc"},
			{ID: types.ColumnActivity, Caption: "Activity", SortExpr: store.ActivityExpr, DefaultOrder: "desc", Groupable: false},
			{ID: types.ColumnIssues, Caption: "Issues"},
			{ID: types.ColumnRole, Caption: "Role"},
			{ID: types.ColumnMembers, Caption: "Members"},
			{ID: types.ColumnUsers, Caption: "Users"},
			{ID: types.ColumnDescription, Caption: "Description", Inline: false},
		}
		organizationColumns = []types.ColumnSpec{
			{ID: types.ColumnOrganizations, Caption: "Organizations", DefaultOrder: "asc"},
		}
	})
}

// DefaultColumns are listed when a query selects no column
var DefaultColumns = []string{types.ColumnName, types.ColumnIdentifier, types.ColumnShortDescription}

// TrackerDateField is the last issue date filter of a tracker
func TrackerDateField(t types.Tracker) types.FilterField {
	src := types.Source{Kind: types.SourceTrackerDate, ID: t.ID, Name: t.Name}
	return types.FilterField{
		ID:     src.FieldID(),
		Type:   types.FieldDatePast,
		Name:   fmt.Sprintf("Last issue date (%s)", t.Name),
		Group:  IssuesGroup,
		Source: src,
	}
}

// TrackerDateColumn is the last issue date column of a tracker
func TrackerDateColumn(t types.Tracker) types.ColumnSpec {
	src := types.Source{Kind: types.SourceTrackerDate, ID: t.ID, Name: t.Name}
	return types.ColumnSpec{
		ID:      src.FieldID(),
		Caption: fmt.Sprintf("Last issue date (%s)", t.Name),
		Source:  src,
	}
}

// RoleColumn lists the organizations of the members holding a role
func RoleColumn(r types.Role) types.ColumnSpec {
	src := types.Source{Kind: types.SourceRole, ID: r.ID, Name: r.Name}
	return types.ColumnSpec{ID: src.FieldID(), Inline: true, Source: src}
}

// FunctionColumn lists the organizations of the members holding a function
func FunctionColumn(f types.Function) types.ColumnSpec {
	src := types.Source{Kind: types.SourceFunction, ID: f.ID, Name: f.Name}
	return types.ColumnSpec{ID: src.FieldID(), Inline: true, Source: src}
}

// builder assembles the registry of one session
type builder struct {
	catalog Catalog
	caps    Capabilities
	cache   *cache.Cache
	actor   types.Actor
}

func (b *builder) build(ctx context.Context) (*Registry, error) {
	staticCatalogue()
	r := NewRegistry()

	for _, f := range staticFields {
		r.RegisterStatic(b.bind(f))
	}
	if b.caps.HasOrganizations() {
		for _, f := range organizationFields {
			r.RegisterStatic(b.bind(f))
		}
	}
	for _, c := range staticColumns {
		r.RegisterStaticColumn(c)
	}
	if b.caps.HasOrganizations() {
		for _, c := range organizationColumns {
			r.RegisterStaticColumn(c)
		}
	}

	trackers, err := b.catalog.Trackers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}
	RegisterDynamic(r, trackers, TrackerDateField)
	RegisterDynamicColumns(r, trackers, TrackerDateColumn)

	if !b.caps.HasOrganizations() {
		return r, nil
	}

	roles, err := b.catalog.Roles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	givable := roles[:0:0]
	for _, role := range roles {
		if role.Builtin == 0 {
			givable = append(givable, role)
		}
	}
	RegisterDynamicColumns(r, givable, RoleColumn)

	if b.caps.HasFunctions() {
		functions, err := b.caps.Functions.Functions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		RegisterDynamicColumns(r, functions, FunctionColumn)
	}

	return r, nil
}

// bind attaches the session's value providers to a static field
func (b *builder) bind(f types.FilterField) types.FilterField {
	switch f.ID {
	case FieldStatus:
		f.Values = staticValues(
			types.ValuePair{Label: "active", Value: strconv.Itoa(int(types.ProjectActive))},
			types.ValuePair{Label: "closed", Value: strconv.Itoa(int(types.ProjectClosed))},
			types.ValuePair{Label: "archived", Value: strconv.Itoa(int(types.ProjectArchived))},
		)
	case FieldIsPublic:
		f.Values = staticValues(
			types.ValuePair{Label: "yes", Value: "1"},
			types.ValuePair{Label: "no", Value: "0"},
		)
	case FieldID, FieldParentID:
		f.Values = b.projectValues
		f.FindValues = b.findProjectValues
	case FieldMemberID:
		f.Values = b.memberValues
		f.FindValues = b.findPrincipalValues
	case FieldOrganizations:
		f.Values = b.directionValues
	case FieldOrganization:
		f.Values = b.organizationValues
	}
	return f
}

func staticValues(pairs ...types.ValuePair) types.ValueSource {
	return func(context.Context) ([]types.ValuePair, error) {
		return pairs, nil
	}
}

func (b *builder) projectValues(ctx context.Context) ([]types.ValuePair, error) {
	projects, err := b.catalog.FindWhere(ctx, nil, store.FindOptions{})
	if err != nil {
		return nil, err
	}
	return projectPairs(projects), nil
}

func (b *builder) findProjectValues(ctx context.Context, missing []string) ([]types.ValuePair, error) {
	ids := integerValues(missing)
	if len(ids) == 0 {
		return nil, nil
	}
	projects, err := b.catalog.FindWhere(ctx, sq.Eq{query.ProjectID: ids}, store.FindOptions{})
	if err != nil {
		return nil, err
	}
	return projectPairs(projects), nil
}

func projectPairs(projects []types.Project) []types.ValuePair {
	pairs := make([]types.ValuePair, 0, len(projects))
	for _, p := range projects {
		pairs = append(pairs, types.ValuePair{Label: p.Name, Value: strconv.FormatInt(p.ID, 10)})
	}
	return pairs
}

// AllUsers returns the active users that are members of a project, cached
// until a membership is created
func AllUsers(ctx context.Context, c *cache.Cache, catalog Catalog) ([]types.Principal, error) {
	key := cache.NewKey("all-users", catalog.Freshness("members", "created_on"))
	return cache.Fetch(ctx, c, key, catalog.MemberUsers)
}

func (b *builder) memberValues(ctx context.Context) ([]types.ValuePair, error) {
	users, err := AllUsers(ctx, b.cache, b.catalog)
	if err != nil {
		return nil, err
	}
	var pairs []types.ValuePair
	if b.actor.LoggedIn() {
		pairs = append(pairs, types.ValuePair{Label: MeLabel, Value: query.MeValue})
	}
	return append(pairs, principalPairs(users)...), nil
}

func (b *builder) findPrincipalValues(ctx context.Context, missing []string) ([]types.ValuePair, error) {
	ids := integerValues(missing)
	if len(ids) == 0 {
		return nil, nil
	}
	principals, err := b.catalog.Principals(ctx, ids)
	if err != nil {
		return nil, err
	}
	return principalPairs(principals), nil
}

func principalPairs(principals []types.Principal) []types.ValuePair {
	pairs := make([]types.ValuePair, 0, len(principals))
	for _, p := range principals {
		pairs = append(pairs, types.ValuePair{Label: p.Name(), Value: strconv.FormatInt(p.ID, 10)})
	}
	return pairs
}

func (b *builder) organizations(ctx context.Context) (*types.OrganizationSet, error) {
	orgs, err := b.caps.Organizations.Organizations(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewOrganizationSet(orgs), nil
}

func (b *builder) directionValues(ctx context.Context) ([]types.ValuePair, error) {
	set, err := b.organizations(ctx)
	if err != nil {
		return nil, err
	}
	var pairs []types.ValuePair
	for _, org := range set.Directions() {
		pairs = append(pairs, types.ValuePair{Label: org.Name, Value: strconv.FormatInt(org.ID, 10)})
	}
	return pairs, nil
}

func (b *builder) organizationValues(ctx context.Context) ([]types.ValuePair, error) {
	set, err := b.organizations(ctx)
	if err != nil {
		return nil, err
	}
	pairs := make([]types.ValuePair, 0, len(set.All()))
	for _, org := range set.All() {
		pairs = append(pairs, types.ValuePair{Label: set.FullName(org.ID), Value: strconv.FormatInt(org.ID, 10)})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Label < pairs[j].Label })
	return pairs, nil
}

func integerValues(values []string) []int64 {
	var ids []int64
	for _, v := range values {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
