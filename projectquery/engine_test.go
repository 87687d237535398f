package projectquery

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/projectquery/projectquery/query"
	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/testutil"
	"github.com/arthur-debert/projectquery/types"
)

func newEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s := testutil.LoadUniverse(t)
	opts = append([]Option{
		WithCapabilities(Capabilities{Organizations: s, Functions: s}),
		WithClock(query.FixedClock(testutil.Now)),
	}, opts...)
	e, err := New(s, opts...)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e, s
}

func newSession(t *testing.T, actor types.Actor, opts ...Option) *Query {
	t.Helper()
	e, _ := newEngine(t, opts...)
	q, err := e.Session(context.Background(), actor)
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	return q
}

// filterIDs runs a single condition and returns the sorted matching ids
func filterIDs(t *testing.T, q *Query, field, op string, values ...string) []int64 {
	t.Helper()
	fs := NewFilterSet(q.Registry())
	if err := fs.Add(field, op, values...); err != nil {
		t.Fatalf("failed to add %s %s %v: %v", field, op, values, err)
	}
	return run(t, q, fs)
}

func run(t *testing.T, q *Query, fs *FilterSet) []int64 {
	t.Helper()
	pred, err := q.Compile(fs)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	projects, err := q.engine.catalog.FindWhere(context.Background(), pred, store.FindOptions{})
	if err != nil {
		t.Fatalf("failed to run predicate: %v", err)
	}
	ids := testutil.IDs(projects)
	if ids == nil {
		ids = []int64{}
	}
	return ids
}

func TestSession_Registry(t *testing.T) {
	q := newSession(t, testutil.Alice)

	wantFields := []string{
		"status", "id", "name", "description", "is_public", "parent_id", "created_on",
		"member_id", "updated_on", "organizations", "organization",
		"last_issue_date_for_tracker_1", "last_issue_date_for_tracker_2", "last_issue_date_for_tracker_3",
	}
	if diff := cmp.Diff(wantFields, fieldIDs(q.AvailableFields())); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	wantColumns := []string{
		"name", "identifier", "status", "short_description", "is_public", "parent", "created_on",
		"updated_on", "activity", "issues", "role", "members", "users", "description", "organizations",
		"last_issue_date_for_tracker_1", "last_issue_date_for_tracker_2", "last_issue_date_for_tracker_3",
		"role_1", "role_2", "role_3", "function_1", "function_2",
	}
	if diff := cmp.Diff(wantColumns, columnIDs(q.AvailableColumns())); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_CapabilitiesAreOptional(t *testing.T) {
	tests := []struct {
		name        string
		caps        func(s *store.Store) Capabilities
		wantFields  []string
		wantColumns []string
		noColumns   []string
	}{
		{
			name:        "none",
			caps:        func(*store.Store) Capabilities { return Capabilities{} },
			noColumns:   []string{"organizations", "role_1", "function_1"},
			wantColumns: []string{"last_issue_date_for_tracker_1"},
		},
		{
			name:        "functions without organizations",
			caps:        func(s *store.Store) Capabilities { return Capabilities{Functions: s} },
			noColumns:   []string{"organizations", "role_1", "function_1"},
			wantColumns: []string{"members"},
		},
		{
			name:        "organizations only",
			caps:        func(s *store.Store) Capabilities { return Capabilities{Organizations: s} },
			wantFields:  []string{"organizations", "organization"},
			wantColumns: []string{"organizations", "role_1", "role_3"},
			noColumns:   []string{"function_1", "role_4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.LoadUniverse(t)
			e, err := New(s, WithCapabilities(tt.caps(s)))
			if err != nil {
				t.Fatal(err)
			}
			q, err := e.Session(context.Background(), testutil.Alice)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			r := q.Registry()
			for _, id := range tt.wantFields {
				if _, ok := r.Field(id); !ok {
					t.Errorf("expected field %s", id)
				}
			}
			if len(tt.wantFields) == 0 {
				for _, id := range []string{"organizations", "organization"} {
					if _, ok := r.Field(id); ok {
						t.Errorf("field %s needs the organizations capability", id)
					}
				}
			}
			for _, id := range tt.wantColumns {
				if _, ok := r.Column(id); !ok {
					t.Errorf("expected column %s", id)
				}
			}
			for _, id := range tt.noColumns {
				if _, ok := r.Column(id); ok {
					t.Errorf("unexpected column %s", id)
				}
			}
		})
	}
}

func TestSession_UniqueIDs(t *testing.T) {
	q := newSession(t, testutil.Alice)

	seen := make(map[string]bool)
	for _, f := range q.AvailableFields() {
		if seen[f.ID] {
			t.Errorf("duplicate field id %s", f.ID)
		}
		seen[f.ID] = true
	}

	seen = make(map[string]bool)
	for _, c := range q.AvailableColumns() {
		if seen[c.ID] {
			t.Errorf("duplicate column id %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestSession_SynthesizedIDsRoundTrip(t *testing.T) {
	q := newSession(t, testutil.Alice)

	check := func(id string, src types.Source) {
		if src.IsStatic() {
			return
		}
		parsed, matched, err := types.ParseSourceID(id)
		if err != nil || !matched {
			t.Errorf("%s: failed to parse synthesized id: %v", id, err)
			return
		}
		if parsed.Kind != src.Kind || parsed.ID != src.ID {
			t.Errorf("%s: parsed %+v, want %+v", id, parsed, src)
		}
	}
	for _, f := range q.AvailableFields() {
		check(f.ID, f.Source)
	}
	for _, c := range q.AvailableColumns() {
		check(c.ID, c.Source)
	}
}

func TestScenario_TrackerDateSince(t *testing.T) {
	q := newSession(t, testutil.Alice)

	tests := []struct {
		tracker int64
		want    []int64
	}{
		{testutil.TrackerBug, []int64{testutil.ProjectWebsite}},
		{testutil.TrackerFeature, []int64{}},
		{testutil.TrackerSupport, []int64{}},
	}

	for _, tt := range tests {
		field := types.FormatSourceID(types.SourceTrackerDate, tt.tracker)
		t.Run(field, func(t *testing.T) {
			got := filterIDs(t, q, field, ">=", "20 days ago")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("projects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTrackerDate_LocalClock(t *testing.T) {
	// the Bug issue of Website was created 2024-05-13 09:00 UTC, the
	// evening of 2024-05-12 in Honolulu
	hst := time.FixedZone("HST", -10*60*60)
	q := newSession(t, testutil.Alice, WithClock(query.FixedClock(time.Date(2024, time.May, 13, 20, 0, 0, 0, hst))))
	field := types.FormatSourceID(types.SourceTrackerDate, testutil.TrackerBug)

	tests := []struct {
		op     string
		values []string
		want   []int64
	}{
		{op: "t", want: []int64{}},
		{op: "ld", want: []int64{testutil.ProjectWebsite}},
		{op: "=", values: []string{"2024-05-12"}, want: []int64{testutil.ProjectWebsite}},
		{op: "=", values: []string{"2024-05-13"}, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.op+" "+strings.Join(tt.values, ","), func(t *testing.T) {
			got := filterIDs(t, q, field, tt.op, tt.values...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("projects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSession_RejectsNonNumericIDs(t *testing.T) {
	q := newSession(t, testutil.Alice)

	tests := []struct {
		field  string
		values []string
	}{
		{field: "organizations", values: []string{"sales"}},
		{field: "organization", values: []string{"4", "x"}},
		{field: "member_id", values: []string{"alice"}},
		{field: "id", values: []string{"website"}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			fs := NewFilterSet(q.Registry())
			err := fs.Add(tt.field, "=", tt.values...)
			if !errors.Is(err, types.ErrInvalidFilterValue) {
				t.Errorf("expected an invalid value error, got %v", err)
			}
		})
	}

	fs := NewFilterSet(q.Registry())
	if err := fs.Add("member_id", "=", "me", "6"); err != nil {
		t.Errorf("me is a member keyword, got %v", err)
	}
}

func TestScenario_MemberMe(t *testing.T) {
	q := newSession(t, testutil.Alice)

	got := filterIDs(t, q, "member_id", "=", "me")
	if diff := cmp.Diff([]int64{testutil.ProjectWebsite}, got); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_OrganizationTree(t *testing.T) {
	q := newSession(t, testutil.Alice)

	// alice belongs to Platform, below Engineering; dave (Storage) is locked
	got := filterIDs(t, q, "organizations", "=", strconv.FormatInt(testutil.OrgEngineering, 10))
	if diff := cmp.Diff([]int64{testutil.ProjectWebsite}, got); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_TrackerDateNone(t *testing.T) {
	q := newSession(t, testutil.Alice)

	got := filterIDs(t, q, "last_issue_date_for_tracker_2", "!*")
	want := []int64{testutil.ProjectArchive, testutil.ProjectIntranet, testutil.ProjectResearch, testutil.ProjectWebsite}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestMemberFilter(t *testing.T) {
	id := func(v int64) string { return strconv.FormatInt(v, 10) }

	tests := []struct {
		name   string
		actor  types.Actor
		op     string
		values []string
		want   []int64
	}{
		{name: "all selected members", op: "=", values: []string{id(testutil.UserAlice), id(testutil.UserBob)}, want: []int64{testutil.ProjectWebsite}},
		{name: "single member", op: "=", values: []string{id(testutil.UserBob)}, want: []int64{testutil.ProjectWebsite, testutil.ProjectMobile}},
		{name: "duplicates count once", op: "=", values: []string{"me", id(testutil.UserAlice)}, actor: testutil.Alice, want: []int64{testutil.ProjectWebsite}},
		{name: "no common project", op: "=", values: []string{id(testutil.UserAlice), id(testutil.UserCarol)}, want: []int64{}},
		{name: "negated", op: "!", values: []string{"me"}, actor: testutil.Alice, want: []int64{testutil.ProjectArchive, testutil.ProjectIntranet, testutil.ProjectResearch, testutil.ProjectMobile}},
		{name: "anonymous me matches nothing", op: "=", values: []string{"me"}, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newSession(t, tt.actor)
			got := filterIDs(t, q, "member_id", tt.op, tt.values...)
			if diff := cmp.Diff(sorted(tt.want), got); diff != "" {
				t.Errorf("projects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrganizationFilters(t *testing.T) {
	q := newSession(t, testutil.Alice)
	id := func(v int64) string { return strconv.FormatInt(v, 10) }

	tests := []struct {
		field  string
		op     string
		values []string
		want   []int64
	}{
		{"organizations", "=", []string{id(testutil.OrgSales)}, []int64{testutil.ProjectWebsite, testutil.ProjectMobile}},
		{"organizations", "=", []string{id(testutil.OrgCPII)}, []int64{testutil.ProjectIntranet, testutil.ProjectMobile}},
		{"organizations", "=", []string{id(testutil.OrgStorage)}, []int64{}},
		{"organizations", "!", []string{id(testutil.OrgEngineering)}, []int64{testutil.ProjectArchive, testutil.ProjectIntranet, testutil.ProjectResearch, testutil.ProjectMobile}},
		// the direct match keeps locked members
		{"organization", "=", []string{id(testutil.OrgStorage)}, []int64{testutil.ProjectArchive}},
		{"organization", "=", []string{id(testutil.OrgEngineering)}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.field+" "+tt.op+" "+tt.values[0], func(t *testing.T) {
			got := filterIDs(t, q, tt.field, tt.op, tt.values...)
			if diff := cmp.Diff(sorted(tt.want), got); diff != "" {
				t.Errorf("projects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEqualFilterMonotonicity(t *testing.T) {
	q := newSession(t, testutil.Alice)

	// member_id is left out: it requires ALL selected members
	tests := []struct {
		field  string
		values []string
	}{
		{"status", []string{"1", "9", "5"}},
		{"organization", []string{"9", "11", "12", "10"}},
		{"organizations", []string{"12", "6", "5"}},
		{"id", []string{"7", "8", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			var prevIn, prevOut []int64
			for n := 1; n <= len(tt.values); n++ {
				in := filterIDs(t, q, tt.field, "=", tt.values[:n]...)
				out := filterIDs(t, q, tt.field, "!", tt.values[:n]...)
				if n > 1 {
					if !subset(prevIn, in) {
						t.Errorf("= with %v shrank from %v to %v", tt.values[:n], prevIn, in)
					}
					if !subset(out, prevOut) {
						t.Errorf("! with %v grew from %v to %v", tt.values[:n], prevOut, out)
					}
				}
				prevIn, prevOut = in, out
			}
		})
	}
}

func TestTrackerDateNoneAnyComplement(t *testing.T) {
	q := newSession(t, testutil.Alice)

	for _, tracker := range []int64{testutil.TrackerBug, testutil.TrackerFeature, testutil.TrackerSupport} {
		field := types.FormatSourceID(types.SourceTrackerDate, tracker)
		t.Run(field, func(t *testing.T) {
			anyIDs := filterIDs(t, q, field, "*")
			noneIDs := filterIDs(t, q, field, "!*")

			union := sorted(append(append([]int64{}, anyIDs...), noneIDs...))
			if diff := cmp.Diff(testutil.AllProjects, union); diff != "" {
				t.Errorf("any and none must cover every project (-want +got):\n%s", diff)
			}
			if len(anyIDs)+len(noneIDs) != len(testutil.AllProjects) {
				t.Errorf("any %v and none %v overlap", anyIDs, noneIDs)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	q := newSession(t, testutil.Alice)

	fs := NewFilterSet(q.Registry())
	if err := fs.Add("status", "=", "1"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Add("member_id", "=", "4"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Add("last_issue_date_for_tracker_2", "*"); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int64{testutil.ProjectMobile}, run(t, q, fs)); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_UnknownField(t *testing.T) {
	q := newSession(t, testutil.Alice)

	fs := NewFilterSet(NewRegistry())
	_, err := q.Compile(fs)
	if err != nil {
		t.Fatalf("an empty filter set compiles: %v", err)
	}

	// a set built against a richer registry than the session's
	other := NewRegistry()
	other.RegisterStatic(types.FilterField{ID: "tag", Type: types.FieldText, Column: "projects.tag"})
	fs = NewFilterSet(other)
	if err := fs.Add("tag", "~", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Compile(fs); !errors.Is(err, types.ErrUnknownFilterField) {
		t.Errorf("expected ErrUnknownFilterField, got %v", err)
	}
}

func TestQuery_ProjectsAndCount(t *testing.T) {
	q := newSession(t, testutil.Alice, WithPerPage(2))
	ctx := context.Background()

	if err := q.Filters().Add("status", "=", "1", "9"); err != nil {
		t.Fatal(err)
	}

	count, err := q.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 projects, got %d", count)
	}

	var pages [][]int64
	for page := 1; page <= 3; page++ {
		projects, err := q.Projects(ctx, page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var ids []int64
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		pages = append(pages, ids)
	}
	want := [][]int64{
		{testutil.ProjectArchive, testutil.ProjectIntranet},
		{testutil.ProjectMobile, testutil.ProjectResearch},
		{testutil.ProjectWebsite},
	}
	if diff := cmp.Diff(want, pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_SetSort(t *testing.T) {
	q := newSession(t, testutil.Alice)
	ctx := context.Background()

	if err := q.SetSort(SortCriterion{Column: "activity"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	projects, err := q.Projects(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []int64
	for _, p := range projects {
		got = append(got, p.ID)
	}
	want := []int64{testutil.ProjectResearch, testutil.ProjectWebsite, testutil.ProjectIntranet, testutil.ProjectMobile, testutil.ProjectArchive}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("activity order mismatch (-want +got):\n%s", diff)
	}

	if err := q.SetSort(SortCriterion{Column: "created_on", Direction: "asc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		sort    SortCriterion
		wantErr error
	}{
		{"unknown column", SortCriterion{Column: "nope"}, types.ErrUnknownColumn},
		{"not sortable", SortCriterion{Column: "issues"}, types.ErrValidation},
		{"bad direction", SortCriterion{Column: "name", Direction: "up"}, types.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := q.SetSort(tt.sort); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestQuery_Columns(t *testing.T) {
	q := newSession(t, testutil.Alice)

	if diff := cmp.Diff(DefaultColumns, columnIDs(q.Columns())); diff != "" {
		t.Errorf("default columns mismatch (-want +got):\n%s", diff)
	}

	if err := q.SetColumns([]string{"name", "role", "role_1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"name", "role", "role_1"}, columnIDs(q.Columns())); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	if err := q.SetColumns([]string{"name", "role_99"}); !errors.Is(err, types.ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestSession_IDs(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	a, err := e.Session(ctx, testutil.Alice)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Session(ctx, testutil.Alice)
	if err != nil {
		t.Fatal(err)
	}
	if a.SessionID() == "" || a.SessionID() == b.SessionID() {
		t.Errorf("sessions need distinct ids, got %q and %q", a.SessionID(), b.SessionID())
	}
}

func sorted(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func subset(a, b []int64) bool {
	in := make(map[int64]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	for _, id := range a {
		if !in[id] {
			return false
		}
	}
	return true
}
