package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/testutil"
	"github.com/arthur-debert/projectquery/types"
)

// seedDB writes the test universe to a database file
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s.Seed(context.Background(), testutil.Fixture(t)); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
	return path
}

// isolate keeps the CLI away from the user's config and log files
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("PROJECTQUERY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	isolate(t)

	cli := NewCLI()
	var out bytes.Buffer
	root := cli.GetRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := cli.Execute()
	return out.String(), err
}

func TestList_JSON(t *testing.T) {
	db := seedDB(t)

	out, err := runCLI(t, "--db", db, "--format", "json", "list", "--filter", "status = 9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	want := []map[string]string{
		{"name": "Archive", "identifier": "archive", "short_description": ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestList_CSVRole(t *testing.T) {
	db := seedDB(t)

	out, err := runCLI(t, "--db", db, "--actor", "3", "--format", "csv",
		"list", "--filter", "id = 7", "--columns", "name,role")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Name,Role\nWebsite,\"Manager, Developer\"\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestList_Table(t *testing.T) {
	db := seedDB(t)

	out, err := runCLI(t, "--db", db, "--per-page", "2", "list", "--columns", "name,status", "--page", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Name", "Mobile App", "Research", "2 of 5 projects"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Website") {
		t.Errorf("page 2 must not list Website, got:\n%s", out)
	}
}

func TestList_Errors(t *testing.T) {
	db := seedDB(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "unknown field", args: []string{"list", "--filter", "tags = x"}, wantErr: types.ErrUnknownFilterField},
		{name: "unknown operator", args: []string{"list", "--filter", "status ?? 1"}, wantErr: types.ErrUnknownOperator},
		{name: "unknown column", args: []string{"list", "--columns", "name,budget"}, wantErr: types.ErrUnknownColumn},
		{name: "unsortable column", args: []string{"list", "--sort", "role"}, wantErr: types.ErrValidation},
		{name: "malformed filter", args: []string{"list", "--filter", "status"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"--db", db}, tt.args...)...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if code := exitCode(err); code != exitUsage {
				t.Errorf("expected exit code %d, got %d", exitUsage, code)
			}
		})
	}
}

func TestList_NoDatabase(t *testing.T) {
	_, err := runCLI(t, "list")

	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected a CLIError, got %v", err)
	}
	if !strings.Contains(cliErr.Error(), "no database configured") {
		t.Errorf("unexpected message %q", cliErr.Error())
	}
}

func TestExport(t *testing.T) {
	db := seedDB(t)
	output := filepath.Join(t.TempDir(), "out.csv")

	_, err := runCLI(t, "--db", db, "--per-page", "2", "--separator", ";",
		"export", "--columns", "name,members,organizations", "--output", output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	want := strings.Join([]string{
		"Name;Members;Organizations",
		"Archive;;Engineering",
		"Intranet;Carol Petit;CPII",
		"Mobile App;Bob Durand, Carol Petit;Sales",
		"Research;;",
		"Website;Alice Martin, Bob Durand;Engineering, Sales",
		"",
	}, "\n")
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_WithoutOrganizations(t *testing.T) {
	db := seedDB(t)

	_, err := runCLI(t, "--db", db, "--organizations=false",
		"export", "--columns", "organizations", "--output", "-")
	if !errors.Is(err, types.ErrUnknownColumn) {
		t.Errorf("organization columns require the plugin, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	db := filepath.Join(t.TempDir(), "seeded.db")
	fixture := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
projects:
  - {id: 1, name: Alpha, identifier: alpha, created_on: "2024-01-01 00:00:00", updated_on: "2024-01-01 00:00:00"}
`
	if err := os.WriteFile(fixture, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--db", db, "seed", fixture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "seeded") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = runCLI(t, "--db", db, "--format", "json", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"Alpha"`) {
		t.Errorf("expected the seeded project to be listed, got %s", out)
	}
}

func TestFilters_JSON(t *testing.T) {
	db := seedDB(t)

	out, err := runCLI(t, "--db", db, "--actor", "3", "--format", "json", "filters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["member_id"]["name"] != "Member" {
		t.Errorf("unexpected member_id entry %v", got["member_id"])
	}
	if _, ok := got["last_issue_date_for_tracker_1"]; !ok {
		t.Error("expected the tracker fields to be listed")
	}
}

func TestColumns_WithoutFunctions(t *testing.T) {
	db := seedDB(t)

	out, err := runCLI(t, "--db", db, "--limited-visibility=false", "--format", "json", "columns")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []columnInfo
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, c := range got {
		if strings.HasPrefix(c.ID, "function_") {
			t.Errorf("function columns require the limited visibility plugin, got %s", c.ID)
		}
	}
}

func TestConfig_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("PROJECTQUERY_PER_PAGE", "25")
	t.Setenv("PROJECTQUERY_LOG_LEVEL", "debug")

	cli := NewCLI()
	if got := cli.viperInst.GetInt("per_page"); got != 25 {
		t.Errorf("expected per_page 25, got %d", got)
	}
	if got := cli.viperInst.GetString("log.level"); got != "debug" {
		t.Errorf("expected log level debug, got %q", got)
	}
	if diff := cmp.Diff([]string{"CPII"}, cli.viperInst.GetStringSlice("organizations.ignored_directions")); diff != "" {
		t.Errorf("ignored directions mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "projectquery.yaml")
	content := `
db: projects.db
actor: 3
separator: ";"
plugins:
  limited_visibility: false
organizations:
  ignored_directions: [CPII, Board]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROJECTQUERY_CONFIG", path)

	cli := NewCLI()
	if got := cli.actor(); got.ID != 3 {
		t.Errorf("expected actor 3, got %d", got.ID)
	}
	if cli.viperInst.GetBool("plugins.limited_visibility") {
		t.Error("expected limited visibility to be disabled")
	}
	if diff := cmp.Diff([]string{"CPII", "Board"}, cli.viperInst.GetStringSlice("organizations.ignored_directions")); diff != "" {
		t.Errorf("ignored directions mismatch (-want +got):\n%s", diff)
	}
	opts, err := cli.exportOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Separator != ';' {
		t.Errorf("expected separator ';', got %q", opts.Separator)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		spec    string
		want    filterSpec
		wantErr bool
	}{
		{spec: "status = 1,5", want: filterSpec{Field: "status", Operator: "=", Values: []string{"1", "5"}}},
		{spec: "  member_id   =   me ", want: filterSpec{Field: "member_id", Operator: "=", Values: []string{"me"}}},
		{spec: "updated_on >= 20 days ago", want: filterSpec{Field: "updated_on", Operator: ">=", Values: []string{"20 days ago"}}},
		{spec: "created_on >< 2024-01-01, 2024-02-01", want: filterSpec{Field: "created_on", Operator: "><", Values: []string{"2024-01-01", "2024-02-01"}}},
		{spec: "parent_id !*", want: filterSpec{Field: "parent_id", Operator: "!*"}},
		{spec: "status", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseFilter(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	got := parseSort("activity:desc")
	if got.Column != "activity" || got.Direction != "desc" {
		t.Errorf("unexpected criterion %+v", got)
	}
	if got := parseSort("name"); got.Column != "name" || got.Direction != "" {
		t.Errorf("unexpected criterion %+v", got)
	}
}
