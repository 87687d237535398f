package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/projectquery/types"
)

// ErrLocked is returned when another process holds the seed lock
var ErrLocked = errors.New("database is locked by another seed")

// Fixture is the content of a seed file
type Fixture struct {
	Trackers      []TrackerRow      `yaml:"trackers"`
	Roles         []RoleRow         `yaml:"roles"`
	Functions     []FunctionRow     `yaml:"functions"`
	Organizations []OrganizationRow `yaml:"organizations"`
	Users         []UserRow         `yaml:"users"`
	Projects      []ProjectRow      `yaml:"projects"`
	Members       []MemberRow       `yaml:"members"`
	Issues        []IssueRow        `yaml:"issues"`
}

type TrackerRow struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Position int    `yaml:"position"`
}

type RoleRow struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Position int    `yaml:"position"`
	Builtin  int    `yaml:"builtin"`
}

type FunctionRow struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Position int    `yaml:"position"`
}

type OrganizationRow struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	ParentID  int64  `yaml:"parent_id"`
	Direction bool   `yaml:"direction"`
	UpdatedAt string `yaml:"updated_at"`
}

type UserRow struct {
	ID             int64  `yaml:"id"`
	Type           string `yaml:"type"`
	Login          string `yaml:"login"`
	Firstname      string `yaml:"firstname"`
	Lastname       string `yaml:"lastname"`
	Status         int    `yaml:"status"`
	OrganizationID int64  `yaml:"organization_id"`
}

type ProjectRow struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Identifier  string `yaml:"identifier"`
	Description string `yaml:"description"`
	Status      int    `yaml:"status"`
	IsPublic    *bool  `yaml:"is_public"`
	ParentID    int64  `yaml:"parent_id"`
	CreatedOn   string `yaml:"created_on"`
	UpdatedOn   string `yaml:"updated_on"`
}

type MemberRow struct {
	ID        int64   `yaml:"id"`
	UserID    int64   `yaml:"user_id"`
	ProjectID int64   `yaml:"project_id"`
	CreatedOn string  `yaml:"created_on"`
	Roles     []int64 `yaml:"roles"`
	Functions []int64 `yaml:"functions"`
}

type IssueRow struct {
	ID        int64  `yaml:"id"`
	ProjectID int64  `yaml:"project_id"`
	TrackerID int64  `yaml:"tracker_id"`
	Subject   string `yaml:"subject"`
	CreatedOn string `yaml:"created_on"`
	ClosedOn  string `yaml:"closed_on"`
}

// ReadFixture parses a YAML seed file
func ReadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes YAML seed content
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// SeedFile loads a YAML seed file into the database at dbPath while
// holding a lock next to it, so concurrent seeds of one database
// serialize
func (s *Store) SeedFile(ctx context.Context, dbPath, fixturePath string) error {
	f, err := ReadFixture(fixturePath)
	if err != nil {
		return err
	}
	return withFileLock(ctx, FlockFactory{}, dbPath+".lock", func() error {
		return s.Seed(ctx, f)
	})
}

// Seed inserts the fixture rows in a single transaction
func (s *Store) Seed(ctx context.Context, f *Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := func(table string, columns []string, values ...interface{}) error {
		sqlText, args, err := s.builder.BuildInsert(table, columns, values)
		if err != nil {
			return err
		}
		s.logQuery("seed "+table, sqlText, args)
		if _, err := tx.ExecContext(ctx, sqlText, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return nil
	}

	for _, t := range f.Trackers {
		if err := insert("trackers", []string{"id", "name", "position"}, t.ID, t.Name, t.Position); err != nil {
			return err
		}
	}
	for _, r := range f.Roles {
		if err := insert("roles", []string{"id", "name", "position", "builtin"}, r.ID, r.Name, r.Position, r.Builtin); err != nil {
			return err
		}
	}
	for _, fn := range f.Functions {
		if err := insert("functions", []string{"id", "name", "position"}, fn.ID, fn.Name, fn.Position); err != nil {
			return err
		}
	}
	// Parents are listed before children in seed files
	for _, o := range f.Organizations {
		if err := insert("organizations", []string{"id", "name", "parent_id", "direction", "updated_at"},
			o.ID, o.Name, nullID(o.ParentID), o.Direction, nullString(o.UpdatedAt)); err != nil {
			return err
		}
	}
	for _, u := range f.Users {
		if u.Type == "" {
			u.Type = string(types.PrincipalUser)
		}
		if u.Status == 0 {
			u.Status = int(types.StatusActive)
		}
		if err := insert("users", []string{"id", "type", "login", "firstname", "lastname", "status", "organization_id"},
			u.ID, u.Type, u.Login, u.Firstname, u.Lastname, u.Status, nullID(u.OrganizationID)); err != nil {
			return err
		}
	}
	for _, p := range f.Projects {
		if p.Status == 0 {
			p.Status = int(types.ProjectActive)
		}
		public := true
		if p.IsPublic != nil {
			public = *p.IsPublic
		}
		if err := insert("projects",
			[]string{"id", "name", "identifier", "description", "status", "is_public", "parent_id", "created_on", "updated_on"},
			p.ID, p.Name, p.Identifier, p.Description, p.Status, public, nullID(p.ParentID),
			nullString(p.CreatedOn), nullString(p.UpdatedOn)); err != nil {
			return err
		}
	}
	for _, m := range f.Members {
		if err := insert("members", []string{"id", "user_id", "project_id", "created_on"},
			m.ID, m.UserID, m.ProjectID, nullString(m.CreatedOn)); err != nil {
			return err
		}
		for _, roleID := range m.Roles {
			if err := insert("member_roles", []string{"member_id", "role_id"}, m.ID, roleID); err != nil {
				return err
			}
		}
		for _, functionID := range m.Functions {
			if err := insert("member_functions", []string{"member_id", "function_id"}, m.ID, functionID); err != nil {
				return err
			}
		}
	}
	for _, i := range f.Issues {
		if err := insert("issues", []string{"id", "project_id", "tracker_id", "subject", "created_on", "closed_on"},
			i.ID, i.ProjectID, i.TrackerID, i.Subject, i.CreatedOn, nullString(i.ClosedOn)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	s.logger.Info("seeded database",
		"projects", len(f.Projects),
		"users", len(f.Users),
		"members", len(f.Members),
		"issues", len(f.Issues))
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
