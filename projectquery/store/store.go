// Package store is the SQLite persistence collaborator of the project
// query engine: it executes compiled predicates, lists the catalog
// entities dynamic fields are generated from, and computes the aggregate
// maps column formatting relies on.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arthur-debert/projectquery/projectquery/query"
)

//go:embed all:sql
var sqlFiles embed.FS

// DriverName is the database/sql driver registered by modernc.org/sqlite
const DriverName = "sqlite"

// Store is a SQLite backed project database
type Store struct {
	db      *sql.DB
	builder *SQLBuilder
	logger  *slog.Logger
	queries *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for store events
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithQueryLogger sets the logger receiving every SQL statement sent to the database
func WithQueryLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.queries = logger }
}

// Open opens (creating if needed) the database at dbPath and applies
// pending schema migrations
func Open(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps in-memory databases coherent; callers must
	// drain result sets before issuing the next statement
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{
		db:      db,
		builder: NewSQLBuilder(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close releases database resources
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	currentVersion := s.currentVersion()

	entries, err := sqlFiles.ReadDir("sql/schema")
	if err != nil {
		return fmt.Errorf("failed to read schema directory: %w", err)
	}

	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		// "001_initial.sql" -> 1
		prefix, _, ok := strings.Cut(migration, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return fmt.Errorf("invalid migration filename %s: %w", migration, err)
		}
		if version <= currentVersion {
			continue
		}

		content, err := sqlFiles.ReadFile(path.Join("sql/schema", migration))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", migration, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(query.TimestampLayout),
		); err != nil {
			return fmt.Errorf("failed to update version after %s: %w", migration, err)
		}
		s.logger.Debug("applied migration", "migration", migration, "version", version)
	}

	return nil
}

func (s *Store) currentVersion() int {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		// Table doesn't exist yet
		return 0
	}
	return version
}

// logQuery records a statement on the query logger
func (s *Store) logQuery(operation, sqlText string, args []interface{}) {
	if s.queries != nil {
		s.queries.Info("sql_query",
			"operation", operation,
			"sql", sqlText,
			"args", args,
		)
	}
}

// queryRows runs a statement and hands every row to scan. Rows are fully
// drained before returning since the pool holds a single connection.
func (s *Store) queryRows(ctx context.Context, operation, sqlText string, args []interface{}, scan func(*sql.Rows) error) error {
	s.logQuery(operation, sqlText, args)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", operation, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}

func parseTimestamp(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	t, err := query.ParseDate(ns.String, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
