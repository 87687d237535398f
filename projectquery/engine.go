package projectquery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/projectquery/query"
	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/types"
)

// DefaultPerPage is the page size of the project listing
const DefaultPerPage = 1000

// QueryEngine is the capability a host listing consumes
type QueryEngine interface {
	AvailableFields() []types.FilterField
	AvailableColumns() []types.ColumnSpec
	Compile(fs *FilterSet) (*query.Predicate, error)
}

var _ QueryEngine = (*Query)(nil)

// Engine holds what outlives a query session: the catalog collaborator,
// the optional capabilities, the predicate compiler and the cache
type Engine struct {
	catalog  Catalog
	caps     Capabilities
	cache    *cache.Cache
	compiler *query.Compiler
	clock    query.Clock
	logger   *slog.Logger
	perPage  int
}

// Option configures an Engine
type Option func(*Engine)

// WithCapabilities sets the optional collaborators
func WithCapabilities(caps Capabilities) Option {
	return func(e *Engine) { e.caps = caps }
}

// WithCache sets the cache aggregate lookups go through
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithClock sets the clock relative date filters resolve against
func WithClock(clock query.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the engine logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithPerPage sets the page size of Query.Projects
func WithPerPage(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.perPage = n
		}
	}
}

// New creates an engine over a catalog
func New(catalog Catalog, opts ...Option) (*Engine, error) {
	e := &Engine{
		catalog: catalog,
		clock:   query.SystemClock,
		logger:  slog.Default(),
		perPage: DefaultPerPage,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cache == nil {
		c, err := cache.NewDefault(cache.DefaultSize, cache.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		e.cache = c
	}
	e.compiler = query.NewCompiler(query.WithClock(e.clock), query.WithLogger(e.logger))

	return e, nil
}

// Compiler returns the predicate compiler, so hosts can register hooks
func (e *Engine) Compiler() *query.Compiler {
	return e.compiler
}

// Cache returns the engine cache
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Capabilities returns the optional collaborators
func (e *Engine) Capabilities() Capabilities {
	return e.caps
}

// Session builds the registry from the live catalog content and returns a
// query running on behalf of actor
func (e *Engine) Session(ctx context.Context, actor types.Actor) (*Query, error) {
	b := &builder{catalog: e.catalog, caps: e.caps, cache: e.cache, actor: actor}
	registry, err := b.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	sessionID := uuid.NewString()
	logger := e.logger.With("session", sessionID)
	logger.Debug("query session started",
		"actor", actor.ID,
		"fields", len(registry.fields),
		"columns", len(registry.columns))

	return &Query{
		engine:   e,
		actor:    actor,
		registry: registry,
		filters:  NewFilterSet(registry),
		session:  sessionID,
		logger:   logger,
	}, nil
}

// SortCriterion orders the listing by a sortable column. An empty
// Direction uses the column's default order.
type SortCriterion struct {
	Column    string
	Direction string
}

// Query is one query session over a registry snapshot
type Query struct {
	engine   *Engine
	actor    types.Actor
	registry *Registry
	filters  *FilterSet
	columns  []types.ColumnSpec
	sort     []string
	session  string
	logger   *slog.Logger
}

// SessionID identifies the session in logs
func (q *Query) SessionID() string { return q.session }

// Actor is the principal the query runs for
func (q *Query) Actor() types.Actor { return q.actor }

// Registry returns the registry snapshot of the session
func (q *Query) Registry() *Registry { return q.registry }

// Filters returns the filter set of the query
func (q *Query) Filters() *FilterSet { return q.filters }

// PerPage is the page size of Projects
func (q *Query) PerPage() int { return q.engine.perPage }

// AvailableFields implements QueryEngine
func (q *Query) AvailableFields() []types.FilterField {
	return q.registry.AllFields()
}

// AvailableColumns implements QueryEngine
func (q *Query) AvailableColumns() []types.ColumnSpec {
	return q.registry.AllColumns()
}

// Compile implements QueryEngine
func (q *Query) Compile(fs *FilterSet) (*query.Predicate, error) {
	pred, err := q.engine.compiler.Compile(q.registry, fs.Filters(), q.actor)
	if err != nil {
		return nil, err
	}
	if q.logger.Enabled(context.Background(), slog.LevelDebug) {
		sqlText, args, _ := pred.ToSql()
		q.logger.Debug("compiled filters", "filters", fs.Len(), "sql", sqlText, "args", args)
	}
	return pred, nil
}

// SetColumns selects the columns to render
func (q *Query) SetColumns(ids []string) error {
	columns, err := q.registry.ColumnsFor(ids)
	if err != nil {
		return err
	}
	q.columns = columns
	return nil
}

// Columns returns the selected columns, DefaultColumns when none was set
func (q *Query) Columns() []types.ColumnSpec {
	if q.columns != nil {
		return q.columns
	}
	columns, _ := q.registry.ColumnsFor(DefaultColumns)
	return columns
}

// SetSort orders the listing by the given columns
func (q *Query) SetSort(criteria ...SortCriterion) error {
	terms := make([]string, 0, len(criteria))
	for _, c := range criteria {
		column, ok := q.registry.Column(c.Column)
		if !ok {
			return &types.UnknownColumnError{Column: c.Column}
		}
		if !column.Sortable() {
			return fmt.Errorf("%w: column %q is not sortable", types.ErrValidation, c.Column)
		}

		direction := strings.ToLower(c.Direction)
		if direction == "" {
			direction = strings.ToLower(column.DefaultOrder)
		}
		switch direction {
		case "", "asc":
			terms = append(terms, column.SortExpr+" ASC")
		case "desc":
			terms = append(terms, column.SortExpr+" DESC")
		default:
			return fmt.Errorf("%w: invalid sort direction %q", types.ErrValidation, c.Direction)
		}
	}
	q.sort = terms
	return nil
}

// Projects returns one page (starting at 1) of the projects matching the filters
func (q *Query) Projects(ctx context.Context, page int) ([]types.Project, error) {
	pred, err := q.Compile(q.filters)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	perPage := uint64(q.engine.perPage)
	opts := store.FindOptions{
		OrderBy: q.sort,
		Limit:   perPage,
		Offset:  uint64(page-1) * perPage,
	}
	projects, err := q.engine.catalog.FindWhere(ctx, pred, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find projects: %w", err)
	}

	q.logger.Info("listed projects", "filters", q.filters.Len(), "page", page, "results", len(projects))
	return projects, nil
}

// Count returns the number of projects matching the filters
func (q *Query) Count(ctx context.Context) (int, error) {
	pred, err := q.Compile(q.filters)
	if err != nil {
		return 0, err
	}
	return q.engine.catalog.Count(ctx, pred)
}
