package query

import (
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/projectquery/types"
)

// Table and column names of the project listing
const (
	ProjectsTable = "projects"
	ProjectID     = "projects.id"
)

// Filter is one condition of a filter set
type Filter struct {
	Field    string
	Operator types.Operator
	Values   []string
}

// FieldLookup resolves filter ids to registered fields
type FieldLookup interface {
	Field(id string) (types.FilterField, bool)
}

// Env carries what a compilation depends on besides the filters
type Env struct {
	Actor types.Actor
	Now   time.Time
}

// FieldCompiler compiles one condition of a field into a predicate fragment.
// Values have already been validated and stripped of blanks.
type FieldCompiler func(env Env, field types.FilterField, op types.Operator, values []string) (sq.Sqlizer, error)

// Compiler turns filters into a Predicate. Fields are compiled by, in order:
// a hook registered for their id, a hook registered for their source kind,
// or the attribute compiler over FilterField.Column.
type Compiler struct {
	clock   Clock
	logger  *slog.Logger
	byField map[string]FieldCompiler
	byKind  map[types.SourceKind]FieldCompiler
}

// Option configures a Compiler
type Option func(*Compiler)

// WithClock sets the clock relative dates are resolved against
func WithClock(clock Clock) Option {
	return func(c *Compiler) { c.clock = clock }
}

// WithLogger sets the logger used to trace compiled fragments
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// NewCompiler creates a compiler with the built-in field hooks registered
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		clock:   SystemClock,
		logger:  slog.Default(),
		byField: make(map[string]FieldCompiler),
		byKind:  make(map[types.SourceKind]FieldCompiler),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Register("member_id", compileMember)
	c.Register("organizations", compileOrganizationTree)
	c.Register("organization", compileOrganization)
	c.RegisterKind(types.SourceTrackerDate, compileTrackerDate)

	return c
}

// Register sets the compiler hook of a field id, replacing any previous one
func (c *Compiler) Register(fieldID string, fc FieldCompiler) {
	c.byField[fieldID] = fc
}

// RegisterKind sets the compiler hook of every field synthesized from kind
func (c *Compiler) RegisterKind(kind types.SourceKind, fc FieldCompiler) {
	c.byKind[kind] = fc
}

// Compile validates and compiles filters in order and joins the fragments with AND
func (c *Compiler) Compile(fields FieldLookup, filters []Filter, actor types.Actor) (*Predicate, error) {
	env := Env{Actor: actor, Now: c.clock()}
	pred := &Predicate{}

	for _, f := range filters {
		field, err := ResolveField(fields, f.Field)
		if err != nil {
			return nil, err
		}

		values, err := ValidateFor(field, f.Operator, f.Values)
		if err != nil {
			return nil, err
		}

		compile, err := c.compilerFor(field)
		if err != nil {
			return nil, err
		}

		fragment, err := compile(env, field, f.Operator, values)
		if err != nil {
			return nil, fmt.Errorf("compiling filter %q: %w", f.Field, err)
		}

		c.logger.Debug("compiled filter",
			"field", f.Field,
			"operator", string(f.Operator),
			"values", values)

		pred.add(f.Field, fragment)
	}

	return pred, nil
}

func (c *Compiler) compilerFor(field types.FilterField) (FieldCompiler, error) {
	if fc, ok := c.byField[field.ID]; ok {
		return fc, nil
	}
	if fc, ok := c.byKind[field.Source.Kind]; ok && !field.Source.IsStatic() {
		return fc, nil
	}
	if field.Column != "" {
		return compileAttribute, nil
	}
	// A field nobody knows how to compile must never silently match everything
	return nil, fmt.Errorf("%w: filter %q has no predicate compiler", types.ErrUnknownFilterField, field.ID)
}

// ResolveField looks a filter id up, telling malformed synthesized ids
// apart from ids that are simply not registered
func ResolveField(fields FieldLookup, id string) (types.FilterField, error) {
	if field, ok := fields.Field(id); ok {
		return field, nil
	}
	if _, _, err := types.ParseSourceID(id); err != nil {
		return types.FilterField{}, err
	}
	return types.FilterField{}, &types.UnknownFilterFieldError{Field: id}
}
