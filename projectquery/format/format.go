// Package format renders project columns for display and export.
//
// Columns synthesized from an entity dispatch on their Source kind; static
// plugin columns dispatch on their id; everything else falls through to a
// BaseFormatter. Aggregate lookups go through the freshness-keyed cache.
package format

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/types"
)

// NotMemberLabel is shown in the role column of projects the actor is not a member of
const NotMemberLabel = "Not a member"

// DefaultIgnoredDirections are dropped from the organizations column when
// a project has members in more than one direction
var DefaultIgnoredDirections = []string{"CPII"}

// Separator joins the values of multi-valued cells
const Separator = ", "

// Formatter renders the columns of one request on behalf of an actor.
// It is not safe for concurrent use.
type Formatter struct {
	data    Aggregates
	cache   *cache.Cache
	actor   types.Actor
	base    BaseFormatter
	ignored []string
	now     func() time.Time
	logger  *slog.Logger

	memberships map[int64][]string
}

// Option configures a Formatter
type Option func(*Formatter)

// WithBase sets the formatter of the columns not handled here
func WithBase(base BaseFormatter) Option {
	return func(f *Formatter) { f.base = base }
}

// WithIgnoredDirections sets the directions dropped from multi-direction projects
func WithIgnoredDirections(names []string) Option {
	return func(f *Formatter) { f.ignored = append([]string(nil), names...) }
}

// WithClock sets the reference time of relative activity dates
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// WithLogger sets the formatter logger
func WithLogger(logger *slog.Logger) Option {
	return func(f *Formatter) { f.logger = logger }
}

// New creates a formatter reading aggregates from data through c
func New(data Aggregates, c *cache.Cache, actor types.Actor, opts ...Option) *Formatter {
	f := &Formatter{
		data:    data,
		cache:   c,
		actor:   actor,
		base:    ProjectFormatter{},
		ignored: DefaultIgnoredDirections,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Render returns the display value of a column. Absent values are "".
func (f *Formatter) Render(ctx context.Context, column types.ColumnSpec, p types.Project) (string, error) {
	switch column.ID {
	case types.ColumnIssues:
		counts, err := f.issueCounts(ctx)
		if err != nil {
			return "", f.failed(column, err)
		}
		c := counts[p.ID]
		return humanize.Comma(int64(c.Open)) + " / " + humanize.Comma(int64(c.Closed)), nil
	case types.ColumnActivity:
		activity, err := f.latestActivity(ctx)
		if err != nil {
			return "", f.failed(column, err)
		}
		t, ok := activity[p.ID]
		if !ok {
			return "", nil
		}
		return humanize.RelTime(t, f.now(), "ago", "from now"), nil
	case types.ColumnUsers:
		return "", nil
	}

	if tracker, ok := trackerDate(column); ok {
		return f.trackerDate(ctx, column, p, tracker, DateLayout)
	}
	if !handled(column) {
		return f.base.Render(column, p), nil
	}

	v, err := f.ExportValue(ctx, column, p)
	if err != nil {
		return "", err
	}
	return Cell(v), nil
}

// handled reports whether the column is rendered from aggregates rather
// than by the base formatter
func handled(column types.ColumnSpec) bool {
	switch column.Source.Kind {
	case types.SourceRole, types.SourceFunction, types.SourceTrackerDate:
		return true
	}
	switch column.ID {
	case types.ColumnIssues, types.ColumnUsers, types.ColumnActivity,
		types.ColumnRole, types.ColumnMembers, types.ColumnOrganizations:
		return true
	}
	return false
}

// ExportValue returns the export value of a column: a string or a []string
func (f *Formatter) ExportValue(ctx context.Context, column types.ColumnSpec, p types.Project) (any, error) {
	switch column.Source.Kind {
	case types.SourceRole, types.SourceFunction:
		orgs, err := f.organizationsMap(ctx)
		if err != nil {
			return nil, f.failed(column, err)
		}
		return nonNil(orgs[p.ID][column.ID]), nil
	case types.SourceTrackerDate:
		return f.trackerDate(ctx, column, p, column.Source.ID, TimestampLayout)
	}

	switch column.ID {
	case types.ColumnIssues, types.ColumnUsers:
		return "", nil
	case types.ColumnActivity:
		activity, err := f.latestActivity(ctx)
		if err != nil {
			return nil, f.failed(column, err)
		}
		return formatTime(activity[p.ID], TimestampLayout), nil
	case types.ColumnRole:
		roles, err := f.actorRoles(ctx)
		if err != nil {
			return nil, f.failed(column, err)
		}
		if len(roles[p.ID]) == 0 {
			return NotMemberLabel, nil
		}
		return roles[p.ID], nil
	case types.ColumnMembers:
		members, err := f.membersMap(ctx)
		if err != nil {
			return nil, f.failed(column, err)
		}
		return nonNil(members[p.ID]), nil
	case types.ColumnOrganizations:
		directions, err := f.directionsMap(ctx)
		if err != nil {
			return nil, f.failed(column, err)
		}
		return nonNil(directions[p.ID]), nil
	}

	return f.base.ExportValue(column, p), nil
}

// ExportCell returns the export value flattened into a single cell
func (f *Formatter) ExportCell(ctx context.Context, column types.ColumnSpec, p types.Project) (string, error) {
	v, err := f.ExportValue(ctx, column, p)
	if err != nil {
		return "", err
	}
	return Cell(v), nil
}

// Cell flattens an export value: lists are de-duplicated and joined with
// Separator, nil is ""
func Cell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		return strings.Join(unique(value), Separator)
	default:
		return fmt.Sprint(value)
	}
}

func (f *Formatter) trackerDate(ctx context.Context, column types.ColumnSpec, p types.Project, tracker int64, layout string) (string, error) {
	dates, err := f.lastIssueDates(ctx)
	if err != nil {
		return "", f.failed(column, err)
	}
	return formatTime(dates[p.ID][tracker], layout), nil
}

func (f *Formatter) failed(column types.ColumnSpec, err error) error {
	f.logger.Error("failed to load column data", "column", column.ID, "error", err)
	return fmt.Errorf("failed to render column %q: %w", column.ID, err)
}

func trackerDate(column types.ColumnSpec) (int64, bool) {
	if column.Source.Kind != types.SourceTrackerDate {
		return 0, false
	}
	return column.Source.ID, true
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
