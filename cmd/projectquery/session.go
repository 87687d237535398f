package main

import (
	"context"
	"fmt"

	"github.com/arthur-debert/projectquery/projectquery"
	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/projectquery/export"
	"github.com/arthur-debert/projectquery/projectquery/format"
	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/types"
)

// session bundles the store and the query session of one command
type session struct {
	store *store.Store
	query *projectquery.Query
	cache *cache.Cache
}

func (s *session) Close() error {
	return s.store.Close()
}

func (cli *CLI) openStore() (*store.Store, error) {
	dbPath := cli.viperInst.GetString("db")
	if dbPath == "" {
		return nil, NewConfigError("open database", "no database configured",
			"Use --db or set db in projectquery.yaml", CommonSuggestions.CheckConfig)
	}
	s, err := store.Open(dbPath, store.WithLogger(mainLogger), store.WithQueryLogger(queriesLogger))
	if err != nil {
		return nil, NewStoreError("open database", err, CommonSuggestions.CheckDB)
	}
	return s, nil
}

// openSession opens the store and starts a query session for the
// configured actor. Plugins disabled in the configuration are left out of
// the capabilities.
func (cli *CLI) openSession(ctx context.Context) (*session, error) {
	s, err := cli.openStore()
	if err != nil {
		return nil, err
	}

	c, err := cache.NewDefault(cli.viperInst.GetInt("cache.size"), cache.WithLogger(mainLogger))
	if err != nil {
		_ = s.Close()
		return nil, NewConfigError("create cache", err.Error(), CommonSuggestions.CheckConfig)
	}

	var caps projectquery.Capabilities
	if cli.viperInst.GetBool("plugins.organizations") {
		caps.Organizations = s
	}
	if cli.viperInst.GetBool("plugins.limited_visibility") {
		caps.Functions = s
	}

	engine, err := projectquery.New(s,
		projectquery.WithCapabilities(caps),
		projectquery.WithCache(c),
		projectquery.WithLogger(mainLogger),
		projectquery.WithPerPage(cli.viperInst.GetInt("per_page")),
	)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	q, err := engine.Session(ctx, cli.actor())
	if err != nil {
		_ = s.Close()
		return nil, NewStoreError("start query session", err, CommonSuggestions.CheckDB)
	}
	return &session{store: s, query: q, cache: c}, nil
}

func (cli *CLI) actor() types.Actor {
	return types.Actor{ID: cli.viperInst.GetInt64("actor")}
}

func (cli *CLI) formatter(s *session) *format.Formatter {
	return format.New(s.store, s.cache, s.query.Actor(),
		format.WithIgnoredDirections(cli.viperInst.GetStringSlice("organizations.ignored_directions")),
		format.WithLogger(mainLogger),
	)
}

func (cli *CLI) exportOptions() (export.Options, error) {
	opts := export.Options{Encoding: cli.viperInst.GetString("encoding")}
	separator := []rune(cli.viperInst.GetString("separator"))
	switch len(separator) {
	case 0:
	case 1:
		opts.Separator = separator[0]
	default:
		return opts, NewConfigError("export projects", fmt.Sprintf("separator %q must be a single character", string(separator)))
	}
	return opts, nil
}

// allProjects walks every page of the listing
func allProjects(ctx context.Context, q *projectquery.Query) ([]types.Project, error) {
	var all []types.Project
	for page := 1; ; page++ {
		projects, err := q.Projects(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, projects...)
		if len(projects) < q.PerPage() {
			return all, nil
		}
	}
}
