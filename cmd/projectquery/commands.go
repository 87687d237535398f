package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/projectquery/projectquery/export"
)

// addFiltersCommand lists the filter fields of a session with their values
func (cli *CLI) addFiltersCommand() {
	filtersCmd := &cobra.Command{
		Use:   "filters",
		Short: "List the available filter fields",
		Long: `List the filter fields available to the actor, with their type and values.

The table format groups the fields the way a filter selector shows them; json
and yaml include the selectable values.

Examples:
  projectquery --db projects.db filters
  projectquery --db projects.db --actor 3 --format json filters`,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := cli.openSession(ctx)
			if err != nil {
				return WrapError("list filters", err, CommonSuggestions.CheckDB)
			}
			defer func() { _ = sess.Close() }()

			out := cmd.OutOrStdout()
			switch outFormat := cli.viperInst.GetString("format"); outFormat {
			case "json":
				data, err := sess.query.AvailableFiltersJSON(ctx)
				if err != nil {
					return WrapError("list filters", err)
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			case "yaml":
				filters, err := sess.query.AvailableFilters(ctx)
				if err != nil {
					return WrapError("list filters", err)
				}
				return writeResult(out, outFormat, filters)
			}

			var rows [][]string
			for _, group := range sess.query.GroupedFilterOptions() {
				for _, option := range group.Options {
					field, _ := sess.query.Registry().Field(option.Value)
					rows = append(rows, []string{group.Label, option.Value, option.Label, string(field.Type)})
				}
			}
			return writeTable(out, []string{"GROUP", "FIELD", "NAME", "TYPE"}, rows, cli.viperInst.GetBool("quiet"))
		},
	}

	cli.rootCmd.AddCommand(filtersCmd)
}

// columnInfo is the listed shape of a column
type columnInfo struct {
	ID        string `json:"id" yaml:"id"`
	Caption   string `json:"caption" yaml:"caption"`
	Sortable  bool   `json:"sortable" yaml:"sortable"`
	Groupable bool   `json:"groupable" yaml:"groupable"`
	Inline    bool   `json:"inline" yaml:"inline"`
}

// addColumnsCommand lists the columns of a session
func (cli *CLI) addColumnsCommand() {
	columnsCmd := &cobra.Command{
		Use:   "columns",
		Short: "List the available columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cli.openSession(cmd.Context())
			if err != nil {
				return WrapError("list columns", err, CommonSuggestions.CheckDB)
			}
			defer func() { _ = sess.Close() }()

			columns := sess.query.AvailableColumns()
			infos := make([]columnInfo, 0, len(columns))
			for _, c := range columns {
				infos = append(infos, columnInfo{ID: c.ID, Caption: c.Title(), Sortable: c.Sortable(), Groupable: c.Groupable, Inline: c.Inline})
			}

			out := cmd.OutOrStdout()
			if outFormat := cli.viperInst.GetString("format"); outFormat == "json" || outFormat == "yaml" {
				return writeResult(out, outFormat, infos)
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{info.ID, info.Caption, strconv.FormatBool(info.Sortable), strconv.FormatBool(info.Groupable)})
			}
			return writeTable(out, []string{"COLUMN", "CAPTION", "SORTABLE", "GROUPABLE"}, rows, cli.viperInst.GetBool("quiet"))
		},
	}

	cli.rootCmd.AddCommand(columnsCmd)
}

// addListCommand adds the paginated project listing
func (cli *CLI) addListCommand() {
	var qf queryFlags

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the projects matching the filters",
		Long: `List one page of the projects matching the filters, rendered through the
selected columns.

Filters take the form "<field> <operator> [value,value...]". Operators:
  =  !          is / is not (lists, text, dates)
  ~  !~         contains / doesn't contain (text)
  *  !*         any / none
  >=  <=  ><    on or after / on or before / between (dates)
  >t- <t- t-    less than / more than / exactly days ago
  t ld w lw l2w m lm y   relative periods (dates)

Examples:
  projectquery list --filter "status = 1"
  projectquery --actor 3 list --filter "member_id = me" --columns name,role,activity
  projectquery list --filter "organizations = 5" --sort activity:desc
  projectquery list --filter "updated_on >= 20 days ago" --page 2`,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := cli.openSession(ctx)
			if err != nil {
				return WrapError("list projects", err, CommonSuggestions.CheckDB)
			}
			defer func() { _ = sess.Close() }()

			if err := qf.apply(sess.query); err != nil {
				return WrapError("list projects", err)
			}
			projects, err := sess.query.Projects(ctx, qf.page)
			if err != nil {
				return WrapError("list projects", err)
			}
			total, err := sess.query.Count(ctx)
			if err != nil {
				return WrapError("count projects", err)
			}

			columns := sess.query.Columns()
			f := cli.formatter(sess)
			out := cmd.OutOrStdout()
			outFormat := cli.viperInst.GetString("format")
			quiet := cli.viperInst.GetBool("quiet")

			if outFormat == "csv" {
				opts, err := cli.exportOptions()
				if err != nil {
					return err
				}
				if err := export.WriteCSV(ctx, out, f, columns, projects, opts); err != nil {
					return WrapError("list projects", err)
				}
			} else {
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					row := make([]string, len(columns))
					for i, column := range columns {
						if row[i], err = f.Render(ctx, column, p); err != nil {
							return WrapError("render projects", err)
						}
					}
					rows = append(rows, row)
				}
				if err := writeRows(out, outFormat, columns, rows, quiet); err != nil {
					return err
				}
				if outFormat == "table" && !quiet {
					fmt.Fprintf(out, "\n%d of %d projects\n", len(projects), total)
				}
			}

			logOperation("list",
				"session", sess.query.SessionID(),
				"filters", sess.query.Filters().Len(),
				"page", qf.page,
				"results", len(projects),
				"total", total)
			return nil
		},
	}

	qf.register(listCmd)
	listCmd.Flags().IntVar(&qf.page, "page", 1, "Page to list, starting at 1")

	cli.rootCmd.AddCommand(listCmd)
}

// addExportCommand adds the CSV export of every matching project
func (cli *CLI) addExportCommand() {
	var (
		qf     queryFlags
		output string
	)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the projects matching the filters as CSV",
		Long: `Export every project matching the filters as CSV, across all pages.

Array cells (roles, members, organizations) are de-duplicated and joined with
", ". The charset and separator come from --encoding and --separator.

Examples:
  projectquery export --filter "status = 1" --columns name,members,organizations
  projectquery --encoding ISO-8859-1 --separator ";" export --output projects.csv
  projectquery export --output -   # write to stdout`,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := cli.exportOptions()
			if err != nil {
				return err
			}

			sess, err := cli.openSession(ctx)
			if err != nil {
				return WrapError("export projects", err, CommonSuggestions.CheckDB)
			}
			defer func() { _ = sess.Close() }()

			if err := qf.apply(sess.query); err != nil {
				return WrapError("export projects", err)
			}
			projects, err := allProjects(ctx, sess.query)
			if err != nil {
				return WrapError("export projects", err)
			}

			f := cli.formatter(sess)
			columns := sess.query.Columns()
			if output == "-" {
				err = export.WriteCSV(ctx, cmd.OutOrStdout(), f, columns, projects, opts)
			} else {
				err = export.ToPath(ctx, output, f, columns, projects, opts)
			}
			if err != nil {
				return WrapError("export projects", err)
			}

			logOperation("export",
				"session", sess.query.SessionID(),
				"output", output,
				"columns", len(columns),
				"results", len(projects))
			if output != "-" && !cli.viperInst.GetBool("quiet") {
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d projects to %s\n", len(projects), output)
			}
			return nil
		},
	}

	qf.register(exportCmd)
	exportCmd.Flags().StringVarP(&output, "output", "o", export.DefaultFilename, "Output file, - for stdout")

	cli.rootCmd.AddCommand(exportCmd)
}

// addSeedCommand loads a YAML seed file into the database
func (cli *CLI) addSeedCommand() {
	seedCmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load projects, users, memberships and issues from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			dbPath := cli.viperInst.GetString("db")
			if err := s.SeedFile(cmd.Context(), dbPath, args[0]); err != nil {
				return WrapError("seed database", err, "Check the seed file syntax and that the ids are not already used")
			}

			logOperation("seed", "db", dbPath, "fixture", args[0])
			if !cli.viperInst.GetBool("quiet") {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s from %s\n", dbPath, args[0])
			}
			return nil
		},
	}

	cli.rootCmd.AddCommand(seedCmd)
}

// addConfigCommand shows the merged configuration
func (cli *CLI) addConfigCommand() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Long: `Display the current configuration from all sources (flags, env vars, config files).

Examples:
  projectquery config
  PROJECTQUERY_PER_PAGE=50 projectquery config`,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings := cli.viperInst.AllSettings()
			if file := cli.viperInst.ConfigFileUsed(); file != "" {
				settings["config_file"] = file
			}
			return writeResult(cmd.OutOrStdout(), "yaml", settings)
		},
	}

	cli.rootCmd.AddCommand(configCmd)
}
