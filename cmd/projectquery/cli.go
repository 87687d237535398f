package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/projectquery/projectquery"
	"github.com/arthur-debert/projectquery/projectquery/cache"
	"github.com/arthur-debert/projectquery/projectquery/format"
)

// CLI is the Viper-driven project query command line
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
}

// NewCLI creates the CLI and loads its configuration
func NewCLI() *CLI {
	cli := &CLI{viperInst: viper.New()}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// setupViperConfig configures Viper with defaults, environment variables and config files
func (cli *CLI) setupViperConfig() {
	v := cli.viperInst

	if configFile := os.Getenv("PROJECTQUERY_CONFIG"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("projectquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.projectquery")
		v.AddConfigPath("/etc/projectquery")
	}

	v.SetDefault("format", "table")
	v.SetDefault("actor", 0)
	v.SetDefault("encoding", "UTF-8")
	v.SetDefault("separator", ",")
	v.SetDefault("per_page", projectquery.DefaultPerPage)
	v.SetDefault("plugins.organizations", true)
	v.SetDefault("plugins.limited_visibility", true)
	v.SetDefault("cache.size", cache.DefaultSize)
	v.SetDefault("organizations.ignored_directions", format.DefaultIgnoredDirections)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.queries", false)

	v.AutomaticEnv()
	v.SetEnvPrefix("PROJECTQUERY")
	// PROJECTQUERY_PER_PAGE, PROJECTQUERY_LOG_LEVEL, ...
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Read config file if it exists (ignore errors)
	_ = v.ReadInConfig()
}

// createRootCommand creates the root Cobra command with Viper integration
func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "projectquery",
		Short: "Query, list and export projects",
		Long: `projectquery filters a project database with typed filter fields and
renders the matching projects through configurable columns.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (PROJECTQUERY_*)
3. Configuration files (custom path or default locations)

Configuration File Discovery:
  PROJECTQUERY_CONFIG=/path/to/config.yaml   # Custom config file path
  ./projectquery.yaml                        # Current directory
  ~/.projectquery/projectquery.yaml          # User directory
  /etc/projectquery/projectquery.yaml        # System directory

Examples:
  projectquery --db projects.db seed universe.yaml
  projectquery --db projects.db filters
  projectquery --db projects.db --actor 3 list --filter "status = 1" --columns name,role
  projectquery --db projects.db export --filter "member_id = me" --output mine.csv`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogging(cli.viperInst.GetString("log.level"), cli.viperInst.GetBool("log.queries")); err != nil {
				return NewConfigError("initialize logging", err.Error())
			}
			return nil
		},
	}

	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.StringP("db", "d", "", "Database file path")
	flags.Int64P("actor", "a", 0, "Id of the user the query runs for (0 is anonymous)")
	flags.StringP("format", "f", "table", "Output format (table|json|yaml|csv)")
	flags.BoolP("quiet", "q", false, "Suppress headers and totals")
	flags.String("encoding", "UTF-8", "CSV charset")
	flags.String("separator", ",", "CSV separator")
	flags.Int("per-page", projectquery.DefaultPerPage, "Projects per page")
	flags.Int("cache-size", cache.DefaultSize, "Entries kept by the aggregate cache")
	flags.Bool("organizations", true, "Enable the organization fields and columns")
	flags.Bool("limited-visibility", true, "Enable the function columns")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.Bool("log-queries", false, "Echo compiled SQL to stderr")

	bindings := map[string]string{
		"db":                         "db",
		"actor":                      "actor",
		"format":                     "format",
		"quiet":                      "quiet",
		"encoding":                   "encoding",
		"separator":                  "separator",
		"per_page":                   "per-page",
		"cache.size":                 "cache-size",
		"plugins.organizations":      "organizations",
		"plugins.limited_visibility": "limited-visibility",
		"log.level":                  "log-level",
		"log.queries":                "log-queries",
	}
	for key, flag := range bindings {
		_ = cli.viperInst.BindPFlag(key, flags.Lookup(flag))
	}
}

// addCommands adds all the CLI commands
func (cli *CLI) addCommands() {
	cli.addFiltersCommand()
	cli.addColumnsCommand()
	cli.addListCommand()
	cli.addExportCommand()
	cli.addSeedCommand()
	cli.addConfigCommand()
}

// Execute runs the CLI
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// GetConfig returns the current Viper configuration
func (cli *CLI) GetConfig(key string) interface{} {
	return cli.viperInst.Get(key)
}

// GetRootCommand returns the root Cobra command for testing
func (cli *CLI) GetRootCommand() *cobra.Command {
	return cli.rootCmd
}
