package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/samson-dev/samson-db/config"
	"github.com/samson-dev/samson-db/console"
	"github.com/samson-dev/samson-db/database"
	"github.com/samson-dev/samson-db/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	envFile  string
	noColor  bool
	settings = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "samson-db",
	Short: "Schema lifecycle tooling for the Samson CRUD service",
	Long: `samson-db applies schema files to a database, tears a schema down
completely, and reads data through the shared paging and hydration contract.

Examples:

  samson-db init
  samson-db migrate
  samson-db hammer --yes
  samson-db browse product --hydrate vendor,vendor.retailer
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
		loaded, err := utils.LoadEnv(envFile)
		if err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}
		if !loaded {
			newLogger().Debug("no env file found, using process environment", "path", envFile)
		}
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(hammerCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(initCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.String("driver", "", "database driver: postgres or mysql ($"+config.KeyDriver+")")
	flags.String("host", "", "database host ($"+config.KeyHost+")")
	flags.String("port", "", "database port ($"+config.KeyPort+")")
	flags.String("database", "", "database name ($"+config.KeyName+")")
	flags.String("username", "", "database user ($"+config.KeyUsername+")")
	flags.String("schema", "", "schema to inspect and tear down ($"+config.KeySchema+")")
	flags.String("schema-dir", "", "directory of schema files ($"+config.KeySchemaDir+")")
	flags.String("log-level", "", "debug, info, warn or error ($"+config.KeyLogLevel+")")
	flags.String("base-url", "", "base URL of the CRUD service ($"+config.KeyBaseURL+")")

	bindFlags(flags, map[string]string{
		"driver":     config.KeyDriver,
		"host":       config.KeyHost,
		"port":       config.KeyPort,
		"database":   config.KeyName,
		"username":   config.KeyUsername,
		"schema":     config.KeySchema,
		"schema-dir": config.KeySchemaDir,
		"log-level":  config.KeyLogLevel,
		"base-url":   config.KeyBaseURL,
	})
}

// bindFlags makes each flag override its environment key when set.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := settings.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func newLogger() *slog.Logger {
	return console.NewLogger(os.Stderr, settings.GetString(config.KeyLogLevel), noColor)
}

// mustConfig loads the database configuration or exits listing every problem.
func mustConfig() config.Config {
	cfg, err := config.Load(settings)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Println("❌ Invalid configuration:")
			for _, issue := range cfgErr.Issues {
				fmt.Println("   -", issue.Message)
			}
			os.Exit(1)
		}
		exitOnError("Invalid configuration", err)
	}
	return cfg
}

// mustConnect loads configuration and opens the single connection used by a
// command. The caller closes it.
func mustConnect(ctx context.Context) (config.Config, database.Conn) {
	cfg := mustConfig()
	conn, err := database.Connect(ctx, cfg)
	exitOnError("Connection failed", err)
	return cfg, conn
}

// exit is replaced in tests.
var exit = os.Exit

func exitOnError(msg string, err error) {
	if err == nil {
		return
	}
	fmt.Printf("❌ %s: %v\n", msg, err)
	exit(1)
}

// closeOnError is exitOnError for commands holding a connection: conn is
// closed before the process exits, since deferred calls do not run.
func closeOnError(ctx context.Context, conn database.Conn, msg string, err error) {
	if err == nil {
		return
	}
	_ = conn.Close(ctx)
	exitOnError(msg, err)
}
