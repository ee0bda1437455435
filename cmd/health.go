package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/samson-dev/samson-db/config"
	"github.com/samson-dev/samson-db/database"
	"github.com/samson-dev/samson-db/introspect"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and responsive.

Examples:
  samson-db health                    # Check the configured database
  samson-db health --timeout 10s      # Set custom timeout
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		if err := checkDatabaseHealth(cfg); err != nil {
			fmt.Printf("❌ Database health check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Database is healthy and accessible")
	},
}

var healthTimeout time.Duration

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
}

func checkDatabaseHealth(cfg config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	conn, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	tables, err := introspect.New(conn, cfg.Schema).ListTables(ctx)
	if err != nil {
		return err
	}

	if len(tables) == 0 {
		fmt.Printf("⚠️  Database is accessible but schema %s has no tables\n", cfg.Schema)
		fmt.Println("   Run 'samson-db migrate' to apply the schema files")
		return nil
	}

	fmt.Printf("📊 Found %d table(s) in schema %s\n", len(tables), cfg.Schema)
	return nil
}
