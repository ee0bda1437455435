package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/samson-dev/samson-db/config"
	"github.com/samson-dev/samson-db/runner"
	"github.com/spf13/cobra"
)

var dryRunMigrate bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply every schema file in lexical order",
	Long: `Apply every file in the schema directory, ordered by file name.

There is no applied-migrations ledger: every run executes every file again.
The first failing file stops the run; files already applied stay applied.

Examples:
  samson-db migrate
  samson-db migrate --dry-run
  samson-db migrate --schema-dir ./db/schema
`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := settings.GetString(config.KeySchemaDir)

		if dryRunMigrate {
			if err := previewMigrations(dir); err != nil {
				fmt.Println("❌ Dry run failed:", err)
				os.Exit(1)
			}
			return
		}

		ctx := context.Background()
		cfg, conn := mustConnect(ctx)
		defer conn.Close(ctx)

		fmt.Printf("🔧 Applying schema files from %s to %s\n", dir, cfg.Redacted())
		if err := runner.New(conn, os.DirFS(dir), newLogger()).Migrate(ctx); err != nil {
			fmt.Println("❌ Migration failed:", err)
			conn.Close(ctx)
			os.Exit(1)
		}
		fmt.Println("✅ Schema files applied")
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "List the files that would be applied, in order, without connecting")
}

func previewMigrations(dir string) error {
	files, err := runner.New(nil, os.DirFS(dir), newLogger()).Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("📭 No schema files found in", dir)
		return nil
	}

	fmt.Printf("📋 %d schema file(s) would be applied in this order:\n", len(files))
	for _, f := range files {
		note := ""
		if f.Blank() {
			note = " (empty, skipped)"
		}
		fmt.Printf("   %3d. %s%s\n", f.Ordinal, f.Path, note)
	}
	return nil
}
