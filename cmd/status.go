package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/samson-dev/samson-db/introspect"
	"github.com/samson-dev/samson-db/runner"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the target database, schema files and live tables",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		fmt.Println("🎯 Target:", cfg.Redacted())

		files, err := runner.New(nil, os.DirFS(cfg.SchemaDir), nil).Files()
		if err != nil {
			fmt.Println("❌ Status error:", err)
			os.Exit(1)
		}

		fmt.Printf("\n📄 Schema files in %s (application order):\n", cfg.SchemaDir)
		if len(files) == 0 {
			fmt.Println("   (none)")
		}
		for _, f := range files {
			fmt.Println("   -", f.Path)
		}

		ctx := context.Background()
		_, conn := mustConnect(ctx)
		defer conn.Close(ctx)

		tables, err := introspect.New(conn, cfg.Schema).ListTables(ctx)
		if err != nil {
			fmt.Println("❌ Status error:", err)
			conn.Close(ctx)
			os.Exit(1)
		}

		fmt.Printf("\n🗄️  %d table(s) in schema %s\n", len(tables), cfg.Schema)
		for _, t := range tables {
			fmt.Println("   -", t.Name)
		}
	},
}
