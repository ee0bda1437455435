package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samson-dev/samson-db/database"
	"github.com/samson-dev/samson-db/hammer"
	"github.com/samson-dev/samson-db/introspect"
	"github.com/spf13/cobra"
)

var (
	dryRunHammer bool
	assumeYes    bool
)

var hammerCmd = &cobra.Command{
	Use:   "hammer",
	Short: "Drop every constraint, row and table in the schema",
	Long: `Tear the configured schema down completely.

Every foreign key is dropped first, then every table is emptied, then every
table is dropped. Reference cycles need no special handling.

This is destructive and not wrapped in a transaction. It is meant for
disposable and test databases; rerun it to finish a partial teardown.

Examples:
  samson-db hammer --dry-run      # print the statements as YAML
  samson-db hammer                # asks for the database name first
  samson-db hammer --yes          # no prompt
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, conn := mustConnect(ctx)
		defer conn.Close(ctx)

		catalog := introspect.New(conn, cfg.Schema)
		engine := hammer.New(conn, catalog, newLogger())

		if dryRunHammer {
			plan, err := engine.Plan(ctx)
			closeOnError(ctx, conn, "Plan failed", err)
			out, err := plan.YAML()
			closeOnError(ctx, conn, "Plan failed", err)
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return
		}

		if !assumeYes {
			fmt.Printf("⚠️  This will permanently delete every table in %s\n", cfg.Redacted())
			ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Database)
			closeOnError(ctx, conn, "Confirmation failed", err)
			if !ok {
				fmt.Println("🛑 Aborted")
				return
			}
		}

		if err := engine.Hammer(ctx); err != nil {
			reportTeardownError(err)
			conn.Close(ctx)
			os.Exit(1)
		}
		fmt.Println("✅ Schema", cfg.Schema, "is empty")
	},
}

func init() {
	hammerCmd.Flags().BoolVar(&dryRunHammer, "dry-run", false, "Print the teardown plan as YAML without executing it")
	hammerCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

// confirm asks the operator to type the database name.
func confirm(in io.Reader, out io.Writer, name string) (bool, error) {
	fmt.Fprintf(out, "Type the database name (%s) to continue: ", name)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.TrimSpace(line) == name, nil
}

func reportTeardownError(err error) {
	var te *hammer.TeardownError
	if !errors.As(err, &te) {
		fmt.Println("❌ Teardown failed:", err)
		return
	}
	fmt.Printf("❌ Teardown incomplete, %d table operation(s) failed:\n", len(te.Failures))
	for _, f := range te.Failures {
		fmt.Printf("   - %s %s: %s\n", f.Phase, f.Table, database.Diagnostic(f.Err))
	}
	fmt.Println("   Fix the cause and run hammer again to finish.")
}
