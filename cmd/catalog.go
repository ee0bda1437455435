package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/samson-dev/samson-db/introspect"
	"github.com/spf13/cobra"
)

var catalogOutput string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show tables, foreign keys and reference cycles",
	Long: `Read the live catalog of the configured schema.

Examples:
  samson-db catalog
  samson-db catalog --output yaml
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, conn := mustConnect(ctx)
		defer conn.Close(ctx)

		snap, err := introspect.New(conn, cfg.Schema).Inspect(ctx)
		closeOnError(ctx, conn, "Catalog read failed", err)

		if catalogOutput == "text" {
			printSnapshot(cmd.OutOrStdout(), snap)
			return
		}
		closeOnError(ctx, conn, "Output failed", writeOutput(cmd.OutOrStdout(), catalogOutput, snap))
	},
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogOutput, "output", "o", "text", "Output format: text, json or yaml")
}

func printSnapshot(w io.Writer, snap *introspect.Snapshot) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if len(snap.Tables) == 0 {
		fmt.Fprintf(w, "📭 Schema %s has no tables\n", snap.Schema)
		return
	}

	fmt.Fprintf(w, "📋 Schema %s: %d table(s)\n", snap.Schema, len(snap.Tables))
	for _, t := range snap.Tables {
		fmt.Fprintf(w, "\n%s\n", bold(t.Name))
		refs := snap.References[t.Name]
		if len(refs) == 0 {
			fmt.Fprintln(w, faint("   no foreign keys"))
			continue
		}
		for _, r := range refs {
			fmt.Fprintf(w, "   🔗 %s: %s → %s.%s\n", r.Constraint, r.Column, r.ReferencedTable, r.ReferencedColumn)
		}
	}

	if len(snap.Cycles) > 0 {
		fmt.Fprintf(w, "\n🔁 Reference cycles (hammer breaks these by dropping constraints first):\n")
		for _, c := range snap.Cycles {
			fmt.Fprintf(w, "   - %s\n", strings.Join(c, " ↔ "))
		}
	}
}
