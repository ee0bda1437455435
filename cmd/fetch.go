package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/samson-dev/samson-db/client"
	"github.com/samson-dev/samson-db/config"
	"github.com/spf13/cobra"
)

var (
	fetchFlags   pageFlags
	fetchFilters []string
	fetchToken   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <resource> [id]",
	Short: "Read a resource from the running CRUD service",
	Long: `Read a resource collection, or one resource by id, from the service at
BASE_URL, sending paging as query parameters and hydration in the
Samson-Hydration header.

Examples:
  samson-db fetch products --hydrate vendor
  samson-db fetch products --filter name_like=acme --page-length 5
  samson-db fetch vendors 7d9f4c1e-2b0a-4c53-9d7e-3f1a2b4c5d6e
`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadService(settings)
		exitOnError("Invalid configuration", err)

		filters, err := parseAssignments(fetchFilters)
		exitOnError("Invalid --filter", err)

		opts := []client.Option{}
		if fetchToken != "" {
			opts = append(opts, client.WithToken(fetchToken))
		}
		c, err := client.New(cfg.BaseURL, opts...)
		exitOnError("Invalid base URL", err)

		ctx := context.Background()
		if len(args) == 2 {
			id, err := uuid.Parse(args[1])
			exitOnError("Invalid id", err)
			rec, err := c.Get(ctx, args[0], id, fetchFlags.operators())
			exitOnError("Fetch failed", err)
			exitOnError("Output failed", writeOutput(cmd.OutOrStdout(), fetchFlags.output, rec))
			return
		}

		list, err := c.List(ctx, args[0], client.ListRequest{
			Paging:    fetchFlags.paging(cmd.Flags()),
			Filters:   filters,
			Operators: fetchFlags.operators(),
		})
		exitOnError("Fetch failed", err)
		exitOnError("Output failed", writeOutput(cmd.OutOrStdout(), fetchFlags.output, list))
	},
}

func init() {
	fetchFlags.register(fetchCmd.Flags())
	fetchCmd.Flags().StringArrayVar(&fetchFilters, "filter", nil, "Search field name=value sent as a query parameter (repeatable)")
	fetchCmd.Flags().StringVar(&fetchToken, "token", "", "Bearer token")
}
