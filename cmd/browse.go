package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/samson-dev/samson-db/introspect"
	"github.com/samson-dev/samson-db/query"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// pageFlags are the paging and hydration flags shared by browse and fetch.
type pageFlags struct {
	page       int
	pageLength int
	sortBy     string
	desc       bool
	hydrate    string
	output     string
}

func (p *pageFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&p.page, "page", query.DefaultPage, "Page number, starting at 1")
	fs.IntVar(&p.pageLength, "page-length", query.DefaultPageLength, "Records per page, at most 1000")
	fs.StringVar(&p.sortBy, "sort-by", "", "Column to sort by (default created_at)")
	fs.BoolVar(&p.desc, "desc", false, "Sort descending")
	fs.StringVar(&p.hydrate, "hydrate", "", "Comma-separated relations to embed, e.g. vendor,vendor.retailer")
	fs.StringVarP(&p.output, "output", "o", "json", "Output format: json or yaml")
}

// paging only sets the fields given on the command line so the defaults of
// the reader apply to the rest.
func (p *pageFlags) paging(fs *pflag.FlagSet) query.PagingModel {
	var m query.PagingModel
	if fs.Changed("page") {
		m.Page = &p.page
	}
	if fs.Changed("page-length") {
		m.PageLength = &p.pageLength
	}
	m.SortBy = p.sortBy
	if fs.Changed("desc") {
		m.IsSortDescending = &p.desc
	}
	return m
}

func (p *pageFlags) operators() query.RequestOperators {
	h := http.Header{}
	h.Set(query.HydrationHeader, p.hydrate)
	return query.OperatorsFromHeaders(h)
}

// parseAssignments turns repeated col=value flags into a map.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected column=value, got %q", pair)
		}
		out[k] = v
	}
	return out, nil
}

// searchTerms builds the filters of a browse call. Keys are sorted so the
// generated SQL is stable.
func searchTerms(where, like map[string]string, ids string, idColumn string) ([]query.Term, error) {
	var terms []query.Term

	if ids != "" {
		parsed, err := query.ParseIDs(ids)
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, len(parsed))
		for _, id := range parsed {
			values = append(values, id.String())
		}
		terms = append(terms, query.InList{Column: idColumn, Values: values})
	}

	for _, k := range sortedKeys(where) {
		terms = append(terms, query.ExactMatch{Column: k, Value: where[k]})
	}
	for _, k := range sortedKeys(like) {
		terms = append(terms, query.Like{Column: k, Value: like[k]})
	}
	return terms, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	browseFlags    pageFlags
	browseWhere    []string
	browseLike     []string
	browseIDs      string
	browseIDColumn string
)

var browseCmd = &cobra.Command{
	Use:   "browse <table>",
	Short: "Read a table through the paging and hydration contract",
	Long: `Read one page of a table directly from the database, with the same
paging defaults, total count and hydration rules as the CRUD service.

Examples:
  samson-db browse product
  samson-db browse product --page 2 --page-length 10 --sort-by name --desc
  samson-db browse product --where vendor_confirmation_status=confirmed --like name=acme
  samson-db browse product --hydrate vendor,vendor.retailer --output yaml
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		where, err := parseAssignments(browseWhere)
		exitOnError("Invalid --where", err)
		like, err := parseAssignments(browseLike)
		exitOnError("Invalid --like", err)
		terms, err := searchTerms(where, like, browseIDs, browseIDColumn)
		exitOnError("Invalid --ids", err)

		ctx := context.Background()
		cfg, conn := mustConnect(ctx)
		defer conn.Close(ctx)

		acc := query.NewAccessor(conn, introspect.New(conn, cfg.Schema),
			query.WithIDColumn(browseIDColumn),
			query.WithLogger(newLogger()),
		)
		list, err := acc.Select(ctx, args[0], terms, pagingPtr(browseFlags.paging(cmd.Flags())), browseFlags.operators())
		closeOnError(ctx, conn, "Browse failed", err)
		closeOnError(ctx, conn, "Output failed", writeOutput(cmd.OutOrStdout(), browseFlags.output, list))
	},
}

func pagingPtr(m query.PagingModel) *query.PagingModel { return &m }

func init() {
	browseFlags.register(browseCmd.Flags())
	browseCmd.Flags().StringArrayVar(&browseWhere, "where", nil, "Exact match filter column=value (repeatable)")
	browseCmd.Flags().StringArrayVar(&browseLike, "like", nil, "Case-insensitive contains filter column=value (repeatable)")
	browseCmd.Flags().StringVar(&browseIDs, "ids", "", "Comma-separated v4 UUIDs to select")
	browseCmd.Flags().StringVar(&browseIDColumn, "id-column", "id", "Primary key column used by --ids")
}
