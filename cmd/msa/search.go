package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/categorization"
)

type searchOptions struct {
	indexPath string
	category  bool
	prefix    bool
	fuzziness int
	limit     int
}

func newSearchCmd(a *app) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search transactions indexed by parse --index",
		Long: `Search the transaction index. The query is matched against transaction details
unless --category, --prefix or --fuzzy select another mode. Bleve query syntax such as
'category:Airtime +details:safaricom' is accepted in the default mode.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.indexPath, "index", "", "search index path (default: PIPELINE_SEARCH_INDEX_PATH)")
	cmd.Flags().BoolVar(&opts.category, "category", false, "match the query as an exact category")
	cmd.Flags().BoolVar(&opts.prefix, "prefix", false, "match the query as a details prefix")
	cmd.Flags().IntVar(&opts.fuzziness, "fuzzy", 0, "match details within this edit distance")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "maximum results")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.indexPath == "" {
			opts.indexPath = a.cfg.Pipeline.SearchIndexPath
		}
		if opts.indexPath == "" {
			return errors.New("no search index: pass --index or set PIPELINE_SEARCH_INDEX_PATH")
		}
		return nil
	}
	return cmd
}

func runSearch(cmd *cobra.Command, opts *searchOptions, q string) error {
	index, err := categorization.NewSearchIndex(opts.indexPath)
	if err != nil {
		return err
	}
	defer index.Close()

	var results []categorization.SearchResult
	switch {
	case opts.category:
		results, err = index.SearchByCategory(q, opts.limit)
	case opts.prefix:
		results, err = index.SearchWithPrefix(q, opts.limit)
	case opts.fuzziness > 0:
		results, err = index.SearchFuzzy(q, opts.fuzziness, opts.limit)
	default:
		results, err = index.SearchAdvanced(q, opts.limit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECEIPT\tCOMPLETED\tDIRECTION\tAMOUNT\tCATEGORY\tDETAILS")
	for _, r := range results {
		d := r.Document
		completed := ""
		if !d.CompletedAt.IsZero() {
			completed = d.CompletedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n", d.ReceiptNo, completed, d.Direction, d.Amount, d.Category, d.Details)
	}
	return tw.Flush()
}
