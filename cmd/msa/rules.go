package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/categorization"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the categorization rule table",
	}
	cmd.AddCommand(newRulesPrintCmd(a), newRulesAuditCmd(a), newRulesMatchCmd(a))
	return cmd
}

func newRulesPrintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the active rule table as YAML",
		Long:  `Print the active rule table in the format --rules reads, as a starting point for a custom table.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return categorization.WriteRules(cmd.OutOrStdout(), a.rules)
		},
	}
}

func newRulesAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "List rules hidden by an earlier rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shadows := categorization.FindShadowedRules(a.rules)
			out := cmd.OutOrStdout()
			if len(shadows) == 0 {
				fmt.Fprintf(out, "%d rules, none shadowed\n", len(a.rules))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tPATTERN\tCATEGORY\tSHADOWED BY\tPATTERN\tCATEGORY\tREDUNDANT")
			for _, s := range shadows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%t\n",
					s.Index, s.Rule.Pattern, s.Rule.Category, s.ByIndex, s.By.Pattern, s.By.Category, s.SameCategory)
			}
			return tw.Flush()
		},
	}
}

func newRulesMatchCmd(a *app) *cobra.Command {
	var threshold, limit int
	cmd := &cobra.Command{
		Use:   "match [details]",
		Short: "Categorize transaction details",
		Long: `Print the category the active rule table assigns to transaction details, then every
rule whose pattern occurs in them, in table order; the first one wins. When no rule
matches, the closest rules are listed as suggestions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			category := categorization.NewCategorizer(a.rules).Categorize(args[0])
			fmt.Fprintln(out, category)

			matches := categorization.NewAuditor(a.rules).Matching(args[0])
			for i, m := range matches {
				marker := " "
				if i == 0 {
					marker = "*"
				}
				fmt.Fprintf(out, "%s rule %d %q -> %s\n", marker, m.Index, m.Rule.Pattern, m.Rule.Category)
			}
			if len(matches) > 0 {
				return nil
			}

			for _, s := range categorization.NewSuggester(a.rules).Suggest(args[0], threshold, limit) {
				fmt.Fprintf(out, "  did you mean %q -> %s (score %d)\n", s.Rule.Pattern, s.Rule.Category, s.Score)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 60, "minimum suggestion score, 0-100")
	cmd.Flags().IntVar(&limit, "limit", 3, "maximum suggestions")
	return cmd
}
