package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/categorization"
	importservice "github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/service"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/insights"
)

type parseOptions struct {
	password  string
	period    string
	indexPath string
	out       string
}

// parseItem is one entry of the parse output.
type parseItem struct {
	File   string                `json:"file"`
	Report *importservice.Report `json:"report,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func newParseCmd(a *app) *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [statement.pdf...]",
		Short: "Parse statements into JSON reports",
		Long: `Parse one or more M-PESA PDF statements and print a JSON report for each:
metadata, summary table, ledger, incoming and outgoing sub-ledgers and insights.
Statements are processed in parallel; one failing statement does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "password of protected statements")
	cmd.Flags().StringVar(&opts.period, "period", string(insights.PeriodDaily), "volume period: Daily, Monthly, 6 Months, Yearly")
	cmd.Flags().StringVar(&opts.indexPath, "index", "", "add categorized transactions to the search index at this path")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func runParse(cmd *cobra.Command, a *app, opts *parseOptions, files []string) error {
	period, err := insights.ParsePeriod(opts.period)
	if err != nil {
		return err
	}

	svc := a.service()
	if opts.indexPath != "" {
		index, err := categorization.NewSearchIndex(opts.indexPath)
		if err != nil {
			return err
		}
		defer index.Close()
		svc.WithSearchIndex(index)
	}

	inputs := make([]importservice.Input, len(files))
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs[i] = importservice.Input{Name: filepath.Base(path), Data: data}
	}

	results, err := svc.ProcessBatch(cmd.Context(), inputs, importservice.Options{Password: opts.password, Period: period})
	if err != nil {
		return err
	}

	items := make([]parseItem, len(results))
	failed := 0
	for i, res := range results {
		items[i] = parseItem{File: files[i], Report: res.Report}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			failed++
		}
	}

	w, closeOut, err := output(cmd, opts.out)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d statements failed", failed, len(files))
	}
	return nil
}
