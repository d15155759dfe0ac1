package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/service"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/sniffer"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/insights"
)

func newReprocessCmd(a *app) *cobra.Command {
	var period, out string
	cmd := &cobra.Command{
		Use:   "reprocess [ledger.csv|ledger.xlsx]",
		Short: "Recategorize an exported ledger and report on it",
		Long: `Read a ledger previously written by export, apply the current rule table and print
the JSON report. Rows that cannot be read back are logged and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := insights.ParsePeriod(period)
			if err != nil {
				return err
			}

			result, err := readLedger(args[0], a)
			if err != nil {
				return err
			}
			if result.TimeParseFailures > 0 {
				a.logger.Warn("completion times kept unparsed", slog.Int("rows", result.TimeParseFailures))
			}
			for _, pe := range result.Errors {
				a.logger.Warn("skipped ledger row", slog.Int("row", pe.Row), slog.String("column", pe.Column), slog.String("message", pe.Message))
			}

			report := a.service().Reprocess(cmd.Context(), &result.Ledger, importservice.Options{
				Filename: filepath.Base(args[0]),
				Period:   p,
			})

			w, closeOut, err := output(cmd, out)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVar(&period, "period", string(insights.PeriodMonthly), "volume period: Daily, Monthly, 6 Months, Yearly")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

// readLedger reads a ledger export, choosing the reader from the file content.
func readLedger(path string, a *app) (*parser.ReadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sniffed, err := sniffer.Sniff(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var result *parser.ReadResult
	switch sniffed.Format {
	case sniffer.FormatXLSX:
		result, err = parser.ReadWorkbook(bytes.NewReader(data), a.loc)
	case sniffer.FormatCSV:
		if err := sniffed.CheckLedgerCSV(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		result, err = parser.ReadLedgerCSV(bytes.NewReader(data), a.loc)
	case sniffer.FormatPDF:
		return nil, fmt.Errorf("%s is a statement PDF: use parse or export", path)
	default:
		return nil, fmt.Errorf("%s is not a ledger export", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return result, nil
}
