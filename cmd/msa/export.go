package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/service"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

func newExportCmd(a *app) *cobra.Command {
	var password, format, out string
	cmd := &cobra.Command{
		Use:   "export [statement.pdf]",
		Short: "Export the categorized ledger as CSV or XLSX",
		Long: `Export the categorized ledger of a statement. CSV holds the ledger only; XLSX adds
the incoming and outgoing sub-ledgers and the summary table as extra sheets.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatFromPath(out)
			}
			if format != formatCSV && format != formatXLSX {
				return fmt.Errorf("unknown format %q: use csv or xlsx", format)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			report, err := a.service().Process(cmd.Context(), data, importservice.Options{
				Password: password,
				Filename: filepath.Base(args[0]),
			})
			if err != nil {
				return err
			}

			w, closeOut, err := output(cmd, out)
			if err != nil {
				return err
			}
			if format == formatXLSX {
				err = parser.WriteWorkbook(w, parser.Workbook{
					Ledger:   report.Ledger,
					Incoming: report.Incoming,
					Outgoing: report.Outgoing,
					Summary:  report.Summary,
				})
			} else {
				err = parser.WriteLedgerCSV(w, report.Ledger)
			}
			if err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "statement password")
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or xlsx (default: from --output extension, else csv)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return formatXLSX
	}
	return formatCSV
}
